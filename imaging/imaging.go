// Package imaging turns raw image files into Haar signatures.
package imaging // import "github.com/Gavin1937/danbooru-iqdb/imaging"

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"

	"github.com/Gavin1937/danbooru-iqdb/haar"
	"github.com/Gavin1937/danbooru-iqdb/status"
)

// ImageFormat is the sniffed format of an image file.
type ImageFormat string

const (
	FormatUnknown ImageFormat = ""
	FormatJpeg    ImageFormat = "JPEG"
	FormatPng     ImageFormat = "PNG"
	FormatGif     ImageFormat = "GIF"
	FormatBmp     ImageFormat = "BMP"
)

var magics = []struct {
	prefix string
	format ImageFormat
}{
	{"\xff\xd8\xff", FormatJpeg},
	{"\x89\x50\x4e\x47", FormatPng},
	{"\x47\x49\x46", FormatGif},
	{"\x42\x4d", FormatBmp},
}

// DetectFormat sniffs the image format from the leading magic bytes.
func DetectFormat(data []byte) ImageFormat {
	for _, m := range magics {
		if len(data) >= len(m.prefix) && string(data[:len(m.prefix)]) == m.prefix {
			return m.format
		}
	}
	return FormatUnknown
}

// SignatureFromBlob decodes an image file, resamples it to the 128×128
// signature grid, and computes its Haar signature.
func SignatureFromBlob(data []byte) (*haar.Signature, status.S) {
	format := DetectFormat(data)
	if format == FormatUnknown {
		return nil, status.InvalidArgument(nil, "unsupported image format")
	}

	im, err := decode(format, data)
	if err != nil {
		return nil, status.InvalidArgumentf(err, "can't decode %s image", format)
	}

	thumb := resize.Resize(haar.NumPixels, haar.NumPixels, im, resize.Lanczos2)

	rchan := make([]float64, haar.NumPixelsSquared)
	gchan := make([]float64, haar.NumPixelsSquared)
	bchan := make([]float64, haar.NumPixelsSquared)
	bounds := thumb.Bounds()
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := thumb.At(x, y).RGBA()
			rchan[i] = float64(r >> 8)
			gchan[i] = float64(g >> 8)
			bchan[i] = float64(b >> 8)
			i++
		}
	}

	return haar.Transform(rchan, gchan, bchan), nil
}

func decode(format ImageFormat, data []byte) (image.Image, error) {
	r := bytes.NewReader(data)
	switch format {
	case FormatJpeg:
		return jpeg.Decode(r)
	case FormatPng:
		return png.Decode(r)
	case FormatGif:
		return gif.Decode(r)
	case FormatBmp:
		return bmp.Decode(r)
	}
	panic("unreachable")
}
