package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"

	"google.golang.org/grpc/codes"
)

func testImage() *image.NRGBA {
	im := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			im.Set(x, y, color.NRGBA{
				R: uint8(x * 4),
				G: uint8(y * 4),
				B: uint8((x + y) * 2),
				A: 255,
			})
		}
	}
	return im
}

func encodePng(t *testing.T, im image.Image) []byte {
	t.Helper()
	var b bytes.Buffer
	if err := png.Encode(&b, im); err != nil {
		t.Fatal(err)
	}
	return b.Bytes()
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		data   []byte
		format ImageFormat
	}{
		{[]byte("\xff\xd8\xff\xe0rest"), FormatJpeg},
		{[]byte("\x89\x50\x4e\x47\x0d\x0arest"), FormatPng},
		{[]byte("\x47\x49\x46\x38\x39\x61rest"), FormatGif},
		{[]byte("\x42\x4drest"), FormatBmp},
		{[]byte("\x00\x01\x02\x03"), FormatUnknown},
		{[]byte("\xff"), FormatUnknown},
		{nil, FormatUnknown},
	}
	for _, c := range cases {
		if got := DetectFormat(c.data); got != c.format {
			t.Fatalf("DetectFormat(%q) = %q, want %q", c.data, got, c.format)
		}
	}
}

func TestSignatureFromBlobUnsupported(t *testing.T) {
	_, sts := SignatureFromBlob([]byte("definitely not an image"))
	if sts == nil {
		t.Fatal("expected error")
	}
	if sts.Code() != codes.InvalidArgument {
		t.Fatal("expected invalid argument, got", sts)
	}
	if sts.Message() != "unsupported image format" {
		t.Fatal("wrong message", sts.Message())
	}
}

func TestSignatureFromBlobDecodeFailure(t *testing.T) {
	// Valid PNG magic, garbage body.
	_, sts := SignatureFromBlob([]byte("\x89\x50\x4e\x47\x0d\x0a\x1a\x0agarbage"))
	if sts == nil {
		t.Fatal("expected error")
	}
	if sts.Code() != codes.InvalidArgument {
		t.Fatal("expected invalid argument, got", sts)
	}
	if sts.Cause() == nil {
		t.Fatal("expected decoder cause")
	}
}

func TestSignatureFromPng(t *testing.T) {
	data := encodePng(t, testImage())

	s, sts := SignatureFromBlob(data)
	if sts != nil {
		t.Fatal(sts)
	}
	if s.Avglf[0] == 0 {
		t.Fatal("textured image should have nonzero DC luminance")
	}

	s2, sts := SignatureFromBlob(data)
	if sts != nil {
		t.Fatal(sts)
	}
	if *s2 != *s {
		t.Fatal("signature must be deterministic")
	}
}

func TestSignatureFromAllFormats(t *testing.T) {
	im := testImage()

	var jpegBuf, gifBuf, bmpBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, im, nil); err != nil {
		t.Fatal(err)
	}
	if err := gif.Encode(&gifBuf, im, nil); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bmpBuf, im); err != nil {
		t.Fatal(err)
	}

	blobs := map[ImageFormat][]byte{
		FormatPng:  encodePng(t, im),
		FormatJpeg: jpegBuf.Bytes(),
		FormatGif:  gifBuf.Bytes(),
		FormatBmp:  bmpBuf.Bytes(),
	}
	for format, blob := range blobs {
		if got := DetectFormat(blob); got != format {
			t.Fatalf("encoded %s sniffed as %q", format, got)
		}
		s, sts := SignatureFromBlob(blob)
		if sts != nil {
			t.Fatalf("%s: %v", format, sts)
		}
		if s.Avglf[0] == 0 {
			t.Fatalf("%s: expected nonzero DC luminance", format)
		}
	}
}

func TestSignatureScaling(t *testing.T) {
	// The signature comes from a 128×128 resample, so any input size maps
	// onto the same grid.
	small := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			small.Set(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	if _, sts := SignatureFromBlob(encodePng(t, small)); sts != nil {
		t.Fatal(sts)
	}

	large := image.NewNRGBA(image.Rect(0, 0, 300, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 300; x++ {
			large.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 99, A: 255})
		}
	}
	if _, sts := SignatureFromBlob(encodePng(t, large)); sts != nil {
		t.Fatal(sts)
	}
}
