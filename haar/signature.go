// Package haar implements the Haar-wavelet perceptual signature used by the
// similarity index: three DC coefficients plus the 40 highest-magnitude
// wavelet coefficients per channel, each stored as a signed grid index.
package haar // import "github.com/Gavin1937/danbooru-iqdb/haar"

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Gavin1937/danbooru-iqdb/status"
)

const (
	// NumCoefs is how many wavelet coefficients are kept per channel.
	NumCoefs = 40
	// NumChannels is the number of color channels in a signature.  Grayscale
	// signatures still store three rows, with rows 1 and 2 zero filled.
	NumChannels = 3
	// NumPixels is the side length of the thumbnail grid fed to the wavelet
	// transform.
	NumPixels = 128
	// NumPixelsSquared is the total cell count of the thumbnail grid, and the
	// exclusive upper bound of a coefficient magnitude.
	NumPixelsSquared = NumPixels * NumPixels

	// BlobSigSize is the byte length of the packed coefficient arrays stored
	// in the images table.
	BlobSigSize = NumChannels * NumCoefs * 2

	hashPrefix = "iqdb_"
	// HashLength is the length of the portable hash form: the prefix, 16 hex
	// digits per DC coefficient, and 4 hex digits per wavelet coefficient.
	HashLength = len(hashPrefix) + NumChannels*16 + NumChannels*NumCoefs*4
)

// Signature is the perceptual fingerprint of one image.  Each entry of Sig
// is a signed index into the wavelet coefficient grid: the magnitude is the
// row-major cell index y*128+x, the sign is the sign of the coefficient
// value there.  Zero is a valid magnitude; an int16 zero has no negative
// form, so an entry of 0 always reads as non-negative.
type Signature struct {
	Avglf [NumChannels]float64         `json:"avglf"`
	Sig   [NumChannels][NumCoefs]int16 `json:"sig"`
}

// IsGrayscale reports whether the chroma channels carry no information.
func (s *Signature) IsGrayscale() bool {
	return s.Avglf[1] == 0 && s.Avglf[2] == 0
}

// NumColors returns how many channels of the signature are meaningful.
func (s *Signature) NumColors() int {
	if s.IsGrayscale() {
		return 1
	}
	return NumChannels
}

// ToHash renders the signature in its 533 character portable form.
func (s *Signature) ToHash() string {
	var b strings.Builder
	b.Grow(HashLength)
	b.WriteString(hashPrefix)
	for _, avglf := range s.Avglf {
		fmt.Fprintf(&b, "%016x", math.Float64bits(avglf))
	}
	for c := 0; c < NumChannels; c++ {
		for _, coef := range s.Sig[c] {
			fmt.Fprintf(&b, "%04x", uint16(coef))
		}
	}
	return b.String()
}

// FromHash parses the portable hash form produced by ToHash.
func FromHash(hash string) (*Signature, status.S) {
	if len(hash) != HashLength {
		return nil, status.InvalidArgumentf(nil, "bad hash length %d", len(hash))
	}
	if !strings.HasPrefix(hash, hashPrefix) {
		return nil, status.InvalidArgument(nil, "bad hash prefix")
	}
	rest := hash[len(hashPrefix):]

	s := new(Signature)
	for c := 0; c < NumChannels; c++ {
		bits, err := strconv.ParseUint(rest[c*16:(c+1)*16], 16, 64)
		if err != nil {
			return nil, status.InvalidArgument(err, "bad hash avglf")
		}
		s.Avglf[c] = math.Float64frombits(bits)
	}
	rest = rest[NumChannels*16:]
	for c := 0; c < NumChannels; c++ {
		for i := 0; i < NumCoefs; i++ {
			off := (c*NumCoefs + i) * 4
			v, err := strconv.ParseUint(rest[off:off+4], 16, 16)
			if err != nil {
				return nil, status.InvalidArgument(err, "bad hash coefficient")
			}
			s.Sig[c][i] = int16(v)
		}
	}
	return s, nil
}

// BlobSig packs the coefficient arrays into the 240 byte little-endian form
// stored in the images table, channel major.
func (s *Signature) BlobSig() []byte {
	blob := make([]byte, BlobSigSize)
	for c := 0; c < NumChannels; c++ {
		for i, coef := range s.Sig[c] {
			off := (c*NumCoefs + i) * 2
			binary.LittleEndian.PutUint16(blob[off:], uint16(coef))
		}
	}
	return blob
}

// UnpackBlobSig is the inverse of BlobSig.
func UnpackBlobSig(blob []byte) ([NumChannels][NumCoefs]int16, status.S) {
	var sig [NumChannels][NumCoefs]int16
	if len(blob) != BlobSigSize {
		return sig, status.DataLossf(nil, "bad signature blob length %d", len(blob))
	}
	for c := 0; c < NumChannels; c++ {
		for i := 0; i < NumCoefs; i++ {
			off := (c*NumCoefs + i) * 2
			sig[c][i] = int16(binary.LittleEndian.Uint16(blob[off:]))
		}
	}
	return sig, nil
}
