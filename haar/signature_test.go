package haar

import (
	"encoding/json"
	"strings"
	"testing"
)

func knownSig() *Signature {
	s := &Signature{
		Avglf: [NumChannels]float64{0.1, -0.2, 0.3},
	}
	for c := 0; c < NumChannels; c++ {
		for i := 0; i < NumCoefs; i++ {
			v := int16(c*1000 + i + 1)
			if i%3 == 0 {
				v = -v
			}
			s.Sig[c][i] = v
		}
	}
	return s
}

func TestHashLength(t *testing.T) {
	if HashLength != 533 {
		t.Fatal("hash length must be 533, got", HashLength)
	}
	h := knownSig().ToHash()
	if len(h) != 533 {
		t.Fatal("bad hash length", len(h))
	}
	if !strings.HasPrefix(h, "iqdb_") {
		t.Fatal("bad prefix", h[:8])
	}
	for _, r := range h[5:] {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatal("non-hex digit", string(r))
		}
	}
}

func TestHashRoundTrip(t *testing.T) {
	s := knownSig()
	back, sts := FromHash(s.ToHash())
	if sts != nil {
		t.Fatal(sts)
	}
	if *back != *s {
		t.Fatal("hash round trip mismatch")
	}
}

func TestHashRoundTripZeroCoef(t *testing.T) {
	// Zero and the extreme magnitudes must survive the trip.
	s := knownSig()
	s.Sig[0][0] = 0
	s.Sig[1][0] = -16383
	s.Sig[2][0] = 16383
	back, sts := FromHash(s.ToHash())
	if sts != nil {
		t.Fatal(sts)
	}
	if *back != *s {
		t.Fatal("hash round trip mismatch at extremes")
	}
}

func TestFromHashRejectsBadInput(t *testing.T) {
	if _, sts := FromHash("iqdb_tooshort"); sts == nil {
		t.Fatal("expected length error")
	}
	h := knownSig().ToHash()
	if _, sts := FromHash("xxxx_" + h[5:]); sts == nil {
		t.Fatal("expected prefix error")
	}
	if _, sts := FromHash(h[:len(h)-1] + "g"); sts == nil {
		t.Fatal("expected hex error")
	}
}

func TestBlobSigRoundTrip(t *testing.T) {
	s := knownSig()
	blob := s.BlobSig()
	if len(blob) != 240 {
		t.Fatal("sig blob must be 240 bytes, got", len(blob))
	}
	// channel-major little-endian: first coef of channel 0
	if got := int16(uint16(blob[0]) | uint16(blob[1])<<8); got != s.Sig[0][0] {
		t.Fatal("bad little-endian packing", got, s.Sig[0][0])
	}

	sig, sts := UnpackBlobSig(blob)
	if sts != nil {
		t.Fatal(sts)
	}
	if sig != s.Sig {
		t.Fatal("blob round trip mismatch")
	}

	if _, sts := UnpackBlobSig(blob[:100]); sts == nil {
		t.Fatal("expected length error")
	}
}

func TestJSONForm(t *testing.T) {
	s := knownSig()
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, present := m["avglf"]; !present {
		t.Fatal("missing avglf", m)
	}
	if _, present := m["sig"]; !present {
		t.Fatal("missing sig", m)
	}

	back := new(Signature)
	if err := json.Unmarshal(data, back); err != nil {
		t.Fatal(err)
	}
	if *back != *s {
		t.Fatal("json round trip mismatch")
	}
}

func TestGrayscale(t *testing.T) {
	s := &Signature{Avglf: [NumChannels]float64{0.4, 0, 0}}
	if !s.IsGrayscale() {
		t.Fatal("expected grayscale")
	}
	if s.NumColors() != 1 {
		t.Fatal("expected 1 color, got", s.NumColors())
	}

	c := knownSig()
	if c.IsGrayscale() {
		t.Fatal("expected color")
	}
	if c.NumColors() != 3 {
		t.Fatal("expected 3 colors, got", c.NumColors())
	}
}
