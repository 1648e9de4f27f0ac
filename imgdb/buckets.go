package imgdb

import (
	"github.com/Gavin1937/danbooru-iqdb/haar"
)

// bucketSet is the inverted index: one id list per (channel, sign,
// magnitude) triple.  Most of the 3×2×16384 lists stay empty; an empty
// slice costs only its header.
type bucketSet struct {
	buckets [haar.NumChannels][2][haar.NumPixelsSquared][]int64
}

// at returns the bucket for a signed coefficient, folding the sign into the
// two-way index.  Zero is a valid magnitude and always selects the
// non-negative bucket.
func (bs *bucketSet) at(channel int, coef int16) *[]int64 {
	sign := 0
	if coef < 0 {
		sign = 1
		coef = -coef
	}
	return &bs.buckets[channel][sign][coef]
}

// eachCoef enumerates the coefficient triples of sig, skipping repeats
// within a channel so that a colliding coefficient touches its bucket only
// once.  add, remove, and query all enumerate through here, keeping the
// bucket contents and the score scale consistent with each other.
func eachCoef(sig *haar.Signature, f func(channel int, coef int16)) {
	for c := 0; c < sig.NumColors(); c++ {
	coefs:
		for i := 0; i < haar.NumCoefs; i++ {
			coef := sig.Sig[c][i]
			for j := 0; j < i; j++ {
				if sig.Sig[c][j] == coef {
					continue coefs
				}
			}
			f(c, coef)
		}
	}
}

// add appends id to every bucket sig touches.
func (bs *bucketSet) add(sig *haar.Signature, id int64) {
	eachCoef(sig, func(c int, coef int16) {
		b := bs.at(c, coef)
		*b = append(*b, id)
	})
}

// remove erases every occurrence of id from the buckets sig touches.
func (bs *bucketSet) remove(sig *haar.Signature, id int64) {
	eachCoef(sig, func(c int, coef int16) {
		b := bs.at(c, coef)
		kept := (*b)[:0]
		for _, v := range *b {
			if v != id {
				kept = append(kept, v)
			}
		}
		*b = kept
	})
}
