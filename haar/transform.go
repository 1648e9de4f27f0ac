package haar

import (
	"math"
	"sort"
)

// Transform computes the signature of a 128×128 truecolor grid.  The r, g,
// and b slices hold one channel each, NumPixelsSquared values in row-major
// order, scaled 0..255.  The slices are consumed as scratch space.
func Transform(r, g, b []float64) *Signature {
	if len(r) != NumPixelsSquared || len(g) != NumPixelsSquared || len(b) != NumPixelsSquared {
		panic("haar: channel length mismatch")
	}
	rgb2yiq(r, g, b)
	haar2D(r)
	haar2D(g)
	haar2D(b)

	// Reintroduce the scaling factors skipped by the lifting passes.
	r[0] /= 256 * 128
	g[0] /= 256 * 128
	b[0] /= 256 * 128

	s := new(Signature)
	s.Avglf[0] = r[0]
	s.Avglf[1] = g[0]
	s.Avglf[2] = b[0]
	getMLargests(r, &s.Sig[0])
	getMLargests(g, &s.Sig[1])
	getMLargests(b, &s.Sig[2])
	return s
}

// rgb2yiq rewrites the three channels from RGB to the YIQ-like triple the
// signature is defined over.
func rgb2yiq(a, b, c []float64) {
	for i := 0; i < NumPixelsSquared; i++ {
		y := 0.299*a[i] + 0.587*b[i] + 0.114*c[i]
		ic := 0.596*a[i] - 0.275*b[i] - 0.321*c[i]
		q := 0.212*a[i] - 0.523*b[i] + 0.311*c[i]
		a[i] = y
		b[i] = ic
		c[i] = q
	}
}

// haar2D performs the standard 2D Haar decomposition in place, rows then
// columns, deferring the 1/sqrt(128) scaling of the first element to the
// end of each pass.
func haar2D(a []float64) {
	var t [NumPixels / 2]float64

	// Decompose rows.
	for i := 0; i < NumPixelsSquared; i += NumPixels {
		c := 1.0
		for h := NumPixels; h > 1; h /= 2 {
			h1 := h / 2
			c *= 0.7071 // 1/sqrt(2)
			j1, j2 := i, i
			for k := 0; k < h1; k++ {
				t[k] = (a[j2] - a[j2+1]) * c
				a[j1] = a[j2] + a[j2+1]
				j1++
				j2 += 2
			}
			copy(a[i+h1:i+h], t[:h1])
		}
		a[i] *= c // c = 1/sqrt(128)
	}

	// Decompose columns.
	for i := 0; i < NumPixels; i++ {
		c := 1.0
		for h := NumPixels; h > 1; h /= 2 {
			h1 := h / 2
			c *= 0.7071
			j1, j2 := i, i
			for k := 0; k < h1; k++ {
				t[k] = (a[j2] - a[j2+NumPixels]) * c
				a[j1] = a[j2] + a[j2+NumPixels]
				j1 += NumPixels
				j2 += 2 * NumPixels
			}
			for k, j := 0, i+h1*NumPixels; k < h1; k, j = k+1, j+NumPixels {
				a[j] = t[k]
			}
		}
		a[i] *= c
	}
}

// getMLargests records the NumCoefs highest-magnitude non-DC coefficients
// of cdata, each as its grid index signed by the coefficient's sign.  A
// non-positive coefficient yields a negative index.
func getMLargests(cdata []float64, sig *[NumCoefs]int16) {
	idx := make([]int, NumPixelsSquared-1)
	for i := range idx {
		idx[i] = i + 1 // skip the DC cell
	}
	sort.Slice(idx, func(x, y int) bool {
		return math.Abs(cdata[idx[x]]) > math.Abs(cdata[idx[y]])
	})
	for k := 0; k < NumCoefs; k++ {
		i := idx[k]
		if cdata[i] <= 0 {
			sig[k] = int16(-i)
		} else {
			sig[k] = int16(i)
		}
	}
}
