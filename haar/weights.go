package haar

// Weights is the fixed per-bin, per-channel weight table inherited from
// imgSeek.  Bin 0 is the DC bin; bins 1..5 cover the wavelet coefficients
// via ImgBin.  The values determine scores and must not change.
var Weights = [6][NumChannels]float32{
	{5.00, 19.21, 34.37}, // DC
	{0.83, 1.26, 0.36},
	{1.01, 0.44, 0.45},
	{0.52, 0.53, 0.14},
	{0.47, 0.28, 0.18},
	{0.30, 0.14, 0.27},
}

// ImgBin maps a coefficient magnitude (a grid cell index) to its weight
// bin.  Cells in the 5×5 upper-left quadrant map to max(row, column), all
// others to 5.
var ImgBin [NumPixelsSquared]uint8

func init() {
	for i := range ImgBin {
		ImgBin[i] = 5
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			b := y
			if x > y {
				b = x
			}
			ImgBin[y*NumPixels+x] = uint8(b)
		}
	}
}
