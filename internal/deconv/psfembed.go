package deconv

// embedKernel places a (smaller, odd-ish) PSF grid into a zero volume of
// targetShape, centered on the PSF's own center but wrapped so that the
// PSF's center sits at flat index 0 (the standard fftshift-for-convolution
// placement: a circular convolution against this layout matches linear
// convolution against the un-shifted kernel).
func embedKernel(psfGrid []float32, psfShape, targetShape [3]int) []float32 {
	out := make([]float32, targetShape[0]*targetShape[1]*targetShape[2])
	center := [3]int{psfShape[0] / 2, psfShape[1] / 2, psfShape[2] / 2}

	for z := 0; z < psfShape[0]; z++ {
		tz := wrapIndex(z-center[0], targetShape[0])
		for y := 0; y < psfShape[1]; y++ {
			ty := wrapIndex(y-center[1], targetShape[1])
			for x := 0; x < psfShape[2]; x++ {
				tx := wrapIndex(x-center[2], targetShape[2])
				srcIdx := (z*psfShape[1]+y)*psfShape[2] + x
				dstIdx := (tz*targetShape[1]+ty)*targetShape[2] + tx
				out[dstIdx] = psfGrid[srcIdx]
			}
		}
	}
	return out
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
