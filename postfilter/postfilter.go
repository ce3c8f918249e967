// Package postfilter smooths decoded frame rows to hide pixel-grid
// sampling jitter.
package postfilter

// Smooth3 applies a 3-tap [1,1,1]/3 horizontal box filter to row,
// clamping at the edges by repeating the boundary sample, and returns a
// new slice the same length as row.
func Smooth3(row []byte) []byte {
	n := len(row)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		lo := i - 1
		if lo < 0 {
			lo = 0
		}
		hi := i + 1
		if hi >= n {
			hi = n - 1
		}
		sum := int(row[lo]) + int(row[i]) + int(row[hi])
		out[i] = byte(sum / 3)
	}
	return out
}

// SmoothFrame applies Smooth3 to every row of a width x height frame
// stored row-major in a single byte slice (one channel at a time).
func SmoothFrame(frame []byte, width, height int) []byte {
	out := make([]byte, len(frame))
	for y := 0; y < height; y++ {
		row := frame[y*width : y*width+width]
		copy(out[y*width:y*width+width], Smooth3(row))
	}
	return out
}
