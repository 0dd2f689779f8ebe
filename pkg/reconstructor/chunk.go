package reconstructor

import (
	"bytes"
	"math"
)

// BoundaryBlock is the run of NUL bytes treated as a hard end-of-content marker.
const BoundaryBlock = 64

var zeroBlock = make([]byte, BoundaryBlock)

// Entropy returns the Shannon entropy of data in bits per byte (0..8).
func Entropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}
	n := float64(len(data))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

// DetectBoundary locates a zero block in data. Searching forward it returns the index of
// the first zero block, or len(data) when there is none. Searching backward it returns the
// index just past the last zero block, or 0.
func DetectBoundary(data []byte, forward bool) int {
	if forward {
		if idx := bytes.Index(data, zeroBlock); idx >= 0 {
			return idx
		}
		return len(data)
	}
	if idx := bytes.LastIndex(data, zeroBlock); idx >= 0 {
		return idx + BoundaryBlock
	}
	return 0
}
