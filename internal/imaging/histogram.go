package imaging

import "math"

// Histogram is a 256-bin grayscale intensity histogram.
type Histogram [256]int

// ComputeHistogram counts pixel intensities over the whole plane.
func ComputeHistogram(p *Plane) Histogram {
	var h Histogram
	for _, v := range p.Pix {
		h[v]++
	}
	return h
}

// Total returns the number of counted pixels.
func (h *Histogram) Total() int {
	total := 0
	for _, c := range h {
		total += c
	}
	return total
}

// Entropy computes the Shannon entropy of the intensity distribution,
// normalized by the 8-bit maximum so the result lands in [0, 1].
func (h *Histogram) Entropy() float64 {
	total := h.Total()
	if total == 0 {
		return 0
	}

	entropy := 0.0
	for _, count := range h {
		if count == 0 {
			continue
		}
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}

	return math.Min(1.0, entropy/8.0)
}

// ChiSquareDistance computes the normalized chi-squared distance between two
// histograms. Both are normalized to probability distributions first; the
// raw chi-squared value tops out near 2.0, which maps the result into [0, 1].
// Degenerate inputs (empty histograms) count as maximally different.
func ChiSquareDistance(a, b *Histogram) float64 {
	totalA := a.Total()
	totalB := b.Total()
	if totalA == 0 || totalB == 0 {
		return 1.0
	}

	chi := 0.0
	for i := 0; i < 256; i++ {
		pa := float64(a[i]) / float64(totalA)
		pb := float64(b[i]) / float64(totalB)
		if pa+pb > 0 {
			d := pa - pb
			chi += d * d / (pa + pb)
		}
	}

	return math.Min(1.0, chi/2.0)
}
