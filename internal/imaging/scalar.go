package imaging

import "math"

// ScalarExtractor is the reference feature implementation: a plain
// pixel-by-pixel pass. Correctness baseline for the batch extractor.
type ScalarExtractor struct{}

// NewScalarExtractor returns the reference extractor.
func NewScalarExtractor() *ScalarExtractor {
	return &ScalarExtractor{}
}

// Name identifies the implementation in stats and logs.
func (e *ScalarExtractor) Name() string { return "scalar" }

// Extract computes entropy and text density on the fitted plane.
func (e *ScalarExtractor) Extract(p *Plane) Features {
	fitted := p.Fit(featureFitDim)

	hist := ComputeHistogram(fitted)
	entropy := hist.Entropy()

	edgeRatio := e.edgeRatio(fitted)
	textDensity := math.Min(1.0, edgeRatio/edgeCeiling)

	return Features{
		Entropy:     entropy,
		TextDensity: textDensity,
		EdgeRatio:   edgeRatio,
	}
}

// ExtractBatch runs Extract sequentially over the input.
func (e *ScalarExtractor) ExtractBatch(planes []*Plane) []Features {
	out := make([]Features, len(planes))
	for i, p := range planes {
		out[i] = e.Extract(p)
	}
	return out
}

// edgeRatio counts sampled interior pixels whose combined horizontal and
// vertical gradient exceeds the edge threshold.
func (e *ScalarExtractor) edgeRatio(p *Plane) float64 {
	w, h := p.Width, p.Height
	if w < 3 || h < 3 {
		return 0
	}

	edges := 0
	checks := 0
	for y := 1; y < h-1; y += gradientStep {
		row := y * w
		for x := 1; x < w-1; x += gradientStep {
			idx := row + x
			gx := absDiff(p.Pix[idx+1], p.Pix[idx-1])
			gy := absDiff(p.Pix[idx+w], p.Pix[idx-w])
			if (gx+gy)>>1 > edgeThreshold {
				edges++
			}
			checks++
		}
	}

	if checks == 0 {
		return 0
	}
	return float64(edges) / float64(checks)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
