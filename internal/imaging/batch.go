package imaging

import (
	"math"
	"runtime"
	"sync"
)

// BatchExtractor is the accelerated feature implementation: row-sliced
// passes per frame and a worker pool across frames. The arithmetic is
// identical to ScalarExtractor (same fit, same sampling stride, same integer
// gradient), so the two are interchangeable without affecting scores.
type BatchExtractor struct {
	workers int
}

// NewBatchExtractor builds the accelerated extractor. workers <= 0 selects
// one worker per CPU.
func NewBatchExtractor(workers int) *BatchExtractor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &BatchExtractor{workers: workers}
}

// Name identifies the implementation in stats and logs.
func (e *BatchExtractor) Name() string { return "batch" }

// Extract computes features for a single frame using the row-sliced passes.
func (e *BatchExtractor) Extract(p *Plane) Features {
	fitted := p.Fit(featureFitDim)

	hist := histogramRows(fitted)
	entropy := hist.Entropy()

	edgeRatio := edgeRatioRows(fitted)
	textDensity := math.Min(1.0, edgeRatio/edgeCeiling)

	return Features{
		Entropy:     entropy,
		TextDensity: textDensity,
		EdgeRatio:   edgeRatio,
	}
}

// ExtractBatch fans frames out across the worker pool.
func (e *BatchExtractor) ExtractBatch(planes []*Plane) []Features {
	if len(planes) == 0 {
		return nil
	}

	out := make([]Features, len(planes))
	workers := e.workers
	if workers > len(planes) {
		workers = len(planes)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = e.Extract(planes[i])
			}
		}()
	}

	for i := range planes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return out
}

// histogramRows accumulates the intensity histogram one row slice at a time.
func histogramRows(p *Plane) Histogram {
	var h Histogram
	w := p.Width
	for y := 0; y < p.Height; y++ {
		for _, v := range p.Pix[y*w : (y+1)*w] {
			h[v]++
		}
	}
	return h
}

// edgeRatioRows computes the sampled gradient pass over three row slices at
// a time, matching the scalar reference bit for bit.
func edgeRatioRows(p *Plane) float64 {
	w, h := p.Width, p.Height
	if w < 3 || h < 3 {
		return 0
	}

	edges := 0
	checks := 0
	for y := 1; y < h-1; y += gradientStep {
		above := p.Pix[(y-1)*w : y*w]
		row := p.Pix[y*w : (y+1)*w]
		below := p.Pix[(y+1)*w : (y+2)*w]
		for x := 1; x < w-1; x += gradientStep {
			gx := absDiff(row[x+1], row[x-1])
			gy := absDiff(below[x], above[x])
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
