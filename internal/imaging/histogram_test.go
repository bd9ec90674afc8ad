package imaging

import (
	"math"
	"testing"
)

func TestEntropy_UniformPlane(t *testing.T) {
	h := ComputeHistogram(Uniform(50, 50, 128))

	if e := h.Entropy(); e != 0 {
		t.Errorf("single-intensity plane should have zero entropy, got %v", e)
	}
}

func TestEntropy_TwoLevels(t *testing.T) {
	// Half black, half white: 1 bit of entropy, normalized by 8.
	h := ComputeHistogram(checkerboard(64, 64, 1))

	if e := h.Entropy(); math.Abs(e-1.0/8.0) > 1e-9 {
		t.Errorf("balanced two-level plane should have entropy 0.125, got %v", e)
	}
}

func TestEntropy_Bounded(t *testing.T) {
	h := ComputeHistogram(gradientPlane(256, 256))

	e := h.Entropy()
	if e < 0 || e > 1 {
		t.Errorf("entropy out of range: %v", e)
	}
}

func TestChiSquareDistance_Identical(t *testing.T) {
	a := ComputeHistogram(gradientPlane(100, 100))
	b := ComputeHistogram(gradientPlane(100, 100))

	if d := ChiSquareDistance(&a, &b); d != 0 {
		t.Errorf("identical histograms should have zero distance, got %v", d)
	}
}

func TestChiSquareDistance_Disjoint(t *testing.T) {
	a := ComputeHistogram(Uniform(50, 50, 0))
	b := ComputeHistogram(Uniform(50, 50, 255))

	if d := ChiSquareDistance(&a, &b); d != 1.0 {
		t.Errorf("disjoint histograms should have maximal distance, got %v", d)
	}
}

func TestChiSquareDistance_Empty(t *testing.T) {
	var empty Histogram
	full := ComputeHistogram(Uniform(10, 10, 100))

	if d := ChiSquareDistance(&empty, &full); d != 1.0 {
		t.Errorf("empty histogram should compare as maximally different, got %v", d)
	}
}
