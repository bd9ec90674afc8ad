package imaging

// Feature extraction tunables shared by both extractor implementations.
// Changing any of these changes scores, so they are constants rather than
// per-extractor options: the batch path must stay numerically equivalent to
// the scalar reference.
const (
	// featureFitDim caps the working resolution; screen captures carry no
	// extra text-density signal above this size.
	featureFitDim = 200

	// gradientStep samples every other pixel in both axes.
	gradientStep = 2

	// edgeThreshold is the minimum combined gradient magnitude counted as
	// an edge pixel. Text regions produce dense super-threshold gradients.
	edgeThreshold = 30

	// edgeCeiling is the empirical edge-density ceiling used to normalize
	// text density into [0, 1]; screens rarely exceed 40% edge pixels.
	edgeCeiling = 0.4
)

// Features holds the per-frame visual statistics consumed by the visual
// analyzer.
type Features struct {
	Entropy     float64 // Normalized Shannon entropy of the intensity histogram
	TextDensity float64 // Edge density normalized against edgeCeiling
	EdgeRatio   float64 // Raw fraction of sampled pixels above edgeThreshold
}

// Extractor computes visual features for one frame or a batch of frames.
// Implementations must be numerically equivalent: swapping one for another
// is a performance decision, never a scoring change.
type Extractor interface {
	Name() string
	Extract(p *Plane) Features
	ExtractBatch(planes []*Plane) []Features
}
