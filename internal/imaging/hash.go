package imaging

import "math/bits"

// DefaultHashSize is the side length of the downsample used for perceptual
// hashes: 8x8 gives 64-bit fingerprints.
const DefaultHashSize = 8

// FrameHash is a pair of perceptual fingerprints for one frame. AHash
// captures coarse brightness layout, DHash captures horizontal gradients;
// together they are robust against compression noise while still separating
// genuinely different screens.
type FrameHash struct {
	AHash uint64
	DHash uint64
	Bits  int // Bit count per hash, hashSize squared
}

// HashFrame computes both perceptual hashes of a plane at the given hash
// size. Sizes above 8 would overflow the uint64 fingerprint and are capped.
func HashFrame(p *Plane, hashSize int) FrameHash {
	if hashSize <= 0 || hashSize > 8 {
		hashSize = DefaultHashSize
	}
	return FrameHash{
		AHash: averageHash(p, hashSize),
		DHash: differenceHash(p, hashSize),
		Bits:  hashSize * hashSize,
	}
}

// averageHash downsamples to hashSize x hashSize and sets one bit per pixel
// at or above the mean brightness.
func averageHash(p *Plane, hashSize int) uint64 {
	small := p.Resize(hashSize, hashSize)

	sum := 0
	for _, v := range small.Pix {
		sum += int(v)
	}
	avg := float64(sum) / float64(len(small.Pix))

	var hash uint64
	for _, v := range small.Pix {
		hash <<= 1
		if float64(v) >= avg {
			hash |= 1
		}
	}
	return hash
}

// differenceHash downsamples to (hashSize+1) x hashSize and sets one bit per
// horizontally adjacent pixel pair where the left pixel is brighter.
func differenceHash(p *Plane, hashSize int) uint64 {
	small := p.Resize(hashSize+1, hashSize)

	var hash uint64
	for row := 0; row < hashSize; row++ {
		offset := row * (hashSize + 1)
		for col := 0; col < hashSize; col++ {
			hash <<= 1
			if small.Pix[offset+col] > small.Pix[offset+col+1] {
				hash |= 1
			}
		}
	}
	return hash
}

// HammingDistance counts differing bits between two fingerprints.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Distance returns the normalized dissimilarity between two frame hashes:
// the per-hash Hamming distances normalized by bit count, averaged across
// the two hash kinds. 0 means identical fingerprints, 1 maximally distinct.
func (h FrameHash) Distance(other FrameHash) float64 {
	bitCount := h.Bits
	if bitCount == 0 {
		bitCount = DefaultHashSize * DefaultHashSize
	}

	aDiff := float64(HammingDistance(h.AHash, other.AHash)) / float64(bitCount)
	dDiff := float64(HammingDistance(h.DHash, other.DHash)) / float64(bitCount)
	return (aDiff + dDiff) / 2
}
