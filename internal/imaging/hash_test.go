package imaging

import "testing"

func TestHashFrame_IdenticalFrames(t *testing.T) {
	a := checkerboard(100, 100, 10)
	b := checkerboard(100, 100, 10)

	ha := HashFrame(a, DefaultHashSize)
	hb := HashFrame(b, DefaultHashSize)

	if d := ha.Distance(hb); d != 0 {
		t.Errorf("identical frames should have distance 0, got %v", d)
	}
}

func TestHashFrame_DistinctFrames(t *testing.T) {
	a := checkerboard(100, 100, 10)
	b := gradientPlane(100, 100)

	ha := HashFrame(a, DefaultHashSize)
	hb := HashFrame(b, DefaultHashSize)

	if d := ha.Distance(hb); d <= 0.05 {
		t.Errorf("distinct frames should exceed the static threshold, got %v", d)
	}
}

func TestHashFrame_NoiseRobust(t *testing.T) {
	a := gradientPlane(200, 200)

	// Flip a handful of pixels; the fingerprint should barely move.
	b := gradientPlane(200, 200)
	for i := 0; i < 20; i++ {
		b.Pix[i*37] ^= 0x04
	}

	ha := HashFrame(a, DefaultHashSize)
	hb := HashFrame(b, DefaultHashSize)

	if d := ha.Distance(hb); d > 0.1 {
		t.Errorf("minor noise moved hash distance to %v", d)
	}
}

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		a, b     uint64
		expected int
	}{
		{0, 0, 0},
		{0xFF, 0x00, 8},
		{0xF0F0, 0x0F0F, 16},
		{^uint64(0), 0, 64},
	}

	for _, tt := range tests {
		if got := HammingDistance(tt.a, tt.b); got != tt.expected {
			t.Errorf("HammingDistance(%x, %x) = %d, want %d", tt.a, tt.b, got, tt.expected)
		}
	}
}

func TestHashFrame_SizeCapped(t *testing.T) {
	p := gradientPlane(64, 64)

	for _, size := range []int{-1, 0, 9, 100} {
		h := HashFrame(p, size)
		if h.Bits != DefaultHashSize*DefaultHashSize {
			t.Errorf("hash size %d should cap to default, got %d bits", size, h.Bits)
		}
	}
}

func checkerboard(w, h, cell int) *Plane {
	p := NewPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/cell+y/cell)%2 == 0 {
				p.Pix[y*w+x] = 255
			}
		}
	}
	return p
}

func gradientPlane(w, h int) *Plane {
	p := NewPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.Pix[y*w+x] = uint8((x * 255) / w)
		}
	}
	return p
}
