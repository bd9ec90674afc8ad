// Package imaging provides the grayscale image primitives the cascade is
// built on: luminance planes, histograms, perceptual hashes and the image
// feature extractors used by the visual analyzer.
package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// Plane is a decoded 8-bit grayscale bitmap. All analysis in the engine
// operates on planes; color decoding happens once, at the ingest boundary.
type Plane struct {
	Pix    []uint8
	Width  int
	Height int
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height int) *Plane {
	return &Plane{
		Pix:    make([]uint8, width*height),
		Width:  width,
		Height: height,
	}
}

// FromImage converts any decoded image to a grayscale plane using the
// standard luminance transform.
func FromImage(img image.Image) *Plane {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	p := NewPlane(w, h)

	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			copy(p.Pix[y*w:(y+1)*w], gray.Pix[y*gray.Stride:y*gray.Stride+w])
		}
		return p
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			p.Pix[i] = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			i++
		}
	}
	return p
}

// At returns the pixel value at (x, y). No bounds checking beyond the
// underlying slice.
func (p *Plane) At(x, y int) uint8 {
	return p.Pix[y*p.Width+x]
}

// Resize produces a nearest-neighbor downsample of the plane. Used for hash
// fingerprints and to cap feature-extraction cost on large captures.
func (p *Plane) Resize(width, height int) *Plane {
	if width == p.Width && height == p.Height {
		return p
	}

	out := NewPlane(width, height)
	for y := 0; y < height; y++ {
		srcY := y * p.Height / height
		row := srcY * p.Width
		dst := y * width
		for x := 0; x < width; x++ {
			out.Pix[dst+x] = p.Pix[row+x*p.Width/width]
		}
	}
	return out
}

// Fit scales the plane down so neither dimension exceeds maxDim, preserving
// aspect ratio. Planes already within bounds are returned as-is.
func (p *Plane) Fit(maxDim int) *Plane {
	if p.Width <= maxDim && p.Height <= maxDim {
		return p
	}

	scaleW, scaleH := p.Width, p.Height
	if scaleW >= scaleH {
		scaleH = scaleH * maxDim / scaleW
		scaleW = maxDim
	} else {
		scaleW = scaleW * maxDim / scaleH
		scaleH = maxDim
	}
	if scaleW < 1 {
		scaleW = 1
	}
	if scaleH < 1 {
		scaleH = 1
	}
	return p.Resize(scaleW, scaleH)
}

// EncodePNG serializes the plane as a grayscale PNG. Used when handing
// frames to the inference boundary, which wants encoded bytes.
func (p *Plane) EncodePNG() ([]byte, error) {
	img := &image.Gray{
		Pix:    p.Pix,
		Stride: p.Width,
		Rect:   image.Rect(0, 0, p.Width, p.Height),
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Uniform builds a plane filled with one value. Test helper exported for the
// engine's scenario tests.
func Uniform(width, height int, value uint8) *Plane {
	p := NewPlane(width, height)
	for i := range p.Pix {
		p.Pix[i] = value
	}
	return p
}
