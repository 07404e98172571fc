package model

import "math"

// Color is an 8-bit-per-channel RGBA colour (0-255).
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// NormalizedColor is an RGBA colour with channels in [0, 1].
type NormalizedColor struct {
	R float64
	G float64
	B float64
	A float64
}

// White is opaque white.
var White = Color{R: 255, G: 255, B: 255, A: 255}

// ColorFrom256 builds an opaque colour from 0-255 channel values.
// Out of range values are clamped.
func ColorFrom256(r, g, b int) Color {
	return Color{R: clamp8(r), G: clamp8(g), B: clamp8(b), A: 255}
}

// ColorFromNormalized converts normalized channels to 8-bit channels,
// clamping to [0, 1] and rounding to the nearest step.
func ColorFromNormalized(c NormalizedColor) Color {
	return Color{
		R: unitTo8(c.R),
		G: unitTo8(c.G),
		B: unitTo8(c.B),
		A: unitTo8(c.A),
	}
}

// Normalized returns the colour with channels in [0, 1].
// Converting back with ColorFromNormalized yields the original value.
func (c Color) Normalized() NormalizedColor {
	return NormalizedColor{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
		A: float64(c.A) / 255,
	}
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func unitTo8(f float64) uint8 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(math.Round(f * 255))
}
