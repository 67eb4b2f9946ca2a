// Package color converts HAL colors (hue, saturation, brightness) as used
// by voice-assistant lamps into RGB.
//
// HAL brightness is HSV value. Hue is in degrees; saturation and brightness
// are fractions in [0, 1].
package color

import (
	"fmt"
	"math"
)

// RGB holds 8-bit color channels.
type RGB struct {
	R, G, B uint8
}

// Hex renders the color as "#rrggbb" in lowercase.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// HALToRGB converts hue h (degrees), saturation s and brightness b to RGB.
//
// Hue outside [0, 360) wraps around. Saturation and brightness are clamped
// to [0, 1]. NaN inputs are treated as 0.
func HALToRGB(h, s, b float64) RGB {
	h = normalizeHue(h)
	s = clamp01(s)
	b = clamp01(b)

	sector := math.Floor(h / 60)
	f := h/60 - sector
	p := b * (1 - s)
	q := b * (1 - f*s)
	t := b * (1 - (1-f)*s)

	var r, g, bl float64
	switch int(sector) % 6 {
	case 0:
		r, g, bl = b, t, p
	case 1:
		r, g, bl = q, b, p
	case 2:
		r, g, bl = p, b, t
	case 3:
		r, g, bl = p, q, b
	case 4:
		r, g, bl = t, p, b
	default:
		r, g, bl = b, p, q
	}

	return RGB{R: channel(r), G: channel(g), B: channel(bl)}
}

// HALToRGBHex converts a HAL color to "#rrggbb".
func HALToRGBHex(h, s, b float64) string {
	return HALToRGB(h, s, b).Hex()
}

func normalizeHue(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func channel(v float64) uint8 {
	return uint8(math.Round(v * 255))
}
