package color

import (
	"fmt"
	"math"
)

// Packed is an 8-bit per channel, non-premultiplied color. Red occupies the low byte and alpha the high byte, so
// 0xFF0000FF is opaque red.
type Packed uint32

func PackRGBA(r, g, b, a uint8) Packed {
	return Packed(uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24)
}

func (p Packed) R() uint8 { return uint8(p) }
func (p Packed) G() uint8 { return uint8(p >> 8) }
func (p Packed) B() uint8 { return uint8(p >> 16) }
func (p Packed) A() uint8 { return uint8(p >> 24) }

// Hex formats p as "#rrggbb", ignoring alpha. Terminal renderers accept this form.
func (p Packed) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", p.R(), p.G(), p.B())
}

func (p Packed) Oklch() Oklch {
	ch := func(v uint8) float64 { return decode(float64(v) / 255) }
	rgb := linear{ch(p.R()), ch(p.G()), ch(p.B())}
	return rgb.lab().lch(float32(p.A()) / 255)
}

// Pack maps c into the sRGB gamut and quantizes it.
func (c Oklch) Pack() Packed {
	q := func(v float64) uint8 {
		return uint8(math.Round(min(max(v, 0), 1) * 255))
	}
	rgb := c.fit()
	return PackRGBA(q(encode(rgb.r)), q(encode(rgb.g)), q(encode(rgb.b)), q(float64(c.A)))
}
