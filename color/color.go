// Package color converts between the perceptual Oklch space, in which section palettes are built, and the packed
// 8-bit RGBA values stored in profiler entries.
package color

import (
	"math"
)

// Oklch is a color in the cylindrical form of Oklab. H is in degrees, A is alpha.
type Oklch struct {
	L float32
	C float32
	H float32
	A float32
}

// oklab holds the opponent axes of a color; alpha is carried separately.
type oklab struct{ l, a, b float64 }

// linear is an sRGB color with linear channels.
type linear struct{ r, g, b float64 }

func (c Oklch) lab() oklab {
	h := float64(c.H) * (math.Pi / 180)
	ch := float64(c.C)
	return oklab{float64(c.L), ch * math.Cos(h), ch * math.Sin(h)}
}

func (c oklab) lch(alpha float32) Oklch {
	h := math.Atan2(c.b, c.a) * (180 / math.Pi)
	if h < 0 {
		h += 360
	}
	return Oklch{L: float32(c.l), C: float32(math.Hypot(c.a, c.b)), H: float32(h), A: alpha}
}

// linear converts to linear sRGB. Out-of-gamut colors produce channels outside [0, 1].
func (c oklab) linear() linear {
	l := cube(c.l + 0.3963377774*c.a + 0.2158037573*c.b)
	m := cube(c.l - 0.1055613458*c.a - 0.0638541728*c.b)
	s := cube(c.l - 0.0894841775*c.a - 1.2914855480*c.b)
	return linear{
		+4.0767416621*l - 3.3077115913*m + 0.2309699292*s,
		-1.2684380046*l + 2.6097574011*m - 0.3413193965*s,
		-0.0041960863*l - 0.7034186147*m + 1.7076147010*s,
	}
}

func (c linear) lab() oklab {
	l := math.Cbrt(0.4122214708*c.r + 0.5363325363*c.g + 0.0514459929*c.b)
	m := math.Cbrt(0.2119034982*c.r + 0.6806995451*c.g + 0.1073969566*c.b)
	s := math.Cbrt(0.0883024619*c.r + 0.2817188376*c.g + 0.6299787005*c.b)
	return oklab{
		0.2104542553*l + 0.7936177850*m - 0.0040720468*s,
		1.9779984951*l - 2.4285922050*m + 0.4505937099*s,
		0.0259040371*l + 0.7827717662*m - 0.8086757660*s,
	}
}

func (c linear) inGamut() bool {
	const eps = 1e-6
	return c.r >= -eps && c.r <= 1+eps &&
		c.g >= -eps && c.g <= 1+eps &&
		c.b >= -eps && c.b <= 1+eps
}

func cube(x float64) float64 { return x * x * x }

// encode applies the sRGB transfer function to a linear channel.
func encode(v float64) float64 {
	if v >= 0.0031308 {
		return 1.055*math.Pow(v, 1/2.4) - 0.055
	}
	return 12.92 * v
}

// decode inverts encode.
func decode(v float64) float64 {
	if v >= 0.04045 {
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return v / 12.92
}

// fit returns c in linear sRGB. Colors outside the gamut keep their lightness and hue and lose as little chroma as
// necessary to fit.
func (c Oklch) fit() linear {
	switch {
	case c.L >= 1:
		return linear{1, 1, 1}
	case c.L <= 0:
		return linear{}
	}
	if rgb := c.lab().linear(); rgb.inGamut() {
		return rgb
	}
	lo, hi := float32(0), c.C
	for hi-lo > 1e-4 {
		c.C = (lo + hi) / 2
		if c.lab().linear().inGamut() {
			lo = c.C
		} else {
			hi = c.C
		}
	}
	c.C = lo
	return c.lab().linear()
}
