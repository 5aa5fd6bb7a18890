package color

// MulAlpha scales the color's alpha.
func MulAlpha(c Oklch, alpha float32) Oklch {
	c.A *= alpha
	return c
}

// Disabled desaturates and darkens the color. It is used for threads that are hidden from display.
func Disabled(c Oklch) Oklch {
	const r = 0.3
	d := mix(c, Oklch{A: c.A, L: c.L * 0.6, C: 0, H: c.H}, r)
	return MulAlpha(d, 0.75)
}

// mix mixes c1 and c2 weighted by a and (1 - a) respectively.
func mix(c1, c2 Oklch, a float32) Oklch {
	return Oklch{
		L: c1.L*a + c2.L*(1-a),
		C: c1.C*a + c2.C*(1-a),
		H: c1.H*a + c2.H*(1-a),
		A: c1.A*a + c2.A*(1-a),
	}
}
