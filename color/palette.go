package color

import (
	"hash/fnv"
	"math"
)

const paletteSize = 16

// Palette holds the colors that section names are hashed onto. Hues are spaced by the golden ratio so that
// neighbouring indices stay distinguishable.
var Palette = func() [paletteSize]Packed {
	const goldenRatioConjugate = 0.618033988749895
	var out [paletteSize]Packed
	h := 0.85
	for i := range out {
		h = math.Mod(h+goldenRatioConjugate, 1)
		out[i] = Oklch{L: 0.72, C: 0.13, H: float32(h * 360), A: 1}.Pack()
	}
	return out
}()

// FromName picks a stable palette color for a section name.
func FromName(name string) Packed {
	h := fnv.New32a()
	h.Write([]byte(name))
	return Palette[h.Sum32()%paletteSize]
}
