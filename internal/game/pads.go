package game

import "github.com/CaptainRL/captain/pkg/hostproto"

var standardLarge = [][2]float64{
	{-3584, 0}, {3584, 0}, {-3072, 4096}, {3072, 4096}, {-3072, -4096}, {3072, -4096},
}

var standardSmall = [][2]float64{
	{0, -4240}, {-1792, -4184}, {1792, -4184}, {-940, -3308}, {940, -3308}, {0, -2816},
	{-3584, -2484}, {3584, -2484}, {-1788, -2300}, {1788, -2300}, {-2048, -1036}, {0, -1024},
	{2048, -1036}, {-1024, 0}, {1024, 0}, {-2048, 1036}, {0, 1024}, {2048, 1036},
	{-1788, 2300}, {1788, 2300}, {-3584, 2484}, {3584, 2484}, {0, 2816}, {-940, 3310},
	{940, 3308}, {-1792, 4184}, {1792, 4184}, {0, 4240},
}

// StandardField is the pad layout of the standard soccar arena, used until the host
// sends its own.
func StandardField() Field {
	pads := make([]hostproto.PadInfo, 0, len(standardLarge)+len(standardSmall))
	for _, p := range standardLarge {
		pads = append(pads, hostproto.PadInfo{Location: hostproto.Vector{X: p[0], Y: p[1], Z: 73}, IsFullBoost: true})
	}
	for _, p := range standardSmall {
		pads = append(pads, hostproto.PadInfo{Location: hostproto.Vector{X: p[0], Y: p[1], Z: 70}})
	}
	return Field{Pads: pads}
}
