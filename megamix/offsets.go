// Package megamix holds the fixed addresses of the supported host builds.
package megamix

// Calls the host makes that the patch takes over, and host routines the
// patch calls back into.
type CodeOffsets struct {
	A_museum_scroll__call__museum_getNextRow uint32
	A_museum_getGameID__entry                uint32
	A_museum_findRowWithIndex__entry         uint32
	A_save_getGateState__entry               uint32
}

type DataOffsets struct {
	A_MuseumRows     uint32
	A_SaveManagerPtr uint32
}

type Offsets struct {
	Code CodeOffsets
	Data DataOffsets

	RowCount int
}

var offsetsMap = map[string]Offsets{
	"megamix-us": {
		Code: CodeOffsets{
			A_museum_scroll__call__museum_getNextRow: 0x002423dc,
			A_museum_getGameID__entry:                0x00261a10,
			A_museum_findRowWithIndex__entry:         0x00261964,
			A_save_getGateState__entry:               0x00261914,
		},
		Data: DataOffsets{
			A_MuseumRows:     0x004c8ea8,
			A_SaveManagerPtr: 0x0054d350,
		},
		RowCount: 29,
	},
}

func OffsetsForGame(title string) (Offsets, bool) {
	offsets, ok := offsetsMap[title]
	return offsets, ok
}
