package museum

import "fmt"

// GameRank is the per-save-slot progress of one game. The order matters:
// anything at or above GameRankUnfinishedShop shows up in the museum.
type GameRank uint8

const (
	// Hidden in the campaign, or not bought.
	GameRankUnknown GameRank = iota
	// Story games show up as ??? until finished, shop games don't.
	GameRankUnfinishedStory
	GameRankUnfinishedShop
	// high score < 60
	GameRankNotGood
	// 60 <= high score < 80
	GameRankOK
	// 80 <= high score
	GameRankHigh
	// Perfect challenge cleared.
	GameRankPerfect
)

var gameRankNames = [...]string{
	"Unknown",
	"UnfinishedStory",
	"UnfinishedShop",
	"NotGood",
	"OK",
	"High",
	"Perfect",
}

// GameRankFromByte converts a raw save byte. ok is false for values outside
// the enumeration.
func GameRankFromByte(v uint8) (r GameRank, ok bool) {
	if int(v) >= len(gameRankNames) {
		return GameRankUnknown, false
	}
	return GameRank(v), true
}

func (r GameRank) String() string {
	if int(r) < len(gameRankNames) {
		return gameRankNames[r]
	}
	return fmt.Sprintf("GameRank(%d)", uint8(r))
}

// GateState is the raw value of the host's gate state lookup. Only the
// comparison against Resolver.GateVisibleAbove is understood.
type GateState uint8
