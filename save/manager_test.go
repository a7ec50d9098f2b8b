package save

import (
	"testing"

	"github.com/murkland/museumpatch/mem"
	"github.com/murkland/museumpatch/museum"
	"github.com/murkland/museumpatch/privilege"
)

const (
	managerPointer = 0x54d350
	managerBase    = 0x580000
)

func newSaveImage(t *testing.T, slot uint32) *mem.Image {
	img := mem.NewImage(0x540000, 0x50000, privilege.PermRW)
	if err := mem.RawWrite32(img, managerPointer, managerBase); err != nil {
		t.Fatal(err)
	}
	if err := mem.RawWrite32(img, managerBase+0x7560, slot); err != nil {
		t.Fatal(err)
	}
	return img
}

func rankAddr(slot uint32, gameID uint8) uint32 {
	return managerBase + 0x1c40 + slot*0x1648 + 0x74 + uint32(gameID)
}

func TestLayoutsValidate(t *testing.T) {
	for _, l := range []*Layout{&SlotLayout, &ManagerLayout} {
		if err := l.Validate(); err != nil {
			t.Errorf("%s: %s", l.Name, err)
		}
	}
}

func TestLayoutValidateCatchesOverlap(t *testing.T) {
	l := Layout{Name: "bad", Size: 8, Fields: []Field{{"a", 0, 4}, {"b", 2, 4}, {"c", 6, 4}}}
	if err := l.Validate(); err == nil {
		t.Errorf("expected error")
	}
}

func TestRankReadsCurrentSlot(t *testing.T) {
	img := newSaveImage(t, 2)
	if err := mem.RawWrite8(img, rankAddr(2, 17), uint8(museum.GameRankHigh)); err != nil {
		t.Fatal(err)
	}
	if err := mem.RawWrite8(img, rankAddr(1, 17), uint8(museum.GameRankPerfect)); err != nil {
		t.Fatal(err)
	}

	sm, err := NewManager(img, managerPointer)
	if err != nil {
		t.Fatal(err)
	}
	if slot, err := sm.CurrentSlot(); err != nil || slot != 2 {
		t.Errorf("CurrentSlot = %d, %v", slot, err)
	}
	if got := sm.GameRank(17); got != museum.GameRankHigh {
		t.Errorf("GameRank(17) = %s, want High", got)
	}
	if got := sm.GameRank(18); got != museum.GameRankUnknown {
		t.Errorf("GameRank(18) = %s, want Unknown", got)
	}
}

func TestRankErrors(t *testing.T) {
	img := newSaveImage(t, 0)
	if err := mem.RawWrite8(img, rankAddr(0, 3), 9); err != nil {
		t.Fatal(err)
	}
	sm, err := NewManager(img, managerPointer)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := sm.Rank(3); err == nil {
		t.Errorf("invalid rank byte: expected error")
	}
	if got := sm.GameRank(3); got != museum.GameRankUnknown {
		t.Errorf("invalid rank byte: GameRank = %s", got)
	}
	if _, err := sm.Rank(RankCount); err == nil {
		t.Errorf("game id %d: expected error", RankCount)
	}

	if err := mem.RawWrite32(img, managerBase+0x7560, SlotCount); err != nil {
		t.Fatal(err)
	}
	if _, err := sm.Rank(0); err == nil {
		t.Errorf("slot %d: expected error", SlotCount)
	}
}
