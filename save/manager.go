package save

import (
	"fmt"
	"log"

	"github.com/murkland/museumpatch/mem"
	"github.com/murkland/museumpatch/museum"
)

// Manager reads ranks through the host's global save manager pointer.
type Manager struct {
	m       mem.Region
	pointer uint32

	slotSize        uint32
	slotsOffset     uint32
	currentOffset   uint32
	gameRanksOffset uint32
}

// NewManager validates the layouts it depends on. pointer is the address of
// the global holding the save manager's address.
func NewManager(m mem.Region, pointer uint32) (*Manager, error) {
	for _, l := range []*Layout{&SlotLayout, &ManagerLayout} {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}
	if slots := ManagerLayout.Field("save_slots"); slots.Size != SlotCount*SlotLayout.Size {
		return nil, fmt.Errorf("save slots span 0x%x bytes, want %d slots of 0x%x", slots.Size, SlotCount, SlotLayout.Size)
	}

	return &Manager{
		m:               m,
		pointer:         pointer,
		slotSize:        SlotLayout.Size,
		slotsOffset:     ManagerLayout.Field("save_slots").Offset,
		currentOffset:   ManagerLayout.Field("current_save_slot").Offset,
		gameRanksOffset: SlotLayout.Field("game_ranks").Offset,
	}, nil
}

func (sm *Manager) base() (uint32, error) {
	return mem.RawRead32(sm.m, sm.pointer)
}

// CurrentSlot is the selected save slot index.
func (sm *Manager) CurrentSlot() (uint32, error) {
	base, err := sm.base()
	if err != nil {
		return 0, err
	}
	return mem.RawRead32(sm.m, base+sm.currentOffset)
}

// Rank reads a game's rank from the current save slot.
func (sm *Manager) Rank(gameID uint8) (museum.GameRank, error) {
	if int(gameID) >= RankCount {
		return museum.GameRankUnknown, fmt.Errorf("game id %d out of range", gameID)
	}

	base, err := sm.base()
	if err != nil {
		return museum.GameRankUnknown, err
	}
	slot, err := mem.RawRead32(sm.m, base+sm.currentOffset)
	if err != nil {
		return museum.GameRankUnknown, err
	}
	if slot >= SlotCount {
		return museum.GameRankUnknown, fmt.Errorf("current save slot %d out of range", slot)
	}

	raw, err := mem.RawRead8(sm.m, base+sm.slotsOffset+slot*sm.slotSize+sm.gameRanksOffset+uint32(gameID))
	if err != nil {
		return museum.GameRankUnknown, err
	}
	rank, ok := museum.GameRankFromByte(raw)
	if !ok {
		return museum.GameRankUnknown, fmt.Errorf("game id %d has invalid rank %d", gameID, raw)
	}
	return rank, nil
}

// GameRank is Rank for museum.Accessors: anything unreadable counts as
// unknown.
func (sm *Manager) GameRank(gameID uint8) museum.GameRank {
	rank, err := sm.Rank(gameID)
	if err != nil {
		log.Printf("failed to read rank: %s", err)
		return museum.GameRankUnknown
	}
	return rank
}
