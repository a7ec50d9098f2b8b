package patch

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/murkland/museumpatch/asm"
	"github.com/murkland/museumpatch/config"
	"github.com/murkland/museumpatch/hijack"
	"github.com/murkland/museumpatch/mem"
	"github.com/murkland/museumpatch/museum"
	"github.com/murkland/museumpatch/privilege"
	"github.com/murkland/museumpatch/trapper"
)

const (
	imageBase   = 0x100000
	dataBase    = 0x400000
	imageEnd    = 0x700000
	hookSite    = 0x24f000
	entry       = 0x00c0ffe0
	saveManager = 0x580000
	newTable    = 0x600000
	newColors   = 0x601000
)

var boundChecks = []config.BoundCheck{
	{Address: 0x10a2f4, Register: 0},
	{Address: 0x10a51c, Register: 4},
	{Address: 0x141800, Register: 5},
	{Address: 0x1423e8, Register: 1},
	{Address: 0x16c0a0, Register: 6},
}

func newHostImage(t *testing.T) *mem.Image {
	img := mem.NewImage(imageBase, imageEnd-imageBase, privilege.PermRX)
	img.Protect(dataBase, imageEnd-dataBase, privilege.PermRW)

	rows := make(museum.Table, 29)
	for i := range rows {
		rows[i] = museum.Row{ColumnCount: 1, Columns: [museum.RowCapacity]uint16{uint16(i)}}
	}
	if err := img.RawWriteRange(0x4c8ea8, rows.Marshal()); err != nil {
		t.Fatal(err)
	}
	if err := mem.RawWrite32(img, 0x54d350, saveManager); err != nil {
		t.Fatal(err)
	}
	for _, bc := range boundChecks {
		w, err := asm.CMPImm(asm.Reg(bc.Register), 29)
		if err != nil {
			t.Fatal(err)
		}
		copy(img.Bytes()[bc.Address-imageBase:], asm.Flatten(w))
	}
	return img
}

func newConfig() config.Config {
	c := config.Default()
	c.Hook = config.Hook{Enabled: true, Site: hookSite}

	rows := make([]config.Row, 32)
	for i := range rows {
		rows[i] = config.Row{Games: []uint16{uint16(i), uint16(100 + i)}, CategoryHigh: 1, CategoryLow: uint32(i)}
	}
	c.Relocation = config.Relocation{
		Enabled:      true,
		TableAddress: newTable,
		ColorAddress: newColors,
		TableSlots:   []uint32{0x4a1000, 0x4a2004},
		ColorSlots:   []uint32{0x4a3000},
		BoundChecks:  boundChecks,
		Rows:         rows,
	}
	return c
}

func TestInit(t *testing.T) {
	img := newHostImage(t)
	s, err := New(img, img, newConfig(), entry)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %s", err)
	}

	tramp := hijack.BuildTrampoline(entry)
	if diff := cmp.Diff(asm.Flatten(tramp[:]...), img.Bytes()[hookSite-imageBase:hookSite-imageBase+hijack.TrampolineSize]); diff != "" {
		t.Errorf("hook mismatch (-want +got):\n%s", diff)
	}

	rows, err := museum.ReadTable(img, newTable, 32)
	if err != nil {
		t.Fatal(err)
	}
	sessionRows, err := s.Rows()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(sessionRows, rows); diff != "" {
		t.Errorf("written table mismatch (-want +got):\n%s", diff)
	}

	for slot, want := range map[uint32]uint32{0x4a1000: newTable, 0x4a2004: newTable, 0x4a3000: newColors} {
		if got, err := mem.RawRead32(img, slot); err != nil || got != want {
			t.Errorf("slot 0x%08x = 0x%08x, %v; want 0x%08x", slot, got, err, want)
		}
	}

	for _, bc := range boundChecks {
		got, err := mem.RawRead32(img, bc.Address)
		if err != nil {
			t.Fatal(err)
		}
		want, _ := asm.CMPImm(asm.Reg(bc.Register), 32)
		if asm.Word(got) != want {
			t.Errorf("bound check 0x%08x = %08x, want %08x", bc.Address, got, want)
		}
	}

	if img.Perm(hookSite) != privilege.PermRX {
		t.Errorf("hook site left %s", img.Perm(hookSite))
	}
	if img.OpenHandles() != 0 {
		t.Errorf("%d handles leaked", img.OpenHandles())
	}
}

func TestInitStopsAtFirstFailure(t *testing.T) {
	img := newHostImage(t)
	conf := newConfig()
	conf.Hook.Site = 0x800000

	s, err := New(img, img, conf, entry)
	if err != nil {
		t.Fatal(err)
	}
	before := append([]byte(nil), img.Bytes()...)
	if err := s.Init(); err == nil {
		t.Fatalf("expected error")
	}
	if !bytes.Equal(before, img.Bytes()) {
		t.Errorf("memory changed after failed hook install")
	}
	if img.OpenHandles() != 0 {
		t.Errorf("%d handles leaked", img.OpenHandles())
	}
}

func TestNewRejectsUnknownTitle(t *testing.T) {
	img := newHostImage(t)
	conf := newConfig()
	conf.Title = "megamix-xx"
	if _, err := New(img, img, conf, entry); err == nil {
		t.Errorf("expected error")
	}
}

func TestRowsWithoutRelocation(t *testing.T) {
	img := newHostImage(t)
	conf := newConfig()
	conf.Relocation = config.Relocation{}
	s, err := New(img, img, conf, entry)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	rows, err := s.Rows()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 29 {
		t.Errorf("%d rows, want 29", len(rows))
	}
}

func TestTrapperDrivesResolver(t *testing.T) {
	img := newHostImage(t)
	s, err := New(img, img, newConfig(), entry)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}

	sm := s.SaveManager()
	if sm == nil {
		t.Fatalf("no save manager after Init")
	}
	// Slot 0, game 2 finished.
	if err := mem.RawWrite8(img, saveManager+0x1c40+0x74+2, uint8(museum.GameRankOK)); err != nil {
		t.Fatal(err)
	}

	rows, err := s.Rows()
	if err != nil {
		t.Fatal(err)
	}
	resolver := museum.NewResolver(rows, museum.AccessorFuncs{
		GameIDFunc:     func(gameIndex uint16) uint8 { return uint8(gameIndex) },
		GameRankFunc:   sm.GameRank,
		RowForGameFunc: rows.RowForGame,
		GateStateFunc:  func(high, low uint32) museum.GateState { return museum.GateState(low) },
	})
	tr := s.NewTrapper(resolver)

	returnAddr := s.Offsets().Code.A_museum_scroll__call__museum_getNextRow + 4
	call := func(row, dir uint32) int32 {
		return int32(tr.Dispatch(returnAddr, trapper.Args{R0: 0xdead, R1: row, R2: dir}))
	}

	// Row i holds games i and 100+i. Games from 0x68 are gates whose state
	// here is CategoryLow, so rows 5..31 are visible through their gate.
	if got := call(0, uint32(museum.DirectionUp)); got != 2 {
		t.Errorf("up from 0 = %d, want 2", got)
	}
	if got := call(2, uint32(museum.DirectionUp)); got != 5 {
		t.Errorf("up from 2 = %d, want 5", got)
	}
	if got := call(0, uint32(museum.DirectionDown)); got != 31 {
		t.Errorf("down from 0 = %d, want 31", got)
	}
	if got := call(33, uint32(museum.DirectionUp)); got != museum.NoRow {
		t.Errorf("up from 33 = %d, want %d", got, museum.NoRow)
	}
	if got := tr.Dispatch(0x100004, trapper.Args{R0: 0xdead}); got != 0xdead {
		t.Errorf("unrelated caller = %x, want pass-through", got)
	}
}

func TestRowsReportsUnreadableTable(t *testing.T) {
	img := newHostImage(t)
	img.Protect(0x4c8000, 0x1000, privilege.PermNone)

	conf := newConfig()
	conf.Relocation = config.Relocation{}
	s, err := New(img, img, conf, entry)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Init(); err == nil {
		t.Errorf("Init: expected error for unreadable row table")
	}
	if rows, err := s.Rows(); err == nil || rows != nil {
		t.Errorf("Rows() = %d rows, %v; want error", len(rows), err)
	}
}

func TestSaveManagerBeforeInit(t *testing.T) {
	img := newHostImage(t)
	s, err := New(img, img, newConfig(), entry)
	if err != nil {
		t.Fatal(err)
	}
	if s.SaveManager() != nil {
		t.Errorf("save manager exists before Init")
	}
}

func TestNewRejectsTooManyRowsBeforeWriting(t *testing.T) {
	img := newHostImage(t)
	before := append([]byte(nil), img.Bytes()...)

	conf := newConfig()
	conf.Relocation.Rows = make([]config.Row, 1<<12)
	if _, err := New(img, img, conf, entry); err == nil {
		t.Fatalf("expected error")
	}
	if !bytes.Equal(before, img.Bytes()) {
		t.Errorf("memory changed")
	}
}
