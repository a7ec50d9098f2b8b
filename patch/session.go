// Package patch runs the one-time setup that installs the museum hook and
// moves the host onto a new row table.
package patch

import (
	"fmt"
	"log"

	"github.com/murkland/museumpatch/asm"
	"github.com/murkland/museumpatch/config"
	"github.com/murkland/museumpatch/hijack"
	"github.com/murkland/museumpatch/megamix"
	"github.com/murkland/museumpatch/mem"
	"github.com/murkland/museumpatch/museum"
	"github.com/murkland/museumpatch/privilege"
	"github.com/murkland/museumpatch/relocate"
	"github.com/murkland/museumpatch/save"
	"github.com/murkland/museumpatch/trapper"
)

// Session patches one address space. Nothing it writes is ever undone.
type Session struct {
	sys     privilege.System
	m       mem.Region
	conf    config.Config
	offsets megamix.Offsets

	// Address the hook trampoline jumps to.
	entry uint32

	save   *save.Manager
	rows   museum.Table
	colors []museum.RowColor
}

func New(sys privilege.System, m mem.Region, conf config.Config, entry uint32) (*Session, error) {
	offsets, ok := megamix.OffsetsForGame(conf.Title)
	if !ok {
		return nil, fmt.Errorf("unsupported game: %s", conf.Title)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &Session{sys: sys, m: m, conf: conf, offsets: offsets, entry: entry}, nil
}

func (s *Session) Offsets() megamix.Offsets {
	return s.offsets
}

// Init runs every setup step in order and stops at the first failure.
func (s *Session) Init() error {
	for _, step := range []struct {
		name string
		fn   func() error
	}{
		{"validate save layout", s.validateLayouts},
		{"install hook", s.installHook},
		{"write row table", s.writeTables},
		{"relocate row table", s.relocate},
	} {
		log.Printf("patch: %s", step.name)
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	rows, err := s.Rows()
	if err != nil {
		return err
	}
	log.Printf("patch: done, %d rows", len(rows))
	return nil
}

func (s *Session) validateLayouts() error {
	sm, err := save.NewManager(s.m, s.offsets.Data.A_SaveManagerPtr)
	if err != nil {
		return err
	}
	s.save = sm
	return nil
}

// SaveManager reads ranks through the layout Init validated. It is nil until
// Init has run.
func (s *Session) SaveManager() *save.Manager {
	return s.save
}

func (s *Session) installHook() error {
	if !s.conf.Hook.Enabled {
		log.Printf("patch: hook disabled")
		return nil
	}
	return hijack.InstallHook(s.sys, s.m, s.conf.Hook.Site, s.entry)
}

func (s *Session) writeTables() error {
	rel := &s.conf.Relocation
	if !rel.Enabled {
		return nil
	}

	rows, colors, err := rel.Table()
	if err != nil {
		return err
	}

	if err := s.m.RawWriteRange(rel.TableAddress, rows.Marshal()); err != nil {
		return fmt.Errorf("row table: %w", err)
	}

	if rel.ColorAddress != 0 {
		buf, err := museum.MarshalColors(rows, colors)
		if err != nil {
			return err
		}
		if err := s.m.RawWriteRange(rel.ColorAddress, buf); err != nil {
			return fmt.Errorf("row colors: %w", err)
		}
	}

	s.rows = rows
	s.colors = colors
	return nil
}

func (s *Session) relocate() error {
	rel := &s.conf.Relocation
	if !rel.Enabled {
		return nil
	}

	if len(rel.ColorSlots) > 0 {
		if err := relocate.RepointSlots(s.m, rel.ColorSlots, rel.ColorAddress); err != nil {
			return err
		}
	}

	sites := make([]relocate.BoundCheck, len(rel.BoundChecks))
	for i, bc := range rel.BoundChecks {
		sites[i] = relocate.BoundCheck{Address: bc.Address, Register: asm.Reg(bc.Register)}
	}
	r := relocate.Relocation{
		Table:       rel.TableAddress,
		Count:       uint32(len(s.rows)),
		Slots:       rel.TableSlots,
		BoundChecks: sites,
	}
	return r.Apply(s.sys, s.m)
}

// Rows is the row table in effect once Init has run.
func (s *Session) Rows() (museum.Table, error) {
	if s.rows != nil {
		return s.rows, nil
	}
	rows, err := museum.ReadTable(s.m, s.offsets.Data.A_MuseumRows, s.offsets.RowCount)
	if err != nil {
		return nil, fmt.Errorf("read row table: %w", err)
	}
	s.rows = rows
	return rows, nil
}

// NewTrapper registers the museum handlers against the host's call sites.
func (s *Session) NewTrapper(resolver *museum.Resolver) *trapper.Trapper {
	t := trapper.New()
	t.Add(s.offsets.Code.A_museum_scroll__call__museum_getNextRow, NextRowHandler(resolver))
	return t
}

// NextRowHandler adapts the resolver to the host's getNextRow(this, row, dir)
// signature. The result is a signed row index in r0.
func NextRowHandler(resolver *museum.Resolver) trapper.Handler {
	return func(args trapper.Args) uint32 {
		return uint32(resolver.HostNextRow(args.R1, args.R2))
	}
}
