package config

import (
	"fmt"
	"image/color"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/murkland/museumpatch/asm"
	"github.com/murkland/museumpatch/museum"
	"golang.org/x/exp/slices"
)

type Hook struct {
	Enabled bool
	// Entry of the routine called from the museum scroll call site. Its
	// first three words are replaced by a trampoline.
	Site uint32
}

type BoundCheck struct {
	Address  uint32
	Register uint8
}

type Row struct {
	Games        []uint16
	Label        uint32
	CategoryHigh uint32
	CategoryLow  uint32
	Primary      RGBA
	Secondary    RGBA
}

// RGBA is a colour written as "#rrggbbaa".
type RGBA color.RGBA

func (c *RGBA) UnmarshalText(text []byte) error {
	var r, g, b, a uint8
	if n, err := fmt.Sscanf(string(text), "#%02x%02x%02x%02x", &r, &g, &b, &a); err != nil || n != 4 {
		return fmt.Errorf("invalid color %q, want #rrggbbaa", string(text))
	}
	*c = RGBA{r, g, b, a}
	return nil
}

func (c RGBA) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)), nil
}

type Relocation struct {
	Enabled bool

	TableAddress uint32
	ColorAddress uint32
	// Every global that points at the row table or colour table.
	TableSlots []uint32
	ColorSlots []uint32
	// Every comparison against the row count.
	BoundChecks []BoundCheck

	Rows []Row
}

type Config struct {
	Title      string
	Hook       Hook
	Relocation Relocation
}

func Default() Config {
	return Config{
		Title: "megamix-us",
	}
}

func Save(config Config, w io.Writer) error {
	return toml.NewEncoder(w).Encode(config)
}

func Load(r io.Reader) (Config, error) {
	c := Default()

	if _, err := toml.NewDecoder(r).Decode(&c); err != nil {
		return c, err
	}

	if err := c.Validate(); err != nil {
		return c, err
	}

	return c, nil
}

func (c *Config) Validate() error {
	if c.Hook.Enabled && c.Hook.Site == 0 {
		return fmt.Errorf("hook enabled without a site")
	}
	if c.Hook.Site%4 != 0 {
		return fmt.Errorf("hook site 0x%08x is not word aligned", c.Hook.Site)
	}

	rel := &c.Relocation
	if !rel.Enabled {
		return nil
	}
	if len(rel.Rows) == 0 {
		return fmt.Errorf("relocation enabled without rows")
	}
	if len(rel.Rows) > asm.MaxCMPImm {
		return fmt.Errorf("%d rows, bound checks can compare against at most %d", len(rel.Rows), asm.MaxCMPImm)
	}
	if rel.TableAddress == 0 || len(rel.TableSlots) == 0 {
		return fmt.Errorf("relocation enabled without a table address and slots")
	}
	if len(rel.ColorSlots) > 0 && rel.ColorAddress == 0 {
		return fmt.Errorf("color slots given without a color address")
	}
	if len(rel.BoundChecks) == 0 {
		return fmt.Errorf("relocation enabled without bound checks")
	}
	for _, bc := range rel.BoundChecks {
		if bc.Register > uint8(asm.PC) {
			return fmt.Errorf("bound check at 0x%08x: no register r%d", bc.Address, bc.Register)
		}
	}
	for i, row := range rel.Rows {
		if len(row.Games) > museum.RowCapacity {
			return fmt.Errorf("row %d has %d games, at most %d fit", i, len(row.Games), museum.RowCapacity)
		}
	}
	slots := append(slices.Clone(rel.TableSlots), rel.ColorSlots...)
	slices.Sort(slots)
	for i := 1; i < len(slots); i++ {
		if slots[i] == slots[i-1] {
			return fmt.Errorf("slot 0x%08x listed twice", slots[i])
		}
	}
	return nil
}

// Table builds the replacement row table.
func (r *Relocation) Table() (museum.Table, []museum.RowColor, error) {
	rows := make([]museum.Row, len(r.Rows))
	colors := make([]museum.RowColor, len(r.Rows))
	for i, cr := range r.Rows {
		if len(cr.Games) > museum.RowCapacity {
			return nil, nil, fmt.Errorf("row %d has %d games, at most %d fit", i, len(cr.Games), museum.RowCapacity)
		}
		rows[i] = museum.Row{
			ColumnCount:  uint32(len(cr.Games)),
			Label:        cr.Label,
			CategoryHigh: cr.CategoryHigh,
			CategoryLow:  cr.CategoryLow,
		}
		copy(rows[i].Columns[:], cr.Games)
		colors[i] = museum.RowColor{
			Primary:   color.RGBA(cr.Primary),
			Secondary: color.RGBA(cr.Secondary),
		}
	}
	table, err := museum.NewTable(rows)
	if err != nil {
		return nil, nil, err
	}
	return table, colors, nil
}

