package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/murkland/museumpatch/megamix"
	"github.com/murkland/museumpatch/mem"
	"github.com/murkland/museumpatch/museum"
	"golang.org/x/sync/errgroup"
)

var (
	title   = flag.String("title", "megamix-us", "title the snapshots were taken from")
	address = flag.Uint("address", 0, "row table address, if not the title's default")
	count   = flag.Int("count", 0, "row count, if not the title's default")
)

func loadTable(path string, addr uint32, n int) (museum.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := mem.ReadSnapshot(f)
	if err != nil {
		return nil, err
	}
	return museum.ReadTable(img, addr, n)
}

func main() {
	flag.Parse()

	offsets, ok := megamix.OffsetsForGame(*title)
	if !ok {
		log.Fatalf("unsupported game: %s", *title)
	}

	addr := offsets.Data.A_MuseumRows
	if *address != 0 {
		addr = uint32(*address)
	}
	n := offsets.RowCount
	if *count != 0 {
		n = *count
	}

	paths := flag.Args()
	tables := make([]museum.Table, len(paths))

	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			table, err := loadTable(path, addr, n)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			tables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("failed to load snapshot: %s", err)
	}

	for i, table := range tables {
		fmt.Fprintf(os.Stdout, "%s: %d rows at 0x%08x\n", paths[i], len(table), addr)
		for j, row := range table {
			fmt.Fprintf(os.Stdout, "%2d: columns=%d games=%04x label=%08x category=%d/%d\n", j, row.ColumnCount, row.ActiveColumns(), row.Label, row.CategoryHigh, row.CategoryLow)
		}
	}
}
