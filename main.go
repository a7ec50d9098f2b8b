// Command museumpatch applies the museum patch to a captured process
// snapshot instead of a live process.
package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/murkland/museumpatch/config"
	"github.com/murkland/museumpatch/mem"
	"github.com/murkland/museumpatch/patch"
)

var (
	configPath = flag.String("config_path", "museumpatch.toml", "path to config")
	inPath     = flag.String("in", "", "snapshot to patch")
	outPath    = flag.String("out", "patched.musm", "where to write the patched snapshot")
	entry      = flag.Uint("entry", 0, "address the hook should jump to")
)

var version string

func loadConfig() config.Config {
	confF, err := os.Open(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("config doesn't exist, making a new one at: %s", *configPath)
			confF, err = os.Create(*configPath)
			if err != nil {
				log.Fatalf("failed to open config: %s", err)
			}
			defer confF.Close()
			conf := config.Default()
			if err := config.Save(conf, confF); err != nil {
				log.Fatalf("failed to save config: %s", err)
			}
			return conf
		}
		log.Fatalf("failed to open config: %s", err)
	}
	defer confF.Close()

	conf, err := config.Load(confF)
	if err != nil {
		log.Fatalf("failed to open config: %s", err)
	}
	return conf
}

func main() {
	flag.Parse()

	log.Printf("welcome to museumpatch %s", version)

	conf := loadConfig()
	log.Printf("config settings: %+v", conf)

	if *inPath == "" {
		log.Fatalf("no snapshot given, use -in")
	}
	if conf.Hook.Enabled && *entry == 0 {
		log.Fatalf("hook is enabled but no -entry address was given")
	}

	inF, err := os.Open(*inPath)
	if err != nil {
		log.Fatalf("failed to open snapshot: %s", err)
	}
	img, err := mem.ReadSnapshot(inF)
	inF.Close()
	if err != nil {
		log.Fatalf("failed to read snapshot: %s", err)
	}
	log.Printf("loaded snapshot: 0x%08x+0x%x", img.Base(), img.Size())

	s, err := patch.New(img, img, conf, uint32(*entry))
	if err != nil {
		log.Fatalf("failed to start patch session: %s", err)
	}
	if err := s.Init(); err != nil {
		log.Fatalf("failed to patch: %s", err)
	}

	outF, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("failed to create output: %s", err)
	}
	defer outF.Close()

	if err := mem.WriteSnapshot(outF, img); err != nil {
		log.Fatalf("failed to write snapshot: %s", err)
	}
	log.Printf("wrote %s", *outPath)
}
