//go:build linux

// Command preload is built with -buildmode=c-shared and loaded into the host.
// The loader calls museumpatch_init once; the installed hook then lands in
// museumpatch_entry.
package main

/*
#include <stdint.h>

extern uint32_t museumpatch_dispatch(uint32_t ret, uint32_t r0, uint32_t r1, uint32_t r2, uint32_t r3);

static uint32_t museumpatch_entry(uint32_t r0, uint32_t r1, uint32_t r2, uint32_t r3) {
	uint32_t ret = (uint32_t)(uintptr_t)__builtin_return_address(0);
	return museumpatch_dispatch(ret, r0, r1, r2, r3);
}

static uintptr_t museumpatch_entry_addr(void) {
	return (uintptr_t)&museumpatch_entry;
}

static uint8_t museumpatch_call_u16_u8(uintptr_t fn, uint16_t a) {
	return ((uint8_t (*)(uint16_t))fn)(a);
}

static uint8_t museumpatch_call_gate_state(uintptr_t fn, uint32_t save_manager, uint32_t high, uint32_t low) {
	return ((uint8_t (*)(uintptr_t, uint32_t, uint32_t, int32_t))fn)((uintptr_t)save_manager, high, low, -1);
}
*/
import "C"
import (
	"log"
	"os"

	"github.com/murkland/museumpatch/config"
	"github.com/murkland/museumpatch/megamix"
	"github.com/murkland/museumpatch/mem"
	"github.com/murkland/museumpatch/museum"
	"github.com/murkland/museumpatch/patch"
	"github.com/murkland/museumpatch/privilege"
	"github.com/murkland/museumpatch/save"
	"github.com/murkland/museumpatch/trapper"
)

const (
	configPath = "museumpatch.toml"
	logPath    = "museumpatch.log"
)

var hostTrapper *trapper.Trapper

type hostAccessors struct {
	offsets megamix.Offsets
	save    *save.Manager
}

func (h hostAccessors) GameID(gameIndex uint16) uint8 {
	return uint8(C.museumpatch_call_u16_u8(C.uintptr_t(h.offsets.Code.A_museum_getGameID__entry), C.uint16_t(gameIndex)))
}

func (h hostAccessors) GameRank(gameID uint8) museum.GameRank {
	return h.save.GameRank(gameID)
}

func (h hostAccessors) RowForGame(gameIndex uint16) int {
	return int(C.museumpatch_call_u16_u8(C.uintptr_t(h.offsets.Code.A_museum_findRowWithIndex__entry), C.uint16_t(gameIndex)))
}

func (h hostAccessors) GateState(high uint32, low uint32) museum.GateState {
	saveManager, err := mem.RawRead32(mem.Self{}, h.offsets.Data.A_SaveManagerPtr)
	if err != nil {
		log.Printf("failed to read save manager: %s", err)
		return 0
	}
	return museum.GateState(C.museumpatch_call_gate_state(C.uintptr_t(h.offsets.Code.A_save_getGateState__entry), C.uint32_t(saveManager), C.uint32_t(high), C.uint32_t(low)))
}

func loadConfig() config.Config {
	f, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("config doesn't exist, using defaults")
			return config.Default()
		}
		log.Panicf("failed to open config: %s", err)
	}
	defer f.Close()

	conf, err := config.Load(f)
	if err != nil {
		log.Panicf("failed to load config: %s", err)
	}
	return conf
}

//export museumpatch_init
func museumpatch_init() {
	if logF, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
		log.SetOutput(logF)
	}

	conf := loadConfig()
	log.Printf("config settings: %+v", conf)

	entry := uint32(C.museumpatch_entry_addr())
	s, err := patch.New(privilege.LinuxSystem{}, mem.Self{}, conf, entry)
	if err != nil {
		log.Panicf("failed to start patch session: %s", err)
	}
	if err := s.Init(); err != nil {
		log.Panicf("failed to patch: %s", err)
	}

	rows, err := s.Rows()
	if err != nil {
		log.Panicf("failed to load row table: %s", err)
	}

	resolver := museum.NewResolver(rows, hostAccessors{s.Offsets(), s.SaveManager()})
	hostTrapper = s.NewTrapper(resolver)
	log.Printf("hooked call sites: %08x", hostTrapper.CallSites())
}

//export museumpatch_dispatch
func museumpatch_dispatch(ret, r0, r1, r2, r3 C.uint32_t) C.uint32_t {
	if hostTrapper == nil {
		return r0
	}
	return C.uint32_t(hostTrapper.Dispatch(uint32(ret), trapper.Args{
		R0: uint32(r0),
		R1: uint32(r1),
		R2: uint32(r2),
		R3: uint32(r3),
	}))
}

func main() {}
