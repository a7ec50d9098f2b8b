// Package trapper routes calls that arrive at a hook to a handler chosen by
// the call site they came from.
package trapper

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const wordSizeARM = 4

// Args are the argument registers at the time of the call.
type Args struct {
	R0, R1, R2, R3 uint32
}

// Handler returns the value to leave in r0.
type Handler func(args Args) uint32

type Trapper struct {
	traps map[uint32]Handler
}

func New() *Trapper {
	return &Trapper{map[uint32]Handler{}}
}

// Add routes calls made from the `bl` at callSite to handler.
func (t *Trapper) Add(callSite uint32, handler Handler) {
	if _, ok := t.traps[callSite]; ok {
		panic(fmt.Sprintf("trap at 0x%08x already exists", callSite))
	}
	t.traps[callSite] = handler
}

// Lookup finds the handler for a return address.
func (t *Trapper) Lookup(returnAddr uint32) (Handler, bool) {
	h, ok := t.traps[returnAddr-wordSizeARM]
	return h, ok
}

// Dispatch runs the handler for returnAddr. Calls from anywhere else return
// as if nothing happened, leaving r0 alone.
func (t *Trapper) Dispatch(returnAddr uint32, args Args) uint32 {
	handler, ok := t.Lookup(returnAddr)
	if !ok {
		return args.R0
	}
	return handler(args)
}

// CallSites lists registered call sites in ascending order.
func (t *Trapper) CallSites() []uint32 {
	sites := maps.Keys(t.traps)
	slices.Sort(sites)
	return sites
}
