package state

import (
	"strings"
	"sync"
	"sync/atomic"
)

// State tracks the UI-facing session: which market is active, the selected
// grouping precision, and whether the feed gateway is connected. It is the
// one mutable crossroads between the HTTP handlers and the feed pump, so
// everything here is atomics or a short-held lock.
type State struct {
	activeMu     sync.RWMutex
	activeMarket string

	precision atomic.Int32
	connected atomic.Bool
}

func NewState(defaultPrecision int32) *State {
	s := &State{}
	s.precision.Store(defaultPrecision)
	return s
}

// SetMarket canonicalizes and records the active market id, returning the
// canonical form.
func (s *State) SetMarket(id string) string {
	canon := strings.ToUpper(strings.TrimSpace(id))
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	s.activeMarket = canon
	return canon
}

func (s *State) Market() string {
	s.activeMu.RLock()
	defer s.activeMu.RUnlock()
	return s.activeMarket
}

func (s *State) Precision() int32 { return s.precision.Load() }

func (s *State) SetPrecision(p int32) {
	if p < 0 {
		p = 0
	}
	s.precision.Store(p)
}

func (s *State) SetConnected(v bool) { s.connected.Store(v) }
func (s *State) Connected() bool     { return s.connected.Load() }
