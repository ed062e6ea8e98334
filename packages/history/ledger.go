package history

import (
	"errors"
	"fmt"
	"sync"

	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
)

// ErrIndexOutOfRange is returned by Get for an index outside [0, Len)
var ErrIndexOutOfRange = errors.New("history index out of range")

// Ledger is an append-only list of exchanges. It stores and hands out
// copies, so a recorded exchange never changes after Append.
type Ledger struct {
	mu      sync.RWMutex
	entries []*exchange.Exchange
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Append adds a copy of ex and returns its index.
func (l *Ledger) Append(ex *exchange.Exchange) int {
	stored := ex.Clone()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, stored)
	return len(l.entries) - 1
}

// Get returns the exchange at index i.
func (l *Ledger) Get(i int) (*exchange.Exchange, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.entries) {
		return nil, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, i, len(l.entries))
	}
	return l.entries[i].Clone(), nil
}

// Last returns the most recent exchange, or false when the ledger is empty.
func (l *Ledger) Last() (*exchange.Exchange, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return nil, false
	}
	return l.entries[len(l.entries)-1].Clone(), true
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// All returns copies of the exchanges in insertion order.
func (l *Ledger) All() []*exchange.Exchange {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*exchange.Exchange, len(l.entries))
	for i, ex := range l.entries {
		out[i] = ex.Clone()
	}
	return out
}

// Clear discards every entry.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
