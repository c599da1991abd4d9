package exposure

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Entry is a point-in-time copy of one symbol's net exposure.
type Entry struct {
	Symbol      string
	NetExposure decimal.Decimal
}

type symbolExposure struct {
	mu  sync.Mutex
	net decimal.Decimal
}

// Ledger owns the net notional exposure of every symbol it has seen.
// EvaluateAndApply is the only way to change it.
type Ledger struct {
	entries sync.Map // symbol -> *symbolExposure
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// EvaluateAndApply adds delta to the exposure of symbol when the absolute result
// stays within limit. The returned exposure is the candidate value whether or not
// it was stored. Calls for the same symbol are serialized on that symbol's lock;
// calls for other symbols proceed in parallel.
func (l *Ledger) EvaluateAndApply(symbol string, delta, limit decimal.Decimal) (bool, decimal.Decimal) {
	entry := l.getOrCreateEntry(symbol)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	candidate := entry.net.Add(delta)
	if candidate.Abs().GreaterThan(limit) {
		return false, candidate
	}

	entry.net = candidate
	return true, candidate
}

// Exposure returns the stored exposure for symbol, zero if it was never touched.
// The value is stale as soon as it is returned and must not drive admission.
func (l *Ledger) Exposure(symbol string) decimal.Decimal {
	val, ok := l.entries.Load(symbol)
	if !ok {
		return decimal.Zero
	}

	entry := val.(*symbolExposure)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	return entry.net
}

// Snapshot returns every known symbol sorted by name.
func (l *Ledger) Snapshot() []Entry {
	var out []Entry
	l.entries.Range(func(k, v any) bool {
		entry := v.(*symbolExposure)
		entry.mu.Lock()
		out = append(out, Entry{Symbol: k.(string), NetExposure: entry.net})
		entry.mu.Unlock()
		return true
	})

	sort.Slice(out, func(i, j int) bool {
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func (l *Ledger) getOrCreateEntry(symbol string) *symbolExposure {
	if val, ok := l.entries.Load(symbol); ok {
		return val.(*symbolExposure)
	}

	actual, _ := l.entries.LoadOrStore(symbol, &symbolExposure{net: decimal.Zero})
	return actual.(*symbolExposure)
}
