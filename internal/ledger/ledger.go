package ledger

import "sync"

// Ledger accumulates per-kind resource totals. Safe for concurrent use.
type Ledger struct {
	totals map[string]int64
	mu     sync.RWMutex
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{totals: make(map[string]int64)}
}

// Credit adds amount to the kind's total. Empty kinds and non-positive
// amounts are ignored.
func (l *Ledger) Credit(kind string, amount int) {
	if kind == "" || amount <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.totals[kind] += int64(amount)
}

// Debit subtracts amount from the kind's total, flooring at zero. It returns
// true only when the full amount was available; a short total is drained to
// zero and reported false.
func (l *Ledger) Debit(kind string, amount int) bool {
	if kind == "" || amount <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	total := l.totals[kind]
	if total <= int64(amount) {
		delete(l.totals, kind)
		return total == int64(amount)
	}
	l.totals[kind] = total - int64(amount)
	return true
}

// Total returns the kind's running total.
func (l *Ledger) Total(kind string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totals[kind]
}

// Snapshot returns a copy of all totals.
func (l *Ledger) Snapshot() map[string]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := make(map[string]int64, len(l.totals))
	for kind, total := range l.totals {
		snap[kind] = total
	}
	return snap
}

// Reset clears every total.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.totals = make(map[string]int64)
}
