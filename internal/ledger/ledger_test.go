package ledger

import "testing"

func TestLedger_CreditAccumulates(t *testing.T) {
	l := New()

	l.Credit("plank", 4)
	l.Credit("plank", 4)
	l.Credit("beam", 1)

	if got := l.Total("plank"); got != 8 {
		t.Errorf("Total(plank) = %d, want 8", got)
	}
	if got := l.Total("beam"); got != 1 {
		t.Errorf("Total(beam) = %d, want 1", got)
	}
	if got := l.Total("iron"); got != 0 {
		t.Errorf("Total(iron) = %d, want 0", got)
	}
}

func TestLedger_CreditIgnoresJunk(t *testing.T) {
	l := New()

	l.Credit("", 5)
	l.Credit("plank", 0)
	l.Credit("plank", -3)

	if len(l.Snapshot()) != 0 {
		t.Errorf("Snapshot() = %v, want empty", l.Snapshot())
	}
}

func TestLedger_Debit(t *testing.T) {
	l := New()
	l.Credit("wood", 10)

	if !l.Debit("wood", 4) {
		t.Error("Debit(4) of 10 = false, want true")
	}
	if got := l.Total("wood"); got != 6 {
		t.Errorf("Total(wood) = %d, want 6", got)
	}

	// A short total drains to zero and reports false.
	if l.Debit("wood", 9) {
		t.Error("Debit(9) of 6 = true, want false")
	}
	if got := l.Total("wood"); got != 0 {
		t.Errorf("Total(wood) = %d, want 0", got)
	}

	if l.Debit("wood", 1) {
		t.Error("Debit() of an empty total = true, want false")
	}
	if l.Debit("", 1) || l.Debit("wood", 0) {
		t.Error("Debit() with junk arguments should report false")
	}
}

func TestLedger_DebitExactRemovesEntry(t *testing.T) {
	l := New()
	l.Credit("wood", 5)

	if !l.Debit("wood", 5) {
		t.Error("Debit() of the exact total = false, want true")
	}
	if _, ok := l.Snapshot()["wood"]; ok {
		t.Error("Snapshot() still carries a zeroed kind")
	}
}

func TestLedger_SnapshotIsCopy(t *testing.T) {
	l := New()
	l.Credit("plank", 3)

	snap := l.Snapshot()
	snap["plank"] = 999
	snap["ghost"] = 1

	if got := l.Total("plank"); got != 3 {
		t.Errorf("Total(plank) = %d after snapshot mutation, want 3", got)
	}
	if got := l.Total("ghost"); got != 0 {
		t.Errorf("Total(ghost) = %d after snapshot mutation, want 0", got)
	}
}

func TestLedger_Reset(t *testing.T) {
	l := New()
	l.Credit("plank", 3)
	l.Credit("beam", 7)

	l.Reset()

	if len(l.Snapshot()) != 0 {
		t.Errorf("Snapshot() after reset = %v, want empty", l.Snapshot())
	}
}
