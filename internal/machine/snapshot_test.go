package machine

import (
	"math"
	"testing"
)

// restoreTarget builds a fresh machine from the same static configuration the
// test subject used, ready to receive its snapshot.
func restoreTarget(recipes ...*Recipe) *Machine {
	return testMachine(1, recipes...)
}

func TestSnapshot_RoundTripIdle(t *testing.T) {
	r := testRecipe()
	m := testMachine(1, r)
	mustAddIntake(t, m, "wood", 2)
	mustSetRecipe(t, m, r)
	m.SetPlacement(Position{X: 3, Y: 7}, 90)

	clone := restoreTarget(r)
	if corrected := clone.RestoreSnapshot(m.Snapshot()); corrected {
		t.Error("RestoreSnapshot() = corrected, want clean load")
	}

	if clone.State() != StateIdle {
		t.Errorf("State() = %q, want idle", clone.State())
	}
	if clone.RecipeID() != "plank-press" {
		t.Errorf("RecipeID() = %q, want plank-press", clone.RecipeID())
	}
	if clone.Recipe() != r {
		t.Error("restored recipe should resolve to the configured pointer")
	}
	if got := clone.IntakeAmount(0, "wood"); got != 2 {
		t.Errorf("IntakeAmount(wood) = %d, want 2", got)
	}
	if clone.Position() != (Position{X: 3, Y: 7}) || clone.Rotation() != 90 {
		t.Errorf("placement = %+v/%d, want {3 7}/90", clone.Position(), clone.Rotation())
	}
}

// TestSnapshot_RoundTripMidCycle saves a machine a quarter into its cycle and
// verifies the clone finishes on the same tick as the original.
func TestSnapshot_RoundTripMidCycle(t *testing.T) {
	r := testRecipe()
	m := testMachine(1, r)
	mustAddIntake(t, m, "wood", 2)
	mustSetRecipe(t, m, r)
	tickN(m, 0.1, 5)

	clone := restoreTarget(r)
	if corrected := clone.RestoreSnapshot(m.Snapshot()); corrected {
		t.Error("RestoreSnapshot() = corrected, want clean load")
	}

	if clone.State() != StateProcessing {
		t.Fatalf("State() = %q, want processing", clone.State())
	}
	if !almostEqual(clone.Progress(), m.Progress()) {
		t.Errorf("Progress() = %v, want %v", clone.Progress(), m.Progress())
	}
	if !almostEqual(clone.TimeRemaining(), 1.5) {
		t.Errorf("TimeRemaining() = %v, want 1.5 recomputed from progress", clone.TimeRemaining())
	}

	tickN(m, 0.1, 15)
	tickN(clone, 0.1, 15)
	for name, mm := range map[string]*Machine{"original": m, "clone": clone} {
		if got := mm.OutputAmount(0, "plank"); got != 4 {
			t.Errorf("%s OutputAmount(plank) = %d, want 4", name, got)
		}
		if mm.State() != StateIdle {
			t.Errorf("%s State() = %q, want idle", name, mm.State())
		}
	}
}

func TestSnapshot_RoundTripNoPowerResume(t *testing.T) {
	r := testRecipe()
	m := testMachine(1, r)
	mustAddIntake(t, m, "wood", 2)
	mustSetRecipe(t, m, r)
	tickN(m, 0.1, 5)
	m.SetPowered(false)

	clone := restoreTarget(r)
	if corrected := clone.RestoreSnapshot(m.Snapshot()); corrected {
		t.Error("RestoreSnapshot() = corrected, want clean load")
	}
	if clone.State() != StateNoPower {
		t.Fatalf("State() = %q, want no_power", clone.State())
	}

	clone.SetPowered(true)
	if clone.State() != StateProcessing {
		t.Fatalf("State() = %q after power restore, want processing", clone.State())
	}
	if !almostEqual(clone.Progress(), 0.25) {
		t.Errorf("Progress() = %v, want 0.25 preserved across save/load", clone.Progress())
	}

	tickN(clone, 0.1, 15)
	if got := clone.OutputAmount(0, "plank"); got != 4 {
		t.Errorf("OutputAmount(plank) = %d, want 4", got)
	}
}

func TestSnapshot_RoundTripHeldCycle(t *testing.T) {
	r := testRecipe()
	cfg := Config{
		ID:               "held-rt",
		TypeID:           "sawmill",
		Class:            ClassProcessor,
		Tier:             1,
		Footprint:        Footprint{Width: 1, Height: 1},
		IntakePorts:      []PortSpec{{Capacity: 10}},
		OutputPorts:      []PortSpec{{Capacity: 4}},
		AvailableRecipes: []*Recipe{r},
	}
	m := New(cfg)
	mustAddIntake(t, m, "wood", 4)
	mustSetRecipe(t, m, r)
	m.Tick(0.1)
	m.outputs[0].Add("plank", 1)
	m.Tick(1.9)
	if m.State() != StateWaitingForOutput {
		t.Fatalf("setup failed: State() = %q, want waiting_for_output", m.State())
	}

	clone := New(cfg)
	if corrected := clone.RestoreSnapshot(m.Snapshot()); corrected {
		t.Error("RestoreSnapshot() = corrected, want clean load")
	}
	if clone.State() != StateWaitingForOutput {
		t.Fatalf("State() = %q, want waiting_for_output", clone.State())
	}
	if clone.Progress() != 1 {
		t.Errorf("Progress() = %v, want 1 for a held cycle", clone.Progress())
	}

	// The held cycle survives the round trip: room appears, commit follows.
	clone.ExtractFromOutput(0, "plank", 1)
	effects := clone.Tick(0.1)
	if !hasEffect(effects, EffectProcessingCompleted) {
		t.Fatal("restored held cycle should commit once room appears")
	}
	if got := clone.OutputAmount(0, "plank"); got != 4 {
		t.Errorf("OutputAmount(plank) = %d, want 4", got)
	}
	if got := clone.IntakeAmount(0, "wood"); got != 2 {
		t.Errorf("IntakeAmount(wood) = %d, want 2 after commit", got)
	}
}

func TestSnapshot_RoundTripDisabled(t *testing.T) {
	r := testRecipe()
	m := testMachine(1, r)
	mustAddIntake(t, m, "wood", 2)
	mustSetRecipe(t, m, r)
	tickN(m, 0.1, 3)
	m.SetEnabled(false)

	clone := restoreTarget(r)
	if corrected := clone.RestoreSnapshot(m.Snapshot()); corrected {
		t.Error("RestoreSnapshot() = corrected, want clean load")
	}
	if clone.State() != StateDisabled || clone.Enabled() {
		t.Errorf("state/enabled = %q/%v, want disabled/false", clone.State(), clone.Enabled())
	}

	clone.SetEnabled(true)
	if clone.State() != StateIdle {
		t.Errorf("State() = %q after re-enable, want idle", clone.State())
	}
}

// TestSnapshot_RestoreRecomputesTimeRemaining loads a tier-3 save into a
// machine constructed at tier 1. The remaining time must follow the saved
// tier's multiplier, not the constructed one.
func TestSnapshot_RestoreRecomputesTimeRemaining(t *testing.T) {
	r := testRecipe()
	clone := restoreTarget(r)

	snap := Snapshot{
		ID:       "mach-tier",
		TypeID:   "sawmill",
		Class:    ClassProcessor,
		Tier:     3,
		State:    StateProcessing,
		Progress: 0.5,
		RecipeID: "plank-press",
		Enabled:  true,
		Powered:  true,
		Intake:   []PortSnapshot{{Capacity: 50, Contents: map[string]int{"wood": 2}}},
		Output:   []PortSnapshot{{Capacity: 50}},
	}
	if corrected := clone.RestoreSnapshot(snap); corrected {
		t.Error("RestoreSnapshot() = corrected, want clean load")
	}

	if clone.Tier() != 3 {
		t.Errorf("Tier() = %d, want 3", clone.Tier())
	}
	if !almostEqual(clone.SpeedMultiplier(), 1.4) {
		t.Errorf("SpeedMultiplier() = %v, want 1.4", clone.SpeedMultiplier())
	}
	// Half of 2.0/1.4 remains.
	if !almostEqual(clone.TimeRemaining(), 1.0/1.4) {
		t.Errorf("TimeRemaining() = %v, want %v", clone.TimeRemaining(), 1.0/1.4)
	}
}

func TestRestoreSnapshot_Corrections(t *testing.T) {
	r := testRecipe()

	base := func() Snapshot {
		return Snapshot{
			ID:       "mach-corr",
			TypeID:   "sawmill",
			Class:    ClassProcessor,
			Tier:     1,
			State:    StateIdle,
			Enabled:  true,
			Powered:  true,
			RecipeID: "plank-press",
			Intake:   []PortSnapshot{{Capacity: 50, Contents: map[string]int{"wood": 2}}},
			Output:   []PortSnapshot{{Capacity: 50}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Snapshot)
		check  func(*testing.T, *Machine)
	}{
		{
			name:   "tier below one resets to one",
			mutate: func(s *Snapshot) { s.Tier = 0 },
			check: func(t *testing.T, m *Machine) {
				if m.Tier() != 1 {
					t.Errorf("Tier() = %d, want 1", m.Tier())
				}
			},
		},
		{
			name:   "NaN progress resets to zero",
			mutate: func(s *Snapshot) { s.Progress = math.NaN() },
			check: func(t *testing.T, m *Machine) {
				if m.Progress() != 0 {
					t.Errorf("Progress() = %v, want 0", m.Progress())
				}
			},
		},
		{
			name:   "progress above one resets to zero",
			mutate: func(s *Snapshot) { s.Progress = 2.5 },
			check: func(t *testing.T, m *Machine) {
				if m.Progress() != 0 {
					t.Errorf("Progress() = %v, want 0", m.Progress())
				}
			},
		},
		{
			name:   "unknown state forces idle",
			mutate: func(s *Snapshot) { s.State = State("melting") },
			check: func(t *testing.T, m *Machine) {
				if m.State() != StateIdle {
					t.Errorf("State() = %q, want idle", m.State())
				}
			},
		},
		{
			name:   "unknown recipe identifier is unset",
			mutate: func(s *Snapshot) { s.RecipeID = "ghost-recipe" },
			check: func(t *testing.T, m *Machine) {
				if m.Recipe() != nil {
					t.Errorf("Recipe() = %v, want nil", m.Recipe())
				}
			},
		},
		{
			name: "processing without a resolvable recipe forces idle",
			mutate: func(s *Snapshot) {
				s.State = StateProcessing
				s.Progress = 0.5
				s.RecipeID = "ghost-recipe"
			},
			check: func(t *testing.T, m *Machine) {
				if m.State() != StateIdle {
					t.Errorf("State() = %q, want idle", m.State())
				}
				if m.Progress() != 0 {
					t.Errorf("Progress() = %v, want 0", m.Progress())
				}
			},
		},
		{
			name: "port contents trimmed to capacity",
			mutate: func(s *Snapshot) {
				s.Intake[0].Contents = map[string]int{"wood": 70}
			},
			check: func(t *testing.T, m *Machine) {
				if got := m.IntakeAmount(0, "wood"); got != 50 {
					t.Errorf("IntakeAmount(wood) = %d, want 50 (trimmed)", got)
				}
			},
		},
		{
			name: "non-positive and unnamed quantities dropped",
			mutate: func(s *Snapshot) {
				s.Intake[0].Contents = map[string]int{"": 5, "stone": -3, "wood": 2}
			},
			check: func(t *testing.T, m *Machine) {
				if got := m.IntakeAmount(0, "wood"); got != 2 {
					t.Errorf("IntakeAmount(wood) = %d, want 2", got)
				}
				if got := m.IntakeAmount(0, "stone"); got != 0 {
					t.Errorf("IntakeAmount(stone) = %d, want 0", got)
				}
			},
		},
		{
			name:   "missing output port snapshot clears the port",
			mutate: func(s *Snapshot) { s.Output = nil },
			check: func(t *testing.T, m *Machine) {
				if got := m.OutputAmount(0, "plank"); got != 0 {
					t.Errorf("OutputAmount(plank) = %d, want 0", got)
				}
			},
		},
		{
			name: "no_power contradicting the powered flag forces idle",
			mutate: func(s *Snapshot) {
				s.State = StateNoPower
				s.Powered = true
			},
			check: func(t *testing.T, m *Machine) {
				if m.State() != StateIdle {
					t.Errorf("State() = %q, want idle", m.State())
				}
			},
		},
		{
			name: "disabled contradicting the enabled flag forces idle",
			mutate: func(s *Snapshot) {
				s.State = StateDisabled
				s.Enabled = true
			},
			check: func(t *testing.T, m *Machine) {
				if m.State() != StateIdle {
					t.Errorf("State() = %q, want idle", m.State())
				}
			},
		},
		{
			name: "waiting_for_output without a held cycle forces idle",
			mutate: func(s *Snapshot) {
				s.State = StateWaitingForOutput
				s.Held = false
			},
			check: func(t *testing.T, m *Machine) {
				if m.State() != StateIdle {
					t.Errorf("State() = %q, want idle", m.State())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testMachine(1, r)
			// Stale contents that every restore must replace.
			m.outputs[0].Add("plank", 3)

			snap := base()
			tt.mutate(&snap)

			if corrected := m.RestoreSnapshot(snap); !corrected {
				t.Error("RestoreSnapshot() = clean, want corrected")
			}
			tt.check(t, m)

			// Whatever was corrected, the machine must tick safely.
			m.Tick(0.1)
		})
	}
}

func TestRestoreSnapshot_PowerInterruptedCycleResumes(t *testing.T) {
	r := testRecipe()
	m := testMachine(1, r)

	snap := Snapshot{
		ID:        "mach-resume",
		TypeID:    "sawmill",
		Class:     ClassProcessor,
		Tier:      1,
		State:     StateNoPower,
		PrevState: StateProcessing,
		Resuming:  true,
		Progress:  0.6,
		RecipeID:  "plank-press",
		Enabled:   true,
		Powered:   false,
		Intake:    []PortSnapshot{{Capacity: 50, Contents: map[string]int{"wood": 2}}},
		Output:    []PortSnapshot{{Capacity: 50}},
	}
	if corrected := m.RestoreSnapshot(snap); corrected {
		t.Error("RestoreSnapshot() = corrected, want clean load")
	}

	m.SetPowered(true)
	if m.State() != StateProcessing {
		t.Fatalf("State() = %q after power restore, want processing", m.State())
	}
	if !almostEqual(m.Progress(), 0.6) {
		t.Errorf("Progress() = %v, want 0.6", m.Progress())
	}
	if !almostEqual(m.TimeRemaining(), 0.8) {
		t.Errorf("TimeRemaining() = %v, want 0.8", m.TimeRemaining())
	}
}
