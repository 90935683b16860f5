package simulator

import "testing"

func TestDecideEmptyNeverBelow85(t *testing.T) {
	p := DefaultEmptyPolicy()
	for level := 0.0; level < 85; level += 0.5 {
		if DecideEmpty(p, level, 10_000, 0) {
			t.Fatalf("emptied at level %v", level)
		}
	}
}

func TestDecideEmptyNeverWithinFiveMinutes(t *testing.T) {
	p := DefaultEmptyPolicy()
	for minutes := 0.0; minutes < 5; minutes += 0.25 {
		if DecideEmpty(p, 100, minutes, 0) {
			t.Fatalf("emptied after %v minutes", minutes)
		}
	}
}

func TestDecideEmptyFirstBranch(t *testing.T) {
	p := DefaultEmptyPolicy()
	if !DecideEmpty(p, 96, 6, 0.49) {
		t.Fatalf("draw 0.49 should empty with probability 0.5")
	}
	if DecideEmpty(p, 96, 6, 0.5) {
		t.Fatalf("draw 0.5 should not empty")
	}
}

func TestDecideEmptySecondBranch(t *testing.T) {
	p := DefaultEmptyPolicy()
	if !DecideEmpty(p, 88, 12, 0.29) {
		t.Fatalf("draw 0.29 should empty with probability 0.3")
	}
	if DecideEmpty(p, 88, 12, 0.3) {
		t.Fatalf("draw 0.3 should not empty")
	}
	// 85 <= level < 95 needs ten minutes
	if DecideEmpty(p, 88, 9, 0) {
		t.Fatalf("should not empty before ten minutes")
	}
}

func TestDecideEmptyFirstMatchWins(t *testing.T) {
	p := DefaultEmptyPolicy()
	// level 96 after 20 minutes matches both rules; the 0.5 rule decides.
	if !DecideEmpty(p, 96, 20, 0.45) {
		t.Fatalf("expected first rule to apply")
	}
}

func TestNewEmptyPolicyValidates(t *testing.T) {
	if _, err := NewEmptyPolicy([]EmptyRule{{MinLevel: 90, Probability: 1.5}}); err == nil {
		t.Fatalf("expected probability error")
	}
	p, err := NewEmptyPolicy(nil)
	if err != nil || len(p.Rules) != 2 {
		t.Fatalf("expected default policy, got %+v %v", p, err)
	}
}

func TestDeciderOnlyDrawsWhenRuleMatches(t *testing.T) {
	src := NewSequenceSource(0.1, 0.9)
	d := NewDecider(DefaultEmptyPolicy(), src)
	if d.ShouldEmpty(50, 100) {
		t.Fatalf("level 50 must not empty")
	}
	// first draw (0.1) must still be available
	if !d.ShouldEmpty(96, 6) {
		t.Fatalf("expected first draw to be used")
	}
	if d.ShouldEmpty(96, 6) {
		t.Fatalf("second draw 0.9 must not empty")
	}
}
