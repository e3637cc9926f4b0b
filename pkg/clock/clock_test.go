package clock

import (
	"testing"
	"time"
)

func TestSystemReturnsUTC(t *testing.T) {
	now := System().Now()
	if now.Location() != time.UTC {
		t.Errorf("expected UTC, got %v", now.Location())
	}
}

func TestFixedAndAdvance(t *testing.T) {
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	c := Fixed(base)

	if !c.Now().Equal(base) {
		t.Fatalf("fixed clock moved: %v", c.Now())
	}

	Advance(c, 3*time.Hour)
	want := base.Add(3 * time.Hour)
	if !c.Now().Equal(want) {
		t.Errorf("expected %v after advance, got %v", want, c.Now())
	}

	// Advancing a system clock is a no-op rather than a panic.
	Advance(System(), time.Hour)
}
