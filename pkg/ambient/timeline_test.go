package ambient

import (
	"slices"
	"testing"
)

func TestTimelineOrder(t *testing.T) {
	var tl Timeline
	var got []string
	add := func(at float64, name string) {
		tl.At(at, name, func(float64) { got = append(got, name) })
	}
	add(3, "c")
	add(1, "a")
	add(2, "b1")
	add(2, "b2")
	add(5, "e")

	if at, ok := tl.Next(); !ok || at != 1 {
		t.Errorf("Next() = %v, %v, want 1, true", at, ok)
	}
	if n := tl.RunDue(0.5); n != 0 {
		t.Errorf("RunDue(0.5) = %d, want 0", n)
	}
	if n := tl.RunDue(3); n != 4 {
		t.Errorf("RunDue(3) = %d, want 4", n)
	}
	want := []string{"a", "b1", "b2", "c"}
	if !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if tl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tl.Len())
	}
}

func TestTimelineChained(t *testing.T) {
	var tl Timeline
	var fired []float64
	var arm func(at float64)
	arm = func(at float64) {
		tl.At(at, "tick", func(now float64) {
			fired = append(fired, at)
			arm(at + 1)
		})
	}
	arm(0)

	// Tasks queued by a running task run in the same call when due.
	if n := tl.RunDue(2.5); n != 3 {
		t.Errorf("RunDue(2.5) = %d, want 3", n)
	}
	if !slices.Equal(fired, []float64{0, 1, 2}) {
		t.Errorf("fired = %v", fired)
	}
	if tl.Pending("tick") != 1 {
		t.Errorf("Pending(tick) = %d, want 1", tl.Pending("tick"))
	}
	if tl.Pending("other") != 0 {
		t.Errorf("Pending(other) = %d, want 0", tl.Pending("other"))
	}
}

func TestTimelineNow(t *testing.T) {
	var tl Timeline
	var seen float64
	tl.At(1, "late", func(now float64) { seen = now })
	tl.RunDue(1.02)
	if seen != 1.02 {
		t.Errorf("task saw now = %v, want 1.02", seen)
	}
	if _, ok := tl.Next(); ok {
		t.Error("Next() reported a task on an empty timeline")
	}
}
