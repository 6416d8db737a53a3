package timer

import (
	"testing"
	"time"
)

func TestScheduleOnceFires(t *testing.T) {
	w := New(4)
	defer w.Stop()
	id := w.ScheduleOnce("ReconnectTimer", 10*time.Millisecond)

	select {
	case f := <-w.Fired():
		if f.ID != id || f.Kind != "ReconnectTimer" {
			t.Fatalf("unexpected firing: %+v", f)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timer did not fire in time")
	}
}

func TestSchedulePeriodicFiresMultipleTimes(t *testing.T) {
	w := New(4)
	defer w.Stop()
	w.SchedulePeriodic("NoOpTimer", 5*time.Millisecond, 5*time.Millisecond)

	seen := 0
	deadline := time.After(500 * time.Millisecond)
	for seen < 3 {
		select {
		case <-w.Fired():
			seen++
		case <-deadline:
			t.Fatalf("only saw %d firings before deadline", seen)
		}
	}
}

func TestCancelIsIdempotentAndStopsFirings(t *testing.T) {
	w := New(4)
	defer w.Stop()
	id := w.SchedulePeriodic("LeaderTimer", 5*time.Millisecond, 5*time.Millisecond)

	<-w.Fired()
	w.Cancel(id)
	w.Cancel(id) // must not panic

	// Drain any in-flight firing, then make sure nothing more arrives.
	select {
	case <-w.Fired():
	case <-time.After(20 * time.Millisecond):
	}
	select {
	case f := <-w.Fired():
		t.Fatalf("did not expect further firings after cancel, got %+v", f)
	case <-time.After(50 * time.Millisecond):
	}
}
