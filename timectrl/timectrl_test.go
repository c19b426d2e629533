package timectrl

import (
	"testing"
	"time"
)

func TestScheduler_RunsInTimeOrder(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewScheduler(start)

	var order []string
	s.ScheduleAt(start.Add(2*time.Second), func() { order = append(order, "b") })
	s.ScheduleAt(start.Add(1*time.Second), func() { order = append(order, "a") })
	s.ScheduleAt(start.Add(3*time.Second), func() { order = append(order, "c") })

	s.Run(start.Add(10 * time.Second))

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("expected events in time order [a b c], got %v", order)
	}
	if got := s.Now(); !got.Equal(start.Add(3 * time.Second)) {
		t.Fatalf("clock should rest at last event time, got %v", got)
	}
}

func TestScheduler_EqualTimesRunInSchedulingOrder(t *testing.T) {
	start := time.Unix(0, 0).UTC()
	s := NewScheduler(start)

	at := start.Add(time.Second)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		s.ScheduleAt(at, func() { order = append(order, i) })
	}
	s.Run(at)

	for i, v := range order {
		if v != i {
			t.Fatalf("equal-time events must run in scheduling order, got %v", order)
		}
	}
}

func TestScheduler_StopTimeBoundsExecution(t *testing.T) {
	start := time.Unix(0, 0).UTC()
	s := NewScheduler(start)

	ran := 0
	s.ScheduleAfter(time.Second, func() { ran++ })
	s.ScheduleAfter(5*time.Second, func() { ran++ })

	s.Run(start.Add(2 * time.Second))
	if ran != 1 {
		t.Fatalf("events past stop time must not run, ran=%d", ran)
	}
	if s.Pending() != 1 {
		t.Fatalf("late event should remain queued, pending=%d", s.Pending())
	}
}

func TestScheduler_CancelPreventsExecution(t *testing.T) {
	start := time.Unix(0, 0).UTC()
	s := NewScheduler(start)

	ran := false
	h := s.ScheduleAfter(time.Second, func() { ran = true })
	h.Cancel()
	s.Run(start.Add(time.Minute))

	if ran {
		t.Fatalf("cancelled event must not run")
	}
}

func TestScheduler_SelfRescheduling(t *testing.T) {
	start := time.Unix(0, 0).UTC()
	s := NewScheduler(start)

	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		s.ScheduleAfter(100*time.Millisecond, tick)
	}
	s.ScheduleAfter(100*time.Millisecond, tick)

	s.Run(start.Add(time.Second))
	if ticks != 10 {
		t.Fatalf("expected 10 ticks in one second at 100ms, got %d", ticks)
	}
}
