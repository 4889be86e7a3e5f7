package clock

import (
	"testing"
	"time"
)

func TestFake(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f := NewFake(start)

	f.Sleep(2 * time.Second)
	f.Advance(time.Minute)
	f.Sleep(500 * time.Millisecond)

	if got, want := f.Now(), start.Add(time.Minute+2500*time.Millisecond); !got.Equal(want) {
		t.Errorf("Now = %v, want %v", got, want)
	}
	sleeps := f.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 2*time.Second || sleeps[1] != 500*time.Millisecond {
		t.Errorf("Sleeps = %v", sleeps)
	}
	sleeps[0] = 0
	if f.Sleeps()[0] != 2*time.Second {
		t.Error("Sleeps must return a copy")
	}
}
