package stream

import (
	"testing"
	"time"
)

func TestBackoff_DoublesUpToCap(t *testing.T) {
	b := NewBackoff(time.Second, 10*time.Second)

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Fatalf("Next() #%d = %v, want %v", i+1, got, w)
		}
	}
	if b.Attempt() != len(want) {
		t.Fatalf("Attempt() = %d, want %d", b.Attempt(), len(want))
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := NewBackoff(time.Second, 30*time.Second)

	b.Next()
	b.Next()
	b.Reset()

	if b.Attempt() != 0 {
		t.Fatalf("Attempt() after Reset = %d, want 0", b.Attempt())
	}
	if got := b.Next(); got != time.Second {
		t.Fatalf("Next() after Reset = %v, want %v", got, time.Second)
	}
}

func TestBackoff_Defaults(t *testing.T) {
	b := NewBackoff(0, 0)
	if got := b.Next(); got != time.Second {
		t.Fatalf("Next() with zero base = %v, want %v", got, time.Second)
	}

	// cap ниже base поднимается до base
	b = NewBackoff(5*time.Second, time.Second)
	b.Next()
	if got := b.Next(); got != 5*time.Second {
		t.Fatalf("Next() with cap below base = %v, want %v", got, 5*time.Second)
	}
}
