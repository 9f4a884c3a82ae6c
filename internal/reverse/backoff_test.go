package reverse

import (
	"testing"
	"time"
)

func TestBackoff_DoublesToCap(t *testing.T) {
	b := newBackoff(time.Second, 60*time.Second)
	want := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 32 * time.Second, 60 * time.Second, 60 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Fatalf("attempt %d: delay = %v, want %v", i, got, w)
		}
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := newBackoff(time.Second, 60*time.Second)
	b.Next()
	b.Next()
	b.Reset()
	if got := b.Next(); got != time.Second {
		t.Errorf("delay after reset = %v, want 1s", got)
	}
}
