package reverse

import (
	"strconv"
	"testing"
	"time"

	"github.com/agentix/droidportal/internal/rpc"
)

func req(id string) rpc.Request {
	return rpc.Request{JSONRPC: rpc.Version, ID: id, Method: "tools/call"}
}

func TestQueue_BoundedAtTen(t *testing.T) {
	q := newPendingQueue()
	for i := 0; i < queueMax; i++ {
		if !q.Push(req(strconv.Itoa(i))) {
			t.Fatalf("push %d rejected before capacity", i)
		}
	}
	if q.Push(req("overflow")) {
		t.Error("11th push accepted")
	}
	if q.Len() != queueMax {
		t.Errorf("len = %d, want %d", q.Len(), queueMax)
	}
}

func TestQueue_DrainFIFO(t *testing.T) {
	q := newPendingQueue()
	q.Push(req("a"))
	q.Push(req("b"))
	q.Push(req("c"))

	out := q.Drain()
	if len(out) != 3 {
		t.Fatalf("drained %d, want 3", len(out))
	}
	for i, want := range []string{"a", "b", "c"} {
		if out[i].ID != want {
			t.Errorf("drain[%d] = %v, want %s", i, out[i].ID, want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("queue not empty after drain")
	}
}

func TestQueue_DrainDropsExpired(t *testing.T) {
	now := time.Now()
	q := newPendingQueue()
	q.now = func() time.Time { return now }
	q.Push(req("stale"))

	now = now.Add(pendingTTL + time.Second)
	q.Push(req("fresh"))

	out := q.Drain()
	if len(out) != 1 || out[0].ID != "fresh" {
		t.Fatalf("drain = %v, want only fresh", out)
	}
}

func TestQueue_PushPurgesExpired(t *testing.T) {
	now := time.Now()
	q := newPendingQueue()
	q.now = func() time.Time { return now }
	for i := 0; i < queueMax; i++ {
		q.Push(req(strconv.Itoa(i)))
	}

	// Once every entry has expired, a full queue accepts new arrivals.
	now = now.Add(pendingTTL + time.Second)
	if !q.Push(req("new")) {
		t.Fatal("push rejected although all entries expired")
	}
	if q.Len() != 1 {
		t.Errorf("len = %d, want 1", q.Len())
	}
}
