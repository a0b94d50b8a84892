package buffer

import (
	"sync"
	"testing"
	"time"
)

func TestRing_BasicSendReceive(t *testing.T) {
	r := NewRing[int](10)

	for i := 0; i < 5; i++ {
		if !r.Send(i) {
			t.Fatalf("Send(%d) returned false", i)
		}
	}

	if r.Len() != 5 {
		t.Errorf("Len() = %d, want 5", r.Len())
	}

	for i := 0; i < 5; i++ {
		val, ok := r.TryReceive()
		if !ok {
			t.Fatalf("TryReceive() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("received %d, want %d", val, i)
		}
	}

	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRing_DropsOldestWhenFull(t *testing.T) {
	r := NewRing[int](3)

	for i := 1; i <= 5; i++ {
		if !r.Send(i) {
			t.Fatalf("Send(%d) returned false", i)
		}
	}

	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}

	// 1 and 2 were evicted
	for _, want := range []int{3, 4, 5} {
		got, ok := r.TryReceive()
		if !ok {
			t.Fatalf("TryReceive failed, expected %d", want)
		}
		if got != want {
			t.Errorf("got %d, want %d", got, want)
		}
	}

	stats := r.Stats()
	if stats.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", stats.Dropped)
	}
	if stats.TotalReceived != 5 {
		t.Errorf("TotalReceived = %d, want 5", stats.TotalReceived)
	}
}

func TestRing_FloodKeepsLatest(t *testing.T) {
	r := NewRing[int](100)

	for i := 0; i < 1000; i++ {
		r.Send(i)
	}

	items := r.DrainTo(0)
	if len(items) != 100 {
		t.Fatalf("DrainTo(0) returned %d items, want 100", len(items))
	}
	if items[0] != 900 || items[99] != 999 {
		t.Errorf("items[0], items[99] = %d, %d; want 900, 999", items[0], items[99])
	}

	// Ring stays usable after overflow
	r.Send(1000)
	val, ok := r.TryReceive()
	if !ok || val != 1000 {
		t.Errorf("TryReceive() = %d, %v; want 1000, true", val, ok)
	}
}

func TestRing_BlockingReceive(t *testing.T) {
	r := NewRing[int](10)

	received := make(chan int, 1)

	go func() {
		val, ok := r.Receive()
		if ok {
			received <- val
		}
	}()

	// Give receiver time to start waiting
	time.Sleep(10 * time.Millisecond)

	r.Send(42)

	select {
	case val := <-received:
		if val != 42 {
			t.Errorf("received %d, want 42", val)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for blocked receive")
	}
}

func TestRing_Close(t *testing.T) {
	r := NewRing[int](10)

	r.Send(1)
	r.Send(2)

	r.Close()

	if !r.Closed() {
		t.Error("Closed() = false after Close")
	}

	if r.Send(3) {
		t.Error("Send should return false after Close")
	}

	if _, ok := r.Receive(); ok {
		t.Error("Receive should return false after Close")
	}

	// Remaining items are still reachable without blocking
	items := r.DrainTo(0)
	if len(items) != 2 || items[0] != 1 || items[1] != 2 {
		t.Errorf("DrainTo(0) after Close = %v, want [1 2]", items)
	}
}

func TestRing_CloseUnblocksReceive(t *testing.T) {
	r := NewRing[int](10)

	done := make(chan bool, 1)

	go func() {
		_, ok := r.Receive()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)

	r.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Receive should return false when closed")
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock Receive")
	}
}

func TestRing_DrainTo(t *testing.T) {
	r := NewRing[int](10)

	for i := 0; i < 10; i++ {
		r.Send(i)
	}

	items := r.DrainTo(5)
	if len(items) != 5 {
		t.Errorf("DrainTo(5) returned %d items, want 5", len(items))
	}
	for i, val := range items {
		if val != i {
			t.Errorf("items[%d] = %d, want %d", i, val, i)
		}
	}

	if r.Len() != 5 {
		t.Errorf("Len() = %d, want 5", r.Len())
	}

	items = r.DrainTo(0)
	if len(items) != 5 {
		t.Errorf("DrainTo(0) returned %d items, want 5", len(items))
	}

	if items := r.DrainTo(0); items != nil {
		t.Errorf("DrainTo(0) on empty ring = %v, want nil", items)
	}
}

func TestRing_SingleProducerOrder(t *testing.T) {
	r := NewRing[int](1000)
	const numItems = 1000

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < numItems; i++ {
			r.Send(i)
		}
	}()

	received := make([]int, 0, numItems)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < numItems; i++ {
			val, ok := r.Receive()
			if !ok {
				return
			}
			received = append(received, val)
		}
	}()

	wg.Wait()

	if len(received) != numItems {
		t.Fatalf("received %d items, want %d", len(received), numItems)
	}
	for i, val := range received {
		if val != i {
			t.Fatalf("received[%d] = %d, want %d", i, val, i)
		}
	}
}

func TestRing_Stats(t *testing.T) {
	r := NewRing[int](10)

	stats := r.Stats()
	if stats.Count != 0 || stats.Capacity != 10 || stats.TotalReceived != 0 || stats.TotalSent != 0 || stats.Dropped != 0 {
		t.Errorf("initial stats incorrect: %+v", stats)
	}

	r.Send(1)
	r.Send(2)
	r.Send(3)

	stats = r.Stats()
	if stats.Count != 3 || stats.TotalReceived != 3 {
		t.Errorf("stats after sends: %+v", stats)
	}

	r.TryReceive()
	r.TryReceive()

	stats = r.Stats()
	if stats.Count != 1 || stats.TotalSent != 2 {
		t.Errorf("stats after receives: %+v", stats)
	}
}

func TestNewRing_MinCapacity(t *testing.T) {
	r := NewRing[int](0)
	if r.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1 for capacity 0", r.Cap())
	}

	r = NewRing[int](-5)
	if r.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1 for negative capacity", r.Cap())
	}
}
