package watcher

import "testing"

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(0)

	q.Push("a")
	q.Push("b")
	q.Push("c")

	if got := q.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop returned empty, want %q", want)
		}
		if got != want {
			t.Errorf("Pop = %q, want %q", got, want)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue should return ok=false")
	}
}

func TestQueue_EvictsOldestWhenFull(t *testing.T) {
	q := NewQueue(3)

	for _, h := range []string{"a", "b", "c"} {
		if _, evicted := q.Push(h); evicted {
			t.Errorf("Push(%q) evicted before queue was full", h)
		}
	}

	dropped, evicted := q.Push("d")
	if !evicted {
		t.Fatal("Push into full queue should evict")
	}
	if dropped != "a" {
		t.Errorf("evicted %q, want oldest %q", dropped, "a")
	}

	if got := q.Len(); got != 3 {
		t.Fatalf("Len = %d, want capacity 3", got)
	}

	for _, want := range []string{"b", "c", "d"} {
		got, _ := q.Pop()
		if got != want {
			t.Errorf("Pop = %q, want %q", got, want)
		}
	}
}

func TestQueue_LengthNeverExceedsCapacity(t *testing.T) {
	q := NewQueue(5)

	for i := 0; i < 100; i++ {
		q.Push(string(rune('a' + i%26)))
		if got := q.Len(); got > 5 {
			t.Fatalf("Len = %d after push %d, capacity is 5", got, i)
		}
	}
}

func TestQueue_Front(t *testing.T) {
	q := NewQueue(0)

	if _, ok := q.Front(); ok {
		t.Error("Front on empty queue should return ok=false")
	}

	q.Push("a")
	q.Push("b")

	got, ok := q.Front()
	if !ok || got != "a" {
		t.Errorf("Front = %q, %v, want %q, true", got, ok, "a")
	}
	if q.Len() != 2 {
		t.Error("Front should not remove the element")
	}
}

func TestQueue_CompactsPoppedPrefix(t *testing.T) {
	q := NewQueue(0)

	for i := 0; i < 3000; i++ {
		q.Push("x")
	}
	for i := 0; i < 3000; i++ {
		if _, ok := q.Pop(); !ok {
			t.Fatalf("Pop %d returned empty", i)
		}
	}

	if got := q.Len(); got != 0 {
		t.Fatalf("Len = %d, want 0", got)
	}

	// Still usable after compaction
	q.Push("y")
	if got, _ := q.Pop(); got != "y" {
		t.Errorf("Pop = %q, want %q", got, "y")
	}
}
