package window

import "testing"

func TestRingEviction(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 3; i++ {
		if _, full := r.Append(i); full {
			t.Fatalf("unexpected eviction at %d", i)
		}
	}
	if !r.Full() || r.Len() != 3 {
		t.Fatalf("ring should be full with 3, got len %d", r.Len())
	}
	evicted, full := r.Append(4)
	if !full || evicted != 1 {
		t.Fatalf("expected to evict 1, got %d (full=%v)", evicted, full)
	}
	if r.At(0) != 2 || r.At(2) != 4 {
		t.Fatalf("order wrong: oldest %d newest %d", r.At(0), r.At(2))
	}
}

func TestRingDoOrder(t *testing.T) {
	r := NewRing[int](4)
	for i := 0; i < 10; i++ {
		r.Append(i)
	}
	var got []int
	r.Do(func(v int) { got = append(got, v) })
	want := []int{6, 7, 8, 9}
	if len(got) != len(want) {
		t.Fatalf("len: %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestRingClear(t *testing.T) {
	r := NewRing[string](2)
	r.Append("a")
	r.Append("b")
	r.Clear()
	if r.Len() != 0 || r.Full() {
		t.Fatalf("clear did not empty the ring")
	}
	r.Append("c")
	if r.At(0) != "c" {
		t.Fatalf("append after clear: %s", r.At(0))
	}
}

func TestRingMinCapacity(t *testing.T) {
	r := NewRing[int](0)
	if r.Cap() != 1 {
		t.Fatalf("capacity clamp: %d", r.Cap())
	}
}
