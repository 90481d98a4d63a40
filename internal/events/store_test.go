package events

import "testing"

func TestStoreEviction(t *testing.T) {
	s := NewStore[int](3)
	for i := 1; i <= 5; i++ {
		s.Add(i)
	}
	if s.Total() != 5 || s.Len() != 3 {
		t.Fatalf("total %d len %d", s.Total(), s.Len())
	}
	got := s.List(0)
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("list: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestStoreListLimit(t *testing.T) {
	s := NewStore[string](10)
	s.Add("a")
	s.Add("b")
	s.Add("c")
	got := s.List(2)
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("list(2): %v", got)
	}
	if len(s.List(100)) != 3 {
		t.Fatalf("limit above size should return all")
	}
}

func TestStoreClear(t *testing.T) {
	s := NewStore[int](2)
	s.Add(1)
	s.Add(2)
	s.Clear()
	if s.Len() != 0 || s.Total() != 0 {
		t.Fatalf("clear: len %d total %d", s.Len(), s.Total())
	}
}
