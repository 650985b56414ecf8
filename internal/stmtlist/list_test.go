package stmtlist

import "testing"

func TestPushFrontOrder(t *testing.T) {
	var l List[int]
	l.PushFront(1)
	l.PushFront(2)
	l.PushFront(3)

	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}

	var got []int
	for n := l.head; n != nil; n = n.next {
		got = append(got, n.Value)
	}
	want := []int{3, 2, 1}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("order[%d] = %d, want %d", i, got[i], v)
		}
	}
}

func TestRemoveMiddle(t *testing.T) {
	var l List[string]
	a := l.PushFront("a")
	b := l.PushFront("b")
	c := l.PushFront("c")

	b.Remove()
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}

	var got []string
	for n := l.head; n != nil; n = n.next {
		got = append(got, n.Value)
	}
	if len(got) != 2 || got[0] != "c" || got[1] != "a" {
		t.Fatalf("unexpected order after remove: %v", got)
	}

	// removing twice is a no-op
	b.Remove()
	c.Remove()
	a.Remove()
	if l.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", l.Len())
	}
}

func TestDrain(t *testing.T) {
	var l List[int]
	l.PushFront(1)
	l.PushFront(2)
	l.PushFront(3)

	var drained []int
	l.Drain(func(v int) { drained = append(drained, v) })

	if len(drained) != 3 {
		t.Fatalf("drained %d values, want 3", len(drained))
	}
	if l.Len() != 0 {
		t.Fatalf("Len() = %d after drain, want 0", l.Len())
	}
}
