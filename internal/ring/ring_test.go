package ring

import "testing"

func TestBuffer_PushEvictsOldest(t *testing.T) {
	b := New[int](3)

	for i := 1; i <= 5; i++ {
		b.Push(i)
	}

	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}

	want := []int{3, 4, 5}
	for i, w := range want {
		if got := b.At(i); got != w {
			t.Errorf("At(%d) = %d, want %d", i, got, w)
		}
	}
}

func TestBuffer_NeverExceedsCapacity(t *testing.T) {
	b := New[string](4)
	for i := 0; i < 100; i++ {
		b.Push("x")
		if b.Len() > b.Cap() {
			t.Fatalf("length %d exceeded capacity %d", b.Len(), b.Cap())
		}
	}
}

func TestBuffer_Last(t *testing.T) {
	b := New[int](2)

	if _, ok := b.Last(); ok {
		t.Error("empty buffer should have no last item")
	}

	b.Push(1)
	b.Push(2)
	b.Push(3)

	if last, ok := b.Last(); !ok || last != 3 {
		t.Errorf("Last() = %d, %v, want 3, true", last, ok)
	}
}

func TestBuffer_Items(t *testing.T) {
	b := New[int](3)
	b.Push(7)
	b.Push(8)

	items := b.Items()
	if len(items) != 2 || items[0] != 7 || items[1] != 8 {
		t.Errorf("Items() = %v, want [7 8]", items)
	}
}

func TestBuffer_Clear(t *testing.T) {
	b := New[int](3)
	b.Push(1)
	b.Push(2)
	b.Clear()

	if b.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", b.Len())
	}

	b.Push(9)
	if got := b.At(0); got != 9 {
		t.Errorf("At(0) after Clear+Push = %d, want 9", got)
	}
}

func TestNew_MinimumCapacity(t *testing.T) {
	b := New[int](0)
	if b.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1", b.Cap())
	}
}
