package ring

import "testing"

func TestRing_Index(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		logical  int64
		want     int
	}{
		{name: "zero", capacity: 4, logical: 0, want: 0},
		{name: "within capacity", capacity: 4, logical: 3, want: 3},
		{name: "wraps", capacity: 4, logical: 5, want: 1},
		{name: "non power of two", capacity: 5, logical: 12, want: 2},
		{name: "negative", capacity: 4, logical: -1, want: 3},
		{name: "large", capacity: 6, logical: 1 << 40, want: int((int64(1) << 40) % 6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New[int](tt.capacity)
			if got := r.Index(tt.logical); got != tt.want {
				t.Errorf("Index(%d) = %d, want %d", tt.logical, got, tt.want)
			}
		})
	}
}

func TestRing_SetAtWrap(t *testing.T) {
	r := New[string](3)
	r.Set(0, "a")
	r.Set(1, "b")
	r.Set(2, "c")
	r.Set(3, "d") // overwrites slot 0

	if got := r.At(3); got != "d" {
		t.Errorf("At(3) = %q, want %q", got, "d")
	}
	if got := r.At(0); got != "d" {
		t.Errorf("At(0) = %q, want %q (same slot as 3)", got, "d")
	}
	if got := r.At(4); got != "b" {
		t.Errorf("At(4) = %q, want %q", got, "b")
	}
}

func TestRing_ShiftDown(t *testing.T) {
	// Window of logical indices 6..9 on a 4-slot ring, so the window wraps.
	r := New[string](4)
	for i, v := range []string{"a", "b", "c", "d"} {
		r.Set(int64(6+i), v)
	}

	// Remove "b" at index 7 by closing the gap up to index 9.
	r.ShiftDown(7, 9)
	r.Clear(9)

	want := []string{"a", "c", "d", ""}
	for i, w := range want {
		if got := r.At(int64(6 + i)); got != w {
			t.Errorf("At(%d) = %q, want %q", 6+i, got, w)
		}
	}
}

func TestRing_ShiftDownEmptyRange(t *testing.T) {
	r := New[int](2)
	r.Set(0, 1)
	r.Set(1, 2)
	r.ShiftDown(1, 1)
	if r.At(0) != 1 || r.At(1) != 2 {
		t.Errorf("empty shift changed contents: %d %d", r.At(0), r.At(1))
	}
}

func TestRing_Reset(t *testing.T) {
	r := New[*int](2)
	v := 7
	r.Set(0, &v)
	r.Set(1, &v)
	r.Reset()
	if r.At(0) != nil || r.At(1) != nil {
		t.Error("Reset left references behind")
	}
	if r.Cap() != 2 {
		t.Errorf("Cap() = %d after Reset, want 2", r.Cap())
	}
}

func TestRing_NewPanicsOnBadCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero capacity")
		}
	}()
	_ = New[int](0)
}
