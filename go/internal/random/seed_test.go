package random

import "testing"

func TestNewSeed(t *testing.T) {
	a, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed() error = %v", err)
	}
	b, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed() error = %v", err)
	}
	if a == b {
		t.Errorf("two seeds were equal (%d); crypto/rand should not repeat", a)
	}
}

func TestNewSource_Deterministic(t *testing.T) {
	first := NewSource(42)
	second := NewSource(42)

	for i := 0; i < 20; i++ {
		x, y := first.IntN(500), second.IntN(500)
		if x != y {
			t.Fatalf("draw %d: got %d and %d from the same seed", i, x, y)
		}
		if x < 0 || x >= 500 {
			t.Fatalf("draw %d: %d outside [0, 500)", i, x)
		}
	}
}

func TestFixed(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		n      int
		want   []int
	}{
		{"replays in order", []int{3, 4}, 50, []int{3, 4, 3, 4}},
		{"reduces into range", []int{57, 120}, 50, []int{7, 20}},
		{"negative values wrap", []int{-1}, 10, []int{9}},
		{"empty yields zero", nil, 10, []int{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := Fixed(tt.values...)
			for i, want := range tt.want {
				if got := seq.IntN(tt.n); got != want {
					t.Errorf("IntN #%d = %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestFixed_PanicsOnNonPositiveBound(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("IntN(0) did not panic")
		}
	}()
	Fixed(1).IntN(0)
}
