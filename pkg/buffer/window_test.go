package buffer

import (
	"slices"
	"sync"
	"testing"
)

func TestWindow(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		write [][]int
		want  []int
	}{
		{"empty", 3, nil, nil},
		{"partial", 4, [][]int{{1, 2}}, []int{1, 2}},
		{"exact", 3, [][]int{{1, 2, 3}}, []int{1, 2, 3}},
		{"size=1", 1, [][]int{{1, 2, 3}}, []int{3}},
		{"size=2", 2, [][]int{{1, 2, 3}}, []int{2, 3}},
		{"wrap", 4, [][]int{{1, 2, 3}, {4, 5, 6}}, []int{3, 4, 5, 6}},
		{"oversized", 3, [][]int{{1}, {2, 3, 4, 5, 6, 7, 8}}, []int{6, 7, 8}},
		{"many small", 3, [][]int{{1}, {2}, {3}, {4}, {5}}, []int{3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WindowN[int](tt.size)
			total := 0
			for _, p := range tt.write {
				n, err := w.Write(p)
				if err != nil || n != len(p) {
					t.Fatalf("Write() = %d, %v", n, err)
				}
				total += len(p)
			}
			got := w.Snapshot(nil)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Snapshot() = %v, want %v", got, tt.want)
			}
			if w.Len() != len(tt.want) {
				t.Errorf("Len() = %d, want %d", w.Len(), len(tt.want))
			}
			if w.Total() != int64(total) {
				t.Errorf("Total() = %d, want %d", w.Total(), total)
			}
		})
	}
}

func TestWindowAdd(t *testing.T) {
	w := WindowN[string](2)
	w.Add("a")
	w.Add("b")
	w.Add("c")
	if got := w.Snapshot(nil); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("Snapshot() = %v", got)
	}
	w.Reset()
	if w.Len() != 0 {
		t.Errorf("Len() after Reset = %d", w.Len())
	}
}

func TestWindowConcurrent(t *testing.T) {
	w := WindowN[float32](64)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			block := make([]float32, 20)
			for j := 0; j < 100; j++ {
				w.Write(block)
				_ = w.Snapshot(nil)
			}
		}()
	}
	wg.Wait()
	if w.Total() != 8*100*20 {
		t.Errorf("Total() = %d", w.Total())
	}
	if w.Len() != 64 {
		t.Errorf("Len() = %d", w.Len())
	}
}
