package queue

import (
	"sync"
	"testing"
	"time"
)

// testItem is a simple struct for testing the generic queue
type testItem struct {
	ID   int
	Name string
}

func TestQueue_New(t *testing.T) {
	q := New[testItem]()
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_Push(t *testing.T) {
	q := New[testItem]()

	q.Push(testItem{ID: 1, Name: "first"})
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}

	q.Push(testItem{ID: 2}, testItem{ID: 3})
	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}
}

func TestQueue_Pop(t *testing.T) {
	q := New[testItem]()

	if _, ok := q.Pop(); ok {
		t.Error("expected empty pop to report false")
	}

	q.Push(testItem{ID: 1, Name: "first"}, testItem{ID: 2, Name: "second"})
	first, ok := q.Pop()
	if !ok || first.ID != 1 || first.Name != "first" {
		t.Errorf("expected {1, first}, got %+v (%v)", first, ok)
	}
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}
}

func TestQueue_Ready(t *testing.T) {
	q := New[int]()

	select {
	case <-q.Ready():
		t.Fatal("unexpected signal on empty queue")
	default:
	}

	q.Push(1)
	q.Push(2)
	q.Push() // no items, no signal

	select {
	case <-q.Ready():
	case <-time.After(time.Second):
		t.Fatal("expected ready signal")
	}

	// several pushes collapse into one signal
	select {
	case <-q.Ready():
		t.Fatal("expected a single pending signal")
	default:
	}
}

func TestQueue_Drain(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantTaken []int
		wantLeft  int
	}{
		{"all with zero", 0, []int{1, 2, 3, 4, 5}, 0},
		{"all with negative", -1, []int{1, 2, 3, 4, 5}, 0},
		{"partial", 2, []int{1, 2}, 3},
		{"exact", 5, []int{1, 2, 3, 4, 5}, 0},
		{"over", 10, []int{1, 2, 3, 4, 5}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New[int]()
			q.Push(1, 2, 3, 4, 5)

			got := q.Drain(tt.limit)
			if len(got) != len(tt.wantTaken) {
				t.Fatalf("expected %v, got %v", tt.wantTaken, got)
			}
			for i := range got {
				if got[i] != tt.wantTaken[i] {
					t.Errorf("item %d: expected %d, got %d", i, tt.wantTaken[i], got[i])
				}
			}
			if q.Len() != tt.wantLeft {
				t.Errorf("expected %d left, got %d", tt.wantLeft, q.Len())
			}
		})
	}
}

func TestQueue_DrainPartialDoesNotAlias(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	batch := q.Drain(2)
	batch[0] = 99
	q.Push(4)

	rest := q.Drain(0)
	if len(rest) != 2 || rest[0] != 3 || rest[1] != 4 {
		t.Errorf("expected [3 4], got %v", rest)
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[testItem]()
	var wg sync.WaitGroup

	// Concurrent pushes
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.Push(testItem{ID: id})
		}(i)
	}
	wg.Wait()

	if q.Len() != 100 {
		t.Errorf("expected 100 items, got %d", q.Len())
	}

	// Concurrent pops
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Pop()
		}()
	}
	wg.Wait()

	if q.Len() != 50 {
		t.Errorf("expected 50 items after pops, got %d", q.Len())
	}
}

func TestQueue_ConcurrentDrain(t *testing.T) {
	q := New[testItem]()

	for i := 0; i < 100; i++ {
		q.Push(testItem{ID: i})
	}

	var wg sync.WaitGroup
	results := make(chan []testItem, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.Drain(15)
		}()
	}
	wg.Wait()
	close(results)

	// Total items across all results should be 100
	total := 0
	for r := range results {
		total += len(r)
	}
	if total != 100 {
		t.Errorf("expected total 100 items, got %d", total)
	}
}
