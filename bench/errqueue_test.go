package bench

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestErrQueueOrder(t *testing.T) {
	q := &errQueue{}

	first := errors.New("first")
	second := errors.New("second")

	q.Push(first)
	q.Push(second)

	if got := q.Pop(); got != first {
		t.Errorf("first Pop() = %v, want %v", got, first)
	}
	if got := q.Pop(); got != second {
		t.Errorf("second Pop() = %v, want %v", got, second)
	}
	if got := q.Pop(); got != nil {
		t.Errorf("Pop() on an empty queue = %v, want nil", got)
	}
}

func TestErrQueueIgnoresNil(t *testing.T) {
	q := &errQueue{}
	q.Push(nil)

	if got := q.Len(); got != 0 {
		t.Errorf("Len() = %d after a nil push, want 0", got)
	}
}

func TestErrQueueConcurrentPush(t *testing.T) {
	q := &errQueue{}

	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.Push(fmt.Errorf("worker %d", i))
		}(i)
	}
	wg.Wait()

	if got := q.Len(); got != n {
		t.Errorf("Len() = %d, want %d", got, n)
	}
}
