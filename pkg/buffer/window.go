package buffer

import (
	"sync"
)

// Window is a thread-safe fixed-size buffer that keeps the most recent
// elements written to it. When the window is full, new writes overwrite the
// oldest data.
//
// The buffer uses a monotonically increasing tail counter; the oldest element
// lives at max(0, tail-size).
type Window[T any] struct {
	mu   sync.Mutex
	buf  []T
	tail int64
}

// WindowN creates a new Window with the specified size.
func WindowN[T any](size int) *Window[T] {
	if size <= 0 {
		panic("buffer: window size must be positive")
	}
	return &Window[T]{buf: make([]T, size)}
}

// Add appends a single element.
func (w *Window[T]) Add(t T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf[w.tail%int64(len(w.buf))] = t
	w.tail++
}

// Write appends p. If p is longer than the window only its last Cap()
// elements are kept. It always returns len(p), nil.
func (w *Window[T]) Write(p []T) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	size := len(w.buf)
	skip := 0
	if len(p) > size {
		// Everything but the last `size` elements would be overwritten anyway.
		skip = len(p) - size
		w.tail += int64(skip)
	}

	src := p[skip:]
	pos := int(w.tail % int64(size))
	n := copy(w.buf[pos:], src)
	copy(w.buf, src[n:])
	w.tail += int64(len(src))
	return len(p), nil
}

// Len returns the number of valid elements, at most Cap().
func (w *Window[T]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lenLocked()
}

func (w *Window[T]) lenLocked() int {
	if w.tail < int64(len(w.buf)) {
		return int(w.tail)
	}
	return len(w.buf)
}

// Cap returns the window size.
func (w *Window[T]) Cap() int {
	return len(w.buf)
}

// Total returns how many elements were ever written.
func (w *Window[T]) Total() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tail
}

// Snapshot appends the current contents, oldest first, to dst and returns it.
func (w *Window[T]) Snapshot(dst []T) []T {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.lenLocked()
	if n < len(w.buf) {
		return append(dst, w.buf[:n]...)
	}
	head := int(w.tail % int64(len(w.buf)))
	dst = append(dst, w.buf[head:]...)
	return append(dst, w.buf[:head]...)
}

// Reset discards all elements.
func (w *Window[T]) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.buf)
	w.tail = 0
}
