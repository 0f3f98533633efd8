package ambient

import "container/heap"

// Timeline is a queue of callbacks keyed by audio time. Callbacks run from
// RunDue, in time order, with ties broken by insertion order. A Timeline is
// not safe for concurrent use; the Session serializes access.
type Timeline struct {
	tasks taskHeap
	seq   uint64
}

type task struct {
	at   float64
	seq  uint64
	name string
	fn   func(now float64)
}

// At queues fn to run once the clock reaches at.
func (t *Timeline) At(at float64, name string, fn func(now float64)) {
	t.seq++
	heap.Push(&t.tasks, &task{at: at, seq: t.seq, name: name, fn: fn})
}

// RunDue runs every task due at or before now, including tasks queued by
// other tasks during the call, and returns how many ran.
func (t *Timeline) RunDue(now float64) int {
	n := 0
	for len(t.tasks) > 0 && t.tasks[0].at <= now {
		next := heap.Pop(&t.tasks).(*task)
		next.fn(now)
		n++
	}
	return n
}

// Next returns the time of the earliest pending task.
func (t *Timeline) Next() (float64, bool) {
	if len(t.tasks) == 0 {
		return 0, false
	}
	return t.tasks[0].at, true
}

// Len returns the number of pending tasks.
func (t *Timeline) Len() int {
	return len(t.tasks)
}

// Pending counts pending tasks with the given name.
func (t *Timeline) Pending(name string) int {
	n := 0
	for _, task := range t.tasks {
		if task.name == name {
			n++
		}
	}
	return n
}

type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*task)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}
