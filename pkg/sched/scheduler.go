package sched

import (
	"container/heap"
	"log"
	"runtime/debug"
	"sync"
	"time"
)

// Task is a one-shot callback due at a point on the scheduler's clock.
// Tasks cannot be cancelled; once scheduled they fire exactly once.
type Task struct {
	Due   time.Duration
	Label string

	fn    func()
	seq   uint64
	fired bool
}

// Fired reports whether the task has run.
func (t *Task) Fired() bool { return t.fired }

// taskHeap orders tasks by due time, then by scheduling order.
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].Due != h[j].Due {
		return h[i].Due < h[j].Due
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)   { *h = append(*h, x.(*Task)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Scheduler runs deferred callbacks against a logical clock that only moves
// when Advance is called. Callbacks run on the goroutine calling Advance,
// never on a timer goroutine of their own.
type Scheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	tasks taskHeap
	fired uint64
}

// New creates a scheduler with its clock at zero.
func New() *Scheduler {
	return &Scheduler{}
}

// After schedules fn to run once d after the current logical time.
// Negative delays are treated as zero.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	return s.AfterLabeled(d, "", fn)
}

// AfterLabeled is After with a label used in panic logs.
func (s *Scheduler) AfterLabeled(d time.Duration, label string, fn func()) *Task {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &Task{Due: s.now + d, Label: label, fn: fn, seq: s.seq}
	heap.Push(&s.tasks, t)
	return t
}

// Advance moves the clock forward by dt and runs every task that is due,
// earliest first. Tasks scheduled by a callback during this call wait for
// the next Advance even if they are already due. Returns the number of
// tasks run.
func (s *Scheduler) Advance(dt time.Duration) int {
	s.mu.Lock()
	if dt > 0 {
		s.now += dt
	}
	now := s.now
	limit := s.seq
	s.mu.Unlock()

	ran := 0
	for {
		t := s.popDue(now, limit)
		if t == nil {
			break
		}
		s.run(t)
		ran++
	}
	return ran
}

// popDue removes the earliest task due at now that existed before limit.
// Deferred later-sequence tasks are pushed back before returning.
func (s *Scheduler) popDue(now time.Duration, limit uint64) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var skipped []*Task
	defer func() {
		for _, t := range skipped {
			heap.Push(&s.tasks, t)
		}
	}()
	for s.tasks.Len() > 0 {
		top := s.tasks[0]
		if top.Due > now {
			return nil
		}
		heap.Pop(&s.tasks)
		if top.seq > limit {
			skipped = append(skipped, top)
			continue
		}
		return top
	}
	return nil
}

func (s *Scheduler) run(t *Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("SCHED: PANIC in task %q due %v: %v\n%s", t.Label, t.Due, r, debug.Stack())
		}
	}()
	t.fired = true
	s.mu.Lock()
	s.fired++
	s.mu.Unlock()
	if t.fn != nil {
		t.fn()
	}
}

// Now returns the current logical time.
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns how many tasks are waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Len()
}

// Fired returns how many tasks have run since creation.
func (s *Scheduler) Fired() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}
