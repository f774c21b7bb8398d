package browser

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// maxIdleTasks bounds RunUntilIdle so a self-rescheduling timer cannot spin
// forever.
const maxIdleTasks = 100000

// Loop is a single-threaded task queue standing in for the browser event
// loop. All DOM work runs inside loop tasks. Blocking work (network) runs on
// goroutines started with Go, whose continuations come back as tasks.
//
// Time is virtual under RunUntilIdle (timers fire in order without waiting)
// and wall-clock under Run.
type Loop struct {
	mu      sync.Mutex
	queue   taskQueue
	seq     uint64
	now     time.Duration
	pending int
	wake    chan struct{}
}

type task struct {
	due      time.Duration
	seq      uint64
	fn       func()
	canceled bool
	index    int
}

// NewLoop returns an empty loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn to run as soon as possible.
func (l *Loop) Post(fn func()) {
	l.SetTimeout(0, fn)
}

// SetTimeout queues fn to run after d and returns a cancel func.
func (l *Loop) SetTimeout(d time.Duration, fn func()) func() {
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	l.seq++
	t := &task{due: l.now + d, seq: l.seq, fn: fn}
	heap.Push(&l.queue, t)
	l.mu.Unlock()
	l.signal()

	return func() {
		l.mu.Lock()
		t.canceled = true
		l.mu.Unlock()
	}
}

// Go runs work on a new goroutine. The continuation it returns, if any, is
// posted back to the loop. RunUntilIdle waits for outstanding work.
func (l *Loop) Go(work func() func()) {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	go func() {
		var cont func()
		defer func() {
			l.mu.Lock()
			if cont != nil {
				l.seq++
				heap.Push(&l.queue, &task{due: l.now, seq: l.seq, fn: cont})
			}
			l.pending--
			l.mu.Unlock()
			l.signal()
		}()
		cont = work()
	}()
}

// Now returns the loop's clock.
func (l *Loop) Now() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now
}

// Pending returns the number of queued tasks plus outstanding goroutines.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) + l.pending
}

// RunUntilIdle runs tasks in due order, advancing virtual time instantly,
// until nothing is queued and no Go work is outstanding.
func (l *Loop) RunUntilIdle() {
	for i := 0; i < maxIdleTasks; {
		l.mu.Lock()
		if len(l.queue) == 0 {
			if l.pending == 0 {
				l.mu.Unlock()
				return
			}
			l.mu.Unlock()
			<-l.wake
			continue
		}
		t := heap.Pop(&l.queue).(*task)
		if t.due > l.now {
			l.now = t.due
		}
		l.mu.Unlock()

		if !t.canceled {
			t.fn()
			i++
		}
	}
}

// Advance runs every task due within d of the current virtual time and
// moves the clock forward by d.
func (l *Loop) Advance(d time.Duration) {
	l.mu.Lock()
	deadline := l.now + d
	l.mu.Unlock()

	for {
		l.mu.Lock()
		if len(l.queue) == 0 || l.queue[0].due > deadline {
			l.now = deadline
			l.mu.Unlock()
			return
		}
		t := heap.Pop(&l.queue).(*task)
		if t.due > l.now {
			l.now = t.due
		}
		l.mu.Unlock()

		if !t.canceled {
			t.fn()
		}
	}
}

// Run executes tasks on wall-clock time until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	start := time.Now()
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		l.mu.Lock()
		l.now = time.Since(start)
		var next *task
		wait := time.Hour
		if len(l.queue) > 0 {
			if l.queue[0].due <= l.now {
				next = heap.Pop(&l.queue).(*task)
			} else {
				wait = l.queue[0].due - l.now
			}
		}
		l.mu.Unlock()

		if next != nil {
			if !next.canceled {
				next.fn()
			}
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		case <-timer.C:
		}
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from inside a loop task.
func (l *Loop) Do(fn func()) {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	<-done
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// taskQueue orders tasks by due time, then submission order.
type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}
