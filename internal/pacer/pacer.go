/*
@Description: Scheduled task execution used by the bench CLI to pace synthetic workload
@Language: Go 1.23.4
*/

// Package pacer schedules one-off function calls at arbitrary future
// timestamps using a small pool of worker goroutines and a min-heap of
// pending deadlines. The bench CLI uses this to drive paced frame
// pushes and periodic stats snapshots without blocking on a single
// ticker per job.
package pacer

import (
	"container/heap"
	"runtime"
	"sync"
	"time"
)

// System is a shared Timer sized to the host's CPU count, used by the
// bench CLI when a caller has no reason to run its own pool.
var System *Timer = NewTimer(runtime.NumCPU())

// timedFunc represents a function that should be executed at a specific time
type timedFunc struct {
	execute func()    // The function to execute
	ts      time.Time // The timestamp when the function should be executed
}

// Timer manages scheduled function execution with multiple worker goroutines
// It uses a heap-based priority queue to efficiently handle timed tasks
type Timer struct {
	prependTasks    []timedFunc // Buffer for new tasks before they're processed
	prependLock     sync.Mutex  // Mutex to protect prependTasks
	chPrependNotify chan any    // Channel to notify when new tasks are added

	chTask chan timedFunc // Channel to send tasks to worker goroutines

	closeOnce sync.Once // Ensures Close() is called only once
	close     chan any  // Channel to signal shutdown to all goroutines
}

// NewTimer creates a new Timer with the specified number of parallel worker goroutines
func NewTimer(parallel int) *Timer {
	if parallel < 1 {
		parallel = 1
	}
	t := new(Timer)
	t.chTask = make(chan timedFunc)
	t.close = make(chan any)
	t.chPrependNotify = make(chan any, 1)

	for i := 0; i < parallel; i++ {
		go t.seched()
	}
	go t.prepend()
	return t
}

// timeFuncHeap implements heap.Interface for timedFunc elements
// It creates a min-heap ordered by execution time
type timeFuncHeap []timedFunc

func (h timeFuncHeap) Len() int { return len(h) }

func (h timeFuncHeap) Less(i, j int) bool { return h[i].ts.Before(h[j].ts) }

func (h timeFuncHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timeFuncHeap) Push(x any) {
	*h = append(*h, x.(timedFunc))
}

func (h *timeFuncHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// seched is the main scheduling loop for each worker goroutine
// It manages a heap of pending tasks and executes them at the right time
func (t *Timer) seched() {
	timer := time.NewTimer(0)
	defer timer.Stop()

	var tasks timeFuncHeap
	drained := false

	for {
		select {
		case task := <-t.chTask:
			now := time.Now()
			if now.After(task.ts) {
				go task.execute()
			} else {
				heap.Push(&tasks, task)
				stopped := timer.Stop()
				if !stopped && !drained {
					<-timer.C
				}
				if tasks.Len() > 0 {
					timer.Reset(tasks[0].ts.Sub(now))
				}
			}
		case now := <-timer.C:
			drained = true
			for tasks.Len() > 0 {
				if now.After(tasks[0].ts) {
					task := heap.Pop(&tasks).(timedFunc)
					go task.execute()
				} else {
					timer.Reset(tasks[0].ts.Sub(now))
					drained = false
					break
				}
			}
		case <-t.close:
			return
		}
	}
}

// prepend handles the addition of new tasks to the timer
// It runs in a separate goroutine to avoid blocking the main scheduling loops
func (t *Timer) prepend() {
	var tasks []timedFunc
	for {
		select {
		case <-t.chPrependNotify:
			t.prependLock.Lock()
			if cap(tasks) < cap(t.prependTasks) {
				tasks = make([]timedFunc, 0, cap(t.prependTasks))
			}
			tasks = tasks[:len(t.prependTasks)]
			copy(tasks, t.prependTasks)
			for k := range t.prependTasks {
				t.prependTasks[k].execute = nil
			}
			t.prependTasks = t.prependTasks[:0]
			t.prependLock.Unlock()

			for k := range tasks {
				select {
				case t.chTask <- tasks[k]:
					tasks[k].execute = nil
				case <-t.close:
					return
				}
			}
			tasks = tasks[:0]
		case <-t.close:
			return
		}
	}
}

// Put adds a new function to be executed at the specified deadline
func (t *Timer) Put(f func(), deadline time.Time) {
	t.prependLock.Lock()
	t.prependTasks = append(t.prependTasks, timedFunc{f, deadline})
	t.prependLock.Unlock()

	select {
	case t.chPrependNotify <- struct{}{}:
	default:
	}
}

// Close shuts down the timer and all its worker goroutines
// It can be called multiple times safely
func (t *Timer) Close() {
	t.closeOnce.Do(func() {
		close(t.close)
	})
}
