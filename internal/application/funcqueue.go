package application

import "sync"

// Task is one step of a FuncQueue. It must call next exactly once when its
// work is done; further calls are ignored.
type Task func(next func())

// FuncQueue runs tasks one at a time in the order they were added. A task
// never starts before the previous one has called next.
type FuncQueue struct {
	mu      sync.Mutex
	tasks   []Task
	running bool
}

// NewFuncQueue creates an empty, stopped queue.
func NewFuncQueue() *FuncQueue {
	return &FuncQueue{}
}

// Add appends a task. It does not start the queue.
func (q *FuncQueue) Add(task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
}

// Clear drops every task that has not started yet.
func (q *FuncQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = nil
}

// Len returns the number of tasks waiting to start.
func (q *FuncQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Running reports whether a task is currently executing.
func (q *FuncQueue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Start runs queued tasks until the queue is empty. It is a no-op while the
// queue is already running; tasks added meanwhile run after the current one.
func (q *FuncQueue) Start() {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	q.runNext()
}

// runNext pops and runs tasks. Tasks that call next synchronously are run in
// a loop instead of recursing; asynchronous next calls resume the loop.
func (q *FuncQueue) runNext() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		var (
			once      sync.Once
			stateMu   sync.Mutex
			inTask    = true
			syncFired bool
		)
		next := func() {
			once.Do(func() {
				stateMu.Lock()
				if inTask {
					syncFired = true
					stateMu.Unlock()
					return
				}
				stateMu.Unlock()
				q.runNext()
			})
		}

		task(next)

		stateMu.Lock()
		inTask = false
		fired := syncFired
		stateMu.Unlock()

		if !fired {
			return
		}
	}
}
