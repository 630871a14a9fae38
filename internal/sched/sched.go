// Package sched wraps time.AfterFunc with cancellable handles grouped
// under a string key, so all pending timers for one (room, player) can be
// torn down in a single call when a reconnect or room teardown happens.
package sched

import (
	"sync"
	"time"
)

type Scheduler struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[string]map[int64]*Task
}

type Task struct {
	s     *Scheduler
	key   string
	id    int64
	timer *time.Timer
}

func New() *Scheduler {
	return &Scheduler{tasks: make(map[string]map[int64]*Task)}
}

// After schedules fn to run once after d, tracked under key. The handle
// can cancel it; CancelAll(key) cancels it along with its siblings.
func (s *Scheduler) After(key string, d time.Duration, fn func()) *Task {
	s.mu.Lock()
	s.nextID++
	t := &Task{s: s, key: key, id: s.nextID}
	if s.tasks[key] == nil {
		s.tasks[key] = make(map[int64]*Task)
	}
	s.tasks[key][t.id] = t
	s.mu.Unlock()

	t.timer = time.AfterFunc(d, func() {
		// Fire only if not cancelled between the timer firing and us
		// acquiring the lock.
		if t.s.remove(t.key, t.id) {
			fn()
		}
	})
	return t
}

// Cancel stops the task if it has not fired. Reports whether it was still
// pending.
func (t *Task) Cancel() bool {
	if t == nil {
		return false
	}
	if !t.s.remove(t.key, t.id) {
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	return true
}

// CancelAll cancels every pending task under key and reports how many.
func (s *Scheduler) CancelAll(key string) int {
	s.mu.Lock()
	group := s.tasks[key]
	delete(s.tasks, key)
	s.mu.Unlock()

	for _, t := range group {
		if t.timer != nil {
			t.timer.Stop()
		}
	}
	return len(group)
}

// Stop cancels everything. Used on shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	all := s.tasks
	s.tasks = make(map[string]map[int64]*Task)
	s.mu.Unlock()

	for _, group := range all {
		for _, t := range group {
			if t.timer != nil {
				t.timer.Stop()
			}
		}
	}
}

// Pending reports how many tasks are live under key, for tests.
func (s *Scheduler) Pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks[key])
}

func (s *Scheduler) remove(key string, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.tasks[key]
	if !ok {
		return false
	}
	if _, ok := group[id]; !ok {
		return false
	}
	delete(group, id)
	if len(group) == 0 {
		delete(s.tasks, key)
	}
	return true
}
