package roomstore

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"partyseq/internal/model"
)

// WriteBehind debounces room persistence: mutations enqueue the latest
// snapshot and a single worker flushes on a bounded interval. A crash loses
// at most one flush window. Store failures are logged and dropped on the
// floor; the registry's in-memory state stays authoritative.
type WriteBehind struct {
	store    Store
	interval time.Duration

	mu      sync.Mutex
	pending map[string]*model.Room
	deleted map[string]bool

	done chan struct{}
	wg   sync.WaitGroup
}

func NewWriteBehind(store Store, interval time.Duration) *WriteBehind {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	q := &WriteBehind{
		store:    store,
		interval: interval,
		pending:  make(map[string]*model.Room),
		deleted:  make(map[string]bool),
		done:     make(chan struct{}),
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

// Enqueue schedules the room snapshot for the next flush. Later snapshots
// for the same code replace earlier ones.
func (q *WriteBehind) Enqueue(room *model.Room) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.deleted, room.Code)
	q.pending[room.Code] = room.Clone()
}

// EnqueueDelete schedules removal, superseding any pending save.
func (q *WriteBehind) EnqueueDelete(code string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, code)
	q.deleted[code] = true
}

// Flush writes everything pending immediately. Tests use it instead of
// waiting out the interval.
func (q *WriteBehind) Flush(ctx context.Context) {
	q.mu.Lock()
	pending := q.pending
	deleted := q.deleted
	q.pending = make(map[string]*model.Room)
	q.deleted = make(map[string]bool)
	q.mu.Unlock()

	for code := range deleted {
		if err := q.store.Delete(ctx, code); err != nil {
			log.Warn().Err(err).Str("code", code).Msg("room delete not persisted")
		}
	}
	for code, room := range pending {
		if err := q.store.Save(ctx, room); err != nil {
			log.Warn().Err(err).Str("code", code).Msg("room save not persisted")
		}
	}
}

// Close drains the queue and stops the worker.
func (q *WriteBehind) Close() {
	close(q.done)
	q.wg.Wait()
	q.Flush(context.Background())
}

func (q *WriteBehind) worker() {
	defer q.wg.Done()
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()
	for {
		select {
		case <-q.done:
			return
		case <-ticker.C:
			q.Flush(context.Background())
		}
	}
}
