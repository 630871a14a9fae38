// Package roomstore provides durable room persistence behind a single
// interface. Implementations are interchangeable: in-memory (tests and
// degraded mode), JSON file, and postgres. Persistence is best-effort;
// the running process always trusts the registry's in-memory state.
package roomstore

import (
	"context"
	"errors"

	"partyseq/internal/model"
)

var ErrNotFound = errors.New("room not found")

type Store interface {
	// Load returns every persisted room, called once at startup.
	Load(ctx context.Context) ([]*model.Room, error)
	// Save replaces the room snapshot wholesale.
	Save(ctx context.Context, room *model.Room) error
	// Delete removes the room; deleting an absent code is not an error.
	Delete(ctx context.Context, code string) error
	Close()
}
