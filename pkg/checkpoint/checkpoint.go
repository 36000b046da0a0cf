package checkpoint

import (
	"context"
	"errors"
)

// ErrNoCheckpoint is returned by Load when no state has been recorded yet.
var ErrNoCheckpoint = errors.New("no checkpoint recorded")

// Store persists a machine's last recoverable state. The engine saves on
// every recoverable state entry and loads once when starting; everything
// beyond that single key - retention, replication, cleanup - is the store's
// concern. States are plain strings so stores stay decoupled from the engine.
type Store interface {
	Save(ctx context.Context, state string) error
	Load(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}
