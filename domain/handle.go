package domain

import (
	"time"

	"github.com/google/uuid"
)

// Handle is a single live, authenticated connection instance. It is
// process-local, never persisted, and bound to exactly one identity for
// its whole lifetime. Room membership is tracked by the registry, not here.
type Handle struct {
	ID              string
	Identity        string
	AuthenticatedAt time.Time
}

func NewHandle(identity string) *Handle {
	return &Handle{
		ID:              uuid.NewString(),
		Identity:        identity,
		AuthenticatedAt: time.Now().UTC(),
	}
}
