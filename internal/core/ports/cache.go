package ports

import (
	"context"

	"github.com/google/uuid"
)

type AvailabilityCache interface {
	GetAvailability(ctx context.Context, eventID uuid.UUID) (remaining int, ok bool, err error)
	SetAvailability(ctx context.Context, eventID uuid.UUID, remaining int) error
	Invalidate(ctx context.Context, eventID uuid.UUID) error
}

// SessionStore remembers session keys retired after a purchase.
type SessionStore interface {
	Retire(ctx context.Context, sessionKey string) error
	IsRetired(ctx context.Context, sessionKey string) (bool, error)
}
