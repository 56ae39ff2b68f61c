package port

import (
	"context"

	"github.com/rl1809/librarian/internal/core/domain"
)

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a key so the same request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}

type SessionStore interface {
	// SaveSession stores a session until its expiry
	SaveSession(ctx context.Context, session domain.Session) error

	// GetSession returns nil when the session does not exist or expired
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	DeleteSession(ctx context.Context, id string) error
}
