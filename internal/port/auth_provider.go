package port

import (
	"context"

	"github.com/rl1809/librarian/internal/core/domain"
)

type AuthProvider interface {
	SignUp(ctx context.Context, email, password string) (domain.Identity, error)
	SignIn(ctx context.Context, email, password string) (domain.Identity, error)

	// SignOut revokes the access token; providers without remote sessions return nil
	SignOut(ctx context.Context, accessToken string) error
}
