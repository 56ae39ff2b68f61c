package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rl1809/librarian/internal/core/domain"
)

// RestAuthAdapter signs users up, in and out against the hosted auth API.
type RestAuthAdapter struct {
	client restClient
	now    func() time.Time
}

func NewRestAuthAdapter(baseURL, apiKey string, opts ...RestOption) *RestAuthAdapter {
	return &RestAuthAdapter{client: newRestClient(baseURL, apiKey, opts...), now: time.Now}
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// authResponse covers the session answer and, for sign-ups that still await
// confirmation, the bare user object.
type authResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	User         *authUser `json:"user"`
	ID           string    `json:"id"`
	Email        string    `json:"email"`
}

func (a *RestAuthAdapter) identity(resp authResponse) domain.Identity {
	id := domain.Identity{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if resp.User != nil {
		id.UserID = resp.User.ID
		id.Email = resp.User.Email
	} else {
		id.UserID = resp.ID
		id.Email = resp.Email
	}

	switch {
	case resp.ExpiresAt > 0:
		id.ExpiresAt = time.Unix(resp.ExpiresAt, 0).UTC()
	case resp.ExpiresIn > 0:
		id.ExpiresAt = a.now().UTC().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return id
}

func (a *RestAuthAdapter) SignUp(ctx context.Context, email, password string) (domain.Identity, error) {
	var resp authResponse
	err := a.client.do(ctx, restRequest{
		method: http.MethodPost,
		path:   authPathPrefix + "signup",
		body:   credentialsBody{Email: email, Password: password},
		token:  a.client.apiKey,
	}, &resp)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("sign up: %w", err)
	}
	return a.identity(resp), nil
}

func (a *RestAuthAdapter) SignIn(ctx context.Context, email, password string) (domain.Identity, error) {
	var resp authResponse
	err := a.client.do(ctx, restRequest{
		method: http.MethodPost,
		path:   authPathPrefix + "token",
		query:  url.Values{"grant_type": {"password"}},
		body:   credentialsBody{Email: email, Password: password},
		token:  a.client.apiKey,
	}, &resp)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("sign in: %w", err)
	}
	return a.identity(resp), nil
}

func (a *RestAuthAdapter) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	err := a.client.do(ctx, restRequest{
		method: http.MethodPost,
		path:   authPathPrefix + "logout",
		token:  accessToken,
	}, nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}
