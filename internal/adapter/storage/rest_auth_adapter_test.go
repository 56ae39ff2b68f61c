package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newRestAuth(t *testing.T, handler http.HandlerFunc) *RestAuthAdapter {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a := NewRestAuthAdapter(srv.URL, "anon-key", WithHTTPClient(srv.Client()))
	a.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestRestAuthAdapter_SignUpPendingConfirmation(t *testing.T) {
	a := newRestAuth(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/signup" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body credentialsBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if body.Email != "ged@example.com" || body.Password != "secret" {
			t.Errorf("unexpected body %+v", body)
		}
		io.WriteString(w, `{"id": "uid-1", "email": "ged@example.com"}`)
	})

	id, err := a.SignUp(context.Background(), "ged@example.com", "secret")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if id.UserID != "uid-1" || id.AccessToken != "" {
		t.Errorf("unexpected identity %+v", id)
	}
}

func TestRestAuthAdapter_SignIn(t *testing.T) {
	a := newRestAuth(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer anon-key" {
			t.Errorf("Authorization = %q", got)
		}
		io.WriteString(w, `{"access_token": "at", "refresh_token": "rt", "expires_in": 3600,
			"user": {"id": "uid-1", "email": "ged@example.com"}}`)
	})

	id, err := a.SignIn(context.Background(), "ged@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if id.UserID != "uid-1" || id.AccessToken != "at" || id.RefreshToken != "rt" {
		t.Errorf("unexpected identity %+v", id)
	}
	want := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	if !id.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", id.ExpiresAt, want)
	}
}

func TestRestAuthAdapter_SignInRejected(t *testing.T) {
	a := newRestAuth(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": "invalid_grant", "error_description": "Invalid login credentials"}`)
	})

	_, err := a.SignIn(context.Background(), "ged@example.com", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Message != "Invalid login credentials" || apiErr.Code != "invalid_grant" {
		t.Errorf("unexpected api error %+v", apiErr)
	}
}

func TestRestAuthAdapter_SignOut(t *testing.T) {
	var calls atomic.Int32
	a := newRestAuth(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/auth/v1/logout" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer at" {
			t.Errorf("Authorization = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	ctx := context.Background()
	if err := a.SignOut(ctx, ""); err != nil {
		t.Errorf("SignOut without token failed: %v", err)
	}
	if err := a.SignOut(ctx, "at"); err != nil {
		t.Errorf("SignOut failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 logout call, got %d", calls.Load())
	}
}
