package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/librarian/internal/core/domain"
	"github.com/rl1809/librarian/internal/port"
)

var (
	ErrInvalidCredentialsInput = errors.New("email and password are required")
	ErrRegistrationFailed      = errors.New("registration failed")
	ErrLoginFailed             = errors.New("login failed")
	ErrLogoutFailed            = errors.New("logout failed")
	ErrNotAuthenticated        = errors.New("not authenticated")
)

const defaultSessionTTL = 24 * time.Hour

type RegisterInput struct {
	Email    string
	Password string
	Username string
	Admin    bool
}

type AuthService struct {
	auth     port.AuthProvider
	users    port.UserRepository
	sessions port.SessionStore
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(auth port.AuthProvider, users port.UserRepository, sessions port.SessionStore, ttl time.Duration, logger *zap.Logger) *AuthService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		auth:     auth,
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Register signs the user up, stores the profile row and opens a session.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.Principal, error) {
	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if email == "" || in.Password == "" {
		return domain.Principal{}, ErrInvalidCredentialsInput
	}
	if username == "" {
		return domain.Principal{}, fmt.Errorf("%w: username is required", ErrInvalidCredentialsInput)
	}

	identity, err := s.auth.SignUp(ctx, email, in.Password)
	if err != nil {
		s.logger.Error("sign up failed", zap.String("email", email), zap.Error(err))
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}
	if identity.UserID == "" {
		s.logger.Error("sign up returned no user id", zap.String("email", email))
		return domain.Principal{}, fmt.Errorf("%w: no user id", ErrRegistrationFailed)
	}

	// the profile row is written as the new user, not with the service key
	userCtx := domain.ContextWithSession(ctx, domain.Session{
		UserID:      identity.UserID,
		AccessToken: identity.AccessToken,
	})
	user, err := s.users.InsertUser(userCtx, domain.User{
		ID:        identity.UserID,
		Email:     email,
		Username:  username,
		Admin:     in.Admin,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Error("insert user profile failed", zap.String("user_id", identity.UserID), zap.Error(err))
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	session, err := s.openSession(ctx, identity)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.Bool("admin", user.Admin))
	return domain.Principal{Session: session, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login signs the user in and loads the profile row.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Principal, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.Principal{}, ErrInvalidCredentialsInput
	}

	identity, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		s.logger.Info("sign in failed", zap.String("email", email), zap.Error(err))
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	if identity.UserID == "" {
		return domain.Principal{}, fmt.Errorf("%w: no user id", ErrLoginFailed)
	}

	user, err := s.users.GetUser(domain.ContextWithSession(ctx, domain.Session{
		UserID:      identity.UserID,
		AccessToken: identity.AccessToken,
	}), identity.UserID)
	if err != nil {
		s.logger.Error("load user profile failed", zap.String("user_id", identity.UserID), zap.Error(err))
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	if user == nil {
		s.logger.Error("user profile missing", zap.String("user_id", identity.UserID))
		return domain.Principal{}, fmt.Errorf("%w: profile missing", ErrLoginFailed)
	}

	session, err := s.openSession(ctx, identity)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return domain.Principal{Session: session, User: *user}, nil
}

// Logout revokes the remote token and forgets the session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	session, err := s.lookup(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := s.auth.SignOut(ctx, session.AccessToken); err != nil {
		s.logger.Error("sign out failed", zap.String("user_id", session.UserID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrLogoutFailed, err)
	}

	if err := s.sessions.DeleteSession(ctx, session.ID); err != nil {
		s.logger.Error("delete session failed", zap.String("user_id", session.UserID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrLogoutFailed, err)
	}

	s.logger.Info("user logged out", zap.String("user_id", session.UserID))
	return nil
}

// Authenticate restores the caller behind a session id.
func (s *AuthService) Authenticate(ctx context.Context, sessionID string) (domain.Principal, error) {
	session, err := s.lookup(ctx, sessionID)
	if err != nil {
		return domain.Principal{}, err
	}

	user, err := s.users.GetUser(domain.ContextWithSession(ctx, *session), session.UserID)
	if err != nil {
		s.logger.Error("load user profile failed", zap.String("user_id", session.UserID), zap.Error(err))
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	if user == nil {
		return domain.Principal{}, ErrNotAuthenticated
	}

	return domain.Principal{Session: *session, User: *user}, nil
}

func (s *AuthService) lookup(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, ErrNotAuthenticated
	}
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		s.logger.Error("get session failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	if session == nil {
		return nil, ErrNotAuthenticated
	}
	return session, nil
}

func (s *AuthService) openSession(ctx context.Context, identity domain.Identity) (domain.Session, error) {
	now := s.now().UTC()
	expires := now.Add(s.ttl)
	if !identity.ExpiresAt.IsZero() && identity.ExpiresAt.Before(expires) {
		expires = identity.ExpiresAt
	}

	session := domain.Session{
		ID:           uuid.NewString(),
		UserID:       identity.UserID,
		AccessToken:  identity.AccessToken,
		RefreshToken: identity.RefreshToken,
		CreatedAt:    now,
		ExpiresAt:    expires,
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		s.logger.Error("save session failed", zap.String("user_id", identity.UserID), zap.Error(err))
		return domain.Session{}, err
	}
	return session, nil
}
