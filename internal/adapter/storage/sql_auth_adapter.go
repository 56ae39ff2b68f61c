package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/librarian/internal/core/domain"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// SQLAuthAdapter keeps bcrypt credentials next to the library tables.
// It issues no tokens, sessions are tracked by the session store alone.
type SQLAuthAdapter struct {
	sqlBackend
	cost int
}

func NewSQLAuthAdapter(db *sqlx.DB, opts ...SQLOption) (*SQLAuthAdapter, error) {
	b, err := newSQLBackend(db, opts...)
	if err != nil {
		return nil, err
	}
	return &SQLAuthAdapter{sqlBackend: b, cost: bcrypt.DefaultCost}, nil
}

type credentialRow struct {
	UserID       string `db:"user_id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
}

func (a *SQLAuthAdapter) SignUp(ctx context.Context, email, password string) (domain.Identity, error) {
	email = normalizeEmail(email)

	existing, err := a.credential(ctx, email)
	if err != nil {
		return domain.Identity{}, err
	}
	if existing != nil {
		return domain.Identity{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.NewString()
	ds := a.qb.Insert(tableCredentials).Rows(goqu.Record{
		"user_id":       id,
		"email":         email,
		"password_hash": string(hash),
	}).Prepared(true)
	if err := a.exec(ctx, ds); err != nil {
		return domain.Identity{}, fmt.Errorf("insert credentials: %w", err)
	}

	a.logger.Debug("credentials stored", zap.String("user_id", id))
	return domain.Identity{UserID: id, Email: email}, nil
}

func (a *SQLAuthAdapter) SignIn(ctx context.Context, email, password string) (domain.Identity, error) {
	email = normalizeEmail(email)

	cred, err := a.credential(ctx, email)
	if err != nil {
		return domain.Identity{}, err
	}
	if cred == nil {
		return domain.Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return domain.Identity{}, ErrInvalidCredentials
	}

	return domain.Identity{UserID: cred.UserID, Email: cred.Email}, nil
}

func (a *SQLAuthAdapter) SignOut(ctx context.Context, accessToken string) error {
	return nil
}

func (a *SQLAuthAdapter) credential(ctx context.Context, email string) (*credentialRow, error) {
	query, args, err := a.build(a.qb.From(tableCredentials).
		Select("user_id", "email", "password_hash").
		Where(goqu.C("email").Eq(email)).
		Prepared(true))
	if err != nil {
		return nil, err
	}

	var row credentialRow
	err = a.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	return &row, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
