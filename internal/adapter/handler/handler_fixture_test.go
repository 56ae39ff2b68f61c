package handler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/librarian/internal/adapter/storage"
	"github.com/rl1809/librarian/internal/core/domain"
	"github.com/rl1809/librarian/internal/core/service"
)

type fixture struct {
	auth    *service.AuthService
	library *service.LibraryService
	loans   *service.LoanService
	store   *storage.SQLAdapter
}

// newFixture wires the real services over an on-disk sqlite database and miniredis.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := storage.OpenSQL(ctx, storage.DriverSQLite, filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := storage.NewSQLAdapter(db)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))

	authAdapter, err := storage.NewSQLAuthAdapter(db)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := storage.NewRedisAdapter(client)

	return &fixture{
		auth:    service.NewAuthService(authAdapter, store, cache, time.Hour, nil),
		library: service.NewLibraryService(store, nil),
		loans:   service.NewLoanService(store, store, cache, nil),
		store:   store,
	}
}

func (f *fixture) register(t *testing.T, username string, admin bool) domain.Principal {
	t.Helper()

	p, err := f.auth.Register(context.Background(), service.RegisterInput{
		Email:    username + "@example.com",
		Password: "password-" + username,
		Username: username,
		Admin:    admin,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) addBook(t *testing.T, name string, quantity int) domain.CatalogEntry {
	t.Helper()

	entry, err := f.library.CreateBook(context.Background(), domain.NewBook{
		Name:            name,
		Author:          "Ursula K. Le Guin",
		Genre:           "fantasy",
		PublicationDate: time.Date(1968, 9, 1, 0, 0, 0, 0, time.UTC),
		Quantity:        quantity,
	})
	require.NoError(t, err)
	return entry
}
