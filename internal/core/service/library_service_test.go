package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/librarian/internal/core/domain"
)

func newBook(name string, quantity int) domain.NewBook {
	return domain.NewBook{
		Name:            name,
		Author:          "Frank Herbert",
		Genre:           "sci-fi",
		PublicationDate: time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC),
		Quantity:        quantity,
	}
}

func TestCreateBook_InsertsBookAndInventory(t *testing.T) {
	store := newMockStore()
	svc := NewLibraryService(store, nil)

	entry, err := svc.CreateBook(context.Background(), newBook("Dune", 4))
	require.NoError(t, err)

	assert.NotZero(t, entry.Book.ID)
	assert.Equal(t, entry.Book.ID, entry.BookID)
	assert.Equal(t, 4, entry.Quantity)
	assert.Equal(t, "Dune", entry.Book.Name)
	assert.False(t, entry.Book.CreatedAt.IsZero())

	catalog, err := svc.ListCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, entry.ID, catalog[0].ID)
}

func TestCreateBook_RequiredFields(t *testing.T) {
	store := newMockStore()
	svc := NewLibraryService(store, nil)

	cases := map[string]func(b *domain.NewBook){
		"name":     func(b *domain.NewBook) { b.Name = "  " },
		"author":   func(b *domain.NewBook) { b.Author = "" },
		"genre":    func(b *domain.NewBook) { b.Genre = "" },
		"date":     func(b *domain.NewBook) { b.PublicationDate = time.Time{} },
		"quantity": func(b *domain.NewBook) { b.Quantity = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			nb := newBook("Dune", 1)
			mutate(&nb)
			_, err := svc.CreateBook(context.Background(), nb)
			assert.ErrorIs(t, err, ErrInvalidBook)
		})
	}
	assert.Zero(t, store.writeCount())
}

func TestCreateBook_InventoryInsertFailure(t *testing.T) {
	store := newMockStore()
	store.insertInventoryErr = errRemote
	svc := NewLibraryService(store, nil)

	_, err := svc.CreateBook(context.Background(), newBook("Dune", 1))
	assert.ErrorIs(t, err, ErrBookCreate)
	assert.Len(t, store.books, 1, "book row is not removed")
}

func TestUpdateBook_Partial(t *testing.T) {
	store := newMockStore()
	svc := NewLibraryService(store, nil)
	entry, err := svc.CreateBook(context.Background(), newBook("Dune", 4))
	require.NoError(t, err)

	name := "Dune Messiah"
	updated, err := svc.UpdateBook(context.Background(), entry.ID, domain.BookPatch{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "Dune Messiah", updated.Book.Name)
	assert.Equal(t, "Frank Herbert", updated.Book.Author)
	assert.Equal(t, 4, updated.Quantity)
}

func TestUpdateBook_QuantityOnly(t *testing.T) {
	store := newMockStore()
	svc := NewLibraryService(store, nil)
	entry, err := svc.CreateBook(context.Background(), newBook("Dune", 4))
	require.NoError(t, err)
	writes := store.writeCount()

	qty := 9
	updated, err := svc.UpdateBook(context.Background(), entry.ID, domain.BookPatch{Quantity: &qty})
	require.NoError(t, err)

	assert.Equal(t, 9, updated.Quantity)
	assert.Equal(t, writes+1, store.writeCount(), "book row not rewritten for a quantity-only patch")
}

func TestUpdateBook_NotFound(t *testing.T) {
	svc := NewLibraryService(newMockStore(), nil)
	name := "x"
	_, err := svc.UpdateBook(context.Background(), 99, domain.BookPatch{Name: &name})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestUpdateBook_InvalidPatch(t *testing.T) {
	store := newMockStore()
	svc := NewLibraryService(store, nil)
	entry, err := svc.CreateBook(context.Background(), newBook("Dune", 4))
	require.NoError(t, err)

	empty := ""
	_, err = svc.UpdateBook(context.Background(), entry.ID, domain.BookPatch{Genre: &empty})
	assert.ErrorIs(t, err, ErrInvalidBook)

	zero := 0
	_, err = svc.UpdateBook(context.Background(), entry.ID, domain.BookPatch{Quantity: &zero})
	assert.ErrorIs(t, err, ErrInvalidBook)
}

func TestGetEntry(t *testing.T) {
	store := newMockStore()
	seeded := store.seedBook("Dune", 3)
	svc := NewLibraryService(store, nil)

	entry, err := svc.GetEntry(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", entry.Book.Name)

	_, err = svc.GetEntry(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestListCatalog_RemoteFailure(t *testing.T) {
	store := newMockStore()
	store.listErr = errRemote
	svc := NewLibraryService(store, nil)

	_, err := svc.ListCatalog(context.Background())
	assert.ErrorIs(t, err, ErrCatalogLoad)
}
