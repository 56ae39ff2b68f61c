package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rl1809/librarian/internal/core/domain"
)

func newSQLiteAdapter(t *testing.T) *SQLAdapter {
	t.Helper()

	ctx := context.Background()
	db, err := OpenSQL(ctx, DriverSQLite, filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	adapter, err := NewSQLAdapter(db)
	if err != nil {
		t.Fatalf("NewSQLAdapter failed: %v", err)
	}
	if err := adapter.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return adapter
}

func date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedBook(t *testing.T, a *SQLAdapter, name string, quantity int) (domain.Book, domain.InventoryEntry) {
	t.Helper()

	ctx := context.Background()
	book, err := a.InsertBook(ctx, domain.Book{
		CreatedAt:       time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		Name:            name,
		Author:          "Ursula K. Le Guin",
		Genre:           "fantasy",
		PublicationDate: date("1968-09-01"),
	})
	if err != nil {
		t.Fatalf("InsertBook failed: %v", err)
	}
	inv, err := a.InsertInventory(ctx, book.ID, quantity)
	if err != nil {
		t.Fatalf("InsertInventory failed: %v", err)
	}
	return book, inv
}

func seedUser(t *testing.T, a *SQLAdapter, id, username string) domain.User {
	t.Helper()

	user, err := a.InsertUser(context.Background(), domain.User{
		ID:        id,
		Email:     username + "@example.com",
		Username:  username,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("InsertUser failed: %v", err)
	}
	return user
}

func TestNewSQLAdapter_NilDB(t *testing.T) {
	if _, err := NewSQLAdapter(nil); !errors.Is(err, ErrNilDatabaseConnection) {
		t.Errorf("expected ErrNilDatabaseConnection, got %v", err)
	}
}

func TestOpenSQL_UnsupportedDriver(t *testing.T) {
	if _, err := OpenSQL(context.Background(), "oracle", "whatever"); !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestSQLAdapter_Catalog(t *testing.T) {
	a := newSQLiteAdapter(t)
	ctx := context.Background()

	book, inv := seedBook(t, a, "A Wizard of Earthsea", 3)
	seedBook(t, a, "The Tombs of Atuan", 1)

	entries, err := a.ListCatalog(ctx)
	if err != nil {
		t.Fatalf("ListCatalog failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.ID != inv.ID || first.BookID != book.ID || first.Quantity != 3 {
		t.Errorf("unexpected inventory %+v", first.InventoryEntry)
	}
	if first.Book.Name != "A Wizard of Earthsea" || first.Book.Genre != "fantasy" {
		t.Errorf("unexpected book %+v", first.Book)
	}
	if !first.Book.PublicationDate.Equal(date("1968-09-01")) {
		t.Errorf("publication date = %v", first.Book.PublicationDate)
	}
	if !first.Book.CreatedAt.Equal(book.CreatedAt) {
		t.Errorf("created_at = %v, want %v", first.Book.CreatedAt, book.CreatedAt)
	}

	entry, err := a.GetCatalogEntry(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetCatalogEntry failed: %v", err)
	}
	if entry == nil || entry.Book.ID != book.ID {
		t.Errorf("unexpected entry %+v", entry)
	}

	missing, err := a.GetCatalogEntry(ctx, 9999)
	if err != nil {
		t.Fatalf("GetCatalogEntry failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown entry, got %+v", missing)
	}
}

func TestSQLAdapter_UpdateBook(t *testing.T) {
	a := newSQLiteAdapter(t)
	ctx := context.Background()

	book, inv := seedBook(t, a, "Earthsea", 1)

	genre := "young adult"
	published := date("1969-01-01")
	err := a.UpdateBook(ctx, book.ID, domain.BookPatch{Genre: &genre, PublicationDate: &published})
	if err != nil {
		t.Fatalf("UpdateBook failed: %v", err)
	}

	entry, err := a.GetCatalogEntry(ctx, inv.ID)
	if err != nil || entry == nil {
		t.Fatalf("GetCatalogEntry failed: %v", err)
	}
	if entry.Book.Genre != genre {
		t.Errorf("genre = %q", entry.Book.Genre)
	}
	if entry.Book.Name != "Earthsea" {
		t.Errorf("name changed to %q", entry.Book.Name)
	}
	if !entry.Book.PublicationDate.Equal(published) {
		t.Errorf("publication date = %v", entry.Book.PublicationDate)
	}

	if err := a.UpdateBook(ctx, book.ID, domain.BookPatch{}); err != nil {
		t.Errorf("empty patch should be a no-op, got %v", err)
	}
}

func TestSQLAdapter_Inventory(t *testing.T) {
	a := newSQLiteAdapter(t)
	ctx := context.Background()

	book, _ := seedBook(t, a, "Earthsea", 5)

	inv, err := a.GetInventory(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetInventory failed: %v", err)
	}
	if inv == nil || inv.Quantity != 5 {
		t.Fatalf("unexpected inventory %+v", inv)
	}

	if err := a.SetInventoryQuantity(ctx, book.ID, 2); err != nil {
		t.Fatalf("SetInventoryQuantity failed: %v", err)
	}
	inv, _ = a.GetInventory(ctx, book.ID)
	if inv.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", inv.Quantity)
	}

	none, err := a.GetInventory(ctx, 404)
	if err != nil {
		t.Fatalf("GetInventory failed: %v", err)
	}
	if none != nil {
		t.Errorf("expected nil for unknown book, got %+v", none)
	}
}

func TestSQLAdapter_Loans(t *testing.T) {
	a := newSQLiteAdapter(t)
	ctx := context.Background()

	book, _ := seedBook(t, a, "Earthsea", 5)
	seedUser(t, a, "u-1", "ged")
	seedUser(t, a, "u-2", "tenar")

	insert := func(user, start string) domain.Loan {
		loan, err := a.InsertLoan(ctx, domain.Loan{
			BookID:    book.ID,
			UserID:    user,
			Quantity:  1,
			Status:    domain.LoanStatusPending,
			StartDate: date(start),
			EndDate:   date(start).AddDate(0, 0, 14),
		})
		if err != nil {
			t.Fatalf("InsertLoan failed: %v", err)
		}
		if loan.ID == 0 {
			t.Fatal("expected generated loan id")
		}
		return loan
	}
	older := insert("u-1", "2024-05-01")
	newer := insert("u-1", "2024-06-01")
	insert("u-2", "2024-05-15")

	all, err := a.ListLoans(ctx, domain.LoanFilter{})
	if err != nil {
		t.Fatalf("ListLoans failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 loans, got %d", len(all))
	}

	mine, err := a.ListLoans(ctx, domain.LoanFilter{UserID: "u-1"})
	if err != nil {
		t.Fatalf("ListLoans failed: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 loans, got %d", len(mine))
	}
	if mine[0].ID != newer.ID || mine[1].ID != older.ID {
		t.Errorf("expected newest first, got ids %d, %d", mine[0].ID, mine[1].ID)
	}

	got := mine[0]
	if got.BookName != "Earthsea" || got.Username != "ged" || got.Email != "ged@example.com" {
		t.Errorf("unexpected loan detail %+v", got)
	}
	if got.Status != domain.LoanStatusPending {
		t.Errorf("status = %q", got.Status)
	}
	if !got.EndDate.Equal(date("2024-06-15")) {
		t.Errorf("end date = %v", got.EndDate)
	}
}

func TestSQLAdapter_Users(t *testing.T) {
	a := newSQLiteAdapter(t)
	ctx := context.Background()

	want := seedUser(t, a, "u-1", "ged")

	got, err := a.GetUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got == nil || got.Username != want.Username || got.Admin {
		t.Errorf("unexpected user %+v", got)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("created_at = %v", got.CreatedAt)
	}

	missing, err := a.GetUser(ctx, "nobody")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil, got %+v", missing)
	}
}

func TestSQLAdapter_CheckTable(t *testing.T) {
	a := newSQLiteAdapter(t)
	ctx := context.Background()

	for _, table := range RequiredTables {
		if err := a.CheckTable(ctx, table); err != nil {
			t.Errorf("CheckTable(%s) failed: %v", table, err)
		}
	}
	if err := a.CheckTable(ctx, "shelves"); err == nil {
		t.Error("expected error for missing table")
	}
}
