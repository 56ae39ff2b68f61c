package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rl1809/librarian/internal/core/domain"
)

func getMySQLAdapter(t *testing.T) *SQLAdapter {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/librarian?parseTime=true"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	db, err := OpenSQL(ctx, DriverMySQL, dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	adapter, err := NewSQLAdapter(db)
	if err != nil {
		t.Fatalf("NewSQLAdapter failed: %v", err)
	}
	if err := adapter.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return adapter
}

func TestMySQL_InventoryRoundTrip(t *testing.T) {
	a := getMySQLAdapter(t)
	ctx := context.Background()

	book, err := a.InsertBook(ctx, domain.Book{
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
		Name:            "mysql-test-" + time.Now().Format("20060102150405"),
		Author:          "Test Author",
		Genre:           "test",
		PublicationDate: date("2001-02-03"),
	})
	if err != nil {
		t.Fatalf("InsertBook failed: %v", err)
	}
	if book.ID == 0 {
		t.Fatal("expected generated book id")
	}

	inv, err := a.InsertInventory(ctx, book.ID, 10)
	if err != nil {
		t.Fatalf("InsertInventory failed: %v", err)
	}

	// Cleanup
	defer func() {
		a.db.ExecContext(ctx, `DELETE FROM library WHERE id = ?`, inv.ID)
		a.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, book.ID)
	}()

	if err := a.SetInventoryQuantity(ctx, book.ID, 7); err != nil {
		t.Fatalf("SetInventoryQuantity failed: %v", err)
	}

	entry, err := a.GetCatalogEntry(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetCatalogEntry failed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected catalog entry, got nil")
	}
	if entry.Quantity != 7 {
		t.Errorf("expected quantity 7, got %d", entry.Quantity)
	}
	if !entry.Book.PublicationDate.Equal(date("2001-02-03")) {
		t.Errorf("unexpected publication date %v", entry.Book.PublicationDate)
	}
}

func TestMySQL_GetInventory_NotFound(t *testing.T) {
	a := getMySQLAdapter(t)

	inv, err := a.GetInventory(context.Background(), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv != nil {
		t.Error("expected nil for nonexistent book")
	}
}
