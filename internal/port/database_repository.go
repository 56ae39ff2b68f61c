package port

import (
	"context"

	"github.com/rl1809/librarian/internal/core/domain"
)

type CatalogRepository interface {
	// ListCatalog returns every inventory entry joined with its book, ordered by entry id
	ListCatalog(ctx context.Context) ([]domain.CatalogEntry, error)

	// GetCatalogEntry returns nil when no inventory entry has the id
	GetCatalogEntry(ctx context.Context, inventoryID int64) (*domain.CatalogEntry, error)

	InsertBook(ctx context.Context, book domain.Book) (domain.Book, error)

	// UpdateBook applies the book fields of the patch
	UpdateBook(ctx context.Context, bookID int64, patch domain.BookPatch) error

	InsertInventory(ctx context.Context, bookID int64, quantity int) (domain.InventoryEntry, error)

	// GetInventory retrieves the inventory entry of a book, nil when missing
	GetInventory(ctx context.Context, bookID int64) (*domain.InventoryEntry, error)

	// SetInventoryQuantity overwrites the quantity on hand of a book
	SetInventoryQuantity(ctx context.Context, bookID int64, quantity int) error
}

type LoanRepository interface {
	// InsertLoan persists a loan and returns it with its assigned id
	InsertLoan(ctx context.Context, loan domain.Loan) (domain.Loan, error)

	// ListLoans returns loans joined with book and user, newest start date first
	ListLoans(ctx context.Context, filter domain.LoanFilter) ([]domain.LoanDetail, error)
}

type UserRepository interface {
	InsertUser(ctx context.Context, user domain.User) (domain.User, error)

	// GetUser returns nil when the profile row does not exist
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// TableChecker probes that a backend table is reachable.
type TableChecker interface {
	CheckTable(ctx context.Context, table string) error
}
