package storage

import (
	"fmt"
	"time"

	"github.com/rl1809/librarian/internal/core/domain"
)

const (
	tableBooks       = "books"
	tableLibrary     = "library"
	tableLoans       = "loans"
	tableUsers       = "users"
	tableCredentials = "auth_credentials"
)

// RequiredTables are the tables every backend must expose.
var RequiredTables = []string{tableUsers, tableBooks, tableLibrary, tableLoans}

type bookRow struct {
	ID              int64  `json:"id,omitempty" db:"id"`
	CreatedAt       string `json:"created_at,omitempty" db:"created_at"`
	Name            string `json:"name" db:"name"`
	Author          string `json:"author" db:"author"`
	Genre           string `json:"genre" db:"genre"`
	PublicationDate string `json:"publication_date" db:"publication_date"`
}

func (r bookRow) toDomain() (domain.Book, error) {
	createdAt, err := domain.ParseTime(r.CreatedAt)
	if err != nil {
		return domain.Book{}, fmt.Errorf("book %d created_at: %w", r.ID, err)
	}
	published, err := domain.ParseTime(r.PublicationDate)
	if err != nil {
		return domain.Book{}, fmt.Errorf("book %d publication_date: %w", r.ID, err)
	}
	return domain.Book{
		ID:              r.ID,
		CreatedAt:       createdAt,
		Name:            r.Name,
		Author:          r.Author,
		Genre:           r.Genre,
		PublicationDate: published,
	}, nil
}

type libraryRow struct {
	ID       int64 `json:"id,omitempty" db:"id"`
	BookID   int64 `json:"book_id" db:"book_id"`
	Quantity int   `json:"quantity" db:"quantity"`
}

func (r libraryRow) toDomain() domain.InventoryEntry {
	return domain.InventoryEntry{ID: r.ID, BookID: r.BookID, Quantity: r.Quantity}
}

type loanRow struct {
	ID        int64  `json:"id,omitempty" db:"id"`
	BookID    int64  `json:"book_id" db:"book_id"`
	UserID    string `json:"user_id" db:"user_id"`
	Quantity  int    `json:"quantity" db:"quantity"`
	Status    string `json:"status" db:"status"`
	StartDate string `json:"start_date" db:"start_date"`
	EndDate   string `json:"end_date" db:"end_date"`
}

func newLoanRow(l domain.Loan) loanRow {
	return loanRow{
		BookID:    l.BookID,
		UserID:    l.UserID,
		Quantity:  l.Quantity,
		Status:    string(l.Status),
		StartDate: domain.FormatDate(l.StartDate),
		EndDate:   domain.FormatDate(l.EndDate),
	}
}

func (r loanRow) toDomain() (domain.Loan, error) {
	start, err := domain.ParseTime(r.StartDate)
	if err != nil {
		return domain.Loan{}, fmt.Errorf("loan %d start_date: %w", r.ID, err)
	}
	end, err := domain.ParseTime(r.EndDate)
	if err != nil {
		return domain.Loan{}, fmt.Errorf("loan %d end_date: %w", r.ID, err)
	}
	return domain.Loan{
		ID:        r.ID,
		BookID:    r.BookID,
		UserID:    r.UserID,
		Quantity:  r.Quantity,
		Status:    domain.LoanStatus(r.Status),
		StartDate: start,
		EndDate:   end,
	}, nil
}

type userRow struct {
	ID        string `json:"id" db:"id"`
	Email     string `json:"email" db:"email"`
	Username  string `json:"username" db:"username"`
	Admin     bool   `json:"admin" db:"admin"`
	CreatedAt string `json:"created_at" db:"created_at"`
}

func newUserRow(u domain.User) userRow {
	return userRow{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Admin:     u.Admin,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (r userRow) toDomain() (domain.User, error) {
	createdAt, err := domain.ParseTime(r.CreatedAt)
	if err != nil {
		return domain.User{}, fmt.Errorf("user %s created_at: %w", r.ID, err)
	}
	return domain.User{
		ID:        r.ID,
		Email:     r.Email,
		Username:  r.Username,
		Admin:     r.Admin,
		CreatedAt: createdAt,
	}, nil
}
