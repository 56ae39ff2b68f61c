package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/librarian/internal/core/domain"
)

type BookDTO struct {
	ID              int64  `json:"id"`
	CreatedAt       string `json:"created_at,omitempty"`
	Name            string `json:"name"`
	Author          string `json:"author"`
	Genre           string `json:"genre"`
	PublicationDate string `json:"publication_date"`
}

type CatalogEntryDTO struct {
	ID       int64   `json:"id"`
	BookID   int64   `json:"book_id"`
	Quantity int     `json:"quantity"`
	Book     BookDTO `json:"book"`
}

type LoanDTO struct {
	ID        int64  `json:"id"`
	BookID    int64  `json:"book_id"`
	UserID    string `json:"user_id"`
	Quantity  int    `json:"quantity"`
	Status    string `json:"status"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type LoanDetailDTO struct {
	LoanDTO
	BookName string `json:"book_name"`
	Author   string `json:"author"`
	Genre    string `json:"genre"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type UserDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Admin     bool   `json:"admin"`
	CreatedAt string `json:"created_at,omitempty"`
}

type SessionDTO struct {
	SessionID string  `json:"session_id"`
	ExpiresAt string  `json:"expires_at"`
	User      UserDTO `json:"user"`
}

func toCatalogEntryDTO(e domain.CatalogEntry) CatalogEntryDTO {
	return CatalogEntryDTO{
		ID:       e.ID,
		BookID:   e.BookID,
		Quantity: e.Quantity,
		Book: BookDTO{
			ID:              e.Book.ID,
			CreatedAt:       formatTimestamp(e.Book.CreatedAt),
			Name:            e.Book.Name,
			Author:          e.Book.Author,
			Genre:           e.Book.Genre,
			PublicationDate: domain.FormatDate(e.Book.PublicationDate),
		},
	}
}

func toCatalogDTOs(entries []domain.CatalogEntry) []CatalogEntryDTO {
	out := make([]CatalogEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toCatalogEntryDTO(e))
	}
	return out
}

func toLoanDTO(l domain.Loan) LoanDTO {
	return LoanDTO{
		ID:        l.ID,
		BookID:    l.BookID,
		UserID:    l.UserID,
		Quantity:  l.Quantity,
		Status:    string(l.Status),
		StartDate: domain.FormatDate(l.StartDate),
		EndDate:   domain.FormatDate(l.EndDate),
	}
}

func toLoanDetailDTOs(loans []domain.LoanDetail) []LoanDetailDTO {
	out := make([]LoanDetailDTO, 0, len(loans))
	for _, l := range loans {
		out = append(out, LoanDetailDTO{
			LoanDTO:  toLoanDTO(l.Loan),
			BookName: l.BookName,
			Author:   l.Author,
			Genre:    l.Genre,
			Username: l.Username,
			Email:    l.Email,
		})
	}
	return out
}

func toUserDTO(u domain.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Admin:     u.Admin,
		CreatedAt: formatTimestamp(u.CreatedAt),
	}
}

func toSessionDTO(p domain.Principal) SessionDTO {
	return SessionDTO{
		SessionID: p.Session.ID,
		ExpiresAt: formatTimestamp(p.Session.ExpiresAt),
		User:      toUserDTO(p.User),
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// parseDate reads an optional YYYY-MM-DD field. Empty input yields the zero time.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a YYYY-MM-DD date", field)
	}
	return t, nil
}
