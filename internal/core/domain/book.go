package domain

import "time"

type Book struct {
	ID              int64
	CreatedAt       time.Time
	Name            string
	Author          string
	Genre           string
	PublicationDate time.Time
}

type NewBook struct {
	Name            string
	Author          string
	Genre           string
	PublicationDate time.Time
	Quantity        int
}

// BookPatch carries a partial update. Nil fields are left untouched.
type BookPatch struct {
	Name            *string
	Author          *string
	Genre           *string
	PublicationDate *time.Time
	Quantity        *int
}

// HasBookFields reports whether the patch touches the books table.
func (p BookPatch) HasBookFields() bool {
	return p.Name != nil || p.Author != nil || p.Genre != nil || p.PublicationDate != nil
}
