package domain

import "time"

type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "pending"
	LoanStatusActive   LoanStatus = "active"
	LoanStatusLate     LoanStatus = "late"
	LoanStatusReturned LoanStatus = "returned"
)

type Loan struct {
	ID        int64
	BookID    int64
	UserID    string
	Quantity  int
	Status    LoanStatus
	StartDate time.Time
	EndDate   time.Time
}

// LoanDetail is a loan joined with its book and borrower.
type LoanDetail struct {
	Loan
	BookName string
	Author   string
	Genre    string
	Username string
	Email    string
}

type LoanRequest struct {
	RequestID string // optional, deduplicates retries of the same submission
	BookID    int64
	UserID    string
	Quantity  int
	StartDate time.Time
	EndDate   time.Time
}

// LoanFilter narrows a loan listing. An empty UserID lists every loan.
type LoanFilter struct {
	UserID string
}
