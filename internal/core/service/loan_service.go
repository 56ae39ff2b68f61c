package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/librarian/internal/core/domain"
	"github.com/rl1809/librarian/internal/port"
)

var (
	ErrDuplicateRequest      = errors.New("duplicate request")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInvalidLoan           = errors.New("invalid loan request")
	ErrAvailabilityCheck     = errors.New("could not verify book availability")
	ErrLoanCreate            = errors.New("could not create loan")
	ErrInventoryUpdate       = errors.New("could not update book inventory")
	ErrLoanList              = errors.New("could not load loans")
)

const loanRequestKeyPrefix = "loan-request:"

type LoanService struct {
	catalog port.CatalogRepository
	loans   port.LoanRepository
	cache   port.CacheRepository
	logger  *zap.Logger
}

func NewLoanService(catalog port.CatalogRepository, loans port.LoanRepository, cache port.CacheRepository, logger *zap.Logger) *LoanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoanService{
		catalog: catalog,
		loans:   loans,
		cache:   cache,
		logger:  logger,
	}
}

// CreateLoan checks the quantity on hand, inserts a pending loan and writes back the
// reduced quantity. The read and the write are not guarded against concurrent requests,
// and a failed inventory write does not undo the inserted loan.
func (s *LoanService) CreateLoan(ctx context.Context, req domain.LoanRequest) (domain.Loan, error) {
	if err := validateLoanRequest(req); err != nil {
		return domain.Loan{}, err
	}

	log := s.logger.With(
		zap.Int64("book_id", req.BookID),
		zap.String("user_id", req.UserID),
		zap.Int("quantity", req.Quantity),
	)

	var claimed string
	if req.RequestID != "" && s.cache != nil {
		key := loanRequestKeyPrefix + req.RequestID
		ok, err := s.cache.SetIdempotency(ctx, key)
		if err != nil {
			return domain.Loan{}, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return domain.Loan{}, ErrDuplicateRequest
		}
		claimed = key
	}

	// Until the loan row exists the request can be retried under the same id.
	inv, err := s.catalog.GetInventory(ctx, req.BookID)
	if err != nil {
		log.Error("read inventory failed", zap.Error(err))
		s.release(ctx, log, claimed)
		return domain.Loan{}, fmt.Errorf("%w: %v", ErrAvailabilityCheck, err)
	}
	if inv == nil {
		log.Error("inventory entry not found")
		s.release(ctx, log, claimed)
		return domain.Loan{}, fmt.Errorf("%w: no inventory entry for book %d", ErrAvailabilityCheck, req.BookID)
	}

	available := inv.Quantity
	if available < req.Quantity {
		log.Info("loan rejected", zap.Int("available", available))
		s.release(ctx, log, claimed)
		return domain.Loan{}, fmt.Errorf("%w: available %d, requested %d", ErrInsufficientInventory, available, req.Quantity)
	}

	loan, err := s.loans.InsertLoan(ctx, domain.Loan{
		BookID:    req.BookID,
		UserID:    req.UserID,
		Quantity:  req.Quantity,
		Status:    domain.LoanStatusPending,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		log.Error("insert loan failed", zap.Error(err))
		s.release(ctx, log, claimed)
		return domain.Loan{}, fmt.Errorf("%w: %v", ErrLoanCreate, err)
	}

	if err := s.catalog.SetInventoryQuantity(ctx, req.BookID, available-req.Quantity); err != nil {
		log.Warn("inventory not decremented, loan left in place",
			zap.Int64("loan_id", loan.ID), zap.Error(err))
		return loan, fmt.Errorf("%w: %v", ErrInventoryUpdate, err)
	}

	log.Info("loan created", zap.Int64("loan_id", loan.ID), zap.Int("remaining", available-req.Quantity))
	return loan, nil
}

func (s *LoanService) release(ctx context.Context, log *zap.Logger, key string) {
	if key == "" {
		return
	}
	if err := s.cache.ReleaseIdempotency(ctx, key); err != nil {
		log.Warn("release idempotency key failed", zap.String("key", key), zap.Error(err))
	}
}

// ListLoans returns every loan for admins and only the user's own loans otherwise.
func (s *LoanService) ListLoans(ctx context.Context, user domain.User) ([]domain.LoanDetail, error) {
	if user.ID == "" {
		return nil, ErrNotAuthenticated
	}

	filter := domain.LoanFilter{}
	if !user.Admin {
		filter.UserID = user.ID
	}

	loans, err := s.loans.ListLoans(ctx, filter)
	if err != nil {
		s.logger.Error("list loans failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrLoanList, err)
	}
	return loans, nil
}

func validateLoanRequest(req domain.LoanRequest) error {
	switch {
	case req.BookID <= 0:
		return fmt.Errorf("%w: book is required", ErrInvalidLoan)
	case req.UserID == "":
		return fmt.Errorf("%w: user is required", ErrInvalidLoan)
	case req.Quantity < 1:
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidLoan)
	case req.StartDate.IsZero():
		return fmt.Errorf("%w: start date is required", ErrInvalidLoan)
	case req.EndDate.IsZero():
		return fmt.Errorf("%w: end date is required", ErrInvalidLoan)
	}
	return nil
}
