package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/librarian/internal/core/domain"
	"github.com/rl1809/librarian/internal/port"
)

var (
	ErrInvalidBook  = errors.New("invalid book")
	ErrBookNotFound = errors.New("book not found")
	ErrBookCreate   = errors.New("could not create book")
	ErrBookUpdate   = errors.New("could not update book")
	ErrCatalogLoad  = errors.New("could not load library")
)

type LibraryService struct {
	catalog port.CatalogRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewLibraryService(catalog port.CatalogRepository, logger *zap.Logger) *LibraryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LibraryService{
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *LibraryService) ListCatalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	entries, err := s.catalog.ListCatalog(ctx)
	if err != nil {
		s.logger.Error("list catalog failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCatalogLoad, err)
	}
	return entries, nil
}

func (s *LibraryService) GetEntry(ctx context.Context, inventoryID int64) (domain.CatalogEntry, error) {
	entry, err := s.catalog.GetCatalogEntry(ctx, inventoryID)
	if err != nil {
		s.logger.Error("get catalog entry failed", zap.Int64("inventory_id", inventoryID), zap.Error(err))
		return domain.CatalogEntry{}, fmt.Errorf("%w: %v", ErrCatalogLoad, err)
	}
	if entry == nil {
		return domain.CatalogEntry{}, ErrBookNotFound
	}
	return *entry, nil
}

// CreateBook inserts the book and then its inventory entry. If the second insert fails
// the book row stays behind without stock.
func (s *LibraryService) CreateBook(ctx context.Context, nb domain.NewBook) (domain.CatalogEntry, error) {
	if err := validateNewBook(nb); err != nil {
		return domain.CatalogEntry{}, err
	}

	book, err := s.catalog.InsertBook(ctx, domain.Book{
		CreatedAt:       s.now().UTC(),
		Name:            strings.TrimSpace(nb.Name),
		Author:          strings.TrimSpace(nb.Author),
		Genre:           strings.TrimSpace(nb.Genre),
		PublicationDate: nb.PublicationDate,
	})
	if err != nil {
		s.logger.Error("insert book failed", zap.String("name", nb.Name), zap.Error(err))
		return domain.CatalogEntry{}, fmt.Errorf("%w: %v", ErrBookCreate, err)
	}

	inv, err := s.catalog.InsertInventory(ctx, book.ID, nb.Quantity)
	if err != nil {
		s.logger.Warn("inventory entry not created, book left without stock",
			zap.Int64("book_id", book.ID), zap.Error(err))
		return domain.CatalogEntry{}, fmt.Errorf("%w: %v", ErrBookCreate, err)
	}

	s.logger.Info("book created", zap.Int64("book_id", book.ID), zap.Int64("inventory_id", inv.ID))
	return domain.CatalogEntry{InventoryEntry: inv, Book: book}, nil
}

// UpdateBook applies a partial update addressed by inventory entry id.
func (s *LibraryService) UpdateBook(ctx context.Context, inventoryID int64, patch domain.BookPatch) (domain.CatalogEntry, error) {
	if err := validatePatch(patch); err != nil {
		return domain.CatalogEntry{}, err
	}

	entry, err := s.catalog.GetCatalogEntry(ctx, inventoryID)
	if err != nil {
		s.logger.Error("get catalog entry failed", zap.Int64("inventory_id", inventoryID), zap.Error(err))
		return domain.CatalogEntry{}, fmt.Errorf("%w: %v", ErrBookUpdate, err)
	}
	if entry == nil {
		return domain.CatalogEntry{}, ErrBookNotFound
	}

	if patch.HasBookFields() {
		if err := s.catalog.UpdateBook(ctx, entry.BookID, patch); err != nil {
			s.logger.Error("update book failed", zap.Int64("book_id", entry.BookID), zap.Error(err))
			return domain.CatalogEntry{}, fmt.Errorf("%w: %v", ErrBookUpdate, err)
		}
	}

	if patch.Quantity != nil {
		if err := s.catalog.SetInventoryQuantity(ctx, entry.BookID, *patch.Quantity); err != nil {
			s.logger.Error("update quantity failed", zap.Int64("book_id", entry.BookID), zap.Error(err))
			return domain.CatalogEntry{}, fmt.Errorf("%w: %v", ErrBookUpdate, err)
		}
	}

	updated, err := s.catalog.GetCatalogEntry(ctx, inventoryID)
	if err != nil || updated == nil {
		s.logger.Error("reload catalog entry failed", zap.Int64("inventory_id", inventoryID), zap.Error(err))
		return domain.CatalogEntry{}, fmt.Errorf("%w: reload failed", ErrBookUpdate)
	}

	s.logger.Info("book updated", zap.Int64("book_id", entry.BookID), zap.Int64("inventory_id", inventoryID))
	return *updated, nil
}

func validateNewBook(nb domain.NewBook) error {
	switch {
	case strings.TrimSpace(nb.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidBook)
	case strings.TrimSpace(nb.Author) == "":
		return fmt.Errorf("%w: author is required", ErrInvalidBook)
	case strings.TrimSpace(nb.Genre) == "":
		return fmt.Errorf("%w: genre is required", ErrInvalidBook)
	case nb.PublicationDate.IsZero():
		return fmt.Errorf("%w: publication date is required", ErrInvalidBook)
	case nb.Quantity < 1:
		return fmt.Errorf("%w: quantity must be greater than 0", ErrInvalidBook)
	}
	return nil
}

func validatePatch(p domain.BookPatch) error {
	for field, v := range map[string]*string{"name": p.Name, "author": p.Author, "genre": p.Genre} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidBook, field)
		}
	}
	if p.PublicationDate != nil && p.PublicationDate.IsZero() {
		return fmt.Errorf("%w: publication date is required", ErrInvalidBook)
	}
	if p.Quantity != nil && *p.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be greater than 0", ErrInvalidBook)
	}
	return nil
}
