package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/rl1809/librarian/internal/core/domain"
)

// SQLAdapter reads and writes the library tables directly over database/sql.
type SQLAdapter struct {
	sqlBackend
}

func NewSQLAdapter(db *sqlx.DB, opts ...SQLOption) (*SQLAdapter, error) {
	b, err := newSQLBackend(db, opts...)
	if err != nil {
		return nil, err
	}
	return &SQLAdapter{sqlBackend: b}, nil
}

type catalogSQLRow struct {
	ID              int64  `db:"id"`
	BookID          int64  `db:"book_id"`
	Quantity        int    `db:"quantity"`
	CreatedAt       string `db:"created_at"`
	Name            string `db:"name"`
	Author          string `db:"author"`
	Genre           string `db:"genre"`
	PublicationDate string `db:"publication_date"`
}

func (r catalogSQLRow) toDomain() (domain.CatalogEntry, error) {
	book, err := bookRow{
		ID:              r.BookID,
		CreatedAt:       r.CreatedAt,
		Name:            r.Name,
		Author:          r.Author,
		Genre:           r.Genre,
		PublicationDate: r.PublicationDate,
	}.toDomain()
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	return domain.CatalogEntry{
		InventoryEntry: domain.InventoryEntry{ID: r.ID, BookID: r.BookID, Quantity: r.Quantity},
		Book:           book,
	}, nil
}

type loanSQLRow struct {
	loanRow
	BookName string `db:"book_name"`
	Author   string `db:"author"`
	Genre    string `db:"genre"`
	Username string `db:"username"`
	Email    string `db:"email"`
}

func (a *SQLAdapter) catalogQuery() *goqu.SelectDataset {
	return a.qb.From(goqu.T(tableLibrary).As("l")).
		Join(goqu.T(tableBooks).As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("l.book_id")))).
		Select(
			goqu.I("l.id").As("id"),
			goqu.I("l.book_id").As("book_id"),
			goqu.I("l.quantity").As("quantity"),
			goqu.I("b.created_at").As("created_at"),
			goqu.I("b.name").As("name"),
			goqu.I("b.author").As("author"),
			goqu.I("b.genre").As("genre"),
			goqu.I("b.publication_date").As("publication_date"),
		).
		Prepared(true)
}

func (a *SQLAdapter) ListCatalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	return a.catalog(ctx, a.catalogQuery().Order(goqu.I("l.id").Asc()))
}

func (a *SQLAdapter) GetCatalogEntry(ctx context.Context, inventoryID int64) (*domain.CatalogEntry, error) {
	entries, err := a.catalog(ctx, a.catalogQuery().Where(goqu.I("l.id").Eq(inventoryID)))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (a *SQLAdapter) catalog(ctx context.Context, ds *goqu.SelectDataset) ([]domain.CatalogEntry, error) {
	query, args, err := a.build(ds)
	if err != nil {
		return nil, err
	}

	var rows []catalogSQLRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query library: %w", err)
	}

	entries := make([]domain.CatalogEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (a *SQLAdapter) InsertBook(ctx context.Context, book domain.Book) (domain.Book, error) {
	id, err := a.insert(ctx, tableBooks, goqu.Record{
		"created_at":       a.timeValue(book.CreatedAt),
		"name":             book.Name,
		"author":           book.Author,
		"genre":            book.Genre,
		"publication_date": domain.FormatDate(book.PublicationDate),
	})
	if err != nil {
		return domain.Book{}, fmt.Errorf("insert book: %w", err)
	}

	book.ID = id
	return book, nil
}

func (a *SQLAdapter) UpdateBook(ctx context.Context, bookID int64, patch domain.BookPatch) error {
	fields := bookPatchFields(patch)
	if len(fields) == 0 {
		return nil
	}

	ds := a.qb.Update(tableBooks).
		Set(goqu.Record(fields)).
		Where(goqu.C("id").Eq(bookID)).
		Prepared(true)
	if err := a.exec(ctx, ds); err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

func (a *SQLAdapter) InsertInventory(ctx context.Context, bookID int64, quantity int) (domain.InventoryEntry, error) {
	id, err := a.insert(ctx, tableLibrary, goqu.Record{
		"book_id":  bookID,
		"quantity": quantity,
	})
	if err != nil {
		return domain.InventoryEntry{}, fmt.Errorf("insert inventory: %w", err)
	}
	return domain.InventoryEntry{ID: id, BookID: bookID, Quantity: quantity}, nil
}

func (a *SQLAdapter) GetInventory(ctx context.Context, bookID int64) (*domain.InventoryEntry, error) {
	query, args, err := a.build(a.qb.From(tableLibrary).
		Select("id", "book_id", "quantity").
		Where(goqu.C("book_id").Eq(bookID)).
		Limit(1).
		Prepared(true))
	if err != nil {
		return nil, err
	}

	var row libraryRow
	err = a.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}

	inv := row.toDomain()
	return &inv, nil
}

func (a *SQLAdapter) SetInventoryQuantity(ctx context.Context, bookID int64, quantity int) error {
	ds := a.qb.Update(tableLibrary).
		Set(goqu.Record{"quantity": quantity}).
		Where(goqu.C("book_id").Eq(bookID)).
		Prepared(true)
	if err := a.exec(ctx, ds); err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	return nil
}

func (a *SQLAdapter) InsertLoan(ctx context.Context, loan domain.Loan) (domain.Loan, error) {
	row := newLoanRow(loan)
	id, err := a.insert(ctx, tableLoans, goqu.Record{
		"book_id":    row.BookID,
		"user_id":    row.UserID,
		"quantity":   row.Quantity,
		"status":     row.Status,
		"start_date": row.StartDate,
		"end_date":   row.EndDate,
	})
	if err != nil {
		return domain.Loan{}, fmt.Errorf("insert loan: %w", err)
	}

	loan.ID = id
	return loan, nil
}

func (a *SQLAdapter) ListLoans(ctx context.Context, filter domain.LoanFilter) ([]domain.LoanDetail, error) {
	ds := a.qb.From(goqu.T(tableLoans).As("l")).
		Join(goqu.T(tableBooks).As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("l.book_id")))).
		Join(goqu.T(tableUsers).As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("l.user_id")))).
		Select(
			goqu.I("l.id").As("id"),
			goqu.I("l.book_id").As("book_id"),
			goqu.I("l.user_id").As("user_id"),
			goqu.I("l.quantity").As("quantity"),
			goqu.I("l.status").As("status"),
			goqu.I("l.start_date").As("start_date"),
			goqu.I("l.end_date").As("end_date"),
			goqu.I("b.name").As("book_name"),
			goqu.I("b.author").As("author"),
			goqu.I("b.genre").As("genre"),
			goqu.I("u.username").As("username"),
			goqu.I("u.email").As("email"),
		).
		Order(goqu.I("l.start_date").Desc(), goqu.I("l.id").Desc()).
		Prepared(true)
	if filter.UserID != "" {
		ds = ds.Where(goqu.I("l.user_id").Eq(filter.UserID))
	}

	query, args, err := a.build(ds)
	if err != nil {
		return nil, err
	}

	var rows []loanSQLRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}

	loans := make([]domain.LoanDetail, 0, len(rows))
	for _, row := range rows {
		loan, err := row.loanRow.toDomain()
		if err != nil {
			return nil, err
		}
		loans = append(loans, domain.LoanDetail{
			Loan:     loan,
			BookName: row.BookName,
			Author:   row.Author,
			Genre:    row.Genre,
			Username: row.Username,
			Email:    row.Email,
		})
	}
	return loans, nil
}

func (a *SQLAdapter) InsertUser(ctx context.Context, user domain.User) (domain.User, error) {
	ds := a.qb.Insert(tableUsers).Rows(goqu.Record{
		"id":         user.ID,
		"email":      user.Email,
		"username":   user.Username,
		"admin":      user.Admin,
		"created_at": a.timeValue(user.CreatedAt),
	}).Prepared(true)
	if err := a.exec(ctx, ds); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (a *SQLAdapter) GetUser(ctx context.Context, id string) (*domain.User, error) {
	query, args, err := a.build(a.qb.From(tableUsers).
		Select("id", "email", "username", "admin", "created_at").
		Where(goqu.C("id").Eq(id)).
		Prepared(true))
	if err != nil {
		return nil, err
	}

	var row userRow
	err = a.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	user, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *SQLAdapter) CheckTable(ctx context.Context, table string) error {
	query, args, err := a.build(a.qb.From(table).Select(goqu.L("1")).Limit(1).Prepared(true))
	if err != nil {
		return err
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("table %s: %w", table, err)
	}
	return rows.Close()
}
