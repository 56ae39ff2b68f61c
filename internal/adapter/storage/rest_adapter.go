package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rl1809/librarian/internal/core/domain"
)

const (
	selectCatalog = "id,book_id,quantity,books(id,created_at,name,author,genre,publication_date)"
	selectLoans   = "id,book_id,user_id,quantity,status,start_date,end_date,books(name,author,genre),users(username,email)"
	selectUser    = "id,username,email,admin,created_at"
)

// RestAdapter talks to the tables of the hosted backend through its REST interface.
type RestAdapter struct {
	client restClient
}

func NewRestAdapter(baseURL, apiKey string, opts ...RestOption) *RestAdapter {
	return &RestAdapter{client: newRestClient(baseURL, apiKey, opts...)}
}

type catalogRestRow struct {
	libraryRow
	Books *bookRow `json:"books"`
}

func (r catalogRestRow) toDomain() (domain.CatalogEntry, error) {
	entry := domain.CatalogEntry{InventoryEntry: r.libraryRow.toDomain()}
	if r.Books == nil {
		return entry, nil
	}
	book, err := r.Books.toDomain()
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	if book.ID == 0 {
		book.ID = r.BookID
	}
	entry.Book = book
	return entry, nil
}

type loanRestRow struct {
	loanRow
	Books *struct {
		Name   string `json:"name"`
		Author string `json:"author"`
		Genre  string `json:"genre"`
	} `json:"books"`
	Users *struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"users"`
}

func (a *RestAdapter) table(name string) string {
	return restPathPrefix + name
}

func (a *RestAdapter) ListCatalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	return a.catalog(ctx, url.Values{
		"select": {selectCatalog},
		"order":  {"id.asc"},
	})
}

func (a *RestAdapter) GetCatalogEntry(ctx context.Context, inventoryID int64) (*domain.CatalogEntry, error) {
	entries, err := a.catalog(ctx, url.Values{
		"select": {selectCatalog},
		"id":     {eq(inventoryID)},
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (a *RestAdapter) catalog(ctx context.Context, query url.Values) ([]domain.CatalogEntry, error) {
	var rows []catalogRestRow
	err := a.client.do(ctx, restRequest{method: http.MethodGet, path: a.table(tableLibrary), query: query}, &rows)
	if err != nil {
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

func (a *RestAdapter) InsertBook(ctx context.Context, book domain.Book) (domain.Book, error) {
	row := bookRow{
		Name:            book.Name,
		Author:          book.Author,
		Genre:           book.Genre,
		PublicationDate: domain.FormatDate(book.PublicationDate),
	}
	if !book.CreatedAt.IsZero() {
		row.CreatedAt = book.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	var inserted []bookRow
	err := a.client.do(ctx, restRequest{
		method: http.MethodPost,
		path:   a.table(tableBooks),
		body:   row,
		prefer: preferReturnRepresentation,
	}, &inserted)
	if err != nil {
		return domain.Book{}, fmt.Errorf("insert book: %w", err)
	}
	if len(inserted) == 0 {
		return domain.Book{}, fmt.Errorf("insert book: empty representation")
	}
	return inserted[0].toDomain()
}

func (a *RestAdapter) UpdateBook(ctx context.Context, bookID int64, patch domain.BookPatch) error {
	fields := bookPatchFields(patch)
	if len(fields) == 0 {
		return nil
	}

	err := a.client.do(ctx, restRequest{
		method: http.MethodPatch,
		path:   a.table(tableBooks),
		query:  url.Values{"id": {eq(bookID)}},
		body:   fields,
		prefer: preferReturnMinimal,
	}, nil)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

func (a *RestAdapter) InsertInventory(ctx context.Context, bookID int64, quantity int) (domain.InventoryEntry, error) {
	var inserted []libraryRow
	err := a.client.do(ctx, restRequest{
		method: http.MethodPost,
		path:   a.table(tableLibrary),
		body:   libraryRow{BookID: bookID, Quantity: quantity},
		prefer: preferReturnRepresentation,
	}, &inserted)
	if err != nil {
		return domain.InventoryEntry{}, fmt.Errorf("insert inventory: %w", err)
	}
	if len(inserted) == 0 {
		return domain.InventoryEntry{}, fmt.Errorf("insert inventory: empty representation")
	}
	return inserted[0].toDomain(), nil
}

func (a *RestAdapter) GetInventory(ctx context.Context, bookID int64) (*domain.InventoryEntry, error) {
	var rows []libraryRow
	err := a.client.do(ctx, restRequest{
		method: http.MethodGet,
		path:   a.table(tableLibrary),
		query: url.Values{
			"select":  {"id,book_id,quantity"},
			"book_id": {eq(bookID)},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	inv := rows[0].toDomain()
	return &inv, nil
}

func (a *RestAdapter) SetInventoryQuantity(ctx context.Context, bookID int64, quantity int) error {
	err := a.client.do(ctx, restRequest{
		method: http.MethodPatch,
		path:   a.table(tableLibrary),
		query:  url.Values{"book_id": {eq(bookID)}},
		body:   map[string]int{"quantity": quantity},
		prefer: preferReturnMinimal,
	}, nil)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	return nil
}

func (a *RestAdapter) InsertLoan(ctx context.Context, loan domain.Loan) (domain.Loan, error) {
	var inserted []loanRow
	err := a.client.do(ctx, restRequest{
		method: http.MethodPost,
		path:   a.table(tableLoans),
		body:   newLoanRow(loan),
		prefer: preferReturnRepresentation,
	}, &inserted)
	if err != nil {
		return domain.Loan{}, fmt.Errorf("insert loan: %w", err)
	}
	if len(inserted) == 0 {
		return domain.Loan{}, fmt.Errorf("insert loan: empty representation")
	}
	return inserted[0].toDomain()
}

func (a *RestAdapter) ListLoans(ctx context.Context, filter domain.LoanFilter) ([]domain.LoanDetail, error) {
	query := url.Values{
		"select": {selectLoans},
		"order":  {"start_date.desc,id.desc"},
	}
	if filter.UserID != "" {
		query.Set("user_id", eq(filter.UserID))
	}

	var rows []loanRestRow
	if err := a.client.do(ctx, restRequest{method: http.MethodGet, path: a.table(tableLoans), query: query}, &rows); err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}

	loans := make([]domain.LoanDetail, 0, len(rows))
	for _, row := range rows {
		loan, err := row.loanRow.toDomain()
		if err != nil {
			return nil, err
		}
		detail := domain.LoanDetail{Loan: loan}
		if row.Books != nil {
			detail.BookName = row.Books.Name
			detail.Author = row.Books.Author
			detail.Genre = row.Books.Genre
		}
		if row.Users != nil {
			detail.Username = row.Users.Username
			detail.Email = row.Users.Email
		}
		loans = append(loans, detail)
	}
	return loans, nil
}

func (a *RestAdapter) InsertUser(ctx context.Context, user domain.User) (domain.User, error) {
	var inserted []userRow
	err := a.client.do(ctx, restRequest{
		method: http.MethodPost,
		path:   a.table(tableUsers),
		query:  url.Values{"select": {selectUser}},
		body:   newUserRow(user),
		prefer: preferReturnRepresentation,
	}, &inserted)
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if len(inserted) == 0 {
		return domain.User{}, fmt.Errorf("insert user: empty representation")
	}
	return inserted[0].toDomain()
}

func (a *RestAdapter) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var rows []userRow
	err := a.client.do(ctx, restRequest{
		method: http.MethodGet,
		path:   a.table(tableUsers),
		query:  url.Values{"select": {selectUser}, "id": {eq(id)}},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	user, err := rows[0].toDomain()
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *RestAdapter) CheckTable(ctx context.Context, table string) error {
	var rows []map[string]any
	err := a.client.do(ctx, restRequest{
		method: http.MethodGet,
		path:   a.table(table),
		query:  url.Values{"select": {"*"}, "limit": {"1"}},
	}, &rows)
	if err != nil {
		return fmt.Errorf("table %s: %w", table, err)
	}
	return nil
}

// bookPatchFields keys the set fields of a patch by column name.
func bookPatchFields(p domain.BookPatch) map[string]any {
	fields := make(map[string]any)
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Author != nil {
		fields["author"] = *p.Author
	}
	if p.Genre != nil {
		fields["genre"] = *p.Genre
	}
	if p.PublicationDate != nil {
		fields["publication_date"] = domain.FormatDate(*p.PublicationDate)
	}
	return fields
}
