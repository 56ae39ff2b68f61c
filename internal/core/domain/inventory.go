package domain

// InventoryEntry is a row of the library table: how many copies of a book are on hand.
type InventoryEntry struct {
	ID       int64
	BookID   int64
	Quantity int
}

// CatalogEntry is an inventory entry flattened with the book it counts.
type CatalogEntry struct {
	InventoryEntry
	Book Book
}
