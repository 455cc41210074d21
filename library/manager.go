package library

import "context"

// LibraryManager is a thin façade over the Database, its record stores and the checkout coordinator,
// keeping CLI and HTTP code simple.
type LibraryManager struct {
	db          *Database
	books       *BookStore
	borrowers   *Store[Borrower, BorrowerFields]
	checkouts   *Store[Checkout, CheckoutFields]
	circulation *Coordinator
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath. Call Provision before first use.
func NewLibraryManager(dbPath string, opts ...Option) (*LibraryManager, error) {
	db, err := NewDatabase(dbPath, opts...)
	if err != nil {
		return nil, err
	}

	checkouts := newCheckoutStore(db)
	return &LibraryManager{
		db:          db,
		books:       newBookStore(db),
		borrowers:   newBorrowerStore(db),
		checkouts:   checkouts,
		circulation: newCoordinator(db, checkouts),
	}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// Provision creates the schema if needed.
func (lm *LibraryManager) Provision(ctx context.Context) error { return lm.db.Provision(ctx) }

// ------------------ Record stores ------------------

func (lm *LibraryManager) Books() *BookStore                           { return lm.books }
func (lm *LibraryManager) Borrowers() *Store[Borrower, BorrowerFields] { return lm.borrowers }

// Checkouts is the checkout store. Inserting an open checkout claims its book like CheckOut, and
// deleting an open checkout releases it like RemoveCheckout.
func (lm *LibraryManager) Checkouts() *Store[Checkout, CheckoutFields] { return lm.checkouts }

// ------------------ Circulation ------------------

func (lm *LibraryManager) CheckOut(ctx context.Context, bookID, borrowerID int64, checkoutDate, dueDate string) (int64, error) {
	return lm.circulation.CheckOut(ctx, bookID, borrowerID, checkoutDate, dueDate)
}

func (lm *LibraryManager) ReturnBook(ctx context.Context, checkoutID int64, returnDate string) error {
	return lm.circulation.ReturnBook(ctx, checkoutID, returnDate)
}

func (lm *LibraryManager) RemoveCheckout(ctx context.Context, checkoutID int64) (bool, error) {
	return lm.circulation.RemoveCheckout(ctx, checkoutID)
}

func (lm *LibraryManager) Overdue(ctx context.Context, asOf string) ([]Checkout, error) {
	return lm.circulation.Overdue(ctx, asOf)
}
