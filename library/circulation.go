package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

// Coordinator keeps Book.available consistent with open checkouts. Persistence of checkout rows
// goes through the checkout store, whose hooks claim and release the book in the same transaction.
//
// Per book: Available --CheckOut--> CheckedOut --ReturnBook / RemoveCheckout(open)--> Available.
type Coordinator struct {
	db        *Database
	checkouts *Store[Checkout, CheckoutFields]
}

func newCoordinator(db *Database, checkouts *Store[Checkout, CheckoutFields]) *Coordinator {
	return &Coordinator{db: db, checkouts: checkouts}
}

// newCheckoutStore builds the checkout store. Inserting an open checkout claims its book and deleting
// one releases it, so direct store calls keep the available flag in step too.
func newCheckoutStore(db *Database) *Store[Checkout, CheckoutFields] {
	return &Store[Checkout, CheckoutFields]{
		db:      db,
		table:   tableCheckouts,
		columns: checkoutColumns,
		beforeInsert: func(ctx context.Context, tx *sqlx.Tx, f CheckoutFields) error {
			if err := db.requireReferences(ctx, tx, f.BookID, f.BorrowerID); err != nil {
				return err
			}
			if !f.open() {
				return nil
			}
			return db.claimBook(ctx, tx, f.BookID)
		},
		beforeDelete: func(ctx context.Context, tx *sqlx.Tx, id int64) error {
			const op = "delete checkouts"

			var co Checkout
			err := db.loadCheckout(ctx, tx, op, id, &co)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if co.Open() {
				return db.restoreBook(ctx, tx, op, co.BookID)
			}
			return nil
		},
		onUnique: func(f CheckoutFields, _ error) error {
			// An open checkout row exists even though the flag said available.
			return fmt.Errorf("%w: book %d has an open checkout", ErrBookUnavailable, f.BookID)
		},
	}
}

// CheckOut records an open checkout and marks the book unavailable in one transaction.
// The availability flip is a compare-and-swap on available = 1, so of several concurrent
// checkouts of one book exactly one succeeds and the rest get ErrBookUnavailable.
func (c *Coordinator) CheckOut(ctx context.Context, bookID, borrowerID int64, checkoutDate, dueDate string) (int64, error) {
	checkoutID, err := c.checkouts.Insert(ctx, CheckoutFields{
		BookID:       bookID,
		BorrowerID:   borrowerID,
		CheckoutDate: checkoutDate,
		DueDate:      dueDate,
	})
	if errors.Is(err, ErrBookUnavailable) {
		c.db.logInfo(logMsgBookUnavailable, logAttrBookID, bookID, logAttrBorrowerID, borrowerID)
	}
	if err != nil {
		return 0, err
	}

	c.db.logInfo(logMsgBookCheckedOut,
		logAttrCheckoutID, checkoutID,
		logAttrBookID, bookID,
		logAttrBorrowerID, borrowerID)

	return checkoutID, nil
}

// ReturnBook closes an open checkout and makes its book available again, atomically.
// A checkout can be closed exactly once; unknown or already returned ids give ErrNotFound.
func (c *Coordinator) ReturnBook(ctx context.Context, checkoutID int64, returnDate string) error {
	const op = "return book"

	if err := requireText(colReturnDate, returnDate); err != nil {
		return err
	}

	var co Checkout
	err := c.db.withTx(ctx, op, func(tx *sqlx.Tx) error {
		if err := c.db.loadCheckout(ctx, tx, op, checkoutID, &co); err != nil {
			return err
		}
		if !co.Open() {
			return fmt.Errorf("%w: checkout %d was already returned", ErrNotFound, checkoutID)
		}

		closed, err := c.db.execAffected(ctx, tx, op, c.db.update(tableCheckouts).
			Set(goqu.Record{colReturnDate: returnDate}).
			Where(goqu.C(colID).Eq(checkoutID), goqu.C(colReturnDate).IsNull()))
		if err != nil {
			return err
		}
		if closed == 0 {
			return fmt.Errorf("%w: checkout %d was already returned", ErrNotFound, checkoutID)
		}

		return c.db.restoreBook(ctx, tx, op, co.BookID)
	})
	if err != nil {
		return err
	}

	c.db.logInfo(logMsgBookReturned, logAttrCheckoutID, checkoutID, logAttrBookID, co.BookID)
	return nil
}

// RemoveCheckout deletes a checkout record. If it was still open, the book it held is made
// available again, since nothing justifies available = false any more.
func (c *Coordinator) RemoveCheckout(ctx context.Context, checkoutID int64) (bool, error) {
	removed, err := c.checkouts.DeleteByID(ctx, checkoutID)
	if err != nil {
		return false, err
	}
	if removed {
		c.db.logInfo(logMsgCheckoutRemoved, logAttrCheckoutID, checkoutID)
	}
	return removed, nil
}

// Overdue lists open checkouts due before asOf (YYYY-MM-DD, compared as text), ascending by id.
func (c *Coordinator) Overdue(ctx context.Context, asOf string) ([]Checkout, error) {
	if err := requireText("as_of", asOf); err != nil {
		return nil, err
	}
	return c.checkouts.query(ctx, "list overdue checkouts",
		goqu.C(colReturnDate).IsNull(),
		goqu.C(colDueDate).Lt(asOf))
}

// claimBook flips available from true to false, failing with ErrBookUnavailable if it already was false.
func (d *Database) claimBook(ctx context.Context, tx *sqlx.Tx, bookID int64) error {
	flipped, err := d.execAffected(ctx, tx, "claim book", d.update(tableBooks).
		Set(goqu.Record{colAvailable: 0}).
		Where(goqu.C(colID).Eq(bookID), goqu.C(colAvailable).Eq(1)))
	if err != nil {
		return err
	}
	if flipped == 0 {
		return fmt.Errorf("%w: book %d is already checked out", ErrBookUnavailable, bookID)
	}
	return nil
}

func (d *Database) loadCheckout(ctx context.Context, tx *sqlx.Tx, op string, checkoutID int64, co *Checkout) error {
	err := d.selectOne(ctx, tx, co, op,
		d.from(tableCheckouts).Select(checkoutColumns...).Where(goqu.C(colID).Eq(checkoutID)))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: checkout %d", ErrNotFound, checkoutID)
	}
	return err
}

// restoreBook sets available back to true. A book deleted while checked out simply matches no row.
func (d *Database) restoreBook(ctx context.Context, tx *sqlx.Tx, op string, bookID int64) error {
	_, err := d.exec(ctx, tx, op, d.update(tableBooks).
		Set(goqu.Record{colAvailable: 1}).
		Where(goqu.C(colID).Eq(bookID)))
	return err
}
