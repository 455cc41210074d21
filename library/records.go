package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

// insertable is implemented by the insert payloads of every entity kind.
type insertable interface {
	row() goqu.Record
}

// Store is the CRUD surface of one entity kind: R is the stored record, F the insert payload.
type Store[R any, F insertable] struct {
	db      *Database
	table   string
	columns []any

	// beforeInsert and beforeDelete run inside the insert and delete transactions.
	beforeInsert func(ctx context.Context, tx *sqlx.Tx, fields F) error
	beforeDelete func(ctx context.Context, tx *sqlx.Tx, id int64) error
	// onUnique rewrites a unique violation raised by the insert itself.
	onUnique func(fields F, err error) error
	// refColumn is the checkouts column pointing at this entity; checked by strict deletes.
	refColumn string
}

// BookStore adds search to the book store.
type BookStore struct {
	*Store[Book, BookFields]
}

var (
	bookColumns = []any{
		colID, colTitle, colAuthor,
		coalesce(colGenre), coalesce(colPublicationDate), coalesce(colISBN),
		colAvailable,
	}
	borrowerColumns = []any{
		colID, colName, colEmail, coalesce(colPhone), coalesce(colAddress),
	}
	checkoutColumns = []any{
		colID, colBookID, colBorrowerID, colCheckoutDate, colDueDate, colReturnDate,
	}
)

func coalesce(col string) exp.AliasedExpression {
	return goqu.COALESCE(goqu.C(col), "").As(col)
}

func newBookStore(db *Database) *BookStore {
	return &BookStore{Store: &Store[Book, BookFields]{
		db:        db,
		table:     tableBooks,
		columns:   bookColumns,
		refColumn: colBookID,
	}}
}

func newBorrowerStore(db *Database) *Store[Borrower, BorrowerFields] {
	return &Store[Borrower, BorrowerFields]{
		db:        db,
		table:     tableBorrowers,
		columns:   borrowerColumns,
		refColumn: colBorrowerID,
	}
}

// Insert validates the required fields, persists the record and returns its new id.
func (s *Store[R, F]) Insert(ctx context.Context, fields F) (int64, error) {
	if err := validateFields(fields); err != nil {
		return 0, err
	}

	var id int64
	err := s.db.withTx(ctx, "insert "+s.table, func(tx *sqlx.Tx) error {
		var err error
		id, err = s.insertTx(ctx, tx, fields)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.db.logInfo(logMsgRecordInserted, logAttrTable, s.table, logAttrID, id)
	return id, nil
}

func (s *Store[R, F]) insertTx(ctx context.Context, tx *sqlx.Tx, fields F) (int64, error) {
	if s.beforeInsert != nil {
		if err := s.beforeInsert(ctx, tx, fields); err != nil {
			return 0, err
		}
	}

	id, err := s.db.insert(ctx, tx, s.table, fields.row())
	if s.onUnique != nil && errors.Is(err, ErrUniqueConstraint) {
		return 0, s.onUnique(fields, err)
	}
	return id, err
}

// DeleteByID removes the record with that id and reports whether a row was removed.
// It never cascades. Dangling references from checkouts are allowed unless strict references are on.
func (s *Store[R, F]) DeleteByID(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := s.db.withTx(ctx, "delete "+s.table, func(tx *sqlx.Tx) error {
		if s.db.strictRefs && s.refColumn != "" {
			referenced, err := s.db.exists(ctx, tx, tableCheckouts, goqu.C(s.refColumn).Eq(id))
			if err != nil {
				return err
			}
			if referenced {
				return fmt.Errorf("%w: %s %d is referenced by a checkout", ErrReference, strings.TrimSuffix(s.table, "s"), id)
			}
		}

		if s.beforeDelete != nil {
			if err := s.beforeDelete(ctx, tx, id); err != nil {
				return err
			}
		}

		n, err := s.db.execAffected(ctx, tx, "delete "+s.table, s.db.deleteFrom(s.table).Where(goqu.C(colID).Eq(id)))
		if err != nil {
			return err
		}
		removed = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	if removed {
		s.db.logInfo(logMsgRecordDeleted, logAttrTable, s.table, logAttrID, id)
	}
	return removed, nil
}

// List returns every record in ascending id order. Each call is a fresh snapshot.
func (s *Store[R, F]) List(ctx context.Context) ([]R, error) {
	return s.query(ctx, "list "+s.table)
}

// Get returns the record with that id or ErrNotFound.
func (s *Store[R, F]) Get(ctx context.Context, id int64) (R, error) {
	var rec R
	op := "get " + s.table
	err := s.db.withConn(ctx, op, func(conn *sqlx.Conn) error {
		return s.db.selectOne(ctx, conn, &rec, op, s.selectDataset().Where(goqu.C(colID).Eq(id)))
	})
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("%w: %s %d", ErrNotFound, strings.TrimSuffix(s.table, "s"), id)
	}
	return rec, err
}

func (s *Store[R, F]) selectDataset() *goqu.SelectDataset {
	return s.db.from(s.table).Select(s.columns...).Order(goqu.C(colID).Asc())
}

func (s *Store[R, F]) query(ctx context.Context, op string, where ...exp.Expression) ([]R, error) {
	records := make([]R, 0)
	err := s.db.withConn(ctx, op, func(conn *sqlx.Conn) error {
		return s.db.selectAll(ctx, conn, &records, op, s.selectDataset().Where(where...))
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Search returns every book whose title or author contains term, ignoring case.
// An empty term matches every book.
func (s *BookStore) Search(ctx context.Context, term string) ([]Book, error) {
	if term == "" {
		return s.query(ctx, "search books")
	}

	needle := goqu.Func(sqlFuncCasefold, term)
	match := goqu.Or(
		goqu.Func("instr", goqu.Func(sqlFuncCasefold, goqu.C(colTitle)), needle).Gt(0),
		goqu.Func("instr", goqu.Func(sqlFuncCasefold, goqu.C(colAuthor)), needle).Gt(0),
	)
	return s.query(ctx, "search books", match)
}
