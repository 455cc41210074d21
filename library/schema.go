package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

const (
	tableMeta      = "meta"
	tableBooks     = "books"
	tableBorrowers = "borrowers"
	tableCheckouts = "checkouts"

	colID              = "id"
	colTitle           = "title"
	colAuthor          = "author"
	colGenre           = "genre"
	colPublicationDate = "publication_date"
	colISBN            = "isbn"
	colAvailable       = "available"
	colName            = "name"
	colEmail           = "email"
	colPhone           = "phone"
	colAddress         = "address"
	colBookID          = "book_id"
	colBorrowerID      = "borrower_id"
	colCheckoutDate    = "checkout_date"
	colDueDate         = "due_date"
	colReturnDate      = "return_date"
	colKey             = "key"
	colValue           = "value"

	metaSchemaVersion = "schema_version"
)

const schemaVersion = 1

// schemaStatements only ever create. AUTOINCREMENT keeps ids unique for the lifetime of the file,
// even after deletes. Foreign keys are declared for documentation; enforcement is off.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS books (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        title TEXT NOT NULL,
        author TEXT NOT NULL,
        genre TEXT,
        publication_date TEXT,
        isbn TEXT,
        available BOOLEAN NOT NULL DEFAULT 1
    );`,
	`CREATE TABLE IF NOT EXISTS borrowers (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL,
        email TEXT NOT NULL UNIQUE,
        phone TEXT,
        address TEXT
    );`,
	`CREATE TABLE IF NOT EXISTS checkouts (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        book_id INTEGER NOT NULL REFERENCES books(id),
        borrower_id INTEGER NOT NULL REFERENCES borrowers(id),
        checkout_date TEXT NOT NULL,
        due_date TEXT NOT NULL,
        return_date TEXT
    );`,
	// At most one open checkout per book.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_checkouts_open_book ON checkouts(book_id) WHERE return_date IS NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_checkouts_borrower ON checkouts(borrower_id);`,
}

// Provision creates the books, borrowers and checkouts tables if they are missing. It is safe to
// call on every start and never drops or alters existing data.
func (d *Database) Provision(ctx context.Context) error {
	const op = "provision schema"

	return d.withTx(ctx, op, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
			return d.storageErr(op, err)
		}

		var current int
		err := d.selectOne(ctx, tx, &current, op,
			d.from(tableMeta).Select(goqu.Cast(goqu.C(colValue), "INTEGER")).Where(goqu.C(colKey).Eq(metaSchemaVersion)))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if current >= schemaVersion {
			return nil
		}

		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return d.storageErr(op, fmt.Errorf("apply migration: %w", err))
			}
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key,value) VALUES(?,?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, metaSchemaVersion, schemaVersion); err != nil {
			return d.storageErr(op, err)
		}

		d.logInfo(logMsgSchemaProvisioned, logAttrSchemaVersion, schemaVersion)
		return nil
	})
}
