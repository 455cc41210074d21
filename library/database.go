package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

const (
	driverName     = "sqlite3_library"
	dialectSQLite3 = "sqlite3"

	// casefold is registered on every connection so search folds case beyond ASCII.
	sqlFuncCasefold = "casefold"

	logMsgSQLExecuted       = "executed sql"
	logMsgStorageFailed     = "storage operation failed"
	logMsgBookCheckedOut    = "book checked out"
	logMsgBookReturned      = "book returned"
	logMsgCheckoutRemoved   = "checkout removed"
	logMsgBookUnavailable   = "checkout rejected, book unavailable"
	logMsgRecordInserted    = "record inserted"
	logMsgRecordDeleted     = "record deleted"
	logMsgSchemaProvisioned = "schema provisioned"
	logAttrError            = "error"
	logAttrQuery            = "query"
	logAttrDurationMS       = "duration_ms"
	logAttrOperation        = "operation"
	logAttrTable            = "table"
	logAttrID               = "id"
	logAttrBookID           = "book_id"
	logAttrBorrowerID       = "borrower_id"
	logAttrCheckoutID       = "checkout_id"
	logAttrSchemaVersion    = "schema_version"
)

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(sqlFuncCasefold, strings.ToLower, true)
		},
	})
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// Logger receives SQL timings at debug level, mutations at info level and storage failures at error level.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the logger used for SQL and mutation logging.
func WithLogger(logger Logger) Option {
	return func(d *Database) { d.logger = logger }
}

// WithStrictReferences makes deleting a book or borrower that is still referenced by a checkout
// fail with ErrReference instead of leaving a dangling reference.
func WithStrictReferences() Option {
	return func(d *Database) { d.strictRefs = true }
}

// Database provides high-level helpers around a SQLite connection pool.
// Every public operation checks out its own connection and releases it before returning.
type Database struct {
	db         *sqlx.DB
	dialect    goqu.DialectWrapper
	logger     Logger
	strictRefs bool
}

// queryer is satisfied by both *sqlx.Conn and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

// NewDatabase opens (or creates) the SQLite database at dbPath. The schema is not touched until Provision.
func NewDatabase(dbPath string, opts ...Option) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Join(ErrStorageUnavailable, fmt.Errorf("create db dir: %w", err))
		}
	}

	// Immediate transactions take the write lock at BEGIN, so concurrent checkouts queue on busy_timeout
	// instead of failing on lock upgrade. Foreign keys stay off: deletes never cascade or fail on references.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=0&_journal_mode=WAL&_txlock=immediate", dbPath)
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrStorageUnavailable, fmt.Errorf("open sqlite: %w", err))
	}

	d := &Database{
		db:      db,
		dialect: goqu.Dialect(dialectSQLite3),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Close closes the connection pool.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Connection and transaction scopes
// ---------------------------------------------------------------------------

func (d *Database) withConn(ctx context.Context, op string, fn func(conn *sqlx.Conn) error) error {
	conn, err := d.db.Connx(ctx)
	if err != nil {
		return d.storageErr(op, err)
	}
	defer conn.Close()

	return fn(conn)
}

// withTx runs fn in one transaction on a dedicated connection. fn returns already classified errors.
func (d *Database) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	return d.withConn(ctx, op, func(conn *sqlx.Conn) error {
		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return d.storageErr(op, err)
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return d.storageErr(op, err)
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Query helpers
// ---------------------------------------------------------------------------

func (d *Database) from(table string) *goqu.SelectDataset {
	return d.dialect.From(table).Prepared(true)
}

func (d *Database) insertInto(table string) *goqu.InsertDataset {
	return d.dialect.Insert(table).Prepared(true)
}

func (d *Database) update(table string) *goqu.UpdateDataset {
	return d.dialect.Update(table).Prepared(true)
}

func (d *Database) deleteFrom(table string) *goqu.DeleteDataset {
	return d.dialect.Delete(table).Prepared(true)
}

func (d *Database) selectAll(ctx context.Context, q queryer, dest any, op string, ds sqlBuilder) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("build %s query: %w", op, err)
	}

	start := time.Now()
	err = sqlx.SelectContext(ctx, q, dest, query, args...)
	d.logQuery(query, time.Since(start))
	if err != nil {
		return d.classify(op, err)
	}
	return nil
}

// selectOne returns sql.ErrNoRows unwrapped so callers can map it to their own error.
func (d *Database) selectOne(ctx context.Context, q queryer, dest any, op string, ds sqlBuilder) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("build %s query: %w", op, err)
	}

	start := time.Now()
	err = sqlx.GetContext(ctx, q, dest, query, args...)
	d.logQuery(query, time.Since(start))
	if errors.Is(err, sql.ErrNoRows) {
		return sql.ErrNoRows
	}
	if err != nil {
		return d.classify(op, err)
	}
	return nil
}

func (d *Database) exec(ctx context.Context, q queryer, op string, ds sqlBuilder) (sql.Result, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s statement: %w", op, err)
	}

	start := time.Now()
	res, err := q.ExecContext(ctx, query, args...)
	d.logQuery(query, time.Since(start))
	if err != nil {
		return nil, d.classify(op, err)
	}
	return res, nil
}

// execAffected runs a statement and reports how many rows it touched.
func (d *Database) execAffected(ctx context.Context, q queryer, op string, ds sqlBuilder) (int64, error) {
	res, err := d.exec(ctx, q, op, ds)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, d.storageErr(op, err)
	}
	return n, nil
}

func (d *Database) insert(ctx context.Context, q queryer, table string, row any) (int64, error) {
	op := "insert " + table
	res, err := d.exec(ctx, q, op, d.insertInto(table).Rows(row))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, d.storageErr(op, err)
	}
	return id, nil
}

func (d *Database) exists(ctx context.Context, q queryer, table string, where ...exp.Expression) (bool, error) {
	var n int64
	ds := d.from(table).Select(goqu.COUNT(goqu.Star())).Where(where...)
	if err := d.selectOne(ctx, q, &n, "count "+table, ds); err != nil {
		return false, err
	}
	return n > 0, nil
}

// requireReferences fails with ErrReference if the book or borrower does not exist.
func (d *Database) requireReferences(ctx context.Context, q queryer, bookID, borrowerID int64) error {
	ok, err := d.exists(ctx, q, tableBooks, goqu.C(colID).Eq(bookID))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: book %d does not exist", ErrReference, bookID)
	}

	ok, err = d.exists(ctx, q, tableBorrowers, goqu.C(colID).Eq(borrowerID))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: borrower %d does not exist", ErrReference, borrowerID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Error classification and logging
// ---------------------------------------------------------------------------

// classify maps driver errors onto the error taxonomy. Anything that is not a constraint
// violation is an I/O level failure.
func (d *Database) classify(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %s", ErrUniqueConstraint, sqliteErr.Error())
	}
	return d.storageErr(op, err)
}

func (d *Database) storageErr(op string, err error) error {
	if d.logger != nil {
		d.logger.Error(logMsgStorageFailed, logAttrOperation, op, logAttrError, err.Error())
	}
	return errors.Join(ErrStorageUnavailable, fmt.Errorf("%s: %w", op, err))
}

func (d *Database) logQuery(query string, duration time.Duration) {
	if d.logger != nil {
		d.logger.Debug(logMsgSQLExecuted, logAttrQuery, query, logAttrDurationMS, durationToMilliseconds(duration))
	}
}

func (d *Database) logInfo(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func durationToMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
