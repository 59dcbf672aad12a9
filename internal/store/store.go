package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"iter"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/roach88/reorder/internal/ir"
	"github.com/roach88/reorder/internal/queryir"
	"github.com/roach88/reorder/internal/querysql"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added (scope, order_key) indexes
const currentSchemaVersion = 1

// Driver names accepted by WithDriver.
const (
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3 (cgo)
	DriverModernc = "sqlite"  // modernc.org/sqlite (pure Go)
)

// Store is the SQLite RecordStore.
// Uses WAL mode so readers are not blocked by the single writer.
type Store struct {
	db       *sql.DB
	driver   string
	compiler *querysql.SQLCompiler
	reader
}

var (
	_ RecordStore = (*Store)(nil)
	_ Loader      = (*Store)(nil)
	_ Tx          = (*sqlTx)(nil)
)

// Option configures Open.
type Option func(*Store)

// WithDriver selects the database/sql driver. Defaults to DriverMattn.
func WithDriver(name string) Option {
	return func(s *Store) {
		s.driver = name
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Open is idempotent on an existing database.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{driver: DriverMattn, compiler: querysql.NewSQLCompiler()}
	for _, opt := range opts {
		opt(s)
	}
	if s.driver != DriverMattn && s.driver != DriverModernc {
		return nil, fmt.Errorf("unsupported sqlite driver %q", s.driver)
	}

	db, err := sql.Open(s.driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time. With a single connection a
	// Scan on the Store must finish before Begin can proceed.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s.db = db
	s.reader = reader{q: db, compiler: s.compiler}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver reports the driver the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// Begin opens a transaction. The caller must Commit or Rollback it.
func (s *Store) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &sqlTx{
		tx:     tx,
		reader: reader{q: tx, compiler: s.compiler},
	}, nil
}

// Insert adds a row and returns its id.
func (s *Store) Insert(ctx context.Context, table string, row ir.IRObject) (int64, error) {
	query, args, err := s.compiler.CompileInsert(table, row)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert into %s: last insert id: %w", table, err)
	}
	return id, nil
}

// sqlTx is a Tx over a database/sql transaction.
type sqlTx struct {
	tx *sql.Tx
	reader
}

func (t *sqlTx) Update(ctx context.Context, table string, id int64, column string, value ir.IRValue) error {
	query, args, err := t.compiler.CompileUpdate(table, id, column, value)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s id=%d: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s id=%d: rows affected: %w", table, id, err)
	}
	if n == 0 {
		return fmt.Errorf("update %s id=%d: %w", table, id, ErrNotFound)
	}
	return nil
}

func (t *sqlTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *sqlTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// querier is the subset of *sql.DB and *sql.Tx the reader needs.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// reader implements Reader for both the store and its transactions.
type reader struct {
	q        querier
	compiler *querysql.SQLCompiler
}

func (r reader) FindOne(ctx context.Context, q queryir.Select) (ir.IRObject, bool, error) {
	q.OrderBy = nil
	return First(ctx, r, q)
}

func (r reader) FindFirst(ctx context.Context, q queryir.Select) (ir.IRObject, bool, error) {
	return First(ctx, r, q)
}

func (r reader) Scan(ctx context.Context, q queryir.Select) iter.Seq2[ir.IRObject, error] {
	return func(yield func(ir.IRObject, error) bool) {
		query, args, err := r.compiler.Compile(q)
		if err != nil {
			yield(nil, fmt.Errorf("scan %s: %w", q.From, err))
			return
		}

		rows, err := r.q.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("scan %s: %w", q.From, err))
			return
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			yield(nil, fmt.Errorf("scan %s: columns: %w", q.From, err))
			return
		}

		for rows.Next() {
			row, err := scanRow(rows, cols)
			if err != nil {
				yield(nil, fmt.Errorf("scan %s: %w", q.From, err))
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("scan %s: %w", q.From, err))
		}
	}
}

// scanRow converts the current row to an IRObject keyed by column name.
func scanRow(rows *sql.Rows, cols []string) (ir.IRObject, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	obj := make(ir.IRObject, len(cols))
	for i, col := range cols {
		v, err := columnValue(values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		obj[col] = v
	}
	return obj, nil
}

func columnValue(v any) (ir.IRValue, error) {
	switch val := v.(type) {
	case nil:
		return ir.IRNull{}, nil
	case int64:
		return ir.IRInt(val), nil
	case string:
		return ir.IRString(val), nil
	case []byte:
		return ir.IRString(string(val)), nil
	case bool:
		return ir.IRBool(val), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", v)
	}
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// scopedIndexes are the v1 composite indexes serving neighbour lookups.
var scopedIndexes = []struct {
	name, table, columns string
}{
	{"idx_navigation_scope_order", "navigation", "parent_id, order_key"},
	{"idx_department_scope_order", "department", "parent_id, order_key"},
	{"idx_menu_scope_order", "menu", "parent_id, order_key"},
	{"idx_notice_order", "notice", "order_key"},
	{"idx_notice_pin_order", "notice", "pin_order"},
	{"idx_todo_list_order", "todo", "list_id, order_key"},
	{"idx_todo_owner_order", "todo", "owner_id, order_key"},
}

// migrateToV1 adds the (scope, order_key) indexes.
func migrateToV1(db *sql.DB) error {
	for _, idx := range scopedIndexes {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", idx.name, idx.table, idx.columns)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
