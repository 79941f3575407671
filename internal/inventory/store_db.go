package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const (
	pingTimeout         = 1 * time.Second
	defaultQueryTimeout = 3 * time.Second
	pgUniqueCode        = "23505"
)

// Dialect captures what differs between the supported SQL engines. Queries
// are written with ? placeholders and rebound per dialect.
type Dialect struct {
	Name       string
	driver     string
	schema     string
	dsn        func(string) (string, error)
	positional bool
	unique     func(error) bool
}

var (
	SQLite = Dialect{
		Name:   "sqlite",
		driver: "sqlite",
		schema: `
			CREATE TABLE IF NOT EXISTS productos (
				id       INTEGER PRIMARY KEY,
				nombre   TEXT    NOT NULL,
				cantidad INTEGER NOT NULL,
				precio   REAL    NOT NULL
			)`,
		dsn:    sqliteDSN,
		unique: isSQLiteUniqueViolation,
	}

	Postgres = Dialect{
		Name:   "postgres",
		driver: "pgx",
		schema: `
			CREATE TABLE IF NOT EXISTS productos (
				id       BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
				nombre   TEXT             NOT NULL,
				cantidad INTEGER          NOT NULL,
				precio   DOUBLE PRECISION NOT NULL
			)`,
		dsn:        postgresDSN,
		positional: true,
		unique:     isPostgresUniqueViolation,
	}
)

func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SQLite.Name, "sqlite3":
		return SQLite, nil
	case Postgres.Name, "pgx", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
}

func (d Dialect) rebind(query string) string {
	if !d.positional {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// SQLBackend stores products in the productos table. The pool keeps no idle
// connections, so each operation connects, runs one auto-committed
// statement and releases the connection before returning.
type SQLBackend struct {
	db           *sql.DB
	dialect      Dialect
	queryTimeout time.Duration
}

// OpenSQL connects, verifies the connection and creates the productos table
// if it does not exist yet.
func OpenSQL(ctx context.Context, d Dialect, dsn string, queryTimeout time.Duration) (*SQLBackend, error) {
	conn, err := d.dsn(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, conn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrBackendUnavailable, d.Name, err)
	}
	db.SetMaxIdleConns(0)

	s := NewSQLBackend(db, d, queryTimeout)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLBackend(db *sql.DB, d Dialect, queryTimeout time.Duration) *SQLBackend {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &SQLBackend{db: db, dialect: d, queryTimeout: queryTimeout}
}

func (s *SQLBackend) Dialect() Dialect { return s.dialect }

func (s *SQLBackend) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLBackend) Ping(ctx context.Context) error {
	err := withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: ping %s: %w", ErrBackendUnavailable, s.dialect.Name, err)
	}
	return nil
}

func (s *SQLBackend) createTable(ctx context.Context) error {
	err := withTimeout(ctx, s.queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, s.dialect.schema)
		return err
	})
	return s.translate("create table", err)
}

func (s *SQLBackend) Insert(ctx context.Context, p Product) (Product, error) {
	query := `INSERT INTO productos (id, nombre, cantidad, precio) VALUES (?, ?, ?, ?) RETURNING id`
	args := []any{p.ID, p.Name, p.Quantity, p.Price}
	if p.ID == 0 {
		query = `INSERT INTO productos (nombre, cantidad, precio) VALUES (?, ?, ?) RETURNING id`
		args = args[1:]
	}

	err := withTimeout(ctx, s.queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...).Scan(&p.ID)
	})
	if err != nil {
		return Product{}, s.translate("insert product", err)
	}
	return p, nil
}

func (s *SQLBackend) List(ctx context.Context) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, s.queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, nombre, cantidad, precio
			FROM productos
			ORDER BY id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			var p Product
			if err := rows.Scan(&p.ID, &p.Name, &p.Quantity, &p.Price); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, s.translate("list products", err)
	}
	return out, nil
}

func (s *SQLBackend) Get(ctx context.Context, id int64) (Product, error) {
	var p Product

	err := withTimeout(ctx, s.queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, s.dialect.rebind(`
			SELECT id, nombre, cantidad, precio
			FROM productos
			WHERE id = ?
		`), id).Scan(&p.ID, &p.Name, &p.Quantity, &p.Price)
	})

	if err != nil {
		return Product{}, s.translate("get product", err)
	}
	return p, nil
}

// Update touches only the columns whose field in u is set; a NULL argument
// keeps the current value. With both fields unset the statement still runs
// so an absent id is reported.
func (s *SQLBackend) Update(ctx context.Context, id int64, u ProductUpdate) (Product, error) {
	var quantity sql.NullInt64
	if u.Quantity != nil {
		quantity = sql.NullInt64{Int64: int64(*u.Quantity), Valid: true}
	}
	var price sql.NullFloat64
	if u.Price != nil {
		price = sql.NullFloat64{Float64: *u.Price, Valid: true}
	}

	var p Product
	err := withTimeout(ctx, s.queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, s.dialect.rebind(`
			UPDATE productos
			SET cantidad = COALESCE(?, cantidad),
			    precio   = COALESCE(?, precio)
			WHERE id = ?
			RETURNING id, nombre, cantidad, precio
		`), quantity, price, id).Scan(&p.ID, &p.Name, &p.Quantity, &p.Price)
	})

	if err != nil {
		return Product{}, s.translate("update product", err)
	}
	return p, nil
}

func (s *SQLBackend) Delete(ctx context.Context, id int64) error {
	var affected int64

	err := withTimeout(ctx, s.queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM productos WHERE id = ?`), id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})

	if err != nil {
		return s.translate("delete product", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLBackend) translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case s.dialect.unique(err):
		return ErrDuplicateKey
	default:
		return fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, op, err)
	}
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func sqliteDSN(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: sqlite path is required", ErrInvalidInput)
	}
	if strings.Contains(path, "?") {
		return path, nil
	}
	return filepath.Clean(path) + "?_pragma=busy_timeout(5000)", nil
}

func postgresDSN(url string) (string, error) {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "postgres://") && !strings.HasPrefix(url, "postgresql://") {
		return "", fmt.Errorf("%w: postgres dsn must start with postgres://", ErrInvalidInput)
	}
	return url, nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func isPostgresUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}

var _ Backend = (*SQLBackend)(nil)
