package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/repokit/pkg/schema"
	"github.com/mesh-intelligence/repokit/pkg/types"
)

// Dialect isolates the SQL differences between the supported engines.
type Dialect interface {
	// Name is the backend name from types.Config.
	Name() string
	// DriverName is the database/sql driver to open.
	DriverName() string
	// Placeholder returns the bind marker of the n-th argument, starting at 1.
	Placeholder(n int) string
	// ColumnType returns the DDL type of a column.
	ColumnType(f schema.Field) string
	// Collate wraps a text expression so it orders byte-wise.
	Collate(expr string) string
	// Contains returns a predicate true when expr's text form contains the
	// bound argument.
	Contains(expr, arg string) string
	// IsIntegrity reports whether err is a constraint violation.
	IsIntegrity(err error) bool
	// PrepareDSN completes a user supplied connection string.
	PrepareDSN(dsn string) string
	// MaxConns caps the connection pool; 0 means unlimited.
	MaxConns() int
	// ReadTx returns the options of a transaction whose statements all read
	// the same snapshot.
	ReadTx() *sql.TxOptions
}

// DialectFor returns the dialect of a backend name.
func DialectFor(backend string) (Dialect, error) {
	switch backend {
	case types.BackendSQLite:
		return sqliteDialect{}, nil
	case types.BackendPostgres:
		return postgresDialect{}, nil
	}
	return nil, fmt.Errorf("%w: %q is not a sql backend", types.ErrBackendUnknown, backend)
}

// Quote quotes an identifier. Both engines accept standard double quotes.
func Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string               { return types.BackendSQLite }
func (sqliteDialect) DriverName() string         { return "sqlite" }
func (sqliteDialect) Placeholder(int) string     { return "?" }
func (sqliteDialect) Collate(expr string) string { return expr }
func (sqliteDialect) MaxConns() int              { return 1 }

// ReadTx needs no options: a SQLite transaction reads one snapshot from its
// first statement on.
func (sqliteDialect) ReadTx() *sql.TxOptions { return nil }

func (sqliteDialect) ColumnType(f schema.Field) string {
	switch {
	case f.Type == uuidType:
		return "TEXT"
	case f.Type.Kind() == reflect.String:
		return "TEXT"
	case f.Type.Kind() == reflect.Bool:
		return "BOOLEAN"
	case isFloat(f.Type):
		return "REAL"
	}
	return "INTEGER"
}

func (sqliteDialect) Contains(expr, arg string) string {
	return fmt.Sprintf("instr(CAST(%s AS TEXT), %s) > 0", expr, arg)
}

func (sqliteDialect) IsIntegrity(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// PrepareDSN turns on foreign keys and a busy timeout unless the caller
// already set pragmas.
func (sqliteDialect) PrepareDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

type postgresDialect struct{}

func (postgresDialect) Name() string                 { return types.BackendPostgres }
func (postgresDialect) DriverName() string           { return "pgx" }
func (postgresDialect) Placeholder(n int) string     { return "$" + strconv.Itoa(n) }
func (postgresDialect) Collate(expr string) string   { return expr + ` COLLATE "C"` }
func (postgresDialect) PrepareDSN(dsn string) string { return dsn }
func (postgresDialect) MaxConns() int                { return 0 }

// ReadTx asks for REPEATABLE READ; READ COMMITTED takes a new snapshot per
// statement.
func (postgresDialect) ReadTx() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

func (postgresDialect) ColumnType(f schema.Field) string {
	switch {
	case f.Type == uuidType:
		return "TEXT"
	case f.Type.Kind() == reflect.String:
		if f.Size > 0 {
			return fmt.Sprintf("VARCHAR(%d)", f.Size)
		}
		return "TEXT"
	case f.Type.Kind() == reflect.Bool:
		return "BOOLEAN"
	case isFloat(f.Type):
		return "DOUBLE PRECISION"
	}
	return "BIGINT"
}

func (postgresDialect) Contains(expr, arg string) string {
	return fmt.Sprintf("strpos(CAST(%s AS TEXT), %s) > 0", expr, arg)
}

// IsIntegrity matches SQLSTATE class 23, integrity constraint violation.
func (postgresDialect) IsIntegrity(err error) bool {
	var pe *pgconn.PgError
	return errors.As(err, &pe) && strings.HasPrefix(pe.Code, "23")
}

var uuidType = reflect.TypeFor[uuid.UUID]()

func isFloat(t reflect.Type) bool {
	return t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
}

// isText reports whether values of t are stored as text and need byte-wise
// collation when sorted.
func isText(t reflect.Type) bool {
	return t == uuidType || t.Kind() == reflect.String
}

// encode converts a column value to a type every driver binds natively.
func encode(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case uuid.UUID:
		return x.String(), nil
	case string, bool, int64, float64:
		return x, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows a signed 64-bit column", schema.ErrConversion, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return nil, fmt.Errorf("%w: cannot bind %T", schema.ErrConversion, v)
}
