// Dialect registry. Each supported driver contributes an error mapper tuned
// to its native error surface; Open picks one by driver name. Adding a
// database means registering a dialect, not editing the core.
package db

import (
	"errors"
	"strings"
	"sync"
)

// Dialect describes driver-specific behaviour.
type Dialect interface {
	// Name is the database/sql driver name, e.g. "postgres".
	Name() string

	// ErrorMapper translates this driver's errors. Unrecognized errors must
	// be returned unchanged so the chain can fall through.
	ErrorMapper() ErrorMapper
}

var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]Dialect)
)

// RegisterDialect adds a Dialect to the registry, replacing any previous
// registration under the same name.
func RegisterDialect(d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[d.Name()] = d
}

// DialectFor returns the registered dialect for a driver name.
func DialectFor(name string) (Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}

// mapperFor builds the error-mapping chain for a driver: dialect first, then
// the driver-independent defaults. Unknown drivers get the defaults only.
func mapperFor(driverName string) ErrorMapper {
	if d, ok := DialectFor(driverName); ok {
		return ChainMapper(d.ErrorMapper(), DefaultErrorMapper())
	}
	return DefaultErrorMapper()
}

func init() {
	RegisterDialect(PostgresDialect{})
	RegisterDialect(MySQLDialect{})
	RegisterDialect(SQLiteDialect{})
}

// PostgresDialect covers lib/pq (and pgx, which shares SQLSTATE codes).
// Import _ "github.com/lib/pq" alongside this to activate the driver.
type PostgresDialect struct{}

func (PostgresDialect) Name() string { return "postgres" }

func (PostgresDialect) ErrorMapper() ErrorMapper {
	return ErrorMapperFunc(mapPostgresError)
}

func mapPostgresError(err error) error {
	code := pgSQLState(err)
	if code == "" {
		return err
	}
	// https://www.postgresql.org/docs/current/errcodes-appendix.html
	switch {
	case code == "23505": // unique_violation
		return &DBError{Sentinel: ErrDuplicateKey, Cause: err}
	case code == "57014": // query_canceled (statement_timeout)
		return &DBError{Sentinel: ErrTimeout, Cause: err}
	case strings.HasPrefix(code, "08"): // connection exception class
		return &DBError{Sentinel: ErrConnectionFailed, Cause: err}
	}
	return err
}

// pgSQLState extracts the SQLSTATE code without a hard dependency on a
// particular postgres driver: pgx exposes SQLState(), lib/pq embeds the code
// in its message as "(SQLSTATE XXXXX)".
func pgSQLState(err error) string {
	type stater interface{ SQLState() string }
	var s stater
	if errors.As(err, &s) {
		return s.SQLState()
	}
	const marker = "(SQLSTATE "
	msg := err.Error()
	idx := strings.LastIndex(msg, marker)
	if idx < 0 {
		return ""
	}
	rest := msg[idx+len(marker):]
	if end := strings.Index(rest, ")"); end >= 0 {
		return rest[:end]
	}
	return rest
}

// MySQLDialect covers go-sql-driver/mysql, matched through its error-number
// accessor so the driver is only linked in when something imports it.
type MySQLDialect struct{}

func (MySQLDialect) Name() string { return "mysql" }

func (MySQLDialect) ErrorMapper() ErrorMapper {
	return ErrorMapperFunc(mapMySQLError)
}

func mapMySQLError(err error) error {
	type numberer interface {
		error
		Number() uint16
	}
	var me numberer
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number() {
	case 1062: // ER_DUP_ENTRY
		return &DBError{Sentinel: ErrDuplicateKey, Cause: err}
	case 3024: // ER_QUERY_TIMEOUT
		return &DBError{Sentinel: ErrTimeout, Cause: err}
	case 1045, 2002, 2003, 2006, 2013:
		return &DBError{Sentinel: ErrConnectionFailed, Cause: err}
	}
	return err
}

// SQLiteDialect covers mattn/go-sqlite3. The driver exports no typed errors,
// so matching is on message text.
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string { return "sqlite3" }

func (SQLiteDialect) ErrorMapper() ErrorMapper {
	return ErrorMapperFunc(mapSQLiteError)
}

func mapSQLiteError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return &DBError{Sentinel: ErrDuplicateKey, Cause: err}
	case strings.Contains(msg, "database is locked"):
		// A busy database surfaces as a timeout to callers.
		return &DBError{Sentinel: ErrTimeout, Cause: err}
	}
	return err
}
