// Package sql provides a source that turns the rows of a query into messages. Each row must
// carry a "level" column.
package sql

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/internal/runtime/message"
	"github.com/drblury/notiflow/plugin"
)

// Name is the name this source registers under.
const Name = "sql"

// LegacyName is the class name older configurations use for the SQL source.
const LegacyName = "SQLSource"

// OpenDB allows overriding how databases are opened for testing.
var OpenDB = sql.Open

func init() {
	plugin.RegisterSource(plugin.Builtin(Name), Factory)
	plugin.RegisterSource(plugin.Builtin(LegacyName), Factory)
}

// ParseURL maps a database URL onto a registered driver and its DSN:
//
//	postgres://, postgresql://  lib/pq, URL passed through
//	sqlite3://<path>, file:...  mattn/go-sqlite3
//	sqlite://<path>             modernc.org/sqlite
func ParseURL(raw string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return "postgres", raw, nil
	case strings.HasPrefix(raw, "sqlite3://"):
		return "sqlite3", strings.TrimPrefix(raw, "sqlite3://"), nil
	case strings.HasPrefix(raw, "sqlite://"):
		return "sqlite", strings.TrimPrefix(raw, "sqlite://"), nil
	case strings.HasPrefix(raw, "file:"):
		return "sqlite3", raw, nil
	}
	return "", "", fmt.Errorf("unsupported database url %q", redact(raw))
}

// Factory opens the database from "url", or from "driver" plus "dsn". Optional pool settings:
// max_open_conns and conn_max_lifetime.
func Factory(_ context.Context, name string, params plugin.Params, logger watermill.LoggerAdapter) (plugin.Source, error) {
	driver, dsn, err := driverAndDSN(name, params)
	if err != nil {
		return nil, err
	}
	maxOpen, err := params.IntOr("max_open_conns", 0)
	if err != nil {
		return nil, err
	}
	lifetime, err := params.DurationOr("conn_max_lifetime", 0)
	if err != nil {
		return nil, err
	}

	db, err := OpenDB(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetConnMaxLifetime(lifetime)

	if logger == nil {
		logger = watermill.NopLogger{}
	}
	logger.Debug("SQL source opened", watermill.LogFields{"source": name, "driver": driver})
	return New(name, db), nil
}

func driverAndDSN(name string, params plugin.Params) (string, string, error) {
	if params.Has("url") {
		raw, err := params.String("url")
		if err != nil {
			return "", "", err
		}
		driver, dsn, err := ParseURL(raw)
		if err != nil {
			return "", "", errspkg.InvalidParamError{Component: name, Param: "url", Reason: err.Error()}
		}
		return driver, dsn, nil
	}
	driver, err := params.String("driver")
	if err != nil {
		return "", "", errspkg.InvalidParamError{Component: name, Param: "url", Reason: "url or driver and dsn are required"}
	}
	dsn, err := params.String("dsn")
	if err != nil {
		return "", "", err
	}
	return driver, dsn, nil
}

// Source runs queries against one database.
type Source struct {
	name string
	db   *sql.DB
}

// New wraps an open database. The source owns db and closes it on Close.
func New(name string, db *sql.DB) *Source {
	return &Source{name: name, db: db}
}

func (s *Source) Name() string { return s.name }

// GetMessages runs params["query"] with the optional positional params["args"] and converts
// every row into a message with fields in column order.
func (s *Source) GetMessages(ctx context.Context, params plugin.Params) ([]message.Message, error) {
	query, err := params.String("query")
	if err != nil {
		return nil, err
	}
	var args []any
	if raw, ok := params["args"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, errspkg.InvalidParamError{Component: s.name, Param: "args", Reason: "must be a list"}
		}
		args = list
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !slices.Contains(columns, message.LevelKey) {
		return nil, errspkg.InvalidSourceOutputError{
			Source: s.name,
			Reason: fmt.Sprintf("result has no %q column (columns: %s)", message.LevelKey, strings.Join(columns, ", ")),
		}
	}

	var out []message.Message
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		fields := make([]message.Field, len(columns))
		for i, col := range columns {
			fields[i] = message.Field{Key: col, Value: normalize(values[i])}
		}
		m, err := message.New(message.NewFields(fields...))
		if err != nil {
			return nil, errspkg.InvalidSourceOutputError{Source: s.name, Reason: fmt.Sprintf("row %d: %v", len(out)+1, err)}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Source) Close() error {
	return s.db.Close()
}

// normalize turns driver byte slices into strings; other values are kept, time.Time included.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func redact(raw string) string {
	if i := strings.Index(raw, "@"); i >= 0 {
		if j := strings.Index(raw, "://"); j >= 0 && j < i {
			return raw[:j+3] + "***@" + raw[i+1:]
		}
	}
	return raw
}
