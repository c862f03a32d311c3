package cortex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// Session is an authenticated handle to the Snowflake environment
type Session interface {
	// QueryString runs a statement returning one row with one column and
	// returns that value as text.
	QueryString(ctx context.Context, stmt string, args ...any) (string, error)

	// Close releases the session. Safe to call more than once.
	Close() error
}

// SessionBuilder creates a Session from resolved connection params
type SessionBuilder interface {
	Create(ctx context.Context, params ConnectionParams) (Session, error)
}

// SessionBuilderFunc adapts a function to the SessionBuilder interface
type SessionBuilderFunc func(ctx context.Context, params ConnectionParams) (Session, error)

// Create calls f(ctx, params)
func (f SessionBuilderFunc) Create(ctx context.Context, params ConnectionParams) (Session, error) {
	return f(ctx, params)
}

// ErrNoRows is returned when a statement produced no result row
var ErrNoRows = errors.New("query returned no rows")

// DBSession runs Cortex statements over a database/sql connection pool
type DBSession struct {
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error
}

// NewDBSession wraps an open *sql.DB
func NewDBSession(db *sql.DB) *DBSession {
	return &DBSession{db: db}
}

// QueryString runs stmt with bound args and scans the first column of the first row
func (s *DBSession) QueryString(ctx context.Context, stmt string, args ...any) (string, error) {
	var out sql.NullString
	err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRows
	}
	if err != nil {
		return "", err
	}
	if !out.Valid {
		return "", fmt.Errorf("query returned NULL")
	}
	return out.String, nil
}

// Close closes the underlying pool
func (s *DBSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
