// Package store is the persistence gateway: every read and write runs
// through the same bounded-retry envelope so callers either observe a
// consistent snapshot or fail cleanly.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// ErrUnavailable wraps the last transient error once retries are exhausted.
var ErrUnavailable = errors.New("persistence unavailable")

const (
	defaultMaxRetries  = 3
	defaultBaseBackoff = 250 * time.Millisecond
	defaultMaxBackoff  = 10 * time.Second
)

// Store wraps a *sql.DB with retry/backoff and a liveness probe. The pool
// itself belongs to database/sql; the gateway only decides when an attempt
// is worth repeating.
type Store struct {
	db          *sql.DB
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithMaxRetries bounds the attempts per statement.
func WithMaxRetries(n int) Option {
	return func(s *Store) { s.maxRetries = n }
}

// WithBackoff sets the base and cap of the exponential backoff.
func WithBackoff(base, max time.Duration) Option {
	return func(s *Store) {
		s.baseBackoff = base
		s.maxBackoff = max
	}
}

// New creates a Store around an open database handle.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:          db,
		maxRetries:  defaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle for transaction helpers.
func (s *Store) DB() *sql.DB { return s.db }

// Select runs a query and hands the rows to scan. The scan callback must
// consume the rows fully; it is re-invoked from scratch on retry.
func (s *Store) Select(ctx context.Context, scan func(*sql.Rows) error, query string, args ...any) error {
	return s.retry(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		if err := scan(rows); err != nil {
			return err
		}
		return rows.Err()
	})
}

// Exec runs a mutating statement and reports rows affected.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	var affected int64
	err := s.retry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// ExecReturningID runs an INSERT ... RETURNING statement and scans the new
// row id, preserving the gateway contract that inserts yield an identifier.
func (s *Store) ExecReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := s.retry(ctx, func() error {
		return s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	})
	return id, err
}

// Ping probes pool liveness.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(Backoff(attempt, s.baseBackoff, s.maxBackoff)):
			}
			// A transient failure often means the pool handed out a dead
			// connection; probing forces database/sql to discard it.
			if err := s.db.PingContext(ctx); err != nil {
				log.Warn().Err(err).Int("attempt", attempt).Msg("store liveness probe failed")
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt+1).Int("max", s.maxRetries).Msg("transient store error")
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Backoff returns the sleep before the given attempt (attempt >= 1),
// doubling from base up to max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	d := base << (attempt - 1)
	if d > max || d <= 0 {
		return max
	}
	return d
}

// IsRetryable classifies transient connection failures. Anything else,
// including constraint violations and scan errors, surfaces immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08 is connection exceptions, 57P01 is admin shutdown.
		switch pqErr.Code.Class() {
		case "08", "57":
			return true
		}
	}
	return false
}
