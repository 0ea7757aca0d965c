package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"time"
)

// ErrPoolExhausted is returned when no connection becomes available
// within the borrow timeout.
var ErrPoolExhausted = errors.New("connection pool exhausted")

// Pool hands out connection leases over the database's warm pool plus
// overflow. A borrow blocks until a connection frees up or the borrow
// timeout elapses. Every lease must be ended with Release or Discard.
type Pool struct {
	db            *sql.DB
	borrowTimeout time.Duration
}

// NewPool wraps an already-connected Database.
func NewPool(d Database, borrowTimeout time.Duration) *Pool {
	return &Pool{db: d.DB(), borrowTimeout: borrowTimeout}
}

// Lease is a borrowed connection. Not safe for concurrent use.
type Lease struct {
	conn  *sql.Conn
	ended bool
}

// Borrow acquires a connection, waiting up to the pool's borrow timeout.
func (p *Pool) Borrow(ctx context.Context) (*Lease, error) {
	borrowCtx, cancel := context.WithTimeout(ctx, p.borrowTimeout)
	defer cancel()

	conn, err := p.db.Conn(borrowCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrPoolExhausted
		}
		return nil, err
	}
	return &Lease{conn: conn}, nil
}

// Conn exposes the leased connection.
func (l *Lease) Conn() *sql.Conn {
	return l.conn
}

// Release returns a healthy connection to the pool. Safe to call after
// Discard; only the first call takes effect.
func (l *Lease) Release() {
	if l.ended {
		return
	}
	l.ended = true
	_ = l.conn.Close()
}

// Discard marks the connection broken so the pool drops it instead of
// reusing it. Replacement happens lazily on a later borrow.
func (l *Lease) Discard() {
	if l.ended {
		return
	}
	l.ended = true
	// Returning driver.ErrBadConn from Raw marks the underlying
	// connection bad; Close then removes it from the pool.
	_ = l.conn.Raw(func(driverConn interface{}) error {
		return driver.ErrBadConn
	})
	_ = l.conn.Close()
}

// Stats reports the underlying pool counters.
func (p *Pool) Stats() sql.DBStats {
	return p.db.Stats()
}
