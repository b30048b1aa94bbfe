package game

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/regen2moon/tomibotchi/internal/store"
)

// droppingConn is a minimal driver connection whose first query loses the
// connection after serving failAfter rows. Later queries return every row.
type droppingConn struct {
	cols      []string
	rows      [][]driver.Value
	failAfter int
	queries   int
}

type droppingConnector struct{ conn *droppingConn }

func (c droppingConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c droppingConnector) Driver() driver.Driver                        { return droppingDriver{} }

type droppingDriver struct{}

func (droppingDriver) Open(string) (driver.Conn, error) { return nil, errors.New("use OpenDB") }

func (c *droppingConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("not supported")
}
func (c *droppingConn) Close() error              { return nil }
func (c *droppingConn) Begin() (driver.Tx, error) { return nil, errors.New("not supported") }

func (c *droppingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.queries++
	failAt := -1
	if c.queries == 1 {
		failAt = c.failAfter
	}
	return &droppingRows{conn: c, failAt: failAt}, nil
}

type droppingRows struct {
	conn   *droppingConn
	pos    int
	failAt int
}

func (r *droppingRows) Columns() []string { return r.conn.cols }
func (r *droppingRows) Close() error      { return nil }

func (r *droppingRows) Next(dest []driver.Value) error {
	if r.failAt >= 0 && r.pos == r.failAt {
		return droppedErr{}
	}
	if r.pos >= len(r.conn.rows) {
		return io.EOF
	}
	copy(dest, r.conn.rows[r.pos])
	r.pos++
	return nil
}

type droppedErr struct{}

func (droppedErr) Error() string   { return "connection dropped" }
func (droppedErr) Timeout() bool   { return false }
func (droppedErr) Temporary() bool { return true }

// A connection drop mid-scan retries the whole sessions query; the result
// must contain each session exactly once.
func TestListSessionsRetryDoesNotDuplicateSessions(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	conn := &droppingConn{
		cols: []string{"game_id", "guild_id", "button_channel_id", "chat_channel_id", "start_time", "timer_duration", "cooldown_duration"},
		rows: [][]driver.Value{
			{int64(1), int64(10), int64(20), int64(30), start, int64(43200), int64(21600)},
			{int64(2), int64(11), int64(21), int64(31), start, int64(43200), int64(21600)},
			{int64(3), int64(12), int64(22), int64(32), start, int64(43200), int64(21600)},
		},
		failAfter: 2,
	}
	db := sql.OpenDB(droppingConnector{conn: conn})
	defer db.Close()
	repo := NewPostgresRepository(store.New(db, store.WithBackoff(time.Millisecond, time.Millisecond)))

	sessions, err := repo.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}

	if conn.queries != 2 {
		t.Fatalf("expected 2 query attempts, got %d", conn.queries)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d: %+v", len(sessions), sessions)
	}
	for i, sess := range sessions {
		if sess.GameID != int64(i+1) {
			t.Fatalf("session %d has game id %d", i, sess.GameID)
		}
	}
	if sessions[0].TimerDuration != 12*time.Hour {
		t.Fatalf("timer duration = %v, want 12h", sessions[0].TimerDuration)
	}
}
