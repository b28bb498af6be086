package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists orders in a local sqlite database. A file lock
// serializes writers across processes (the watcher daemon and ad hoc CLI
// invocations share the same database file).
type SQLiteStore struct {
	db   *sql.DB
	lock *flock.Flock
}

func OpenSQLite(path, lockPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create orders directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open orders database: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS limit_orders (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			record BLOB NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_limit_orders_status ON limit_orders(status);",
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init orders schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, lock: flock.New(lockPath)}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) withLock(ctx context.Context, fn func() error) error {
	locked, err := s.lock.TryLockContext(ctx, 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock orders store: %w", err)
	}
	if !locked {
		return errors.New("lock orders store: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

func (s *SQLiteStore) Create(ctx context.Context, order LimitOrder) error {
	record, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	return s.withLock(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO limit_orders (id, status, created_at, record) VALUES (?, ?, ?, ?)",
			order.ID, string(order.Status), order.CreatedAt.UTC().Unix(), record)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (LimitOrder, error) {
	var record []byte
	err := s.db.QueryRowContext(ctx, "SELECT record FROM limit_orders WHERE id = ?", id).Scan(&record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LimitOrder{}, ErrNotFound
		}
		return LimitOrder{}, fmt.Errorf("read order: %w", err)
	}
	return decodeOrder(record)
}

func (s *SQLiteStore) List(ctx context.Context) ([]LimitOrder, error) {
	return s.query(ctx, "SELECT record FROM limit_orders ORDER BY created_at, id")
}

func (s *SQLiteStore) ListByStatus(ctx context.Context, status Status) ([]LimitOrder, error) {
	return s.query(ctx, "SELECT record FROM limit_orders WHERE status = ? ORDER BY created_at, id", string(status))
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]LimitOrder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []LimitOrder
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order, err := decodeOrder(record)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Transition(ctx context.Context, id string, from, to Status, trigger *Trigger) error {
	return s.withLock(ctx, func() error {
		order, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != from {
			return ErrConflict
		}
		order.Status = to
		if trigger != nil {
			t := *trigger
			order.Trigger = &t
		}
		record, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("encode order: %w", err)
		}
		// The status predicate repeats the CAS inside the statement so a
		// concurrent writer racing the lock handoff still cannot clobber.
		res, err := s.db.ExecContext(ctx,
			"UPDATE limit_orders SET status = ?, record = ? WHERE id = ? AND status = ?",
			string(to), record, id, string(from))
		if err != nil {
			return fmt.Errorf("transition order: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("transition order: %w", err)
		}
		if affected == 0 {
			return ErrConflict
		}
		return nil
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.withLock(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM limit_orders WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func decodeOrder(record []byte) (LimitOrder, error) {
	var order LimitOrder
	if err := json.Unmarshal(record, &order); err != nil {
		return LimitOrder{}, fmt.Errorf("decode order record: %w", err)
	}
	return order, nil
}
