package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Dev72112/xlamaexchange/internal/model"
)

// Journal appends terminal execution results to a local sqlite table so
// past fills survive process restarts. Writes are best-effort: a journal
// failure is logged by the executor and never changes the outcome.
type Journal struct {
	db *sql.DB
}

// ExecutionRecord is one journaled terminal result.
type ExecutionRecord struct {
	ID          string
	Kind        string // swap or bridge
	RequestID   string
	FromChainID int64
	ToChainID   int64
	Pair        string
	Amount      string
	Status      string
	TxHash      string
	DestTxHash  string
	Category    string
	RecordedAt  time.Time
}

func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open execution journal: %w", err)
	}
	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			request_id TEXT NOT NULL,
			from_chain_id INTEGER NOT NULL,
			to_chain_id INTEGER NOT NULL,
			pair TEXT NOT NULL,
			amount TEXT NOT NULL,
			status TEXT NOT NULL,
			tx_hash TEXT,
			dest_tx_hash TEXT,
			category TEXT,
			recorded_at INTEGER NOT NULL
		);`,
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init journal schema: %w", err)
		}
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) RecordSwap(req model.SwapRequest, final model.SwapState) error {
	return j.insert(ExecutionRecord{
		Kind:        "swap",
		RequestID:   req.RequestID,
		FromChainID: req.ChainID,
		ToChainID:   req.ChainID,
		Pair:        req.FromToken.Symbol + "/" + req.ToToken.Symbol,
		Amount:      req.Amount,
		Status:      string(final.Step),
		TxHash:      final.TxHash,
		Category:    final.ErrorCategory,
	})
}

func (j *Journal) RecordBridge(req BridgeRequest, final model.BridgeTransaction) error {
	return j.insert(ExecutionRecord{
		Kind:        "bridge",
		RequestID:   req.RequestID,
		FromChainID: req.FromChainID,
		ToChainID:   req.ToChainID,
		Pair:        req.FromToken.Symbol + "/" + req.ToToken.Symbol,
		Amount:      req.Amount,
		Status:      string(final.Status),
		TxHash:      final.SourceTxHash,
		DestTxHash:  final.DestTxHash,
		Category:    final.ErrorCategory,
	})
}

func (j *Journal) insert(rec ExecutionRecord) error {
	rec.ID = uuid.NewString()
	rec.RecordedAt = time.Now().UTC()
	_, err := j.db.Exec(`
		INSERT INTO executions (id, kind, request_id, from_chain_id, to_chain_id, pair, amount, status, tx_hash, dest_tx_hash, category, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.RequestID, rec.FromChainID, rec.ToChainID,
		rec.Pair, rec.Amount, rec.Status, rec.TxHash, rec.DestTxHash,
		rec.Category, rec.RecordedAt.Unix())
	if err != nil {
		return fmt.Errorf("journal execution: %w", err)
	}
	return nil
}

// Recent returns the newest journal entries, most recent first.
func (j *Journal) Recent(limit int) ([]ExecutionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.Query(`
		SELECT id, kind, request_id, from_chain_id, to_chain_id, pair, amount, status, tx_hash, dest_tx_hash, category, recorded_at
		FROM executions ORDER BY recorded_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	defer rows.Close()

	var out []ExecutionRecord
	for rows.Next() {
		var rec ExecutionRecord
		var recordedUnix int64
		var txHash, destTxHash, category sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.RequestID, &rec.FromChainID, &rec.ToChainID,
			&rec.Pair, &rec.Amount, &rec.Status, &txHash, &destTxHash, &category, &recordedUnix); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		rec.TxHash = txHash.String
		rec.DestTxHash = destTxHash.String
		rec.Category = category.String
		rec.RecordedAt = time.Unix(recordedUnix, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
