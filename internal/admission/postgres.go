package admission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// PostgresStore persists admitted scores in Postgres. The score table is
// insert-only, keyed by timestamp; the latest pointer lives in a singleton
// row updated in the same transaction as the insert.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, rec *ScoreRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("admission: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO score_records (timestamp_ms, score, wallet_address, admitted_at)
		VALUES ($1, $2, $3, $4)`,
		int64(rec.TimestampMS), int64(rec.Score),
		strings.ToLower(rec.WalletAddress), rec.AdmittedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateTimestamp
		}
		return fmt.Errorf("admission: insert score: %w", err)
	}

	// Advance the latest pointer only for strictly newer timestamps.
	_, err = tx.ExecContext(ctx, `
		UPDATE score_latest
		SET timestamp_ms = $1, score = $2, wallet_address = $3
		WHERE id = 1 AND timestamp_ms < $1`,
		int64(rec.TimestampMS), int64(rec.Score), strings.ToLower(rec.WalletAddress))
	if err != nil {
		return fmt.Errorf("admission: update latest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("admission: commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context) (*ScoreRecord, error) {
	rec := &ScoreRecord{}
	var ts, score int64
	err := s.db.QueryRowContext(ctx, `
		SELECT l.timestamp_ms, l.score, l.wallet_address, r.admitted_at
		FROM score_latest l
		JOIN score_records r ON r.timestamp_ms = l.timestamp_ms
		WHERE l.id = 1 AND l.timestamp_ms > 0`,
	).Scan(&ts, &score, &rec.WalletAddress, &rec.AdmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoScores
	}
	if err != nil {
		return nil, fmt.Errorf("admission: load latest: %w", err)
	}
	rec.TimestampMS = uint64(ts)
	rec.Score = uint64(score)
	return rec, nil
}

func (s *PostgresStore) History(ctx context.Context, walletAddress string, limit int) ([]*ScoreRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp_ms, score, wallet_address, admitted_at
		FROM score_records
		WHERE wallet_address = $1
		ORDER BY timestamp_ms DESC
		LIMIT $2`,
		strings.ToLower(walletAddress), limit)
	if err != nil {
		return nil, fmt.Errorf("admission: load history: %w", err)
	}
	defer rows.Close()

	out := make([]*ScoreRecord, 0)
	for rows.Next() {
		rec := &ScoreRecord{}
		var ts, score int64
		if err := rows.Scan(&ts, &score, &rec.WalletAddress, &rec.AdmittedAt); err != nil {
			return nil, fmt.Errorf("admission: scan history: %w", err)
		}
		rec.TimestampMS = uint64(ts)
		rec.Score = uint64(score)
		out = append(out, rec)
	}
	return out, rows.Err()
}
