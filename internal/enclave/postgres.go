package enclave

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore persists enclave state in Postgres. The configuration lives
// in a single row; signer records are insert-only.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Bootstrap(ctx context.Context, measurements [][]byte) (string, error) {
	token, hash, err := newCapability()
	if err != nil {
		return "", err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO enclave_config (id, pcr0, pcr1, pcr2, pcr3, capability_hash, version, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (id) DO NOTHING`,
		measurements[0], measurements[1], measurements[2], measurements[3],
		hash[:], time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("enclave: bootstrap: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("enclave: bootstrap: %w", err)
	}
	if n == 0 {
		return "", ErrAlreadyBootstrapped
	}
	return token, nil
}

func (s *PostgresStore) Config(ctx context.Context) (*Config, error) {
	cfg, _, err := s.configRow(ctx)
	return cfg, err
}

func (s *PostgresStore) configRow(ctx context.Context) (*Config, []byte, error) {
	var (
		pcrs    [4][]byte
		capHash []byte
		cfg     Config
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT pcr0, pcr1, pcr2, pcr3, capability_hash, version, updated_at
		FROM enclave_config WHERE id = 1`,
	).Scan(&pcrs[0], &pcrs[1], &pcrs[2], &pcrs[3], &capHash, &cfg.Version, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotBootstrapped
	}
	if err != nil {
		return nil, nil, fmt.Errorf("enclave: load config: %w", err)
	}
	cfg.Measurements = [][]byte{pcrs[0], pcrs[1], pcrs[2], pcrs[3]}
	return &cfg, capHash, nil
}

func (s *PostgresStore) UpdateConfig(ctx context.Context, capability string, measurements [][]byte) (*Config, error) {
	_, storedHash, err := s.configRow(ctx)
	if err != nil {
		return nil, err
	}
	presented := capabilityHash(capability)
	if subtle.ConstantTimeCompare(presented[:], storedHash) != 1 {
		return nil, ErrBadCapability
	}

	var cfg Config
	err = s.db.QueryRowContext(ctx, `
		UPDATE enclave_config
		SET pcr0 = $1, pcr1 = $2, pcr2 = $3, pcr3 = $4,
		    version = version + 1, updated_at = $5
		WHERE id = 1
		RETURNING version, updated_at`,
		measurements[0], measurements[1], measurements[2], measurements[3],
		time.Now().UTC(),
	).Scan(&cfg.Version, &cfg.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("enclave: update config: %w", err)
	}
	cfg.Measurements = cloneMeasurements(measurements)
	return &cfg, nil
}

func (s *PostgresStore) CreateRecord(ctx context.Context, rec *Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enclave_records (public_key, config_version, registered_at)
		VALUES ($1, $2, $3)`,
		rec.PublicKey, rec.ConfigVersion, rec.RegisteredAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrRecordExists
		}
		return fmt.Errorf("enclave: create record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, publicKey []byte) (*Record, error) {
	rec := &Record{}
	err := s.db.QueryRowContext(ctx, `
		SELECT public_key, config_version, registered_at
		FROM enclave_records WHERE public_key = $1`,
		publicKey,
	).Scan(&rec.PublicKey, &rec.ConfigVersion, &rec.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("enclave: load record: %w", err)
	}
	return rec, nil
}
