package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// KVStore is the opaque blob store backing process-wide state. Callers
// own serialization and must treat missing keys as "use the default".
type KVStore struct {
	db *pgxpool.Pool
}

func NewKVStore(db *pgxpool.Pool) *KVStore {
	return &KVStore{db: db}
}

// Get returns (nil, nil) when the key does not exist.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRow(ctx, `SELECT blob FROM kv_state WHERE key = $1`, key).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return blob, nil
}

func (s *KVStore) Set(ctx context.Context, key string, blob []byte) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO kv_state (key, blob, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET blob = EXCLUDED.blob, updated_at = NOW()`,
		key, blob,
	)
	return err
}
