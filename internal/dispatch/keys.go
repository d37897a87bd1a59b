package dispatch

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/adityapallipati/voice-agent/internal/fault"
)

// ProcessedKey records one successfully executed action. The unique
// (call_id, action) pair is the idempotency key: duplicate inbound
// deliveries for the same call never re-execute side effects.
type ProcessedKey struct {
	CallID    string    `json:"call_id" db:"call_id"`
	Action    string    `json:"action" db:"action"`
	Result    string    `json:"result" db:"result"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// KeyStore persists processed keys. Record must be atomic: a duplicate
// insert returns fault.ErrConflict.
type KeyStore interface {
	Find(ctx context.Context, callID, action string) (ProcessedKey, bool, error)
	Record(ctx context.Context, k ProcessedKey) error
}

// MemoryKeyStore is the in-memory KeyStore used by tests.
type MemoryKeyStore struct {
	mu   sync.Mutex
	keys map[string]ProcessedKey
}

func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: map[string]ProcessedKey{}}
}

func (s *MemoryKeyStore) Find(ctx context.Context, callID, action string) (ProcessedKey, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[callID+"|"+action]
	return k, ok, nil
}

func (s *MemoryKeyStore) Record(ctx context.Context, k ProcessedKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := k.CallID + "|" + k.Action
	if _, ok := s.keys[id]; ok {
		return fault.ErrConflict
	}
	s.keys[id] = k
	return nil
}

// PostgresKeyStore persists processed keys in the action_keys table, relying
// on the unique (call_id, action) index for atomicity.
type PostgresKeyStore struct {
	db *sql.DB
}

func NewPostgresKeyStore(db *sql.DB) *PostgresKeyStore { return &PostgresKeyStore{db: db} }

func (s *PostgresKeyStore) Find(ctx context.Context, callID, action string) (ProcessedKey, bool, error) {
	const q = `SELECT call_id, action, result, created_at FROM action_keys WHERE call_id = $1 AND action = $2`
	var k ProcessedKey
	err := s.db.QueryRowContext(ctx, q, callID, action).Scan(&k.CallID, &k.Action, &k.Result, &k.CreatedAt)
	if err == sql.ErrNoRows {
		return ProcessedKey{}, false, nil
	}
	if err != nil {
		return ProcessedKey{}, false, err
	}
	return k, true, nil
}

func (s *PostgresKeyStore) Record(ctx context.Context, k ProcessedKey) error {
	const q = `
INSERT INTO action_keys (call_id, action, result, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (call_id, action) DO NOTHING`
	res, err := s.db.ExecContext(ctx, q, k.CallID, k.Action, k.Result, k.CreatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.ErrConflict
	}
	return nil
}
