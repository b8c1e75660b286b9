package position

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"venueexec/pkg/types"
)

// Store persists position snapshots to JSON files, one per canonical
// symbol, so the engine can resume with a known position after a restart.
// Grounded on the teacher's store.Store: same atomic write-tmp-then-rename
// discipline, adapted from a market-ID-keyed strategy.Position shape to a
// canonical-symbol-keyed types.PositionSnapshot.
type Store struct {
	dir string
	mu  sync.Mutex
}

// OpenStore creates a Store backed by dir, creating it if missing.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create position store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(symbol types.CanonicalSymbol) string {
	return filepath.Join(s.dir, "pos_"+string(symbol)+".json")
}

// Save atomically persists snap, replacing any prior snapshot for its
// symbol.
func (s *Store) Save(snap types.PositionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}

	path := s.path(snap.Symbol)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write position: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load restores the last persisted snapshot for symbol. Returns ok=false
// if none was ever saved.
func (s *Store) Load(symbol types.CanonicalSymbol) (types.PositionSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return types.PositionSnapshot{}, false, nil
		}
		return types.PositionSnapshot{}, false, fmt.Errorf("read position: %w", err)
	}

	var snap types.PositionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return types.PositionSnapshot{}, false, fmt.Errorf("unmarshal position: %w", err)
	}
	return snap, true, nil
}

// Restore loads symbol's persisted snapshot, if any, directly into svc.
func Restore(store *Store, svc *Service, symbol types.CanonicalSymbol) error {
	snap, ok, err := store.Load(symbol)
	if err != nil {
		return err
	}
	if ok {
		svc.Ingest(snap)
	}
	return nil
}
