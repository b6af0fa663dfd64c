package storage

import (
	"errors"
	"fmt"
)

// Store kinds accepted by NewStore and the store.kind config key.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

var ErrUnsupportedStore = errors.New("unsupported store backend")

// NewStore opens the batch store of the given kind. sqlitePath is only read
// by the sqlite backend, which needs a build with -tags sqlite.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("%w: %q (want %s or %s)", ErrUnsupportedStore, kind, KindMemory, KindSQLite)
	}
}

// CloseIfSupported releases store resources for backends that hold any.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
