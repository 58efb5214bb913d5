package storage

import (
	"fmt"

	"evolvekit/internal/evo"
)

// Backends lists the store kinds NewStore understands.
var Backends = []string{"memory", "sqlite"}

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("%w: unsupported store backend %q", evo.ErrInvalidArgument, kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
