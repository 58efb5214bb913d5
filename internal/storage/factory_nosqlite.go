//go:build !sqlite

package storage

import (
	"fmt"

	"evolvekit/internal/evo"
)

func newSQLiteStore(_ string) (Store, error) {
	return nil, fmt.Errorf("%w: sqlite backend unavailable in this build; rebuild with -tags sqlite", evo.ErrInvalidArgument)
}
