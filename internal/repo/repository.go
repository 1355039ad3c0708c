package repo

import (
	"context"
	"errors"
	"time"

	"github.com/hamed0406/bgpcheck/internal/domain"
)

var ErrNotFound = errors.New("check not found")

// CheckStatus is the published view of one running check.
type CheckStatus struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Method      string   `json:"method"`
	Prefixes    []string `json:"prefixes"`
	// Detail is the human form of the state, e.g. "rising (1/3)".
	Detail string `json:"detail"`
	domain.CheckState
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusStore holds the latest status of every check. Workers write it; the
// status API reads it.
type StatusStore interface {
	Put(ctx context.Context, s CheckStatus) error
	Get(ctx context.Context, name string) (CheckStatus, error)
	List(ctx context.Context) ([]CheckStatus, error)
	Delete(ctx context.Context, name string) error
}
