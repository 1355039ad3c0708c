package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/hamed0406/bgpcheck/internal/repo"
)

type Store struct {
	mu       sync.RWMutex
	statuses map[string]repo.CheckStatus
}

func New() *Store {
	return &Store{statuses: make(map[string]repo.CheckStatus)}
}

func (m *Store) Put(ctx context.Context, s repo.CheckStatus) error {
	if s.Name == "" {
		return fmt.Errorf("status without check name")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[s.Name] = s
	return nil
}

func (m *Store) Get(ctx context.Context, name string) (repo.CheckStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statuses[name]
	if !ok {
		return repo.CheckStatus{}, fmt.Errorf("%s: %w", name, repo.ErrNotFound)
	}
	return s, nil
}

// List returns every status ordered by check name.
func (m *Store) List(ctx context.Context) ([]repo.CheckStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]repo.CheckStatus, 0, len(m.statuses))
	for _, s := range m.statuses {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b repo.CheckStatus) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (m *Store) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, name)
	return nil
}
