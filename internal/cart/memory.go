package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomasvik/threadline-go/internal/domain"
)

// MemoryRepo is the local-ephemeral cart backend: the same capability set as
// the store-backed repo, held in process memory. Used for guest sessions
// that have no server-side cart yet, and as the repo in tests.
type MemoryRepo struct {
	mu    sync.Mutex
	lines map[string][]domain.CartLine
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{lines: make(map[string][]domain.CartLine)}
}

func (m *MemoryRepo) GetByUser(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.lines[userID]
	if !ok {
		return nil, fmt.Errorf("cart for user %s: %w", userID, domain.ErrNotFound)
	}
	copied := make([]domain.CartLine, len(lines))
	copy(copied, lines)
	return &domain.Cart{UserID: userID, Lines: copied, UpdatedAt: time.Now().UTC()}, nil
}

func (m *MemoryRepo) SaveLines(_ context.Context, userID string, lines []domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]domain.CartLine, len(lines))
	copy(copied, lines)
	m.lines[userID] = copied
	return nil
}

func (m *MemoryRepo) ClearByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lines[userID]; ok {
		m.lines[userID] = []domain.CartLine{}
	}
	return nil
}
