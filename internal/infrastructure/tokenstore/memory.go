package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
)

// MemoryStore keeps tokens in process memory
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]entity.ActionToken
}

// NewMemoryStore creates an empty in-memory token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]entity.ActionToken)}
}

func (s *MemoryStore) Save(ctx context.Context, token *entity.ActionToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Value] = *token
	return nil
}

// Take removes the token under the same lock that reads it, so two
// concurrent callers can never both receive it
func (s *MemoryStore) Take(ctx context.Context, value string) (*entity.ActionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[value]
	if !ok {
		return nil, nil
	}
	delete(s.tokens, value)
	return &token, nil
}

func (s *MemoryStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for value, token := range s.tokens {
		if token.Expired(now) {
			delete(s.tokens, value)
			purged++
		}
	}
	return purged, nil
}

// Len returns the number of stored tokens
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

var _ port.TokenStore = (*MemoryStore)(nil)
