package secrettoken

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]Token
}

// NewInMemoryRepository creates a new in-memory token repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		tokens: make(map[uuid.UUID]Token),
	}
}

// Create stores a new token
func (r *InMemoryRepository) Create(ctx context.Context, token Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token.ID] = token
	return nil
}

// GetByDigest retrieves an unconsumed token by digest and kind
func (r *InMemoryRepository) GetByDigest(ctx context.Context, digest string, kind Kind) (Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range r.tokens {
		if token.Digest == digest && token.Kind == kind && token.ConsumedAt == nil {
			return token, nil
		}
	}
	return Token{}, ErrTokenInvalid
}

// Consume marks a token consumed exactly once
func (r *InMemoryRepository) Consume(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[id]
	if !ok || token.ConsumedAt != nil {
		return ErrTokenInvalid
	}
	now := time.Now().UTC()
	token.ConsumedAt = &now
	r.tokens[id] = token
	return nil
}

// DeleteByAccountAndKind removes all live tokens of one kind for an account
func (r *InMemoryRepository) DeleteByAccountAndKind(ctx context.Context, accountID uuid.UUID, kind Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, token := range r.tokens {
		if token.AccountID == accountID && token.Kind == kind && token.ConsumedAt == nil {
			delete(r.tokens, id)
		}
	}
	return nil
}
