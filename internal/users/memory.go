package users

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore はプロセス内にアカウントを保持する開発・テスト用のストアです。
type MemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]*User
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEmail: make(map[string]*User)}
}

// Insert はアカウントを保存します。
func (s *MemoryStore) Insert(ctx context.Context, user *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return nil, ErrEmailTaken
	}
	stored := *user
	stored.ID = primitive.NewObjectID().Hex()
	s.byEmail[stored.Email] = &stored

	out := stored
	return &out, nil
}

// FindByEmail はメールアドレスでアカウントを検索します（大文字小文字は区別します）。
func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	out := *user
	return &out, nil
}
