package tasks

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore はプロセス内にタスクを保持する開発・テスト用のストアです。
// 一覧は挿入順で返します。
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*Task
	order []string
	now   func() time.Time
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]*Task),
		now:  time.Now,
	}
}

// Create はタスクを作成し、そのIDを返します。
func (s *MemoryStore) Create(ctx context.Context, ownerID string, draft Draft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := primitive.NewObjectID().Hex()
	s.byID[id] = &Task{
		ID:        id,
		OwnerID:   ownerID,
		Title:     draft.Title,
		Deadline:  draft.Deadline,
		Priority:  draft.Priority,
		Completed: false,
		CreatedAt: s.now().UTC(),
	}
	s.order = append(s.order, id)
	return id, nil
}

// ListByOwner は所有者のタスクを返します。
func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID string) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Task, 0)
	for _, id := range s.order {
		task, ok := s.byID[id]
		if !ok || task.OwnerID != ownerID {
			continue
		}
		out = append(out, *task)
	}
	return out, nil
}

// Replace は所有者とIDが一致するタスクの内容を置き換えます。
func (s *MemoryStore) Replace(ctx context.Context, ownerID, taskID string, update Update) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.byID[taskID]
	if !ok || task.OwnerID != ownerID {
		return false, nil
	}
	task.Title = update.Title
	task.Deadline = update.Deadline
	task.Priority = update.Priority
	task.Completed = update.Completed
	return true, nil
}

// Remove は所有者とIDが一致するタスクを削除します。
func (s *MemoryStore) Remove(ctx context.Context, ownerID, taskID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.byID[taskID]
	if !ok || task.OwnerID != ownerID {
		return false, nil
	}
	delete(s.byID, taskID)
	for i, id := range s.order {
		if id == taskID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}
