// Package tasks はユーザーごとに分離されたタスクの永続化と HTTP ハンドラーを提供します。
//
// すべての読み書きはタスクIDと所有者IDの両方で絞り込みます。
// 他人のタスクに対する更新・削除は「一致なし」として扱い、存在有無は明かしません。
package tasks

import (
	"context"
	"time"
)

// Priority はタスクの優先度です。
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid は定義済みの優先度かどうかを返します。
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// DeadlineLayout は締切日の文字列形式です。
const DeadlineLayout = "2006-01-02"

// Task はクライアントへ返すタスクです。所有者IDはレスポンスに含めません。
type Task struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	Title     string    `json:"title"`
	Deadline  string    `json:"deadline"`
	Priority  Priority  `json:"priority"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Draft は作成時の入力です。Completed は常に false で作成されます。
type Draft struct {
	Title    string
	Deadline string
	Priority Priority
}

// Update は PATCH による全項目の置き換え内容です。
type Update struct {
	Title     string
	Deadline  string
	Priority  Priority
	Completed bool
}

// Store はタスクの永続化先です。
// Replace と Remove は taskID と ownerID の両方に一致したときだけ true を返します。
// 一致しない場合はエラーではなく false を返します。
type Store interface {
	Create(ctx context.Context, ownerID string, draft Draft) (string, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Task, error)
	Replace(ctx context.Context, ownerID, taskID string, update Update) (bool, error)
	Remove(ctx context.Context, ownerID, taskID string) (bool, error)
}
