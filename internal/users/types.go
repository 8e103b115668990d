// Package users はアカウントの登録・検索・認証（Credential Store）を提供します。
package users

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEmailTaken は同じメールアドレスのアカウントが既に存在することを表します。
	ErrEmailTaken = errors.New("email already registered")
	// ErrNotFound はアカウントが存在しない、またはパスワードが一致しないことを表します。
	ErrNotFound = errors.New("user not found")
	// ErrPasswordTooLong はパスワードが bcrypt の上限（72バイト）を超えていることを表します。
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// User は永続化されるアカウントです。PasswordHash は bcrypt のハッシュのみを保持します。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Public はクライアントへ返すパスワードを除いたアカウント情報です。
type Public struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public はパスワードハッシュを取り除いた表現を返します。
func (u *User) Public() *Public {
	return &Public{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Store はアカウントの永続化先です。
// Insert は ID を採番し、メールアドレスが重複する場合は ErrEmailTaken を返します。
type Store interface {
	Insert(ctx context.Context, user *User) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}
