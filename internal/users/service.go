package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes は bcrypt が扱えるパスワードの最大バイト数です（文字数ではありません）。
const MaxPasswordBytes = 72

// Service はパスワードのハッシュ化と照合を伴うアカウント操作をまとめます。
type Service struct {
	store     Store
	cost      int
	dummyHash []byte
	now       func() time.Time
}

// NewService は Service を作成します。cost は bcrypt のコストです。
func NewService(store Store, cost int) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	// 存在しないアカウントでも照合コストを揃えるためのハッシュ
	dummy, err := bcrypt.GenerateFromPassword([]byte("taskdock-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &Service{
		store:     store,
		cost:      cost,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// Register はアカウントを作成します。
// 同じメールアドレスが既に登録されている場合は ErrEmailTaken を返します。
func (s *Service) Register(ctx context.Context, name, email, password string) (*Public, error) {
	if len(password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// 事前チェックとの間に割り込まれてもストア側の一意制約で ErrEmailTaken になる
	created, err := s.store.Insert(ctx, &User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return created.Public(), nil
}

// FindByEmail はメールアドレスでアカウントを検索します。
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.store.FindByEmail(ctx, email)
}

// Authenticate はメールアドレスとパスワードを照合します。
// アカウントが無い場合もパスワード不一致の場合も ErrNotFound を返し、両者を区別しません。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrNotFound
	}
	return user, nil
}
