package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yourusername/taskdock/internal/users"
)

// SessionTTL はセッショントークンの有効期間です。
const SessionTTL = 7 * 24 * time.Hour

var (
	ErrTokenMissing = errors.New("session token missing")
	ErrTokenInvalid = errors.New("session token invalid")
	ErrTokenExpired = errors.New("session token expired")
	ErrTokenRevoked = errors.New("session token revoked")
)

// Claims はセッショントークンに埋め込む内容です。ID（jti）は失効リストのキーになります。
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Tokens はセッショントークンの発行と検証を行います（HS256）。
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens は Tokens を作成します。署名鍵が空の場合はエラーです。
func NewTokens(secret string) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is empty")
	}
	return &Tokens{
		secret: []byte(secret),
		ttl:    SessionTTL,
		now:    time.Now,
	}, nil
}

// Issue はユーザー情報を埋め込んだトークンを発行します。
func (t *Tokens) Issue(user *users.Public) (string, *Claims, error) {
	now := t.now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, claims, nil
}

// Verify は署名と有効期限を検証し、クレームを返します。
// 期限切れは ErrTokenExpired、それ以外の不正はすべて ErrTokenInvalid になります。
func (t *Tokens) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrTokenMissing
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
