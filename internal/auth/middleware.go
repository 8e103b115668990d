// Package auth は認証・認可機能を提供します。
//
// 2段構えの構成です。
//   - RouteGate: 画面リクエストに対し、クッキーの有無だけを見てリダイレクトする（検証しない）
//   - Manager.RequireSession: API リクエストに対し、トークンを暗号学的に検証して呼び出し元を確定する
//
// セキュリティ境界は RequireSession の方で、RouteGate は境界ではありません。
package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskdock/internal/apierr"
	"github.com/yourusername/taskdock/internal/logging"
)

// ContextCallerKey は、ハンドラー間で検証済みの呼び出し元を共有するためのキーです。
const ContextCallerKey = "auth.caller"

// Caller は検証済みトークンから得た呼び出し元です。
type Caller struct {
	UserID    string
	Email     string
	Name      string
	TokenID   string
	ExpiresAt time.Time
}

func callerFromClaims(claims *Claims) *Caller {
	caller := &Caller{
		UserID:  claims.UserID,
		Email:   claims.Email,
		Name:    claims.Name,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		caller.ExpiresAt = claims.ExpiresAt.Time
	}
	return caller
}

// SetCaller は呼び出し元を gin.Context に保存します。
func SetCaller(c *gin.Context, caller *Caller) {
	c.Set(ContextCallerKey, caller)
}

// CallerFrom は RequireSession が保存した呼び出し元を取り出します。
func CallerFrom(c *gin.Context) (*Caller, bool) {
	v, ok := c.Get(ContextCallerKey)
	if !ok {
		return nil, false
	}
	caller, ok := v.(*Caller)
	return caller, ok && caller != nil
}

// RequireSession はセッショントークンを検証するミドルウェアを返します。
// クッキー無しと検証失敗はどちらも同じ 401 を返しますが、ログは区別します。
func (m *Manager) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := m.ResolveCaller(c)
		if err != nil {
			log := logging.From(c)
			switch {
			case errors.Is(err, ErrTokenMissing):
				log.Debug("no session cookie", "path", c.Request.URL.Path)
				apierr.Abort(c, apierr.Unauthenticated("ログインが必要です"))
			case isAuthError(err):
				log.Warn("session token rejected", "path", c.Request.URL.Path, logging.Err(err))
				apierr.Abort(c, apierr.Unauthenticated("ログインが必要です"))
			default:
				apierr.Abort(c, apierr.Internal(err))
			}
			return
		}

		SetCaller(c, caller)
		logging.Into(c, logging.From(c).With("user_id", caller.UserID))
		c.Next()
	}
}
