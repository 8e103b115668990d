package auth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskdock/internal/apierr"
	"github.com/yourusername/taskdock/internal/audit"
	"github.com/yourusername/taskdock/internal/logging"
	"github.com/yourusername/taskdock/internal/users"
)

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type signinRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup は /api/auth/signup のハンドラーです。
func (m *Manager) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Validation("name, email, password を JSON で送ってください"))
		return
	}
	// bcrypt の上限は文字数ではなくバイト数
	if len(req.Password) > users.MaxPasswordBytes {
		apierr.Respond(c, apierr.Validation("パスワードは72バイト以内で入力してください"))
		return
	}

	ctx, cancel := m.storeContext(c)
	defer cancel()

	user, err := m.users.Register(ctx, req.Name, req.Email, req.Password)
	if errors.Is(err, users.ErrEmailTaken) {
		apierr.Respond(c, apierr.Conflict("EMAIL_TAKEN", "このメールアドレスは既に登録されています"))
		return
	}
	if errors.Is(err, users.ErrPasswordTooLong) {
		apierr.Respond(c, apierr.Validation("パスワードは72バイト以内で入力してください"))
		return
	}
	if err != nil {
		apierr.Respond(c, apierr.Internal(err))
		return
	}

	logging.From(c).Info("user registered", "user_id", user.ID)
	m.publish(c, audit.Event{Type: audit.EventSignup, UserID: user.ID, Email: user.Email})

	c.JSON(http.StatusCreated, gin.H{
		"message": "アカウントを作成しました",
		"user":    user,
	})
}

// Signin は /api/auth/signin のハンドラーです。
// 成功時はセッショントークンを HttpOnly クッキーで返します。
func (m *Manager) Signin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Validation("email と password を JSON で送ってください"))
		return
	}

	ip := c.ClientIP()
	if retryAfter := m.checkLock(ip); retryAfter > 0 {
		// Retry-After は秒数またはHTTP-Date形式が推奨されているため秒数で返す
		c.Header("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
		m.publish(c, audit.Event{Type: audit.EventSigninLocked, Email: req.Email})
		apierr.Respond(c, apierr.TooManyAttempts("一定時間後に再度お試しください"))
		return
	}

	ctx, cancel := m.storeContext(c)
	defer cancel()

	user, err := m.users.Authenticate(ctx, req.Email, req.Password)
	if errors.Is(err, users.ErrNotFound) {
		remaining := m.recordFailure(ip)
		logging.From(c).Info("signin rejected", "remaining_attempts", remaining)
		m.publish(c, audit.Event{Type: audit.EventSigninFailed, Email: req.Email})
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":              "INVALID_CREDENTIALS",
			"message":           "メールアドレスまたはパスワードが正しくありません",
			"remainingAttempts": remaining,
		})
		return
	}
	if err != nil {
		apierr.Respond(c, apierr.Internal(err))
		return
	}

	m.resetAttempts(ip)

	public := user.Public()
	token, _, err := m.tokens.Issue(public)
	if err != nil {
		apierr.Respond(c, apierr.Internal(err))
		return
	}
	setSessionCookie(c, token, m.opts.Secure)

	logging.From(c).Info("user signed in", "user_id", public.ID)
	m.publish(c, audit.Event{Type: audit.EventSignin, UserID: public.ID, Email: public.Email})

	c.JSON(http.StatusOK, gin.H{
		"message": "ログインしました",
		"user":    public,
	})
}

// Signout は /api/auth/signout のハンドラーです。
// クッキーを上書きして消し、検証できるトークンであれば jti を失効リストに登録します。
func (m *Manager) Signout(c *gin.Context) {
	log := logging.From(c)
	event := audit.Event{Type: audit.EventSignout}

	if raw, err := c.Cookie(SessionCookieName); err == nil && raw != "" {
		if claims, err := m.tokens.Verify(raw); err == nil {
			event.UserID, event.Email = claims.UserID, claims.Email
			if m.denylist != nil && claims.ID != "" && claims.ExpiresAt != nil {
				ctx, cancel := m.storeContext(c)
				if err := m.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
					log.Error("failed to revoke session token", logging.Err(err))
				} else {
					event.Type = audit.EventSessionRevoke
				}
				cancel()
			}
		}
	}

	clearSessionCookie(c, m.opts.Secure)
	m.publish(c, event)

	c.JSON(http.StatusOK, gin.H{"message": "ログアウトしました"})
}

// Me は /api/auth/me のハンドラーです。RequireSession の後ろで使います。
func (m *Manager) Me(c *gin.Context) {
	caller, ok := CallerFrom(c)
	if !ok {
		apierr.Respond(c, apierr.Unauthenticated("ログインが必要です"))
		return
	}

	ctx, cancel := m.storeContext(c)
	defer cancel()

	user, err := m.users.FindByEmail(ctx, caller.Email)
	if errors.Is(err, users.ErrNotFound) {
		apierr.Respond(c, apierr.NotFound("USER_NOT_FOUND", "ユーザーが見つかりません"))
		return
	}
	if err != nil {
		apierr.Respond(c, apierr.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.Public()})
}
