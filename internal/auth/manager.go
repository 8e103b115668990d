package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskdock/internal/audit"
	"github.com/yourusername/taskdock/internal/logging"
	"github.com/yourusername/taskdock/internal/users"
)

var (
	loginWindow      = 15 * time.Minute
	lockDuration     = 10 * time.Minute
	maxLoginAttempts = 5
	auditTimeout     = 2 * time.Second
)

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// Options は Manager の動作設定です。
type Options struct {
	// Secure はクッキーに Secure 属性を付けるかどうかです（release モードで true）。
	Secure bool
	// StoreTimeout は1リクエストあたりのストア操作の上限です。
	StoreTimeout time.Duration
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	users    *users.Service
	tokens   *Tokens
	denylist Denylist
	audit    audit.Publisher
	opts     Options

	lock     sync.Mutex
	attempts map[string]*attemptState
	now      func() time.Time
}

// NewManager は認証マネージャーを作成します。denylist と publisher は nil でも構いません。
func NewManager(svc *users.Service, tokens *Tokens, denylist Denylist, publisher audit.Publisher, opts Options) *Manager {
	if publisher == nil {
		publisher = audit.Nop{}
	}
	return &Manager{
		users:    svc,
		tokens:   tokens,
		denylist: denylist,
		audit:    publisher,
		opts:     opts,
		attempts: make(map[string]*attemptState),
		now:      time.Now,
	}
}

// ResolveCaller はクッキーのトークンを検証し、呼び出し元を返します。
// クッキー無し・署名不正・期限切れ・失効済みはすべて Err* の番兵エラーになり、
// 失効リストの参照失敗だけがそれ以外のエラーになります。
func (m *Manager) ResolveCaller(c *gin.Context) (*Caller, error) {
	raw, err := c.Cookie(SessionCookieName)
	if err != nil || raw == "" {
		return nil, ErrTokenMissing
	}

	claims, err := m.tokens.Verify(raw)
	if err != nil {
		return nil, err
	}

	if m.denylist != nil && claims.ID != "" {
		ctx, cancel := m.storeContext(c)
		defer cancel()
		revoked, err := m.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return callerFromClaims(claims), nil
}

// isAuthError は 401 として扱うべきエラーかどうかを返します。
func isAuthError(err error) bool {
	return errors.Is(err, ErrTokenMissing) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked)
}

func (m *Manager) publish(c *gin.Context, event audit.Event) {
	event.IP = c.ClientIP()
	event.At = m.now().UTC()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), auditTimeout)
	defer cancel()
	if err := m.audit.Publish(ctx, event); err != nil {
		logging.From(c).Warn("audit publish failed", "type", event.Type, logging.Err(err))
	}
}

func (m *Manager) storeContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if m.opts.StoreTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), m.opts.StoreTimeout)
}

func (m *Manager) checkLock(ip string) time.Duration {
	m.lock.Lock()
	defer m.lock.Unlock()

	state, ok := m.attempts[ip]
	if !ok {
		return 0
	}
	now := m.now()
	if now.After(state.lockedUntil) {
		return 0
	}
	return state.lockedUntil.Sub(now)
}

func (m *Manager) recordFailure(ip string) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := m.now()
	m.pruneAttempts(now)
	state, ok := m.attempts[ip]
	if !ok || now.Sub(state.firstAttempt) > loginWindow {
		state = &attemptState{firstAttempt: now}
		m.attempts[ip] = state
	}

	state.count++
	if state.count >= maxLoginAttempts {
		state.lockedUntil = now.Add(lockDuration)
		state.count = maxLoginAttempts
	}

	remaining := maxLoginAttempts - state.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// pruneAttempts は集計期間もロックも過ぎたIPの記録を捨てます。呼び出し側で m.lock を保持すること。
func (m *Manager) pruneAttempts(now time.Time) {
	for ip, state := range m.attempts {
		if now.Sub(state.firstAttempt) > loginWindow && now.After(state.lockedUntil) {
			delete(m.attempts, ip)
		}
	}
}

func (m *Manager) resetAttempts(ip string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.attempts, ip)
}
