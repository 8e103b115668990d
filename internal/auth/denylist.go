package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:"

// Denylist はサインアウト済みトークンの jti を有効期限まで保持します。
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisDenylist は失効済み jti を Redis に TTL 付きで保存します。
type RedisDenylist struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisDenylist は RedisDenylist を作成します。
func NewRedisDenylist(rdb *redis.Client) *RedisDenylist {
	return &RedisDenylist{rdb: rdb, now: time.Now}
}

// Revoke は tokenID を until まで失効扱いにします。
func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	return d.rdb.Set(ctx, revokedKey(tokenID), 1, ttl).Err()
}

// IsRevoked は tokenID が失効済みかどうかを返します。
func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.rdb.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func revokedKey(tokenID string) string {
	return revokedKeyPrefix + tokenID
}

// MemoryDenylist はプロセス内で失効済み jti を保持します（Redis 未設定時に使います）。
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryDenylist は空の MemoryDenylist を作成します。
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke は tokenID を until まで失効扱いにします。期限切れのエントリはここで掃除します。
func (d *MemoryDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, exp := range d.entries {
		if !now.Before(exp) {
			delete(d.entries, id)
		}
	}
	if now.Before(until) {
		d.entries[tokenID] = until
	}
	return nil
}

// IsRevoked は tokenID が失効済みかどうかを返します。
func (d *MemoryDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.entries[tokenID]
	if !ok {
		return false, nil
	}
	return d.now().Before(exp), nil
}
