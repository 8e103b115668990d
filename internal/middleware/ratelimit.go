package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/yourusername/taskdock/internal/apierr"
	"github.com/yourusername/taskdock/internal/logging"
)

const rateLimitMessage = "リクエストが多すぎます。しばらくしてから再度お試しください"

// visitorIdleTTL を過ぎて現れないIPのバケットは捨てる
const visitorIdleTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type visitorSet struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time

	lastSweep time.Time
}

func newVisitorSet(r rate.Limit, burst int) *visitorSet {
	return &visitorSet{
		visitors: make(map[string]*visitor),
		limit:    r,
		burst:    burst,
		now:      time.Now,
	}
}

func (s *visitorSet) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= time.Minute {
		for key, v := range s.visitors {
			if now.Sub(v.lastSeen) > visitorIdleTTL {
				delete(s.visitors, key)
			}
		}
		s.lastSweep = now
	}

	v, ok := s.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// RateLimiter はクライアントIPごとのトークンバケットで流量を制限します（単一プロセス用）。
func RateLimiter(r rate.Limit, burst int) gin.HandlerFunc {
	return rateLimiter(newVisitorSet(r, burst))
}

func rateLimiter(visitors *visitorSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !visitors.get(c.ClientIP()).Allow() {
			apierr.Abort(c, apierr.RateLimited(rateLimitMessage))
			return
		}
		c.Next()
	}
}

// RedisRateLimiter は Redis 上の GCRA で複数インスタンス共通の流量制限を行います。
// Redis に到達できない場合は制限せずに通します。
func RedisRateLimiter(rdb *redis.Client, rps, burst int) gin.HandlerFunc {
	limiter := redis_rate.NewLimiter(rdb)
	if burst < 1 {
		burst = rps
	}
	limit := redis_rate.Limit{Rate: rps, Burst: burst, Period: time.Second}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		res, err := limiter.Allow(c.Request.Context(), "rate_limit:"+ip, limit)
		if err != nil {
			logging.From(c).Error("redis rate limiter error", logging.Err(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rps))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(res.ResetAfter.Seconds())))

		if res.Allowed == 0 {
			logging.From(c).Warn("rate limit exceeded", "ip", ip, "remaining", res.Remaining)
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			apierr.Abort(c, apierr.RateLimited(rateLimitMessage))
			return
		}
		c.Next()
	}
}
