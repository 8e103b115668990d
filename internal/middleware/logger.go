// Package middleware は全ルート共通の gin ミドルウェアをまとめたものです。
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/taskdock/internal/logging"
)

// RequestIDHeader はリクエストIDを受け渡すヘッダー名です。
const RequestIDHeader = "X-Request-ID"

// RequestLogger はリクエストごとにIDを振り、処理結果を1行で記録します。
// 下流のハンドラーは logging.From でリクエストIDつきのロガーを取得できます。
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		logging.Into(c, log.With("request_id", requestID))

		defer func() {
			// 内側で回収されなかったパニックも 500 として記録してから上へ流す
			if r := recover(); r != nil {
				logRequest(c, start, http.StatusInternalServerError)
				panic(r)
			}
		}()

		c.Next()

		logRequest(c, start, c.Writer.Status())
	}
}

func logRequest(c *gin.Context, start time.Time, status int) {
	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}

	// ハンドラーが user_id などを追加している場合があるので取り直す
	logging.From(c).Log(c.Request.Context(), level, "request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", status,
		"latency", time.Since(start),
		"client_ip", c.ClientIP(),
	)
}
