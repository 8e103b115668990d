// Package logging は slog ベースのロガー生成とリクエスト単位のロガー受け渡しを提供します。
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
)

const contextLoggerKey = "logging.logger"

// Setup はレベル文字列からロガーを作成します。不明なレベルは info として扱います。
func Setup(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel は debug/info/warn/error を slog.Level に変換します。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Err はエラーをログ属性に変換します。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// Into はリクエストに紐づくロガーを gin.Context に保存します。
func Into(c *gin.Context, log *slog.Logger) {
	c.Set(contextLoggerKey, log)
}

// From は gin.Context からロガーを取り出します。未設定なら slog.Default() を返します。
func From(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(contextLoggerKey); ok {
		if log, ok := v.(*slog.Logger); ok {
			return log
		}
	}
	return slog.Default()
}
