package main

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskdock/internal/apierr"
)

// pageHandler は RouteGate を通過した画面リクエストに応答します。
// staticDir が空の場合はプレースホルダーの JSON を返します。
// 存在しないファイルは index.html にフォールバックします（SPA 用）。
func pageHandler(staticDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			apierr.Respond(c, apierr.NotFound("NOT_FOUND", "指定されたAPIは存在しません"))
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			apierr.Respond(c, apierr.NotFound("NOT_FOUND", "ページが見つかりません"))
			return
		}

		if staticDir == "" {
			c.JSON(http.StatusOK, gin.H{"page": path})
			return
		}

		// Clean 済みの絶対パスを結合するので staticDir の外には出ない
		file := filepath.Join(staticDir, filepath.FromSlash(filepath.Clean("/"+path)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(filepath.Join(staticDir, "index.html"))
	}
}
