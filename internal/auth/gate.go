package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// 認証不要の画面（前方一致）
var publicPages = []string{"/signin", "/signup", "/forgot-password"}

// ゲートの対象外（API・静的ファイル・画像など）
var gateExcluded = []string{"/api", "/static", "/_next/static", "/_next/image", "/images", "/favicon.ico", "/health"}

const (
	homePath   = "/"
	signinPath = "/signin"
)

// RouteGate は画面リクエスト向けのリダイレクトを行うミドルウェアです。
// クッキーの有無だけを見て、トークンの正当性は検証しません。
//   - 公開画面にクッキー付きで来たらホームへ
//   - 非公開画面にクッキー無しで来たらサインインへ（ルートは除く）
func RouteGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if isGateExcluded(path) {
			c.Next()
			return
		}

		hasCookie := hasSessionCookie(c.Request)
		public := isPublicPage(path)

		if public && hasCookie {
			c.Redirect(http.StatusFound, homePath)
			c.Abort()
			return
		}
		if !public && !hasCookie && path != homePath {
			c.Redirect(http.StatusFound, signinPath)
			c.Abort()
			return
		}

		c.Next()
	}
}

func isPublicPage(path string) bool {
	for _, p := range publicPages {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func isGateExcluded(path string) bool {
	for _, p := range gateExcluded {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
