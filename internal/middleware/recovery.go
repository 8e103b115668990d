package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskdock/internal/apierr"
	"github.com/yourusername/taskdock/internal/logging"
)

// Recovery は panic を 500 の JSON レスポンスに変換します。スタックはログにだけ残します。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logging.From(c).Error("panic recovered",
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
				apierr.Abort(c, apierr.Internal(fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}
