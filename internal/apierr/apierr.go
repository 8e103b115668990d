// Package apierr は API のエラー分類と JSON レスポンスへの変換を提供します。
package apierr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskdock/internal/logging"
)

// Error は API 利用者へ返すエラーを表します。
// Err は内部向けの原因で、レスポンスには含めません。
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation は必須項目の欠落や形式不正（400）を表します。
func Validation(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "INVALID_INPUT", Message: message}
}

// Unauthenticated はセッションが無い・無効・期限切れ（401）を表します。
func Unauthenticated(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

// NotFound はリソースが存在しない（404）ことを表します。
func NotFound(code, message string) *Error {
	return &Error{Status: http.StatusNotFound, Code: code, Message: message}
}

// Conflict は一意制約違反（409）を表します。
func Conflict(code, message string) *Error {
	return &Error{Status: http.StatusConflict, Code: code, Message: message}
}

// TooManyAttempts は試行回数超過（429）を表します。
func TooManyAttempts(message string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Code: "TOO_MANY_ATTEMPTS", Message: message}
}

// RateLimited はリクエスト頻度の上限超過（429）を表します。
func RateLimited(message string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Code: "RATE_LIMITED", Message: message}
}

// Internal はストアや暗号処理の失敗（500）を表します。
func Internal(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: "サーバー内部でエラーが発生しました",
		Err:     err,
	}
}

// Respond はエラーを JSON レスポンスとして書き込みます。
// *Error 以外は 500 として扱い、詳細はログにのみ残します。
func Respond(c *gin.Context, err error) {
	apiErr := from(err)
	logFailure(c, apiErr)
	c.JSON(apiErr.Status, body(apiErr))
}

// Abort は Respond と同様ですが、後続のハンドラーを中断します（ミドルウェア用）。
func Abort(c *gin.Context, err error) {
	apiErr := from(err)
	logFailure(c, apiErr)
	c.AbortWithStatusJSON(apiErr.Status, body(apiErr))
}

func from(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(err)
}

func body(e *Error) gin.H {
	return gin.H{
		"code":    e.Code,
		"message": e.Message,
	}
}

func logFailure(c *gin.Context, e *Error) {
	if e.Status < http.StatusInternalServerError {
		return
	}
	logging.From(c).Error("request failed",
		"code", e.Code,
		logging.Err(e.Unwrap()),
	)
}
