package tasks

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskdock/internal/apierr"
	"github.com/yourusername/taskdock/internal/auth"
	"github.com/yourusername/taskdock/internal/logging"
)

// Handler は /api/tasks のハンドラー群です。
// 呼び出し元のユーザーIDは auth.Manager.RequireSession が検証したものだけを使い、
// リクエストボディからは受け取りません。
type Handler struct {
	store   Store
	timeout time.Duration
}

// NewHandler は Handler を作成します。timeout は1リクエストあたりのストア操作の上限です。
func NewHandler(store Store, timeout time.Duration) *Handler {
	return &Handler{store: store, timeout: timeout}
}

// Register はハンドラーをルートグループに登録します。
func (h *Handler) Register(rg gin.IRoutes) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.PATCH("", h.Update)
	rg.DELETE("", h.Delete)
}

type createRequest struct {
	Title    string   `json:"title" binding:"required"`
	Deadline string   `json:"deadline" binding:"required,datetime=2006-01-02"`
	Priority Priority `json:"priority" binding:"required,oneof=low medium high"`
}

type updateRequest struct {
	ID        string   `json:"id" binding:"required"`
	Title     string   `json:"title" binding:"required"`
	Deadline  string   `json:"deadline" binding:"required,datetime=2006-01-02"`
	Priority  Priority `json:"priority" binding:"required,oneof=low medium high"`
	Completed *bool    `json:"completed" binding:"required"`
}

type deleteRequest struct {
	ID string `json:"id" binding:"required"`
}

// Create は POST /api/tasks のハンドラーです。
func (h *Handler) Create(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Validation("title, deadline(YYYY-MM-DD), priority(low/medium/high) を JSON で送ってください"))
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		apierr.Respond(c, apierr.Validation("title を入力してください"))
		return
	}

	ctx, cancel := h.storeContext(c)
	defer cancel()

	id, err := h.store.Create(ctx, caller.UserID, Draft{
		Title:    title,
		Deadline: req.Deadline,
		Priority: req.Priority,
	})
	if err != nil {
		apierr.Respond(c, apierr.Internal(err))
		return
	}

	logging.From(c).Info("task created", "task_id", id)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"taskId":  id,
	})
}

// List は GET /api/tasks のハンドラーです。
func (h *Handler) List(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	ctx, cancel := h.storeContext(c)
	defer cancel()

	tasks, err := h.store.ListByOwner(ctx, caller.UserID)
	if err != nil {
		apierr.Respond(c, apierr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// Update は PATCH /api/tasks のハンドラーです。
// 一致するタスクが無い場合（存在しない・他人のもの）は success:false を返します。
func (h *Handler) Update(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Validation("id, title, deadline(YYYY-MM-DD), priority(low/medium/high), completed を JSON で送ってください"))
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		apierr.Respond(c, apierr.Validation("title を入力してください"))
		return
	}

	ctx, cancel := h.storeContext(c)
	defer cancel()

	updated, err := h.store.Replace(ctx, caller.UserID, req.ID, Update{
		Title:     title,
		Deadline:  req.Deadline,
		Priority:  req.Priority,
		Completed: *req.Completed,
	})
	if err != nil {
		apierr.Respond(c, apierr.Internal(err))
		return
	}
	if !updated {
		logging.From(c).Info("task update matched nothing", "task_id", req.ID)
	}
	c.JSON(http.StatusOK, gin.H{"success": updated})
}

// Delete は DELETE /api/tasks のハンドラーです。
func (h *Handler) Delete(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Validation("削除するタスクの id を JSON で送ってください"))
		return
	}

	ctx, cancel := h.storeContext(c)
	defer cancel()

	removed, err := h.store.Remove(ctx, caller.UserID, req.ID)
	if err != nil {
		apierr.Respond(c, apierr.Internal(err))
		return
	}
	if !removed {
		logging.From(c).Info("task delete matched nothing", "task_id", req.ID)
	}
	c.JSON(http.StatusOK, gin.H{"success": removed})
}

func (h *Handler) caller(c *gin.Context) (*auth.Caller, bool) {
	caller, ok := auth.CallerFrom(c)
	if !ok {
		apierr.Respond(c, apierr.Unauthenticated("ログインが必要です"))
	}
	return caller, ok
}

func (h *Handler) storeContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}
