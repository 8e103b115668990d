// Package jobs は Asynq を使った非同期ジョブ（監査イベントの配送）を提供します。
//
// リクエスト処理中は Redis のキューへ積むだけにして、Kafka への書き込みは
// ワーカーが再試行つきで行います。
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/yourusername/taskdock/internal/audit"
	"github.com/yourusername/taskdock/internal/logging"
)

const (
	taskTypeAudit = "audit:deliver"
	queueAudit    = "audit"
	maxRetry      = 5
)

// Manager はジョブの投入とワーカーの管理を担います。
// audit.Publisher を満たすので、そのまま auth.Manager に渡せます。
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	sink   audit.Publisher
	logger *slog.Logger
}

// NewManager は Manager を初期化します。sink はワーカーが最終的に書き込む先です。
func NewManager(redisURL string, sink audit.Publisher, logger *slog.Logger) (*Manager, error) {
	if sink == nil {
		return nil, errors.New("sink is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{queueAudit: 1},
		Logger:      newAsynqLogger(logger),
	})

	manager := &Manager{
		client: asynq.NewClient(opt),
		server: server,
		mux:    asynq.NewServeMux(),
		sink:   sink,
		logger: logger,
	}
	manager.mux.HandleFunc(taskTypeAudit, manager.handleAuditTask)
	return manager, nil
}

// StartWorkers はワーカーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() error {
	return m.server.Start(m.mux)
}

// Close はワーカーを止めてからクライアントと sink を閉じます。
func (m *Manager) Close() error {
	m.server.Shutdown()
	return errors.Join(m.client.Close(), m.sink.Close())
}

// Publish はイベントをキューに投入します。
func (m *Manager) Publish(ctx context.Context, event audit.Event) error {
	task, err := newAuditTask(event)
	if err != nil {
		return err
	}
	if _, err := m.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue audit event: %w", err)
	}
	return nil
}

func newAuditTask(event audit.Event) (*asynq.Task, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskTypeAudit, body, asynq.Queue(queueAudit), asynq.MaxRetry(maxRetry)), nil
}

func (m *Manager) handleAuditTask(ctx context.Context, task *asynq.Task) error {
	var event audit.Event
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		// 壊れたペイロードは何度試しても直らない
		return fmt.Errorf("invalid audit payload: %v: %w", err, asynq.SkipRetry)
	}
	if event.Type == "" {
		return fmt.Errorf("missing event type: %w", asynq.SkipRetry)
	}

	if err := m.sink.Publish(ctx, event); err != nil {
		m.logger.Warn("audit delivery failed", "type", event.Type, logging.Err(err))
		return err
	}
	return nil
}
