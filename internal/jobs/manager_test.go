package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/yourusername/taskdock/internal/audit"
)

type recordingSink struct {
	events []audit.Event
	err    error
}

func (s *recordingSink) Publish(ctx context.Context, event audit.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func newTestManager(sink audit.Publisher) *Manager {
	return &Manager{sink: sink, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestNewManagerRejectsBadInput(t *testing.T) {
	if _, err := NewManager("redis://127.0.0.1:6379/0", nil, nil); err == nil {
		t.Fatal("expected error for nil sink")
	}
	if _, err := NewManager("not a url", &recordingSink{}, nil); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}

func TestAuditTaskRoundTrip(t *testing.T) {
	event := audit.Event{Type: audit.EventSignin, UserID: "u1", Email: "a@x.com", IP: "192.0.2.1", At: time.Now().UTC().Truncate(time.Second)}
	task, err := newAuditTask(event)
	if err != nil {
		t.Fatalf("newAuditTask returned error: %v", err)
	}
	if task.Type() != taskTypeAudit {
		t.Fatalf("unexpected task type: %s", task.Type())
	}

	sink := &recordingSink{}
	if err := newTestManager(sink).handleAuditTask(context.Background(), task); err != nil {
		t.Fatalf("handleAuditTask returned error: %v", err)
	}
	if len(sink.events) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(sink.events))
	}
	got := sink.events[0]
	if got.Type != event.Type || got.UserID != event.UserID || got.Email != event.Email || !got.At.Equal(event.At) {
		t.Fatalf("unexpected event: %#v", got)
	}
}

func TestAuditTaskSinkFailureIsRetried(t *testing.T) {
	task, err := newAuditTask(audit.Event{Type: audit.EventSignout})
	if err != nil {
		t.Fatalf("newAuditTask returned error: %v", err)
	}

	sinkErr := errors.New("kafka down")
	err = newTestManager(&recordingSink{err: sinkErr}).handleAuditTask(context.Background(), task)
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatal("transient sink failures should be retried")
	}
}

func TestAuditTaskBadPayloadSkipsRetry(t *testing.T) {
	m := newTestManager(&recordingSink{})

	for _, payload := range [][]byte{[]byte("{not json"), []byte(`{"email":"a@x.com"}`)} {
		err := m.handleAuditTask(context.Background(), asynq.NewTask(taskTypeAudit, payload))
		if !errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("payload %s: expected SkipRetry, got %v", payload, err)
		}
	}
}
