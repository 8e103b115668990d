// Package audit は認証イベント（登録・サインイン・サインアウト）の送出を提供します。
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// イベント種別
const (
	EventSignup        = "signup"
	EventSignin        = "signin"
	EventSigninFailed  = "signin_failed"
	EventSigninLocked  = "signin_locked"
	EventSignout       = "signout"
	EventSessionRevoke = "session_revoked"
)

// Event は監査ログ1件分です。
type Event struct {
	Type   string    `json:"type"`
	UserID string    `json:"userId,omitempty"`
	Email  string    `json:"email,omitempty"`
	IP     string    `json:"ip,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher はイベントの送出先です。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// KafkaPublisher は Kafka のトピックへイベントを書き込みます。
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaPublisher は KafkaPublisher を作成します。
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			BatchSize:              1,
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

// Publish はイベントを JSON で書き込みます。キーはメールアドレスです。
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := newMessage(p.topic, event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

func newMessage(topic string, event Event) (kafka.Message, error) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal audit event: %w", err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(event.Email),
		Value: payload,
	}, nil
}

// Close は writer を閉じます。
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop は何も送出しない Publisher です（ブローカー未設定時に使います）。
type Nop struct{}

func (Nop) Publish(ctx context.Context, event Event) error { return nil }
func (Nop) Close() error                                   { return nil }
