// Package alerts fans security alerts out to Redis so guard stations can react
// while the terminal keeps its own audit journal.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/logger"
)

const (
	// publishTimeout bounds one publish.
	publishTimeout = 2 * time.Second
	// recentAlerts is how many alerts are kept in the recent list.
	recentAlerts = 50
	// recentSuffix names the capped list next to the channel.
	recentSuffix = ":recent"
)

// Message is the JSON document published per alert.
type Message struct {
	// ID is the audit entry id, when assigned.
	ID string `json:"id,omitempty"`
	// Action classifies the event.
	Action string `json:"action"`
	// Entity is the subject of the event.
	Entity string `json:"entity"`
	// Details is the human readable description.
	Details string `json:"details"`
	// User raised the event.
	User string `json:"user"`
	// ThreatClass is the detected class.
	ThreatClass string `json:"threat_class,omitempty"`
	// Confidence is the detection score.
	Confidence float64 `json:"confidence,omitempty"`
	// Timestamp is when the event happened.
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes security audit entries on a Redis channel and keeps a
// capped list of recent ones.
type Publisher struct {
	// client is the Redis connection.
	client *redis.Client
	// channel is the pub/sub channel.
	channel string
}

// Connect dials Redis at addr and verifies the connection.
func Connect(ctx context.Context, addr, channel string) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewPublisher(client, channel), nil
}

// NewPublisher wraps an existing client.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{
		client:  client,
		channel: channel,
	}
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// Ping checks that Redis answers.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Record publishes entry. Failures are logged and dropped.
func (p *Publisher) Record(ctx context.Context, entry access.SecurityAuditEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.Publish(ctx, entry); err != nil {
		logger.ErrorKV(ctx, "Failed to publish security alert", "channel", p.channel, "error", err)
	}
}

// Publish sends entry to subscribers and the recent list.
func (p *Publisher) Publish(ctx context.Context, entry access.SecurityAuditEntry) error {
	payload, err := json.Marshal(Message{
		ID:          entry.ID,
		Action:      string(entry.Action),
		Entity:      entry.Entity,
		Details:     entry.Details,
		User:        entry.User,
		ThreatClass: entry.ThreatClass,
		Confidence:  entry.Confidence,
		Timestamp:   entry.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, p.channel, payload)
	pipe.LPush(ctx, p.channel+recentSuffix, payload)
	pipe.LTrim(ctx, p.channel+recentSuffix, 0, recentAlerts-1)

	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}

	return nil
}

// Recent returns up to limit of the latest alerts, newest first.
func (p *Publisher) Recent(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 || limit > recentAlerts {
		limit = recentAlerts
	}

	raw, err := p.client.LRange(ctx, p.channel+recentSuffix, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent alerts: %w", err)
	}

	messages := make([]Message, 0, len(raw))

	for _, item := range raw {
		var msg Message
		if err = json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode alert: %w", err)
		}

		messages = append(messages, msg)
	}

	return messages, nil
}
