// Package events publishes pipeline commands and events over Redis pub/sub.
//
// Channels:
//
//	CMD_CREATE_INTERVIEW        → interview subsystem creates a work order
//	EVENT_STAGE_CHANGED         → gateway forwards to clients (SSE)
//	EVENT_STAGE_DEADLINE_MISSED → notification service nudges recruiters
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"talentflow/pipeline-service/internal/pipeline"
)

const (
	ChannelCreateInterview = "CMD_CREATE_INTERVIEW"
	ChannelStageChanged    = "EVENT_STAGE_CHANGED"
	ChannelDeadlineMissed  = "EVENT_STAGE_DEADLINE_MISSED"
)

// Publisher implements pipeline.EventPublisher and pipeline.InterviewDispatcher
// on top of Redis pub/sub.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher returns a configured Publisher.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// envelope is the wire shape shared by all channels: a type tag plus payload.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (p *Publisher) publish(ctx context.Context, channel string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", channel, err)
	}
	msg, err := json.Marshal(envelope{Type: channel, Payload: raw})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", channel, err)
	}
	if err := p.rdb.Publish(ctx, channel, msg).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// PublishStageChanged emits EVENT_STAGE_CHANGED after a persisted transition.
func (p *Publisher) PublishStageChanged(ctx context.Context, evt pipeline.StageChangedEvent) error {
	return p.publish(ctx, ChannelStageChanged, evt)
}

// DispatchInterview emits CMD_CREATE_INTERVIEW for the interview subsystem.
func (p *Publisher) DispatchInterview(ctx context.Context, req pipeline.InterviewRequest) error {
	return p.publish(ctx, ChannelCreateInterview, req)
}

// PublishDeadlineMissed emits EVENT_STAGE_DEADLINE_MISSED from the sweeper.
func (p *Publisher) PublishDeadlineMissed(ctx context.Context, item pipeline.OverdueWorkItem) error {
	return p.publish(ctx, ChannelDeadlineMissed, item)
}
