package command

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"talentflow/pipeline-service/internal/pipeline"
)

// ChannelCommands is the Redis channel the gateway publishes pipeline
// commands on.
const ChannelCommands = "CMD_PIPELINE"

// message is the wire shape on ChannelCommands.
type message struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload"`
}

// Listener subscribes to ChannelCommands and feeds messages through the
// registry. Command failures are logged, never fatal: one malformed or
// rejected command must not take the subscription down.
type Listener struct {
	rdb      *redis.Client
	registry *Registry
}

// NewListener returns a configured Listener.
func NewListener(rdb *redis.Client, registry *Registry) *Listener {
	return &Listener{rdb: rdb, registry: registry}
}

// Start subscribes and consumes until ctx is cancelled. The returned error is
// only the subscription failure; it is nil on clean shutdown.
func (l *Listener) Start(ctx context.Context) error {
	sub := l.rdb.Subscribe(ctx, ChannelCommands)
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	slog.Info("command listener subscribed", "channel", ChannelCommands, "commands", l.registry.Names())

	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				l.handle(ctx, msg.Payload)
			}
		}
	}()
	return nil
}

func (l *Listener) handle(ctx context.Context, raw string) {
	var m message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		slog.Warn("command listener: malformed message", "err", err)
		return
	}

	if _, err := l.registry.Dispatch(ctx, m.Command, m.Payload); err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNotFound):
			slog.Warn("command rejected: not found", "command", m.Command, "err", err)
		case isDomainRejection(err):
			slog.Warn("command rejected", "command", m.Command, "err", err)
		default:
			slog.Error("command failed", "command", m.Command, "err", err)
		}
	}
}

func isDomainRejection(err error) bool {
	var ie *pipeline.IntegrityError
	var ce *pipeline.ConflictError
	var pe *pipeline.PermissionError
	return errors.As(err, &ie) || errors.As(err, &ce) || errors.As(err, &pe)
}
