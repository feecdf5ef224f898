// Package command is the in-process boundary of the pipeline service: an
// explicit routing table from command names to handler instances, injected at
// construction. No reflection, no container lookups — what is registered is
// visible in one place (Wire in handlers.go).
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"talentflow/pipeline-service/internal/pipeline"
)

// Command names accepted by the registry.
const (
	CmdAssignWorkflow      = "pipeline.assign_workflow"
	CmdChangeStage         = "pipeline.change_stage"
	CmdInitializePipeline  = "pipeline.initialize"
	QueryAssignedUsers     = "pipeline.assigned_users"
	QueryPendingInterviews = "pipeline.pending_interview_count"
	QueryWorkflowStages    = "pipeline.workflow_stages"
)

// Handler executes one command. Payloads are JSON so handlers can be driven
// identically from the Redis listener and from tests.
type Handler interface {
	Handle(ctx context.Context, payload json.RawMessage) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, payload json.RawMessage) (any, error) {
	return f(ctx, payload)
}

// Registry maps command names to handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a command name. Registering a name twice is a
// wiring bug and fails with a ConflictError.
func (r *Registry) Register(name string, h Handler) error {
	if name == "" || h == nil {
		return fmt.Errorf("register: name and handler are required")
	}
	if _, dup := r.handlers[name]; dup {
		return &pipeline.ConflictError{Msg: fmt.Sprintf("command %q already registered", name)}
	}
	r.handlers[name] = h
	return nil
}

// Dispatch routes a command to its handler.
func (r *Registry) Dispatch(ctx context.Context, name string, payload json.RawMessage) (any, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown command %q: %w", name, pipeline.ErrNotFound)
	}
	return h.Handle(ctx, payload)
}

// Names returns the registered command names, sorted, for startup logging.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
