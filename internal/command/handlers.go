package command

import (
	"context"
	"encoding/json"
	"fmt"

	"talentflow/pipeline-service/internal/pipeline"
)

// Narrow views of the pipeline services, so tests can stub them.

// Transitioner is the stage transition engine.
type Transitioner interface {
	AssignWorkflow(ctx context.Context, workItemID, workflowID, initialStageID string) (*pipeline.WorkItem, error)
	ChangeStage(ctx context.Context, workItemID, newStageID string) (*pipeline.WorkItem, error)
}

// Authorizer gates who may move a work item.
type Authorizer interface {
	CanUserChangeStage(ctx context.Context, userID string, item *pipeline.WorkItem, targetStageID, companyID string) (bool, error)
	AssignedUsersForStage(ctx context.Context, positionID, stageID string) ([]string, error)
}

// PipelineInitializer rebuilds a company's phase layout.
type PipelineInitializer interface {
	Initialize(ctx context.Context, companyID string, pt pipeline.PipelineType, seeds []pipeline.PhaseSeed) ([]pipeline.Phase, error)
}

// Deps bundles everything the handlers need.
type Deps struct {
	Items       pipeline.WorkItemStore
	Stages      pipeline.StageStore
	Transitions Transitioner
	Permissions Authorizer
	Initializer PipelineInitializer
	Pending     pipeline.PendingInterviewChecker
}

// Wire registers every pipeline command on the registry.
func Wire(r *Registry, d Deps) error {
	bindings := map[string]Handler{
		CmdAssignWorkflow:      assignWorkflowHandler(d),
		CmdChangeStage:         changeStageHandler(d),
		CmdInitializePipeline:  initializePipelineHandler(d),
		QueryAssignedUsers:     assignedUsersHandler(d),
		QueryPendingInterviews: pendingInterviewsHandler(d),
		QueryWorkflowStages:    workflowStagesHandler(d),
	}
	for name, h := range bindings {
		if err := r.Register(name, h); err != nil {
			return err
		}
	}
	return nil
}

func decode[T any](payload json.RawMessage) (T, error) {
	var req T
	if err := json.Unmarshal(payload, &req); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload: %w", err)
	}
	return req, nil
}

// ─── Commands ────────────────────────────────────────────────────────────────

func assignWorkflowHandler(d Deps) Handler {
	type request struct {
		WorkItemID     string `json:"workItemId"`
		WorkflowID     string `json:"workflowId"`
		InitialStageID string `json:"initialStageId"`
	}
	return HandlerFunc(func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[request](payload)
		if err != nil {
			return nil, err
		}
		return d.Transitions.AssignWorkflow(ctx, req.WorkItemID, req.WorkflowID, req.InitialStageID)
	})
}

func changeStageHandler(d Deps) Handler {
	type request struct {
		WorkItemID    string `json:"workItemId"`
		TargetStageID string `json:"targetStageId"`
		ActorUserID   string `json:"actorUserId"`
		CompanyID     string `json:"companyId"`
	}
	return HandlerFunc(func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[request](payload)
		if err != nil {
			return nil, err
		}

		item, err := d.Items.GetByID(ctx, req.WorkItemID)
		if err != nil {
			return nil, fmt.Errorf("load work item %s: %w", req.WorkItemID, err)
		}
		if item == nil {
			return nil, fmt.Errorf("work item %s: %w", req.WorkItemID, pipeline.ErrNotFound)
		}

		allowed, err := d.Permissions.CanUserChangeStage(ctx, req.ActorUserID, item, req.TargetStageID, req.CompanyID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, &pipeline.PermissionError{
				Msg: fmt.Sprintf("user %s may not move work item %s", req.ActorUserID, req.WorkItemID),
			}
		}

		return d.Transitions.ChangeStage(ctx, req.WorkItemID, req.TargetStageID)
	})
}

func initializePipelineHandler(d Deps) Handler {
	type request struct {
		CompanyID    string               `json:"companyId"`
		PipelineType string               `json:"pipelineType"`
		Phases       []pipeline.PhaseSeed `json:"phases"`
	}
	return HandlerFunc(func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[request](payload)
		if err != nil {
			return nil, err
		}
		pt, err := pipeline.ParsePipelineType(req.PipelineType)
		if err != nil {
			return nil, err
		}
		return d.Initializer.Initialize(ctx, req.CompanyID, pt, req.Phases)
	})
}

// ─── Queries ─────────────────────────────────────────────────────────────────

func assignedUsersHandler(d Deps) Handler {
	type request struct {
		PositionID string `json:"positionId"`
		StageID    string `json:"stageId"`
	}
	return HandlerFunc(func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[request](payload)
		if err != nil {
			return nil, err
		}
		return d.Permissions.AssignedUsersForStage(ctx, req.PositionID, req.StageID)
	})
}

func workflowStagesHandler(d Deps) Handler {
	type request struct {
		WorkflowID string `json:"workflowId"`
	}
	return HandlerFunc(func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[request](payload)
		if err != nil {
			return nil, err
		}
		return d.Stages.ListByWorkflow(ctx, req.WorkflowID)
	})
}

func pendingInterviewsHandler(d Deps) Handler {
	type request struct {
		CandidateID string `json:"candidateId"`
		StageID     string `json:"stageId"`
	}
	return HandlerFunc(func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[request](payload)
		if err != nil {
			return nil, err
		}
		return d.Pending.PendingInterviewCount(ctx, req.CandidateID, req.StageID)
	})
}
