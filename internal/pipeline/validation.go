package pipeline

import (
	"context"
	"fmt"
)

// Validator enforces the stage/workflow/phase containment rules before any
// assignment touches a work item.
type Validator struct {
	stages    StageStore
	workflows WorkflowStore
}

// NewValidator returns a configured Validator.
func NewValidator(stages StageStore, workflows WorkflowStore) *Validator {
	return &Validator{stages: stages, workflows: workflows}
}

// StageBelongsToWorkflow checks that the stage exists and belongs to the
// given workflow, returning the stage for reuse by the caller.
func (v *Validator) StageBelongsToWorkflow(ctx context.Context, stageID, workflowID string) (*Stage, error) {
	stage, err := v.stages.GetByID(ctx, stageID)
	if err != nil {
		return nil, fmt.Errorf("load stage %s: %w", stageID, err)
	}
	if stage == nil {
		return nil, notFoundf("stage %s", stageID)
	}
	if stage.WorkflowID != workflowID {
		return nil, &IntegrityError{
			Msg: fmt.Sprintf("stage %s belongs to workflow %s, not %s", stageID, stage.WorkflowID, workflowID),
		}
	}
	return stage, nil
}

// WorkflowPhase checks that the workflow exists and has a phase, returning
// the phase id. This is the single choke point guaranteeing no work item is
// ever assigned a workflow without a phase.
func (v *Validator) WorkflowPhase(ctx context.Context, workflowID string) (string, error) {
	wf, err := v.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return "", fmt.Errorf("load workflow %s: %w", workflowID, err)
	}
	if wf == nil {
		return "", notFoundf("workflow %s", workflowID)
	}
	if wf.PhaseID == "" {
		return "", &IntegrityError{
			Msg: fmt.Sprintf("workflow %s has no phase", workflowID),
		}
	}
	return wf.PhaseID, nil
}
