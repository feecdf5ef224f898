package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// TransitionService is the only writer of a work item's
// {phase, workflow, stage} triple. Each call runs load → validate → mutate →
// persist → cascade → side effects to completion before returning.
type TransitionService struct {
	items     WorkItemStore
	stages    StageStore
	workflows WorkflowStore
	phases    PhaseStore
	validator *Validator
	pending   PendingInterviewChecker
	trigger   *InterviewTrigger
	events    EventPublisher

	// locks serializes concurrent transitions per work item id. The
	// optimistic version check in WorkItemStore covers competing processes;
	// this covers competing goroutines in the same process without burning a
	// version conflict on each.
	locks sync.Map // work item id → *sync.Mutex
}

// NewTransitionService returns a configured TransitionService.
func NewTransitionService(
	items WorkItemStore,
	stages StageStore,
	workflows WorkflowStore,
	phases PhaseStore,
	validator *Validator,
	pending PendingInterviewChecker,
	trigger *InterviewTrigger,
	events EventPublisher,
) *TransitionService {
	return &TransitionService{
		items:     items,
		stages:    stages,
		workflows: workflows,
		phases:    phases,
		validator: validator,
		pending:   pending,
		trigger:   trigger,
		events:    events,
	}
}

func (s *TransitionService) lockItem(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// AssignWorkflow places a work item into a pipeline for the first time,
// setting the workflow/stage/phase triple atomically.
//
// All validation happens before any mutation: on error the work item is
// untouched. Returns ErrNotFound for a missing item, workflow or stage, an
// IntegrityError if the stage is not part of the workflow or the workflow has
// no phase, and a ConflictError if the item was modified concurrently.
func (s *TransitionService) AssignWorkflow(ctx context.Context, workItemID, workflowID, initialStageID string) (*WorkItem, error) {
	unlock := s.lockItem(workItemID)
	defer unlock()

	item, err := s.items.GetByID(ctx, workItemID)
	if err != nil {
		return nil, fmt.Errorf("load work item %s: %w", workItemID, err)
	}
	if item == nil {
		return nil, notFoundf("work item %s", workItemID)
	}

	stage, err := s.validator.StageBelongsToWorkflow(ctx, initialStageID, workflowID)
	if err != nil {
		return nil, err
	}
	phaseID, err := s.validator.WorkflowPhase(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	from := ""
	if item.CurrentStageID != nil {
		from = *item.CurrentStageID
	}
	item.WorkflowID = &workflowID
	item.CurrentStageID = &stage.ID
	item.PhaseID = &phaseID

	if err := s.saveItem(ctx, item); err != nil {
		return nil, err
	}

	s.publishStageChanged(ctx, item, from, false, false)
	return item, nil
}

// ChangeStage moves a work item to a new stage.
//
// A move within the current phase updates the stage (keeping the workflow in
// lockstep with it); a move into a stage of a different phase re-assigns the
// whole triple. If the target stage is a SUCCESS stage with a next-phase
// pointer, the item is then cascaded into the next phase's default workflow
// at its INITIAL stage — one hop only, even if the entered stage is itself a
// SUCCESS stage with its own pointer.
//
// Failures before the primary persist (missing records, pending interviews,
// integrity violations) surface to the caller with the item unchanged.
// Failures after it — cascade resolution, event publish, interview dispatch —
// are logged and swallowed: a returned nil error means "stage changed", no
// more, no less.
func (s *TransitionService) ChangeStage(ctx context.Context, workItemID, newStageID string) (*WorkItem, error) {
	unlock := s.lockItem(workItemID)
	defer unlock()

	item, err := s.items.GetByID(ctx, workItemID)
	if err != nil {
		return nil, fmt.Errorf("load work item %s: %w", workItemID, err)
	}
	if item == nil {
		return nil, notFoundf("work item %s", workItemID)
	}

	stage, err := s.stages.GetByID(ctx, newStageID)
	if err != nil {
		return nil, fmt.Errorf("load stage %s: %w", newStageID, err)
	}
	if stage == nil {
		return nil, notFoundf("stage %s", newStageID)
	}

	// In-flight interviews against the current stage must be completed or
	// cancelled first; advancing now would silently orphan them.
	if item.CurrentStageID != nil {
		blocked, err := s.pending.HasPendingInterviews(ctx, item.CandidateID, *item.CurrentStageID)
		if err != nil {
			return nil, fmt.Errorf("pending-interview check for work item %s: %w", workItemID, err)
		}
		if blocked {
			return nil, &ConflictError{
				Msg: "pending interviews must be completed or cancelled before advancing",
			}
		}
	}

	targetPhaseID, err := s.validator.WorkflowPhase(ctx, stage.WorkflowID)
	if err != nil {
		return nil, err
	}

	from := ""
	if item.CurrentStageID != nil {
		from = *item.CurrentStageID
	}
	crossedPhase := item.PhaseID == nil || *item.PhaseID != targetPhaseID

	// The triple moves in lockstep either way; a cross-phase target makes
	// this a re-assignment rather than a bare stage update.
	item.CurrentStageID = &stage.ID
	item.WorkflowID = &stage.WorkflowID
	item.PhaseID = &targetPhaseID

	if err := s.saveItem(ctx, item); err != nil {
		return nil, err
	}

	finalStage, cascaded := s.cascade(ctx, item, stage)
	if IsTerminal(finalStage.Type) {
		slog.Info("work item reached terminal stage",
			"workItemId", item.ID, "stageId", finalStage.ID, "stageType", finalStage.Type)
	}

	s.publishStageChanged(ctx, item, from, crossedPhase, cascaded)
	if s.trigger != nil {
		s.trigger.Run(ctx, item, finalStage)
	}
	return item, nil
}

// cascade advances the item into the next phase's entry stage when the stage
// just entered is a SUCCESS stage with a next-phase pointer. Exactly one hop:
// the entered INITIAL stage's own pointer, if any, is left for a later call.
//
// Every failure here aborts the cascade and leaves the already-persisted
// primary move standing. Returns the item's final stage and whether the
// cascade happened.
func (s *TransitionService) cascade(ctx context.Context, item *WorkItem, stage *Stage) (*Stage, bool) {
	if stage.Type != StageSuccess || stage.NextPhaseID == nil {
		return stage, false
	}
	nextPhaseID := *stage.NextPhaseID

	log := slog.With("workItemId", item.ID, "stageId", stage.ID, "nextPhaseId", nextPhaseID)

	next, err := s.phases.GetByID(ctx, nextPhaseID)
	if err != nil || next == nil {
		log.Warn("cascade aborted: next phase unresolvable", "err", err)
		return stage, false
	}
	if next.PipelineType != item.PipelineType {
		log.Warn("cascade aborted: next phase has different pipeline type",
			"phasePipelineType", next.PipelineType, "itemPipelineType", item.PipelineType)
		return stage, false
	}

	workflows, err := s.workflows.ListByPhase(ctx, nextPhaseID, item.PipelineType)
	if err != nil {
		log.Warn("cascade aborted: workflow lookup failed", "err", err)
		return stage, false
	}
	if len(workflows) == 0 {
		log.Info("cascade skipped: next phase has no workflows")
		return stage, false
	}

	chosen := workflows[0]
	for _, wf := range workflows {
		if wf.IsDefault {
			chosen = wf
			break
		}
	}

	initial, err := s.stages.GetInitialStage(ctx, chosen.ID)
	if err != nil {
		log.Warn("cascade aborted: initial-stage lookup failed", "workflowId", chosen.ID, "err", err)
		return stage, false
	}
	if initial == nil {
		log.Warn("cascade aborted: workflow has no initial stage", "workflowId", chosen.ID)
		return stage, false
	}

	prior := *item
	item.PhaseID = &nextPhaseID
	item.WorkflowID = &chosen.ID
	item.CurrentStageID = &initial.ID

	if err := s.saveItem(ctx, item); err != nil {
		// Roll the in-memory view back to the persisted primary move.
		*item = prior
		log.Warn("cascade aborted: persist failed, primary move stands", "err", err)
		return stage, false
	}

	log.Info("work item cascaded into next phase", "workflowId", chosen.ID, "initialStageId", initial.ID)
	return initial, true
}

func (s *TransitionService) saveItem(ctx context.Context, item *WorkItem) error {
	err := s.items.UpdatePipelineState(ctx, item)
	if errors.Is(err, ErrStaleWorkItem) {
		return &ConflictError{
			Msg: fmt.Sprintf("work item %s was modified concurrently, retry", item.ID),
		}
	}
	if err != nil {
		return fmt.Errorf("persist work item %s: %w", item.ID, err)
	}
	return nil
}

func (s *TransitionService) publishStageChanged(ctx context.Context, item *WorkItem, from string, crossedPhase, cascaded bool) {
	if s.events == nil {
		return
	}
	evt := StageChangedEvent{
		WorkItemID:   item.ID,
		CompanyID:    item.CompanyID,
		CandidateID:  item.CandidateID,
		FromStageID:  from,
		CrossedPhase: crossedPhase,
		Cascaded:     cascaded,
	}
	if item.CurrentStageID != nil {
		evt.ToStageID = *item.CurrentStageID
	}
	if item.PhaseID != nil {
		evt.PhaseID = *item.PhaseID
	}
	if item.WorkflowID != nil {
		evt.WorkflowID = *item.WorkflowID
	}
	if err := s.events.PublishStageChanged(ctx, evt); err != nil {
		slog.Warn("publish stage-changed event failed", "workItemId", item.ID, "err", err)
	}
}
