package pipeline_test

// In-memory fakes for the pipeline ports, shared by the service tests.

import (
	"context"
	"errors"
	"fmt"

	"talentflow/pipeline-service/internal/pipeline"
)

// ─── Phase store ─────────────────────────────────────────────────────────────

type fakePhases struct {
	byID         map[string]*pipeline.Phase
	replaceCalls int
	replaceErr   error
}

func (f *fakePhases) GetByID(_ context.Context, id string) (*pipeline.Phase, error) {
	return f.byID[id], nil
}

func (f *fakePhases) ListActive(_ context.Context, companyID string, pt pipeline.PipelineType) ([]pipeline.Phase, error) {
	var out []pipeline.Phase
	for _, p := range f.byID {
		if p.CompanyID == companyID && p.PipelineType == pt && p.Status == pipeline.StatusActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePhases) ReplaceActiveSet(_ context.Context, companyID string, pt pipeline.PipelineType, phases []pipeline.Phase) ([]pipeline.Phase, error) {
	f.replaceCalls++
	if f.replaceErr != nil {
		return nil, f.replaceErr
	}
	created := make([]pipeline.Phase, 0, len(phases))
	for i, p := range phases {
		p.ID = fmt.Sprintf("phase-new-%d", i+1)
		p.CompanyID = companyID
		p.PipelineType = pt
		p.Status = pipeline.StatusActive
		created = append(created, p)
	}
	return created, nil
}

// ─── Workflow store ──────────────────────────────────────────────────────────

type fakeWorkflows struct {
	all []*pipeline.Workflow
}

func (f *fakeWorkflows) GetByID(_ context.Context, id string) (*pipeline.Workflow, error) {
	for _, w := range f.all {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, nil
}

func (f *fakeWorkflows) ListByPhase(_ context.Context, phaseID string, pt pipeline.PipelineType) ([]pipeline.Workflow, error) {
	var out []pipeline.Workflow
	for _, w := range f.all {
		if w.PhaseID == phaseID && w.PipelineType == pt && w.Status == pipeline.StatusActive {
			out = append(out, *w)
		}
	}
	return out, nil
}

// ─── Stage store ─────────────────────────────────────────────────────────────

type fakeStages struct {
	byID map[string]*pipeline.Stage
}

func (f *fakeStages) GetByID(_ context.Context, id string) (*pipeline.Stage, error) {
	return f.byID[id], nil
}

func (f *fakeStages) ListByWorkflow(_ context.Context, workflowID string) ([]pipeline.Stage, error) {
	var out []pipeline.Stage
	for _, s := range f.byID {
		if s.WorkflowID == workflowID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStages) GetInitialStage(_ context.Context, workflowID string) (*pipeline.Stage, error) {
	for _, s := range f.byID {
		if s.WorkflowID == workflowID && s.Type == pipeline.StageInitial {
			return s, nil
		}
	}
	return nil, nil
}

// ─── Work item store ─────────────────────────────────────────────────────────

type fakeItems struct {
	byID map[string]*pipeline.WorkItem

	updates        int
	failUpdateFrom int // fail the Nth and later updates (1-based); 0 = never
	staleFrom      int // report ErrStaleWorkItem from the Nth update on; 0 = never
}

func (f *fakeItems) GetByID(_ context.Context, id string) (*pipeline.WorkItem, error) {
	stored, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *stored
	return &cp, nil
}

func (f *fakeItems) UpdatePipelineState(_ context.Context, item *pipeline.WorkItem) error {
	f.updates++
	if f.failUpdateFrom > 0 && f.updates >= f.failUpdateFrom {
		return errors.New("store unavailable")
	}
	if f.staleFrom > 0 && f.updates >= f.staleFrom {
		return pipeline.ErrStaleWorkItem
	}
	stored, ok := f.byID[item.ID]
	if !ok || stored.Version != item.Version {
		return pipeline.ErrStaleWorkItem
	}
	cp := *item
	cp.Version++
	f.byID[item.ID] = &cp
	item.Version++
	return nil
}

// ─── Permission inputs ───────────────────────────────────────────────────────

type fakeAssignments struct {
	byKey map[string]*pipeline.PositionStageAssignment // "position|stage"
	err   error
}

func assignmentKey(positionID, stageID string) string { return positionID + "|" + stageID }

func (f *fakeAssignments) Get(_ context.Context, positionID, stageID string) (*pipeline.PositionStageAssignment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byKey[assignmentKey(positionID, stageID)], nil
}

type fakeRoles struct {
	admins map[string]bool // "user|company"
}

func (f *fakeRoles) IsCompanyAdmin(_ context.Context, userID, companyID string) (bool, error) {
	return f.admins[userID+"|"+companyID], nil
}

// ─── Interview collaborators ─────────────────────────────────────────────────

type fakePending struct {
	blocked map[string]bool // "candidate|stage"
	err     error
}

func (f *fakePending) HasPendingInterviews(_ context.Context, candidateID, stageID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.blocked[candidateID+"|"+stageID], nil
}

func (f *fakePending) PendingInterviewCount(_ context.Context, candidateID, stageID string) (int, error) {
	if f.blocked[candidateID+"|"+stageID] {
		return 1, nil
	}
	return 0, nil
}

type fakeTemplates struct {
	byID map[string]*pipeline.InterviewTemplate
}

func (f *fakeTemplates) GetByID(_ context.Context, id string) (*pipeline.InterviewTemplate, error) {
	return f.byID[id], nil
}

type fakeApps struct {
	byCandidate map[string]*pipeline.Application
}

func (f *fakeApps) FirstActiveForCandidate(_ context.Context, candidateID, _ string) (*pipeline.Application, error) {
	return f.byCandidate[candidateID], nil
}

type fakeDispatcher struct {
	requests []pipeline.InterviewRequest
	err      error
}

func (f *fakeDispatcher) DispatchInterview(_ context.Context, req pipeline.InterviewRequest) error {
	if f.err != nil {
		return f.err
	}
	f.requests = append(f.requests, req)
	return nil
}

type fakeEvents struct {
	published []pipeline.StageChangedEvent
	err       error
}

func (f *fakeEvents) PublishStageChanged(_ context.Context, evt pipeline.StageChangedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, evt)
	return nil
}

// ─── Fixture ─────────────────────────────────────────────────────────────────

// fixture is a two-phase candidate pipeline:
//
//	P1 / W1 (default): A (INITIAL) → B (PROGRESS) → S (SUCCESS, next phase P2)
//	P2 / W2 (default): I2 (INITIAL)
//
// with one work item sitting at stage A.
type fixture struct {
	phases     *fakePhases
	workflows  *fakeWorkflows
	stages     *fakeStages
	items      *fakeItems
	pending    *fakePending
	templates  *fakeTemplates
	apps       *fakeApps
	dispatcher *fakeDispatcher
	events     *fakeEvents

	trigger *pipeline.InterviewTrigger
	svc     *pipeline.TransitionService
}

func strptr(s string) *string { return &s }

func newFixture() *fixture {
	f := &fixture{
		phases: &fakePhases{byID: map[string]*pipeline.Phase{
			"P1": {ID: "P1", CompanyID: "co-1", PipelineType: pipeline.PipelineCandidateApplication,
				Name: "Sourcing", SortOrder: 1, Status: pipeline.StatusActive},
			"P2": {ID: "P2", CompanyID: "co-1", PipelineType: pipeline.PipelineCandidateApplication,
				Name: "Evaluation", SortOrder: 2, Status: pipeline.StatusActive},
		}},
		workflows: &fakeWorkflows{all: []*pipeline.Workflow{
			{ID: "W1", PhaseID: "P1", CompanyID: "co-1", PipelineType: pipeline.PipelineCandidateApplication,
				Name: "Default sourcing", IsDefault: true, Status: pipeline.StatusActive},
			{ID: "W2", PhaseID: "P2", CompanyID: "co-1", PipelineType: pipeline.PipelineCandidateApplication,
				Name: "Default evaluation", IsDefault: true, Status: pipeline.StatusActive},
		}},
		stages: &fakeStages{byID: map[string]*pipeline.Stage{
			"A":  {ID: "A", WorkflowID: "W1", Name: "New", Type: pipeline.StageInitial, Order: 1},
			"B":  {ID: "B", WorkflowID: "W1", Name: "Screening", Type: pipeline.StageProgress, Order: 2},
			"S":  {ID: "S", WorkflowID: "W1", Name: "Qualified", Type: pipeline.StageSuccess, Order: 3, NextPhaseID: strptr("P2")},
			"I2": {ID: "I2", WorkflowID: "W2", Name: "To evaluate", Type: pipeline.StageInitial, Order: 1},
		}},
		items: &fakeItems{byID: map[string]*pipeline.WorkItem{
			"item-1": {
				ID: "item-1", CompanyID: "co-1", CandidateID: "cand-1", PositionID: "pos-1",
				PipelineType: pipeline.PipelineCandidateApplication,
				WorkflowID:   strptr("W1"), CurrentStageID: strptr("A"), PhaseID: strptr("P1"),
				Status: "IN_PROCESS", Version: 3,
			},
		}},
		pending:    &fakePending{blocked: map[string]bool{}},
		templates:  &fakeTemplates{byID: map[string]*pipeline.InterviewTemplate{}},
		apps:       &fakeApps{byCandidate: map[string]*pipeline.Application{}},
		dispatcher: &fakeDispatcher{},
		events:     &fakeEvents{},
	}

	f.trigger = pipeline.NewInterviewTrigger(f.templates, f.apps, f.dispatcher)
	validator := pipeline.NewValidator(f.stages, f.workflows)
	f.svc = pipeline.NewTransitionService(
		f.items, f.stages, f.workflows, f.phases, validator, f.pending, f.trigger, f.events)
	return f
}

func (f *fixture) item(id string) *pipeline.WorkItem {
	return f.items.byID[id]
}
