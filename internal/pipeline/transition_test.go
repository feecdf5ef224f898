package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentflow/pipeline-service/internal/pipeline"
)

// requireTriple asserts the stored work item's pipeline coordinates.
func requireTriple(t *testing.T, item *pipeline.WorkItem, phaseID, workflowID, stageID string) {
	t.Helper()
	require.NotNil(t, item.PhaseID)
	require.NotNil(t, item.WorkflowID)
	require.NotNil(t, item.CurrentStageID)
	assert.Equal(t, phaseID, *item.PhaseID)
	assert.Equal(t, workflowID, *item.WorkflowID)
	assert.Equal(t, stageID, *item.CurrentStageID)
}

// ── AssignWorkflow ─────────────────────────────────────────────────────────

func TestAssignWorkflow_SetsTripleAtomically(t *testing.T) {
	f := newFixture()
	f.items.byID["item-2"] = &pipeline.WorkItem{
		ID: "item-2", CompanyID: "co-1", CandidateID: "cand-2", PositionID: "pos-1",
		PipelineType: pipeline.PipelineCandidateApplication, Version: 1,
	}

	got, err := f.svc.AssignWorkflow(context.Background(), "item-2", "W1", "A")
	require.NoError(t, err)

	requireTriple(t, got, "P1", "W1", "A")
	requireTriple(t, f.item("item-2"), "P1", "W1", "A")
	assert.Equal(t, 2, f.item("item-2").Version)
}

func TestAssignWorkflow_StageNotInWorkflow(t *testing.T) {
	f := newFixture()
	f.items.byID["item-2"] = &pipeline.WorkItem{
		ID: "item-2", CompanyID: "co-1", CandidateID: "cand-2",
		PipelineType: pipeline.PipelineCandidateApplication, Version: 1,
	}

	// I2 belongs to W2, not W1.
	_, err := f.svc.AssignWorkflow(context.Background(), "item-2", "W1", "I2")

	var ie *pipeline.IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Nil(t, f.item("item-2").CurrentStageID, "work item must be untouched")
	assert.Equal(t, 0, f.items.updates)
}

func TestAssignWorkflow_WorkflowWithoutPhase(t *testing.T) {
	f := newFixture()
	f.workflows.all = append(f.workflows.all, &pipeline.Workflow{
		ID: "W3", CompanyID: "co-1", PipelineType: pipeline.PipelineCandidateApplication,
		Status: pipeline.StatusActive,
	})
	f.stages.byID["X"] = &pipeline.Stage{ID: "X", WorkflowID: "W3", Type: pipeline.StageInitial}

	_, err := f.svc.AssignWorkflow(context.Background(), "item-1", "W3", "X")

	var ie *pipeline.IntegrityError
	require.ErrorAs(t, err, &ie)
	requireTriple(t, f.item("item-1"), "P1", "W1", "A")
}

func TestAssignWorkflow_MissingWorkItem(t *testing.T) {
	f := newFixture()
	_, err := f.svc.AssignWorkflow(context.Background(), "nope", "W1", "A")
	assert.ErrorIs(t, err, pipeline.ErrNotFound)
}

// ── ChangeStage: same-phase move ───────────────────────────────────────────

func TestChangeStage_SamePhaseMove(t *testing.T) {
	f := newFixture()

	got, err := f.svc.ChangeStage(context.Background(), "item-1", "B")
	require.NoError(t, err)

	requireTriple(t, got, "P1", "W1", "B")
	requireTriple(t, f.item("item-1"), "P1", "W1", "B")
	assert.Equal(t, 1, f.items.updates, "one persist, no cascade")
	assert.Empty(t, f.dispatcher.requests, "B is not SUCCESS, no interview dispatch")

	require.Len(t, f.events.published, 1)
	evt := f.events.published[0]
	assert.Equal(t, "A", evt.FromStageID)
	assert.Equal(t, "B", evt.ToStageID)
	assert.False(t, evt.CrossedPhase)
	assert.False(t, evt.Cascaded)
}

func TestChangeStage_SameTargetTwiceIsStable(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ChangeStage(context.Background(), "item-1", "B")
	require.NoError(t, err)
	_, err = f.svc.ChangeStage(context.Background(), "item-1", "B")
	require.NoError(t, err)

	requireTriple(t, f.item("item-1"), "P1", "W1", "B")
}

func TestChangeStage_MissingTargets(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ChangeStage(context.Background(), "nope", "B")
	assert.ErrorIs(t, err, pipeline.ErrNotFound)

	_, err = f.svc.ChangeStage(context.Background(), "item-1", "nope")
	assert.ErrorIs(t, err, pipeline.ErrNotFound)
}

// ── ChangeStage: pending-interview guard ───────────────────────────────────

func TestChangeStage_PendingInterviewsBlock(t *testing.T) {
	f := newFixture()
	f.pending.blocked["cand-1|A"] = true

	_, err := f.svc.ChangeStage(context.Background(), "item-1", "B")

	var ce *pipeline.ConflictError
	require.ErrorAs(t, err, &ce)
	requireTriple(t, f.item("item-1"), "P1", "W1", "A")
	assert.Equal(t, 0, f.items.updates)
	assert.Empty(t, f.events.published)
}

func TestChangeStage_PendingCheckFailureSurfaces(t *testing.T) {
	f := newFixture()
	f.pending.err = errors.New("interview service down")

	_, err := f.svc.ChangeStage(context.Background(), "item-1", "B")

	require.Error(t, err)
	requireTriple(t, f.item("item-1"), "P1", "W1", "A")
}

// ── ChangeStage: cascade ───────────────────────────────────────────────────

func TestChangeStage_SuccessStageCascadesIntoNextPhase(t *testing.T) {
	f := newFixture()

	got, err := f.svc.ChangeStage(context.Background(), "item-1", "S")
	require.NoError(t, err)

	requireTriple(t, got, "P2", "W2", "I2")
	requireTriple(t, f.item("item-1"), "P2", "W2", "I2")
	assert.Equal(t, 2, f.items.updates, "primary move plus cascade persist")

	require.Len(t, f.events.published, 1)
	assert.True(t, f.events.published[0].Cascaded)
	assert.Equal(t, "I2", f.events.published[0].ToStageID)
}

func TestChangeStage_CascadePicksDefaultWorkflow(t *testing.T) {
	f := newFixture()
	// A second, non-default workflow in P2 must lose to the default W2.
	f.workflows.all = append([]*pipeline.Workflow{
		{ID: "W2b", PhaseID: "P2", CompanyID: "co-1",
			PipelineType: pipeline.PipelineCandidateApplication,
			Name:         "Alt evaluation", Status: pipeline.StatusActive},
	}, f.workflows.all...)
	f.stages.byID["I2b"] = &pipeline.Stage{ID: "I2b", WorkflowID: "W2b", Type: pipeline.StageInitial}

	_, err := f.svc.ChangeStage(context.Background(), "item-1", "S")
	require.NoError(t, err)

	requireTriple(t, f.item("item-1"), "P2", "W2", "I2")
}

func TestChangeStage_CascadeStopsWhenNextPhaseHasNoWorkflows(t *testing.T) {
	f := newFixture()
	f.workflows.all = f.workflows.all[:1] // drop W2

	_, err := f.svc.ChangeStage(context.Background(), "item-1", "S")
	require.NoError(t, err, "primary move must stand")

	requireTriple(t, f.item("item-1"), "P1", "W1", "S")
	assert.Equal(t, 1, f.items.updates)
}

func TestChangeStage_CascadeStopsWithoutInitialStage(t *testing.T) {
	f := newFixture()
	delete(f.stages.byID, "I2")

	_, err := f.svc.ChangeStage(context.Background(), "item-1", "S")
	require.NoError(t, err)

	requireTriple(t, f.item("item-1"), "P1", "W1", "S")
}

func TestChangeStage_CascadeStopsAcrossPipelineTypes(t *testing.T) {
	f := newFixture()
	f.phases.byID["P2"].PipelineType = pipeline.PipelineJobPositionOpening

	_, err := f.svc.ChangeStage(context.Background(), "item-1", "S")
	require.NoError(t, err)

	requireTriple(t, f.item("item-1"), "P1", "W1", "S")
}

func TestChangeStage_CascadeIsOneHopOnly(t *testing.T) {
	f := newFixture()
	// Make the entered initial stage itself a SUCCESS stage pointing back at
	// P1 — a second hop would loop.
	f.stages.byID["I2"].Type = pipeline.StageSuccess
	f.stages.byID["I2"].NextPhaseID = strptr("P1")

	_, err := f.svc.ChangeStage(context.Background(), "item-1", "S")
	require.NoError(t, err)

	requireTriple(t, f.item("item-1"), "P2", "W2", "I2")
	assert.Equal(t, 2, f.items.updates, "no third persist for a second hop")
}

func TestChangeStage_CascadePersistFailureLeavesPrimaryMove(t *testing.T) {
	f := newFixture()
	f.items.failUpdateFrom = 2 // primary persists, cascade persist fails

	got, err := f.svc.ChangeStage(context.Background(), "item-1", "S")
	require.NoError(t, err, "cascade failure is swallowed")

	requireTriple(t, got, "P1", "W1", "S")
	requireTriple(t, f.item("item-1"), "P1", "W1", "S")
}

// ── ChangeStage: concurrency ───────────────────────────────────────────────

func TestChangeStage_StaleVersionIsConflict(t *testing.T) {
	f := newFixture()
	f.items.staleFrom = 1

	_, err := f.svc.ChangeStage(context.Background(), "item-1", "B")

	var ce *pipeline.ConflictError
	require.ErrorAs(t, err, &ce)
	requireTriple(t, f.item("item-1"), "P1", "W1", "A")
}

// ── ChangeStage: invariant ─────────────────────────────────────────────────

// After every successful transition the stored triple must be internally
// consistent: the stage's workflow and that workflow's phase.
func TestChangeStage_TripleStaysInLockstep(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, target := range []string{"B", "S"} {
		_, err := f.svc.ChangeStage(ctx, "item-1", target)
		require.NoError(t, err)

		item := f.item("item-1")
		stage := f.stages.byID[*item.CurrentStageID]
		require.NotNil(t, stage)
		assert.Equal(t, stage.WorkflowID, *item.WorkflowID)

		wf, _ := f.workflows.GetByID(ctx, *item.WorkflowID)
		require.NotNil(t, wf)
		assert.Equal(t, wf.PhaseID, *item.PhaseID)
	}
}

// ── ChangeStage: event publish is best-effort ──────────────────────────────

func TestChangeStage_EventPublishFailureIsSwallowed(t *testing.T) {
	f := newFixture()
	f.events.err = errors.New("redis down")

	_, err := f.svc.ChangeStage(context.Background(), "item-1", "B")
	require.NoError(t, err)
	requireTriple(t, f.item("item-1"), "P1", "W1", "B")
}
