package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"talentflow/pipeline-service/internal/pipeline"
)

// WorkItemRepo implements pipeline.WorkItemStore plus the overdue scan used
// by the deadline sweeper.
type WorkItemRepo struct {
	pool *pgxpool.Pool
}

// NewWorkItemRepo returns a configured WorkItemRepo.
func NewWorkItemRepo(pool *pgxpool.Pool) *WorkItemRepo {
	return &WorkItemRepo{pool: pool}
}

// GetByID returns a work item by id, or nil if absent.
func (r *WorkItemRepo) GetByID(ctx context.Context, id string) (*pipeline.WorkItem, error) {
	var w pipeline.WorkItem
	err := r.pool.QueryRow(ctx,
		`SELECT id, company_id, candidate_id, position_id, pipeline_type,
		        workflow_id, current_stage_id, phase_id, status, version,
		        created_at, updated_at
		 FROM work_items WHERE id = $1`, id,
	).Scan(&w.ID, &w.CompanyID, &w.CandidateID, &w.PositionID, &w.PipelineType,
		&w.WorkflowID, &w.CurrentStageID, &w.PhaseID, &w.Status, &w.Version,
		&w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getWorkItem scan: %w", err)
	}
	return &w, nil
}

// UpdatePipelineState writes the {workflow, stage, phase} triple guarded by a
// compare-and-swap on the version column. A vanished row and a stale version
// both surface as pipeline.ErrStaleWorkItem — either way the caller's
// snapshot is no longer the row's truth.
func (r *WorkItemRepo) UpdatePipelineState(ctx context.Context, item *pipeline.WorkItem) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE work_items
		 SET workflow_id      = $1,
		     current_stage_id = $2,
		     phase_id         = $3,
		     version          = version + 1,
		     updated_at       = NOW()
		 WHERE id = $4 AND version = $5`,
		item.WorkflowID, item.CurrentStageID, item.PhaseID, item.ID, item.Version)
	if err != nil {
		return fmt.Errorf("updatePipelineState exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pipeline.ErrStaleWorkItem
	}
	item.Version++
	item.UpdatedAt = time.Now().UTC()
	return nil
}

// ListOverdue returns work items sitting in a deadline-bearing stage longer
// than the stage's deadline as of the given instant. updated_at is the
// stage-entry time: the engine touches it on every transition.
func (r *WorkItemRepo) ListOverdue(ctx context.Context, asOf time.Time) ([]pipeline.OverdueWorkItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT w.id, w.company_id, w.candidate_id, s.id, s.name, s.deadline_days,
		        w.updated_at, w.updated_at + make_interval(days => s.deadline_days)
		 FROM work_items w
		 JOIN stages s ON s.id = w.current_stage_id
		 WHERE s.deadline_days IS NOT NULL
		   AND w.updated_at + make_interval(days => s.deadline_days) < $1`,
		asOf)
	if err != nil {
		return nil, fmt.Errorf("listOverdue query: %w", err)
	}
	defer rows.Close()

	items := make([]pipeline.OverdueWorkItem, 0)
	for rows.Next() {
		var o pipeline.OverdueWorkItem
		if err := rows.Scan(&o.WorkItemID, &o.CompanyID, &o.CandidateID, &o.StageID,
			&o.StageName, &o.DeadlineDays, &o.EnteredAt, &o.DueAt); err != nil {
			return nil, fmt.Errorf("listOverdue scan: %w", err)
		}
		items = append(items, o)
	}
	return items, rows.Err()
}
