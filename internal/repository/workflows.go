package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"talentflow/pipeline-service/internal/pipeline"
)

// WorkflowRepo implements pipeline.WorkflowStore.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo returns a configured WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

const workflowColumns = `id, phase_id, company_id, pipeline_type, name, description, display, is_default, status`

// GetByID returns a workflow by id, or nil if absent.
func (r *WorkflowRepo) GetByID(ctx context.Context, id string) (*pipeline.Workflow, error) {
	var w pipeline.Workflow
	err := r.pool.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id,
	).Scan(&w.ID, &w.PhaseID, &w.CompanyID, &w.PipelineType, &w.Name,
		&w.Description, &w.Display, &w.IsDefault, &w.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getWorkflow scan: %w", err)
	}
	return &w, nil
}

// ListByPhase returns the active workflows of a phase for one pipeline type,
// default workflow first.
func (r *WorkflowRepo) ListByPhase(ctx context.Context, phaseID string, pt pipeline.PipelineType) ([]pipeline.Workflow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+workflowColumns+`
		 FROM workflows
		 WHERE phase_id = $1 AND pipeline_type = $2 AND status = 'ACTIVE'
		 ORDER BY is_default DESC, name`,
		phaseID, pt)
	if err != nil {
		return nil, fmt.Errorf("listByPhase query: %w", err)
	}
	defer rows.Close()

	workflows := make([]pipeline.Workflow, 0)
	for rows.Next() {
		var w pipeline.Workflow
		if err := rows.Scan(&w.ID, &w.PhaseID, &w.CompanyID, &w.PipelineType, &w.Name,
			&w.Description, &w.Display, &w.IsDefault, &w.Status); err != nil {
			return nil, fmt.Errorf("listByPhase scan: %w", err)
		}
		workflows = append(workflows, w)
	}
	return workflows, rows.Err()
}
