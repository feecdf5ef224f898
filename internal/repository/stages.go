package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"talentflow/pipeline-service/internal/pipeline"
)

// StageRepo implements pipeline.StageStore.
type StageRepo struct {
	pool *pgxpool.Pool
}

// NewStageRepo returns a configured StageRepo.
func NewStageRepo(pool *pgxpool.Pool) *StageRepo {
	return &StageRepo{pool: pool}
}

const stageColumns = `id, workflow_id, name, description, stage_type, sort_order,
	allow_skip, style, kanban_display, default_role_ids, default_assigned_users,
	email_template_id, deadline_days, estimated_cost, next_phase_id`

func scanStage(row pgx.Row) (*pipeline.Stage, error) {
	var s pipeline.Stage
	err := row.Scan(&s.ID, &s.WorkflowID, &s.Name, &s.Description, &s.Type, &s.Order,
		&s.AllowSkip, &s.Style, &s.KanbanDisplay, &s.DefaultRoleIDs, &s.DefaultAssignedUsers,
		&s.EmailTemplateID, &s.DeadlineDays, &s.EstimatedCost, &s.NextPhaseID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan stage: %w", err)
	}
	return &s, nil
}

// GetByID returns a stage with its interview configurations, or nil if
// absent.
func (r *StageRepo) GetByID(ctx context.Context, id string) (*pipeline.Stage, error) {
	stage, err := scanStage(r.pool.QueryRow(ctx,
		`SELECT `+stageColumns+` FROM stages WHERE id = $1`, id))
	if err != nil || stage == nil {
		return stage, err
	}
	if err := r.loadInterviewConfigs(ctx, stage); err != nil {
		return nil, err
	}
	return stage, nil
}

// ListByWorkflow returns the stages of a workflow in board order. Interview
// configurations are not loaded here; listing serves board rendering, the
// trigger always re-reads its stage via GetByID.
func (r *StageRepo) ListByWorkflow(ctx context.Context, workflowID string) ([]pipeline.Stage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+stageColumns+` FROM stages WHERE workflow_id = $1 ORDER BY sort_order`,
		workflowID)
	if err != nil {
		return nil, fmt.Errorf("listByWorkflow query: %w", err)
	}
	defer rows.Close()

	stages := make([]pipeline.Stage, 0)
	for rows.Next() {
		var s pipeline.Stage
		if err := rows.Scan(&s.ID, &s.WorkflowID, &s.Name, &s.Description, &s.Type, &s.Order,
			&s.AllowSkip, &s.Style, &s.KanbanDisplay, &s.DefaultRoleIDs, &s.DefaultAssignedUsers,
			&s.EmailTemplateID, &s.DeadlineDays, &s.EstimatedCost, &s.NextPhaseID); err != nil {
			return nil, fmt.Errorf("listByWorkflow scan: %w", err)
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// GetInitialStage returns the single INITIAL stage of a workflow, or nil if
// the workflow has none.
func (r *StageRepo) GetInitialStage(ctx context.Context, workflowID string) (*pipeline.Stage, error) {
	stage, err := scanStage(r.pool.QueryRow(ctx,
		`SELECT `+stageColumns+` FROM stages WHERE workflow_id = $1 AND stage_type = 'INITIAL'`,
		workflowID))
	if err != nil || stage == nil {
		return stage, err
	}
	if err := r.loadInterviewConfigs(ctx, stage); err != nil {
		return nil, err
	}
	return stage, nil
}

func (r *StageRepo) loadInterviewConfigs(ctx context.Context, stage *pipeline.Stage) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, stage_id, template_id, mode, title, description
		 FROM stage_interview_configs
		 WHERE stage_id = $1
		 ORDER BY id`,
		stage.ID)
	if err != nil {
		return fmt.Errorf("loadInterviewConfigs query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c pipeline.InterviewConfiguration
		if err := rows.Scan(&c.ID, &c.StageID, &c.TemplateID, &c.Mode, &c.Title, &c.Description); err != nil {
			return fmt.Errorf("loadInterviewConfigs scan: %w", err)
		}
		stage.InterviewConfigs = append(stage.InterviewConfigs, c)
	}
	return rows.Err()
}
