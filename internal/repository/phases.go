// Package repository implements the pipeline ports on PostgreSQL via pgx.
//
// Every Get* returns (nil, nil) on a miss; absence is a domain concern and is
// translated to pipeline.ErrNotFound by the services, not here.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"talentflow/pipeline-service/internal/pipeline"
)

// PhaseRepo implements pipeline.PhaseStore.
type PhaseRepo struct {
	pool *pgxpool.Pool
}

// NewPhaseRepo returns a configured PhaseRepo.
func NewPhaseRepo(pool *pgxpool.Pool) *PhaseRepo {
	return &PhaseRepo{pool: pool}
}

const phaseColumns = `id, company_id, pipeline_type, name, sort_order, default_view, status, objective`

func scanPhase(row pgx.Row) (*pipeline.Phase, error) {
	var p pipeline.Phase
	err := row.Scan(&p.ID, &p.CompanyID, &p.PipelineType, &p.Name,
		&p.SortOrder, &p.DefaultView, &p.Status, &p.Objective)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan phase: %w", err)
	}
	return &p, nil
}

// GetByID returns a phase by id, or nil if absent.
func (r *PhaseRepo) GetByID(ctx context.Context, id string) (*pipeline.Phase, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+phaseColumns+` FROM phases WHERE id = $1`, id)
	return scanPhase(row)
}

// ListActive returns the active phases of a company+pipeline type in sort
// order.
func (r *PhaseRepo) ListActive(ctx context.Context, companyID string, pt pipeline.PipelineType) ([]pipeline.Phase, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+phaseColumns+`
		 FROM phases
		 WHERE company_id = $1 AND pipeline_type = $2 AND status = 'ACTIVE'
		 ORDER BY sort_order`,
		companyID, pt)
	if err != nil {
		return nil, fmt.Errorf("listActive query: %w", err)
	}
	defer rows.Close()

	phases := make([]pipeline.Phase, 0)
	for rows.Next() {
		var p pipeline.Phase
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.PipelineType, &p.Name,
			&p.SortOrder, &p.DefaultView, &p.Status, &p.Objective); err != nil {
			return nil, fmt.Errorf("listActive scan: %w", err)
		}
		phases = append(phases, p)
	}
	return phases, rows.Err()
}

// ReplaceActiveSet archives every active phase for (companyID, pt) and
// inserts the given phases, all in one transaction. Superseded phases are
// archived, never deleted — archived rows keep history readable.
func (r *PhaseRepo) ReplaceActiveSet(ctx context.Context, companyID string, pt pipeline.PipelineType, phases []pipeline.Phase) ([]pipeline.Phase, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("replaceActiveSet begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE phases
		 SET status = 'ARCHIVED', updated_at = NOW()
		 WHERE company_id = $1 AND pipeline_type = $2 AND status = 'ACTIVE'`,
		companyID, pt)
	if err != nil {
		return nil, fmt.Errorf("replaceActiveSet archive: %w", err)
	}

	created := make([]pipeline.Phase, 0, len(phases))
	for _, p := range phases {
		p.ID = uuid.NewString()
		p.CompanyID = companyID
		p.PipelineType = pt
		p.Status = pipeline.StatusActive
		_, err := tx.Exec(ctx,
			`INSERT INTO phases (id, company_id, pipeline_type, name, sort_order, default_view, status, objective)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.CompanyID, p.PipelineType, p.Name, p.SortOrder, p.DefaultView, p.Status, p.Objective)
		if err != nil {
			return nil, fmt.Errorf("replaceActiveSet insert %q: %w", p.Name, err)
		}
		created = append(created, p)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("replaceActiveSet commit: %w", err)
	}
	return created, nil
}
