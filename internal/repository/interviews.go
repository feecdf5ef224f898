package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"talentflow/pipeline-service/internal/pipeline"
)

// InterviewRepo implements pipeline.PendingInterviewChecker,
// pipeline.InterviewTemplateStore and pipeline.ApplicationStore — the
// read-only views this service needs of the interview and application
// aggregates owned by neighbouring services.
type InterviewRepo struct {
	pool *pgxpool.Pool
}

// NewInterviewRepo returns a configured InterviewRepo.
func NewInterviewRepo(pool *pgxpool.Pool) *InterviewRepo {
	return &InterviewRepo{pool: pool}
}

// HasPendingInterviews reports whether the candidate has any unresolved
// interview scheduled against the stage.
func (r *InterviewRepo) HasPendingInterviews(ctx context.Context, candidateID, stageID string) (bool, error) {
	var pending bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM interviews
		   WHERE candidate_id = $1 AND stage_id = $2
		     AND status IN ('PENDING', 'SCHEDULED')
		 )`,
		candidateID, stageID,
	).Scan(&pending)
	if err != nil {
		return false, fmt.Errorf("hasPendingInterviews query: %w", err)
	}
	return pending, nil
}

// PendingInterviewCount returns how many unresolved interviews the candidate
// has against the stage.
func (r *InterviewRepo) PendingInterviewCount(ctx context.Context, candidateID, stageID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM interviews
		 WHERE candidate_id = $1 AND stage_id = $2
		   AND status IN ('PENDING', 'SCHEDULED')`,
		candidateID, stageID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pendingInterviewCount query: %w", err)
	}
	return n, nil
}

// GetByID returns an interview template by id, or nil if absent.
func (r *InterviewRepo) GetByID(ctx context.Context, id string) (*pipeline.InterviewTemplate, error) {
	var t pipeline.InterviewTemplate
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description FROM interview_templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getInterviewTemplate scan: %w", err)
	}
	return &t, nil
}

// FirstActiveForCandidate returns the candidate's oldest active application
// in the company, or nil if none exists.
func (r *InterviewRepo) FirstActiveForCandidate(ctx context.Context, candidateID, companyID string) (*pipeline.Application, error) {
	var a pipeline.Application
	err := r.pool.QueryRow(ctx,
		`SELECT id, candidate_id, job_position_id, is_active
		 FROM applications
		 WHERE candidate_id = $1 AND company_id = $2 AND is_active
		 ORDER BY created_at
		 LIMIT 1`,
		candidateID, companyID,
	).Scan(&a.ID, &a.CandidateID, &a.PositionID, &a.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("firstActiveForCandidate scan: %w", err)
	}
	return &a, nil
}
