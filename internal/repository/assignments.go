package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"talentflow/pipeline-service/internal/pipeline"
)

// AssignmentRepo implements pipeline.AssignmentStore and, through the
// company_users table, pipeline.RoleChecker.
type AssignmentRepo struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepo returns a configured AssignmentRepo.
func NewAssignmentRepo(pool *pgxpool.Pool) *AssignmentRepo {
	return &AssignmentRepo{pool: pool}
}

// Get returns the assignment row for (positionID, stageID), or nil if none
// exists.
func (r *AssignmentRepo) Get(ctx context.Context, positionID, stageID string) (*pipeline.PositionStageAssignment, error) {
	var a pipeline.PositionStageAssignment
	err := r.pool.QueryRow(ctx,
		`SELECT position_id, stage_id, assigned_user_ids
		 FROM position_stage_assignments
		 WHERE position_id = $1 AND stage_id = $2`,
		positionID, stageID,
	).Scan(&a.PositionID, &a.StageID, &a.AssignedUserIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getAssignment scan: %w", err)
	}
	return &a, nil
}

// IsCompanyAdmin reports whether the user holds the ADMIN role in the
// company. Unknown users are simply not admins.
func (r *AssignmentRepo) IsCompanyAdmin(ctx context.Context, userID, companyID string) (bool, error) {
	var admin bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM company_users
		   WHERE user_id = $1 AND company_id = $2 AND role = 'ADMIN'
		 )`,
		userID, companyID,
	).Scan(&admin)
	if err != nil {
		return false, fmt.Errorf("isCompanyAdmin query: %w", err)
	}
	return admin, nil
}
