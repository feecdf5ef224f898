package pipeline

import "context"

// Ports to external collaborators. Persistence ports return (nil, nil) on a
// miss rather than an error; the services translate absence into ErrNotFound
// where the contract requires it.

// PhaseStore reads and (for re-initialization only) replaces phase
// configuration.
type PhaseStore interface {
	GetByID(ctx context.Context, id string) (*Phase, error)
	ListActive(ctx context.Context, companyID string, pt PipelineType) ([]Phase, error)
	// ReplaceActiveSet archives every active phase for (companyID, pt) and
	// creates the given phases in one transaction. Returns the created
	// phases with their assigned ids.
	ReplaceActiveSet(ctx context.Context, companyID string, pt PipelineType, phases []Phase) ([]Phase, error)
}

// WorkflowStore reads workflow configuration.
type WorkflowStore interface {
	GetByID(ctx context.Context, id string) (*Workflow, error)
	// ListByPhase returns the active workflows of a phase restricted to one
	// pipeline type.
	ListByPhase(ctx context.Context, phaseID string, pt PipelineType) ([]Workflow, error)
}

// StageStore reads stage configuration, interview configurations included.
type StageStore interface {
	GetByID(ctx context.Context, id string) (*Stage, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]Stage, error)
	// GetInitialStage returns the single INITIAL stage of a workflow, or nil
	// if the workflow has none.
	GetInitialStage(ctx context.Context, workflowID string) (*Stage, error)
}

// WorkItemStore loads and persists work items. UpdatePipelineState is a
// compare-and-swap on WorkItem.Version: implementations return
// ErrStaleWorkItem when the stored version no longer matches, and bump
// item.Version on success.
type WorkItemStore interface {
	GetByID(ctx context.Context, id string) (*WorkItem, error)
	UpdatePipelineState(ctx context.Context, item *WorkItem) error
}

// AssignmentStore reads position-stage assignments.
type AssignmentStore interface {
	Get(ctx context.Context, positionID, stageID string) (*PositionStageAssignment, error)
}

// ApplicationStore locates the job-position context for interview creation.
type ApplicationStore interface {
	FirstActiveForCandidate(ctx context.Context, candidateID, companyID string) (*Application, error)
}

// InterviewTemplateStore resolves interview templates.
type InterviewTemplateStore interface {
	GetByID(ctx context.Context, id string) (*InterviewTemplate, error)
}

// PendingInterviewChecker is owned by the external interview-validation
// collaborator.
type PendingInterviewChecker interface {
	HasPendingInterviews(ctx context.Context, candidateID, stageID string) (bool, error)
	PendingInterviewCount(ctx context.Context, candidateID, stageID string) (int, error)
}

// InterviewDispatcher hands an interview-creation request to the external
// interview subsystem. Best-effort: the engine logs failures and moves on.
type InterviewDispatcher interface {
	DispatchInterview(ctx context.Context, req InterviewRequest) error
}

// RoleChecker answers the elevated-role question for the PermissionService.
type RoleChecker interface {
	IsCompanyAdmin(ctx context.Context, userID, companyID string) (bool, error)
}

// EventPublisher fans out post-transition events. Publish failures never
// affect the transition's outcome.
type EventPublisher interface {
	PublishStageChanged(ctx context.Context, evt StageChangedEvent) error
}
