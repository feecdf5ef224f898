// Package pipeline contains the pure business logic for the recruitment
// pipeline: the Phase → Workflow → Stage configuration model and the engine
// that moves a work item (a company candidate) through it.
//
// It is transport-agnostic: it is invoked through the command registry
// (command package) and has no dependency on net/http or Redis — external
// collaborators are reached only through the ports in ports.go.
//
// Pipeline shape:
//
//	Phase 1 ──► Phase 2 ──► Phase 3        (e.g. Sourcing → Evaluation → Offer)
//	   │
//	   └─ Workflow (one default) ─ Stage INITIAL ──► PROGRESS… ──► SUCCESS / FAIL
//
// A SUCCESS stage may point at a next phase; reaching it cascades the work
// item into that phase's default workflow at its INITIAL stage.
package pipeline

import (
	"fmt"
	"time"
)

// ─── Enums ───────────────────────────────────────────────────────────────────

// PipelineType distinguishes the candidate-application pipeline from the
// job-opening pipeline. Cascades and workflow lookups never cross types.
type PipelineType string

const (
	PipelineCandidateApplication PipelineType = "CANDIDATE_APPLICATION"
	PipelineJobPositionOpening   PipelineType = "JOB_POSITION_OPENING"
)

// ParsePipelineType converts a raw string to a PipelineType, returning an
// error for unknown values.
func ParsePipelineType(s string) (PipelineType, error) {
	pt := PipelineType(s)
	switch pt {
	case PipelineCandidateApplication, PipelineJobPositionOpening:
		return pt, nil
	}
	return "", fmt.Errorf("unknown pipeline type %q", s)
}

// Status is the lifecycle state shared by phases and workflows. Superseded
// configuration is archived, never hard-deleted.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusArchived Status = "ARCHIVED"
)

// DisplayMode is how a phase or workflow is presented to recruiters.
type DisplayMode string

const (
	DisplayKanban DisplayMode = "KANBAN"
	DisplayList   DisplayMode = "LIST"
)

// StageType classifies a stage within its workflow.
//
// Exactly one stage per workflow is INITIAL. SUCCESS and FAIL are terminal;
// a SUCCESS stage may additionally carry a next-phase pointer that triggers
// the cross-phase cascade.
type StageType string

const (
	StageInitial  StageType = "INITIAL"
	StageProgress StageType = "PROGRESS"
	StageSuccess  StageType = "SUCCESS"
	StageFail     StageType = "FAIL"
)

// ParseStageType converts a raw string to a StageType, returning an error
// for unknown values.
func ParseStageType(s string) (StageType, error) {
	st := StageType(s)
	switch st {
	case StageInitial, StageProgress, StageSuccess, StageFail:
		return st, nil
	}
	return "", fmt.Errorf("unknown stage type %q", s)
}

// IsTerminal returns true for SUCCESS and FAIL stages.
func IsTerminal(st StageType) bool { return st == StageSuccess || st == StageFail }

// KanbanDisplay is how a stage renders on a kanban board.
type KanbanDisplay string

const (
	KanbanColumn KanbanDisplay = "COLUMN"
	KanbanRow    KanbanDisplay = "ROW"
)

// InterviewMode controls whether an interview configuration fires on stage
// entry without human intervention. AUTOMATIC refers to scheduling, not to
// asynchronous execution: dispatch happens synchronously inside the
// transition.
type InterviewMode string

const (
	InterviewAutomatic InterviewMode = "AUTOMATIC"
	InterviewManual    InterviewMode = "MANUAL"
)

// ParseInterviewMode converts a raw string to an InterviewMode, returning an
// error for unknown values.
func ParseInterviewMode(s string) (InterviewMode, error) {
	m := InterviewMode(s)
	switch m {
	case InterviewAutomatic, InterviewManual:
		return m, nil
	}
	return "", fmt.Errorf("unknown interview mode %q", s)
}

// ─── Configuration aggregates (read-only to the engine) ─────────────────────

// Phase is a named macro-step of a company's pipeline (e.g. Sourcing,
// Evaluation, Offer). At most one active phase set exists per
// company+pipeline type; re-initialization archives the old set first.
type Phase struct {
	ID           string
	CompanyID    string
	PipelineType PipelineType
	Name         string
	SortOrder    int
	DefaultView  DisplayMode
	Status       Status
	Objective    string
}

// Workflow is an ordered set of stages implementing one phase. It belongs to
// exactly one phase for its whole life and is never reassigned. At most one
// workflow per phase is the default — the cascade's entry point.
type Workflow struct {
	ID           string
	PhaseID      string
	CompanyID    string
	PipelineType PipelineType
	Name         string
	Description  string
	Display      DisplayMode
	IsDefault    bool
	Status       Status
}

// InterviewConfiguration attaches an interview template to a stage. AUTOMATIC
// configurations fire on every entry into the stage.
type InterviewConfiguration struct {
	ID          string
	StageID     string
	TemplateID  string
	Mode        InterviewMode
	Title       string
	Description string
}

// Stage is a single step within a workflow. Identity is immutable;
// configuration is not. Stages are never reordered implicitly.
//
// NextPhaseID is only meaningful on a SUCCESS stage and must reference a
// phase of the same pipeline type.
type Stage struct {
	ID                   string
	WorkflowID           string
	Name                 string
	Description          string
	Type                 StageType
	Order                int
	AllowSkip            bool
	Style                string
	KanbanDisplay        KanbanDisplay
	DefaultRoleIDs       []string
	DefaultAssignedUsers []string
	EmailTemplateID      *string
	DeadlineDays         *int
	EstimatedCost        *float64
	NextPhaseID          *string
	InterviewConfigs     []InterviewConfiguration
}

// ─── Mutable aggregates ──────────────────────────────────────────────────────

// WorkItem is the unit that flows through the pipeline: one candidate in one
// company's process. The {PhaseID, WorkflowID, CurrentStageID} triple is kept
// in lockstep by the TransitionService and mutated nowhere else.
//
// Version backs the optimistic concurrency check on every pipeline-state
// update.
type WorkItem struct {
	ID             string
	CompanyID      string
	CandidateID    string
	PositionID     string
	PipelineType   PipelineType
	WorkflowID     *string
	CurrentStageID *string
	PhaseID        *string
	Status         string
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PositionStageAssignment lists the users allowed to process a given stage
// for a given job position. Read-only input to the PermissionService.
type PositionStageAssignment struct {
	PositionID      string
	StageID         string
	AssignedUserIDs []string
}

// Application is the minimal view of a candidate's job application that the
// interview trigger needs: the job-position context for an interview request
// comes from the candidate's first active application.
type Application struct {
	ID          string
	CandidateID string
	PositionID  string
	Active      bool
}

// InterviewTemplate is resolved per interview configuration before dispatch.
type InterviewTemplate struct {
	ID          string
	Name        string
	Description string
}

// InterviewRequest is the payload handed to the external interview subsystem.
// DedupKey is deterministic per (work item, stage, configuration) so a
// consumer can de-duplicate repeated stage entries; this engine itself does
// not.
type InterviewRequest struct {
	CandidateID   string        `json:"candidateId"`
	JobPositionID string        `json:"jobPositionId"`
	StageID       string        `json:"stageId"`
	TemplateID    string        `json:"templateId"`
	Mode          InterviewMode `json:"mode"`
	RequiredRoles []string      `json:"requiredRoles"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	DedupKey      string        `json:"dedupKey"`
}

// StageChangedEvent is published after every persisted transition.
type StageChangedEvent struct {
	WorkItemID   string `json:"workItemId"`
	CompanyID    string `json:"companyId"`
	CandidateID  string `json:"candidateId"`
	FromStageID  string `json:"fromStageId"`
	ToStageID    string `json:"toStageId"`
	PhaseID      string `json:"phaseId"`
	WorkflowID   string `json:"workflowId"`
	CrossedPhase bool   `json:"crossedPhase"`
	Cascaded     bool   `json:"cascaded"`
}

// OverdueWorkItem is one row of the deadline sweep: a work item sitting in a
// stage past the stage's deadline.
type OverdueWorkItem struct {
	WorkItemID   string    `json:"workItemId"`
	CompanyID    string    `json:"companyId"`
	CandidateID  string    `json:"candidateId"`
	StageID      string    `json:"stageId"`
	StageName    string    `json:"stageName"`
	DeadlineDays int       `json:"deadlineDays"`
	EnteredAt    time.Time `json:"enteredAt"`
	DueAt        time.Time `json:"dueAt"`
}
