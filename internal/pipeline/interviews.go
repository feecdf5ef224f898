package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// defaultDispatchTimeout bounds each interview-creation dispatch; a timeout
// is treated as a logged failure like any other dispatch error.
const defaultDispatchTimeout = 5 * time.Second

// InterviewTrigger reacts to a completed stage transition by creating
// interview work orders for every AUTOMATIC interview configuration on the
// stage the work item ended up in.
//
// Everything here is best-effort: the stage change is already persisted, so
// per-configuration failures are logged with enough fields to be found by
// operators and never propagated. Repeated entries into the same stage will
// dispatch again — de-duplication belongs to the consumer, keyed by
// InterviewRequest.DedupKey.
type InterviewTrigger struct {
	templates  InterviewTemplateStore
	apps       ApplicationStore
	dispatcher InterviewDispatcher
	timeout    time.Duration
}

// NewInterviewTrigger returns a configured InterviewTrigger.
func NewInterviewTrigger(templates InterviewTemplateStore, apps ApplicationStore, dispatcher InterviewDispatcher) *InterviewTrigger {
	return &InterviewTrigger{
		templates:  templates,
		apps:       apps,
		dispatcher: dispatcher,
		timeout:    defaultDispatchTimeout,
	}
}

// Run dispatches an interview-creation request for each AUTOMATIC
// configuration on the stage. Never returns an error: the caller's
// transition has already succeeded.
func (t *InterviewTrigger) Run(ctx context.Context, item *WorkItem, stage *Stage) {
	var autos []InterviewConfiguration
	for _, cfg := range stage.InterviewConfigs {
		if cfg.Mode == InterviewAutomatic {
			autos = append(autos, cfg)
		}
	}
	if len(autos) == 0 {
		return
	}

	log := slog.With("workItemId", item.ID, "stageId", stage.ID)

	// The job-position context comes from the candidate's first active
	// application; fall back to the work item's own position.
	positionID := item.PositionID
	app, err := t.apps.FirstActiveForCandidate(ctx, item.CandidateID, item.CompanyID)
	if err != nil {
		log.Warn("interview trigger: application lookup failed, using work item position", "err", err)
	} else if app != nil {
		positionID = app.PositionID
	}

	for _, cfg := range autos {
		if len(stage.DefaultRoleIDs) == 0 {
			log.Info("interview trigger: stage has no default roles, skipping configuration",
				"configId", cfg.ID)
			continue
		}

		tmpl, err := t.templates.GetByID(ctx, cfg.TemplateID)
		if err != nil || tmpl == nil {
			log.Warn("interview trigger: template unresolvable, skipping configuration",
				"configId", cfg.ID, "templateId", cfg.TemplateID, "err", err)
			continue
		}

		req := InterviewRequest{
			CandidateID:   item.CandidateID,
			JobPositionID: positionID,
			StageID:       stage.ID,
			TemplateID:    tmpl.ID,
			Mode:          cfg.Mode,
			RequiredRoles: stage.DefaultRoleIDs,
			Title:         cfg.Title,
			Description:   cfg.Description,
			DedupKey:      fmt.Sprintf("%s:%s:%s", item.ID, stage.ID, cfg.ID),
		}
		if req.Title == "" {
			req.Title = tmpl.Name
		}
		if req.Description == "" {
			req.Description = tmpl.Description
		}

		dctx, cancel := context.WithTimeout(ctx, t.timeout)
		err = t.dispatcher.DispatchInterview(dctx, req)
		cancel()
		if err != nil {
			log.Warn("interview trigger: dispatch failed",
				"configId", cfg.ID, "templateId", tmpl.ID, "err", err)
			continue
		}
	}
}
