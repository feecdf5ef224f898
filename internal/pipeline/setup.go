package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// PhaseSeed describes one phase of a new pipeline layout.
type PhaseSeed struct {
	Name        string      `json:"name"`
	SortOrder   int         `json:"sortOrder"`
	DefaultView DisplayMode `json:"defaultView"`
	Objective   string      `json:"objective"`
}

// Initializer builds or rebuilds a company's pipeline layout. Re-running it
// archives every active phase for the company+pipeline type and creates the
// new set in the same transaction, so at most one active set ever exists.
type Initializer struct {
	phases PhaseStore
}

// NewInitializer returns a configured Initializer.
func NewInitializer(phases PhaseStore) *Initializer {
	return &Initializer{phases: phases}
}

// Initialize replaces the active phase set for (companyID, pt) with the given
// seeds. Seeds are validated up front; nothing is touched on a validation
// error.
func (i *Initializer) Initialize(ctx context.Context, companyID string, pt PipelineType, seeds []PhaseSeed) ([]Phase, error) {
	if len(seeds) == 0 {
		return nil, &IntegrityError{Msg: "pipeline initialization requires at least one phase"}
	}

	orders := make(map[int]string, len(seeds))
	phases := make([]Phase, 0, len(seeds))
	for _, seed := range seeds {
		if seed.Name == "" {
			return nil, &IntegrityError{Msg: "phase name must not be empty"}
		}
		if prev, dup := orders[seed.SortOrder]; dup {
			return nil, &ConflictError{
				Msg: fmt.Sprintf("phases %q and %q share sort order %d", prev, seed.Name, seed.SortOrder),
			}
		}
		orders[seed.SortOrder] = seed.Name

		view := seed.DefaultView
		if view == "" {
			view = DisplayKanban
		}
		phases = append(phases, Phase{
			CompanyID:    companyID,
			PipelineType: pt,
			Name:         seed.Name,
			SortOrder:    seed.SortOrder,
			DefaultView:  view,
			Status:       StatusActive,
			Objective:    seed.Objective,
		})
	}

	created, err := i.phases.ReplaceActiveSet(ctx, companyID, pt, phases)
	if err != nil {
		return nil, fmt.Errorf("replace phase set for company %s: %w", companyID, err)
	}

	slog.Info("pipeline initialized",
		"companyId", companyID, "pipelineType", pt, "phases", len(created))
	return created, nil
}
