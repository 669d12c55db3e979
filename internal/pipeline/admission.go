package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quillhq/quill/internal/ledger"
	"github.com/quillhq/quill/internal/project"
	"github.com/quillhq/quill/internal/store"
)

// DeniedNoCredits is the stable machine-readable reason code returned
// when the admission gate rejects a start for lack of credits.
const DeniedNoCredits = "no_credits"

// StartRequest describes a new pipeline run.
type StartRequest struct {
	Topic      string          `json:"topic"`
	Language   string          `json:"language"`
	AuthorName string          `json:"author_name"`
	Owner      project.Contact `json:"owner"`

	// Force bypasses the resume resolver and always creates a new
	// project (still charging a credit).
	Force bool `json:"force,omitempty"`
}

// StartResult is the outcome of StartOrResume. Exactly one of Project or
// Denied is set.
type StartResult struct {
	Project *project.Project `json:"project,omitempty"`
	Denied  *Denied          `json:"denied,omitempty"`

	// Resumed is true when an existing in-flight project was returned
	// instead of creating a new one.
	Resumed bool `json:"resumed,omitempty"`

	// Degraded is true when the resumed project looks inconsistent
	// (non-idle status with an empty structure). The project also
	// carries a degraded_resume detail.
	Degraded bool `json:"degraded,omitempty"`
}

// Denied reports an admission rejection.
type Denied struct {
	Reason string `json:"reason"`
}

// StartOrResume is the admission gate. It either reattaches the owner to
// their in-flight project, or charges one credit and starts a new run,
// or denies with a stable reason code and records a pending intent.
//
// The call returns synchronously; for a new project the research stage
// is already running in the background when it does.
func (o *Orchestrator) StartOrResume(ctx context.Context, req StartRequest) (*StartResult, error) {
	identity := req.Owner.Email
	if identity == "" {
		return nil, fmt.Errorf("owner email is required")
	}
	if req.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	if !req.Force {
		active, degraded, err := o.findActive(ctx, identity)
		if err != nil {
			return nil, err
		}
		if active != nil {
			o.metrics.RecordAdmission("resumed")
			o.logger.Info("resuming active project",
				"project_id", active.ID, "owner", identity, "degraded", degraded)
			return &StartResult{Project: active, Resumed: true, Degraded: degraded}, nil
		}
	}

	credits, err := o.ledger.Credits(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to check credits: %w", err)
	}
	if credits <= 0 {
		intent := store.PendingIntent{
			OwnerEmail: identity,
			OwnerName:  req.Owner.Name,
			Topic:      req.Topic,
			Reason:     DeniedNoCredits,
			CreatedAt:  time.Now().UTC(),
		}
		if err := o.store.RecordPendingIntent(ctx, intent); err != nil {
			o.logger.Error("failed to record pending intent", "owner", identity, "error", err)
		}
		o.metrics.RecordAdmission("denied")
		return &StartResult{Denied: &Denied{Reason: DeniedNoCredits}}, nil
	}

	if err := o.ledger.Debit(ctx, identity); err != nil {
		if errors.Is(err, ledger.ErrNoCredits) {
			o.metrics.RecordAdmission("denied")
			return &StartResult{Denied: &Denied{Reason: DeniedNoCredits}}, nil
		}
		return nil, fmt.Errorf("failed to debit credit: %w", err)
	}

	tier, err := o.ledger.Tier(ctx, identity)
	if err != nil {
		tier = project.TierBasic
	}

	p := project.New(project.Metadata{
		Topic:      req.Topic,
		Language:   req.Language,
		AuthorName: req.AuthorName,
		Owner:      req.Owner,
		Tier:       tier,
		Progress:   0,
	})
	if err := o.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	o.metrics.RecordAdmission("created")
	o.logger.Info("project created", "project_id", p.ID, "owner", identity, "topic", req.Topic)

	// Admission acknowledged; research begins immediately in the
	// background.
	o.spawn(p.ID, "research", o.runResearch)

	return &StartResult{Project: p}, nil
}

// findActive is the resume resolver: it always trusts the most recently
// created project for the identity. A pre-written-manuscript project
// never blocks a new generation run. The returned degraded flag marks a
// project whose structure is unexpectedly empty for its status.
func (o *Orchestrator) findActive(ctx context.Context, identity string) (*project.Project, bool, error) {
	latest, err := o.store.LatestByOwner(ctx, identity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to look up owner projects: %w", err)
	}
	if !latest.Active() || latest.Prewritten() {
		return nil, false, nil
	}

	if degradedResume(latest) {
		latest.Detail = project.DegradedResumeDetail("structure empty for status " + string(latest.Metadata.Status))
		// Best effort: the flag is still returned to the caller even if
		// the persist loses a race.
		if err := o.store.Update(ctx, latest); err != nil && !errors.Is(err, store.ErrVersionConflict) {
			o.logger.Warn("failed to persist degraded resume detail", "project_id", latest.ID, "error", err)
		}
		return latest, true, nil
	}
	return latest, false, nil
}

// degradedResume reports whether the project should have a structure by
// now but does not.
func degradedResume(p *project.Project) bool {
	switch p.Metadata.Status {
	case project.StatusReviewStructure, project.StatusWritingChapters,
		project.StatusGeneratingMarketing, project.StatusWaitingDetails:
		return len(p.Structure) == 0
	}
	return false
}

// PendingIntents lists recorded admission denials.
func (o *Orchestrator) PendingIntents(ctx context.Context) ([]store.PendingIntent, error) {
	return o.store.PendingIntents(ctx)
}
