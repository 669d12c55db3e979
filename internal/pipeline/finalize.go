package pipeline

import (
	"context"
	"fmt"

	"github.com/quillhq/quill/internal/project"
)

// Finalize applies the owner's personal details, renders the artifact
// once and completes the project. Valid only in WAITING_DETAILS. Render
// failure fails the project; the owner can retry finalization after the
// underlying problem is fixed.
func (o *Orchestrator) Finalize(ctx context.Context, id string, details FinalDetails) (*project.Project, error) {
	p, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Metadata.Status != project.StatusWaitingDetails {
		return nil, fmt.Errorf("%w: finalize only applies in %s, project is %s",
			ErrInvalidTransition, project.StatusWaitingDetails, p.Metadata.Status)
	}

	if details.Dedication != "" {
		p.Metadata.Dedication = details.Dedication
	}
	if details.Acknowledgments != "" {
		p.Metadata.Acknowledgments = details.Acknowledgments
	}
	if details.AboutAuthor != "" {
		p.Metadata.AboutAuthor = details.AboutAuthor
	}

	artifactPath, err := o.renderer.Render(ctx, p)
	if err != nil {
		p.Metadata.Status = project.StatusFailed
		p.Metadata.StatusMessage = fmt.Sprintf("finalize stage failed: %v", err)
		p.Detail = project.FailedDetail("finalize")
		if uerr := o.store.Update(ctx, p); uerr != nil {
			o.logger.Error("failed to record finalize failure", "project_id", id, "error", uerr)
		}
		o.metrics.RecordStage("finalize", "failed")
		return nil, fmt.Errorf("rendering failed: %w", err)
	}

	p.Metadata.ArtifactPath = artifactPath
	p.Metadata.Status = project.StatusCompleted
	p.SetProgress(100, "Your book is ready")
	p.Detail = project.CompletedDetail(artifactPath)
	if err := o.store.Update(ctx, p); err != nil {
		return nil, err
	}
	o.metrics.RecordStage("finalize", "ok")

	if err := o.notifier.Send(ctx, p.Metadata.Owner, p.Metadata.BookTitle, artifactPath); err != nil {
		// The book is done. Notification failure is logged, not fatal.
		o.logger.Warn("completion notification failed", "project_id", id, "error", err)
	}
	return p, nil
}

// Retry re-runs the stage a failed project died in. Only research and
// structure failures are retryable this way; the writing stage degrades
// instead of failing and finalize is re-triggered by its own event.
func (o *Orchestrator) Retry(ctx context.Context, id string) (*project.Project, error) {
	p, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Metadata.Status != project.StatusFailed {
		return nil, fmt.Errorf("%w: retry only applies in %s, project is %s",
			ErrInvalidTransition, project.StatusFailed, p.Metadata.Status)
	}

	stage := ""
	if p.Detail != nil {
		stage = p.Detail.Cause
	}
	switch stage {
	case "research":
		o.spawn(id, "research", o.runResearch)
	case "structure":
		o.spawn(id, "structure", o.runStructure)
	default:
		return nil, fmt.Errorf("project failed in %q, which is not retryable", stage)
	}
	return p, nil
}
