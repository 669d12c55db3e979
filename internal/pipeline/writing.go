package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/quillhq/quill/internal/generator"
	"github.com/quillhq/quill/internal/pipeline/prompts"
	"github.com/quillhq/quill/internal/project"
)

// ApproveStructure accepts the proposed structure and spawns the writing
// stage. Valid only in REVIEW_STRUCTURE.
func (o *Orchestrator) ApproveStructure(ctx context.Context, id string) (*project.Project, error) {
	p, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Metadata.Status != project.StatusReviewStructure {
		return nil, fmt.Errorf("%w: structure can only be approved in %s, project is %s",
			ErrInvalidTransition, project.StatusReviewStructure, p.Metadata.Status)
	}
	if len(p.Structure) == 0 {
		return nil, fmt.Errorf("project has no structure to approve")
	}

	o.spawn(id, "writing", o.runWriting)
	return p, nil
}

// runWriting is the long stage: every body chapter, then the
// introduction, then the tier-gated extras, then the marketing bundle.
// Chapters already produced in a previous run are never regenerated.
// A chapter that exhausts its retry budget is degraded to a placeholder
// rather than failing the whole book.
func (o *Orchestrator) runWriting(ctx context.Context, p *project.Project) error {
	if err := o.setStatus(ctx, p, project.StatusWritingChapters, 50, "Writing your chapters"); err != nil {
		return err
	}

	total := len(p.Structure) + 1 // body chapters plus the introduction
	done := 0
	progressAt := func() int { return 50 + done*40/total }

	for i := range p.Structure {
		ch := &p.Structure[i]
		if ch.ID == 0 {
			continue
		}
		if ch.Produced() {
			done++
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		content, degraded := o.writeChapter(ctx, p, ch)
		ch.Content = content
		ch.Generated = true
		if degraded {
			o.metrics.RecordChapterDegraded()
		}
		done++

		p.Detail = project.WritingDetail(ch.ID)
		msg := fmt.Sprintf("Writing chapter %d of %d", ch.ID, len(p.Structure))
		if err := o.checkpoint(ctx, p, progressAt(), msg); err != nil {
			return err
		}
	}

	o.writeIntroduction(ctx, p)
	done++
	p.Detail = nil
	if err := o.checkpoint(ctx, p, progressAt(), "Finishing the manuscript"); err != nil {
		return err
	}

	if err := o.writeExtras(ctx, p); err != nil {
		return err
	}

	if err := o.setStatus(ctx, p, project.StatusGeneratingMarketing, 92, "Preparing marketing material"); err != nil {
		return err
	}
	if err := o.runMarketing(ctx, p); err != nil {
		return err
	}

	// Two paced wrap-up steps so the owner sees the manuscript being
	// finished rather than an instant jump to done.
	if err := o.narrativeStep(ctx, p, 95, "Reviewing the full manuscript"); err != nil {
		return err
	}
	if err := o.narrativeStep(ctx, p, 98, "Laying out diagrams and front matter"); err != nil {
		return err
	}

	return o.setStatus(ctx, p, project.StatusWaitingDetails, 100, "Add your personal details to finish")
}

// writeChapter generates one chapter under the retry budget. When the
// budget is exhausted the chapter degrades to a placeholder so the rest
// of the book can still be produced; the placeholder stays below the
// produced threshold and a later rerun will regenerate it.
func (o *Orchestrator) writeChapter(ctx context.Context, p *project.Project, ch *project.Chapter) (content string, degraded bool) {
	prompt := prompts.Chapter(p, ch, len(p.Structure))
	if ch.ID == 0 {
		prompt = prompts.Introduction(p)
	}
	req := generator.Request{
		System: prompts.System(p.Metadata.Language),
		Prompt: prompt,
	}

	err := retry.Do(
		func() error {
			out, err := o.generate(ctx, req)
			if err != nil {
				return err
			}
			if len(out) < project.MinChapterContentLen {
				return fmt.Errorf("chapter %d output too short (%d chars)", ch.ID, len(out))
			}
			content = out
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(o.chapterRetries)),
		retry.Delay(o.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			o.metrics.RecordChapterRetry()
			o.logger.Warn("chapter attempt failed, retrying",
				"project_id", p.ID, "chapter", ch.ID, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		o.logger.Error("chapter degraded to placeholder",
			"project_id", p.ID, "chapter", ch.ID, "error", err)
		return fmt.Sprintf("[PLACEHOLDER: chapter %d %q could not be generated]", ch.ID, ch.Title), true
	}
	return content, false
}

// writeIntroduction synthesizes the id 0 chapter at position 0, once the
// body chapters exist to introduce. It runs under the same retry budget
// and placeholder degradation as the body chapters: a book with a
// placeholder introduction still reaches completion.
func (o *Orchestrator) writeIntroduction(ctx context.Context, p *project.Project) {
	if intro := p.Chapter(0); intro != nil && intro.Produced() {
		return
	}

	ch := project.Chapter{ID: 0, Title: "Introduction"}
	content, degraded := o.writeChapter(ctx, p, &ch)
	ch.Content = content
	ch.Generated = true
	if degraded {
		o.metrics.RecordChapterDegraded()
	}

	if existing := p.Chapter(0); existing != nil {
		*existing = ch
		return
	}
	p.Structure = append([]project.Chapter{ch}, p.Structure...)
}

// writeExtras fills the dedication, acknowledgments and about-the-author
// texts. Premium projects get generated drafts; basic projects get fixed
// placeholder text the owner replaces at finalization. Extras are a
// nicety, so generation errors fall back to the placeholder too.
func (o *Orchestrator) writeExtras(ctx context.Context, p *project.Project) error {
	type extra struct {
		kind  string
		field *string
	}
	extras := []extra{
		{"dedication", &p.Metadata.Dedication},
		{"acknowledgments", &p.Metadata.Acknowledgments},
		{"about the author", &p.Metadata.AboutAuthor},
	}

	for _, e := range extras {
		if *e.field != "" {
			continue
		}
		if !p.Metadata.Tier.GeneratesExtras() {
			*e.field = fmt.Sprintf("Replace this text with your %s.", e.kind)
			continue
		}
		out, err := o.generate(ctx, generator.Request{
			System: prompts.System(p.Metadata.Language),
			Prompt: prompts.Extra(p, e.kind),
		})
		if err != nil {
			o.logger.Warn("extra generation failed, using placeholder",
				"project_id", p.ID, "kind", e.kind, "error", err)
			out = fmt.Sprintf("Replace this text with your %s.", e.kind)
		}
		*e.field = out
	}
	return nil
}

// narrativeStep publishes a paced progress update.
func (o *Orchestrator) narrativeStep(ctx context.Context, p *project.Project, progress int, msg string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(o.narrativeDelay):
	}
	return o.checkpoint(ctx, p, progress, msg)
}
