package pipeline

import (
	"context"
	"fmt"

	"github.com/quillhq/quill/internal/generator"
	"github.com/quillhq/quill/internal/pipeline/prompts"
	"github.com/quillhq/quill/internal/project"
)

// runMarketing derives the marketing bundle from the finished structure.
// Like titles, marketing copy must not stall the pipeline: on failure a
// minimal bundle is derived locally from the book metadata.
func (o *Orchestrator) runMarketing(ctx context.Context, p *project.Project) error {
	if p.Marketing != nil && p.Marketing.Synopsis != "" {
		return nil
	}

	var out struct {
		Synopsis  string   `json:"synopsis"`
		BackCover string   `json:"back_cover"`
		FlapCopy  string   `json:"flap_copy"`
		Keywords  []string `json:"keywords"`
		Promo     string   `json:"promo"`
	}

	req := generator.Request{
		System: prompts.System(p.Metadata.Language),
		Prompt: prompts.Marketing(p),
	}
	if err := o.gen.Structured(ctx, req, prompts.MarketingSchema, &out); err != nil {
		o.logger.Warn("marketing generation failed, using minimal bundle",
			"project_id", p.ID, "error", err)
		p.Marketing = fallbackMarketing(p)
		return nil
	}

	p.Marketing = &project.MarketingBundle{
		Synopsis:  out.Synopsis,
		BackCover: out.BackCover,
		FlapCopy:  out.FlapCopy,
		Keywords:  out.Keywords,
		Promo:     out.Promo,
	}
	if p.Marketing.Synopsis == "" {
		p.Marketing = fallbackMarketing(p)
	}
	return nil
}

func fallbackMarketing(p *project.Project) *project.MarketingBundle {
	synopsis := fmt.Sprintf("%s is a book about %s by %s.",
		p.Metadata.BookTitle, p.Metadata.Topic, p.Metadata.AuthorName)
	return &project.MarketingBundle{
		Synopsis:  synopsis,
		BackCover: synopsis,
		Keywords:  []string{p.Metadata.Topic},
	}
}
