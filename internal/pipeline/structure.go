package pipeline

import (
	"context"
	"fmt"

	"github.com/quillhq/quill/internal/generator"
	"github.com/quillhq/quill/internal/pipeline/prompts"
	"github.com/quillhq/quill/internal/project"
)

// runStructure generates the chapter outline and parks the project in
// REVIEW_STRUCTURE. Unlike titles, a structure is load-bearing for the
// rest of the pipeline, so generation failure here is stage-fatal.
func (o *Orchestrator) runStructure(ctx context.Context, p *project.Project) error {
	if err := o.setStatus(ctx, p, project.StatusGeneratingStructure, 30, "Designing the chapter structure"); err != nil {
		return err
	}

	var out struct {
		Chapters []struct {
			Title string `json:"title"`
			Intro string `json:"intro"`
		} `json:"chapters"`
	}

	req := generator.Request{
		System: prompts.System(p.Metadata.Language),
		Prompt: prompts.Structure(p.Metadata.Topic, p.Metadata.BookTitle, p.Metadata.SubTitle,
			p.ResearchContext, o.chapterCount),
	}
	if err := o.gen.Structured(ctx, req, prompts.StructureSchema, &out); err != nil {
		return fmt.Errorf("structure generation failed: %w", err)
	}
	if len(out.Chapters) == 0 {
		return fmt.Errorf("structure generation returned no chapters")
	}

	// Normalize to exactly chapterCount body chapters, ids 1..N. The
	// introduction (id 0) is synthesized during the writing stage.
	chapters := make([]project.Chapter, 0, o.chapterCount)
	for i := 0; i < o.chapterCount; i++ {
		ch := project.Chapter{ID: i + 1}
		if i < len(out.Chapters) {
			ch.Title = out.Chapters[i].Title
			ch.Intro = out.Chapters[i].Intro
		} else {
			ch.Title = fmt.Sprintf("Chapter %d", i+1)
		}
		chapters = append(chapters, ch)
	}
	p.Structure = chapters

	return o.setStatus(ctx, p, project.StatusReviewStructure, 50, "Review the proposed structure")
}
