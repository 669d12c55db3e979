package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quillhq/quill/internal/generator"
	"github.com/quillhq/quill/internal/pipeline/prompts"
	"github.com/quillhq/quill/internal/project"
)

// runResearch accumulates three independent generator outputs into the
// project's research context, then parks the project in WAITING_TITLE
// with the candidate title list already prepared. An unrecovered
// generator error here is stage-fatal.
func (o *Orchestrator) runResearch(ctx context.Context, p *project.Project) error {
	if err := o.setStatus(ctx, p, project.StatusResearching, 5, "Researching your topic"); err != nil {
		return err
	}

	topic := p.Metadata.Topic
	system := prompts.System(p.Metadata.Language)

	steps := []struct {
		prompt   string
		progress int
		message  string
	}{
		{prompts.ResearchAudience(topic), 10, "Profiling the target audience"},
		{prompts.ResearchThemes(topic), 15, "Developing the core themes"},
		{prompts.ResearchReferences(topic), 20, "Gathering background and references"},
	}

	var sections []string
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := o.generate(ctx, generator.Request{System: system, Prompt: step.prompt})
		if err != nil {
			return fmt.Errorf("research generation failed: %w", err)
		}
		sections = append(sections, out)

		p.ResearchContext = strings.Join(sections, "\n\n---\n\n")
		if err := o.checkpoint(ctx, p, step.progress, step.message); err != nil {
			return err
		}
	}

	// The title candidates are produced here so the owner has options
	// waiting the moment the project parks.
	p.TitleOptions = o.titleCandidates(ctx, p)
	return o.setStatus(ctx, p, project.StatusWaitingTitle, 25, "Choose a title to continue")
}

// generate wraps the generator with call latency metrics.
func (o *Orchestrator) generate(ctx context.Context, req generator.Request) (string, error) {
	start := time.Now()
	out, err := o.gen.Text(ctx, req)
	o.metrics.ObserveGenerator(time.Since(start).Seconds())
	return out, err
}
