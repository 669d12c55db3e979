package pipeline

import (
	"context"
	"fmt"

	"github.com/quillhq/quill/internal/generator"
	"github.com/quillhq/quill/internal/pipeline/prompts"
	"github.com/quillhq/quill/internal/project"
)

// titleCandidates produces the ordered candidate list via one structured
// generator call. Generation failure or an invalid result never stalls
// the pipeline: the deterministic fallback set is used instead.
func (o *Orchestrator) titleCandidates(ctx context.Context, p *project.Project) []project.TitleOption {
	var out struct {
		Titles []struct {
			Title     string `json:"title"`
			Subtitle  string `json:"subtitle"`
			Rationale string `json:"rationale"`
		} `json:"titles"`
	}

	req := generator.Request{
		System: prompts.System(p.Metadata.Language),
		Prompt: prompts.Titles(p.Metadata.Topic, p.ResearchContext, DefaultTitleCount),
	}
	if err := o.gen.Structured(ctx, req, prompts.TitlesSchema, &out); err != nil || len(out.Titles) == 0 {
		o.logger.Warn("title generation failed, using fallback set",
			"project_id", p.ID, "error", err)
		return FallbackTitles(p.Metadata.Topic)
	}

	options := make([]project.TitleOption, 0, len(out.Titles))
	for _, t := range out.Titles {
		if t.Title == "" {
			continue
		}
		options = append(options, project.TitleOption{
			Title:     t.Title,
			Subtitle:  t.Subtitle,
			Rationale: t.Rationale,
		})
	}
	if len(options) == 0 {
		return FallbackTitles(p.Metadata.Topic)
	}
	return options
}

// FallbackTitles is the deterministic template set used when title
// generation yields nothing usable.
func FallbackTitles(topic string) []project.TitleOption {
	patterns := []struct{ title, subtitle string }{
		{"The Complete Guide to %s", "Everything you need to know"},
		{"%s Explained", "A practical introduction"},
		{"Mastering %s", "From first principles to confident practice"},
		{"%s for Everyone", "A clear path through a complex subject"},
		{"The Essentials of %s", "What matters and why"},
		{"Understanding %s", "Concepts, context and practice"},
		{"%s in Practice", "Ideas you can use from day one"},
		{"A Field Guide to %s", "Navigate the subject with confidence"},
		{"The %s Handbook", "Your reference for the journey"},
		{"Thinking About %s", "A fresh perspective on familiar ground"},
	}

	options := make([]project.TitleOption, 0, len(patterns))
	for _, pat := range patterns {
		options = append(options, project.TitleOption{
			Title:     fmt.Sprintf(pat.title, topic),
			Subtitle:  pat.subtitle,
			Rationale: "fallback template",
		})
	}
	return options
}

// ChooseTitle records the owner's selection and spawns the structure
// stage. Valid only in WAITING_TITLE.
func (o *Orchestrator) ChooseTitle(ctx context.Context, id string, choice TitleChoice) (*project.Project, error) {
	p, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Metadata.Status != project.StatusWaitingTitle {
		return nil, fmt.Errorf("%w: title can only be chosen in %s, project is %s",
			ErrInvalidTransition, project.StatusWaitingTitle, p.Metadata.Status)
	}

	title, subtitle := choice.Title, choice.Subtitle
	if choice.Index != nil {
		idx := *choice.Index
		if idx < 0 || idx >= len(p.TitleOptions) {
			return nil, fmt.Errorf("title index %d out of range (%d options)", idx, len(p.TitleOptions))
		}
		title, subtitle = p.TitleOptions[idx].Title, p.TitleOptions[idx].Subtitle
	}
	if title == "" {
		return nil, fmt.Errorf("a title is required")
	}

	p.Metadata.BookTitle = title
	p.Metadata.SubTitle = subtitle
	if err := o.store.Update(ctx, p); err != nil {
		return nil, err
	}

	o.spawn(id, "structure", o.runStructure)
	return p, nil
}
