// Package prompts holds the embedded prompt templates for the production
// pipeline stages.
package prompts

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/quillhq/quill/internal/project"
)

//go:embed system.tmpl
var systemTmpl string

//go:embed research_audience.tmpl
var researchAudienceTmpl string

//go:embed research_themes.tmpl
var researchThemesTmpl string

//go:embed research_references.tmpl
var researchReferencesTmpl string

//go:embed titles.tmpl
var titlesTmpl string

//go:embed structure.tmpl
var structureTmpl string

//go:embed chapter.tmpl
var chapterTmpl string

//go:embed introduction.tmpl
var introductionTmpl string

//go:embed marketing.tmpl
var marketingTmpl string

//go:embed extra.tmpl
var extraTmpl string

var (
	systemTemplate             = template.Must(template.New("system").Parse(systemTmpl))
	researchAudienceTemplate   = template.Must(template.New("research_audience").Parse(researchAudienceTmpl))
	researchThemesTemplate     = template.Must(template.New("research_themes").Parse(researchThemesTmpl))
	researchReferencesTemplate = template.Must(template.New("research_references").Parse(researchReferencesTmpl))
	titlesTemplate             = template.Must(template.New("titles").Parse(titlesTmpl))
	structureTemplate          = template.Must(template.New("structure").Parse(structureTmpl))
	chapterTemplate            = template.Must(template.New("chapter").Parse(chapterTmpl))
	introductionTemplate       = template.Must(template.New("introduction").Parse(introductionTmpl))
	marketingTemplate          = template.Must(template.New("marketing").Parse(marketingTmpl))
	extraTemplate              = template.Must(template.New("extra").Parse(extraTmpl))
)

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

// System builds the shared system prompt.
func System(language string) string {
	if language == "" {
		language = "English"
	}
	return render(systemTemplate, struct{ Language string }{language})
}

// ResearchAudience builds the audience research prompt.
func ResearchAudience(topic string) string {
	return render(researchAudienceTemplate, struct{ Topic string }{topic})
}

// ResearchThemes builds the themes research prompt.
func ResearchThemes(topic string) string {
	return render(researchThemesTemplate, struct{ Topic string }{topic})
}

// ResearchReferences builds the background research prompt.
func ResearchReferences(topic string) string {
	return render(researchReferencesTemplate, struct{ Topic string }{topic})
}

// Titles builds the title candidate prompt.
func Titles(topic, research string, count int) string {
	return render(titlesTemplate, struct {
		Topic    string
		Research string
		Count    int
	}{topic, research, count})
}

// Structure builds the chapter skeleton prompt.
func Structure(topic, title, subtitle, research string, count int) string {
	return render(structureTemplate, struct {
		Topic    string
		Title    string
		Subtitle string
		Research string
		Count    int
	}{topic, title, subtitle, research, count})
}

// Chapter builds the prompt for one body chapter.
func Chapter(p *project.Project, ch *project.Chapter, total int) string {
	return render(chapterTemplate, struct {
		Number       int
		Total        int
		Title        string
		Topic        string
		ChapterTitle string
		ChapterIntro string
		Research     string
		Language     string
	}{
		Number:       ch.ID,
		Total:        total,
		Title:        p.Metadata.BookTitle,
		Topic:        p.Metadata.Topic,
		ChapterTitle: ch.Title,
		ChapterIntro: ch.Intro,
		Research:     p.ResearchContext,
		Language:     p.Metadata.Language,
	})
}

// Introduction builds the prompt for the introduction chapter.
func Introduction(p *project.Project) string {
	return render(introductionTemplate, struct {
		Title    string
		Topic    string
		Chapters []project.Chapter
		Language string
	}{
		Title:    p.Metadata.BookTitle,
		Topic:    p.Metadata.Topic,
		Chapters: p.Structure,
		Language: p.Metadata.Language,
	})
}

// Marketing builds the marketing bundle prompt.
func Marketing(p *project.Project) string {
	return render(marketingTemplate, struct {
		Title    string
		Subtitle string
		Topic    string
		Chapters []project.Chapter
	}{
		Title:    p.Metadata.BookTitle,
		Subtitle: p.Metadata.SubTitle,
		Topic:    p.Metadata.Topic,
		Chapters: p.Structure,
	})
}

// Extra builds the prompt for one long-form extra (dedication,
// acknowledgments, about the author).
func Extra(p *project.Project, kind string) string {
	return render(extraTemplate, struct {
		Title    string
		Author   string
		Topic    string
		Kind     string
		Language string
	}{
		Title:    p.Metadata.BookTitle,
		Author:   p.Metadata.AuthorName,
		Topic:    p.Metadata.Topic,
		Kind:     kind,
		Language: p.Metadata.Language,
	})
}
