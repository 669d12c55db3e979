// Package project defines the Project entity: one book-generation job and
// its accumulated state as it moves through the production pipeline.
package project

import (
	"time"

	"github.com/google/uuid"
)

// MinChapterContentLen is the minimum content length for a chapter to count
// as produced. Guards against a Generated flag left set over truncated or
// empty content.
const MinChapterContentLen = 200

// PrewrittenTopicMarker tags projects that carry a pre-written manuscript
// instead of going through the generation workflow. Such projects never
// block admission of a new generation project for the same owner.
const PrewrittenTopicMarker = "prewritten:"

// Contact identifies the owner of a project.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Chapter is one entry in the book structure. ID 0 is reserved for the
// introduction and, when present, always occupies position 0.
type Chapter struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Intro     string `json:"intro"`
	Content   string `json:"content"`
	Generated bool   `json:"generated"`
}

// Produced reports whether the chapter can be skipped on resume. The flag
// alone is not trusted: the content must also clear the minimum length.
func (c *Chapter) Produced() bool {
	return c.Generated && len(c.Content) >= MinChapterContentLen
}

// TitleOption is one candidate title produced by the title stage.
type TitleOption struct {
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	Rationale string `json:"rationale,omitempty"`
}

// MarketingBundle holds the derived marketing assets. Present only after
// the marketing stage has run.
type MarketingBundle struct {
	Synopsis  string   `json:"synopsis"`
	BackCover string   `json:"back_cover"`
	FlapCopy  string   `json:"flap_copy,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Promo     string   `json:"promo,omitempty"`
}

// Metadata is the mutable envelope on a project.
type Metadata struct {
	Status        Status  `json:"status"`
	Progress      int     `json:"progress"` // 0-100, non-decreasing within a forward run
	StatusMessage string  `json:"status_message,omitempty"`
	Language      string  `json:"language"`
	AuthorName    string  `json:"author_name"`
	Topic         string  `json:"topic"`
	BookTitle     string  `json:"book_title,omitempty"`
	SubTitle      string  `json:"sub_title,omitempty"`
	Owner         Contact `json:"owner"`
	Tier          Tier    `json:"tier"`

	Dedication      string `json:"dedication,omitempty"`
	Acknowledgments string `json:"acknowledgments,omitempty"`
	AboutAuthor     string `json:"about_author,omitempty"`

	// ArtifactPath is set once, on transition into StatusCompleted.
	ArtifactPath string `json:"artifact_path,omitempty"`
}

// Project is the unit of work.
type Project struct {
	ID string `json:"id"`

	// Version is a monotonic sequence number. Every store write is a
	// compare-and-swap on it; a stage that loses the race aborts instead
	// of overwriting newer progress.
	Version int64 `json:"version"`

	Metadata        Metadata         `json:"metadata"`
	ResearchContext string           `json:"research_context,omitempty"`
	TitleOptions    []TitleOption    `json:"title_options,omitempty"`
	Structure       []Chapter        `json:"structure,omitempty"`
	Marketing       *MarketingBundle `json:"marketing,omitempty"`

	// Detail carries the status-specific payload for the current status.
	Detail *StatusDetail `json:"detail,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a fresh project in StatusIdle for the given owner.
func New(meta Metadata) *Project {
	now := time.Now().UTC()
	meta.Status = StatusIdle
	return &Project{
		ID:        uuid.New().String(),
		Version:   1,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Active reports whether the project is still in flight.
func (p *Project) Active() bool {
	return !p.Metadata.Status.Terminal()
}

// Prewritten reports whether the project belongs to the pre-written
// manuscript workflow rather than the generation workflow.
func (p *Project) Prewritten() bool {
	return len(p.Metadata.Topic) >= len(PrewrittenTopicMarker) &&
		p.Metadata.Topic[:len(PrewrittenTopicMarker)] == PrewrittenTopicMarker
}

// Chapter returns the chapter with the given id, or nil.
func (p *Project) Chapter(id int) *Chapter {
	for i := range p.Structure {
		if p.Structure[i].ID == id {
			return &p.Structure[i]
		}
	}
	return nil
}

// SetProgress raises progress, never lowering it. Explicit state
// transitions that need a reset write Metadata.Progress directly.
func (p *Project) SetProgress(pct int, msg string) {
	if pct > p.Metadata.Progress {
		p.Metadata.Progress = pct
	}
	if msg != "" {
		p.Metadata.StatusMessage = msg
	}
}

// Clone returns a deep copy. Stores hand out clones so callers can mutate
// freely before writing back.
func (p *Project) Clone() *Project {
	cp := *p
	cp.Structure = make([]Chapter, len(p.Structure))
	copy(cp.Structure, p.Structure)
	cp.TitleOptions = make([]TitleOption, len(p.TitleOptions))
	copy(cp.TitleOptions, p.TitleOptions)
	if p.Marketing != nil {
		m := *p.Marketing
		m.Keywords = append([]string(nil), p.Marketing.Keywords...)
		cp.Marketing = &m
	}
	if p.Detail != nil {
		d := *p.Detail
		cp.Detail = &d
	}
	return &cp
}
