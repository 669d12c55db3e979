package render

import (
	"strings"
	"testing"

	"github.com/quillhq/quill/internal/project"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     int // chunk count
	}{
		{"empty", "", 100, 1},
		{"fits in one", "short text", 100, 1},
		{"splits on paragraphs", strings.Repeat("para one\n\n", 30), 100, 3},
		{"hard split oversized paragraph", strings.Repeat("word ", 100), 100, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Paginate(tt.text, tt.maxChars)
			if len(chunks) != tt.want {
				t.Errorf("Paginate() chunks = %d, want %d", len(chunks), tt.want)
			}
			for i, c := range chunks {
				if len(c) > tt.maxChars {
					t.Errorf("chunk %d length %d exceeds max %d", i, len(c), tt.maxChars)
				}
			}
		})
	}
}

func TestBuildDescriptor(t *testing.T) {
	p := project.New(project.Metadata{
		BookTitle:  "The Quiet Mind",
		SubTitle:   "Stoicism for Beginners",
		AuthorName: "A. Writer",
		Owner:      project.Contact{Email: "a@example.com"},
	})
	p.Structure = []project.Chapter{
		{ID: 0, Title: "Introduction", Content: "Welcome.", Generated: true},
		{ID: 1, Title: "First Steps", Content: strings.Repeat("Body text. ", 600), Generated: true},
	}

	desc := BuildDescriptor(p)

	if desc.Paper != "A4" {
		t.Errorf("paper = %q, want A4", desc.Paper)
	}
	// Title page + intro page + at least two pages for the long chapter.
	if len(desc.Pages) < 4 {
		t.Errorf("pages = %d, want >= 4", len(desc.Pages))
	}

	title := desc.Pages["1"]
	if len(title.Content.Text) == 0 || title.Content.Text[0].Value != "The Quiet Mind" {
		t.Errorf("page 1 should open with the book title, got %+v", title.Content.Text)
	}

	intro := desc.Pages["2"]
	if len(intro.Content.Text) == 0 || intro.Content.Text[0].Value != "Introduction" {
		t.Errorf("introduction heading should not carry a chapter number, got %+v", intro.Content.Text)
	}
}
