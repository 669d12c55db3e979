package render

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/quillhq/quill/internal/project"
)

const (
	// maxCharsPerPage is a conservative fit for A4 body text at the
	// default font size.
	maxCharsPerPage = 2800

	bodyFont  = "Helvetica"
	titleFont = "Helvetica-Bold"
)

// PDF renders projects to PDF files under OutputDir using pdfcpu's
// create-from-JSON form.
type PDF struct {
	OutputDir string
}

// NewPDF creates a PDF renderer writing into outputDir.
func NewPDF(outputDir string) *PDF {
	return &PDF{OutputDir: outputDir}
}

func (r *PDF) Render(ctx context.Context, p *project.Project) (string, error) {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	desc := BuildDescriptor(p)
	descJSON, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal descriptor: %w", err)
	}

	jsonPath := filepath.Join(r.OutputDir, p.ID+".json")
	if err := os.WriteFile(jsonPath, descJSON, 0o644); err != nil {
		return "", fmt.Errorf("failed to write descriptor: %w", err)
	}
	defer os.Remove(jsonPath)

	outPath := filepath.Join(r.OutputDir, p.ID+".pdf")
	if err := api.CreateFile("", jsonPath, outPath, nil); err != nil {
		return "", fmt.Errorf("pdf creation failed: %w", err)
	}
	if err := api.ValidateFile(outPath, nil); err != nil {
		return "", fmt.Errorf("pdf validation failed: %w", err)
	}
	return outPath, nil
}

// Descriptor is the pdfcpu create-JSON document.
type Descriptor struct {
	Paper  string          `json:"paper"`
	Origin string          `json:"origin"`
	Pages  map[string]Page `json:"pages"`
}

// Page holds the content of one page.
type Page struct {
	Content Content `json:"content"`
}

// Content lists the text boxes on a page.
type Content struct {
	Text []TextBox `json:"text"`
}

// TextBox is one positioned block of text.
type TextBox struct {
	Value    string  `json:"value"`
	Anchor   string  `json:"anchor,omitempty"`
	Position [2]int  `json:"pos,omitempty"`
	Width    int     `json:"width,omitempty"`
	Font     FontRef `json:"font"`
}

// FontRef selects a core font.
type FontRef struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// BuildDescriptor lays the project out into pages: title page first, then
// each chapter starting on a fresh page, body text chunked to fit.
func BuildDescriptor(p *project.Project) *Descriptor {
	desc := &Descriptor{
		Paper:  "A4",
		Origin: "upperLeft",
		Pages:  map[string]Page{},
	}

	pageNum := 1
	desc.Pages[strconv.Itoa(pageNum)] = titlePage(p)
	pageNum++

	for i := range p.Structure {
		ch := &p.Structure[i]
		for idx, chunk := range Paginate(ch.Content, maxCharsPerPage) {
			boxes := []TextBox{}
			if idx == 0 {
				boxes = append(boxes, TextBox{
					Value:    chapterHeading(ch),
					Position: [2]int{60, 60},
					Width:    480,
					Font:     FontRef{Name: titleFont, Size: 18},
				})
			}
			boxes = append(boxes,
				TextBox{
					Value:    chunk,
					Position: [2]int{60, 110},
					Width:    480,
					Font:     FontRef{Name: bodyFont, Size: 11},
				},
				pageNumberBox(pageNum),
			)
			desc.Pages[strconv.Itoa(pageNum)] = Page{Content: Content{Text: boxes}}
			pageNum++
		}
	}

	return desc
}

func titlePage(p *project.Project) Page {
	boxes := []TextBox{
		{
			Value:  p.Metadata.BookTitle,
			Anchor: "center",
			Font:   FontRef{Name: titleFont, Size: 28},
		},
	}
	if p.Metadata.SubTitle != "" {
		boxes = append(boxes, TextBox{
			Value:    p.Metadata.SubTitle,
			Position: [2]int{60, 420},
			Width:    480,
			Font:     FontRef{Name: bodyFont, Size: 16},
		})
	}
	if p.Metadata.AuthorName != "" {
		boxes = append(boxes, TextBox{
			Value:    p.Metadata.AuthorName,
			Position: [2]int{60, 700},
			Width:    480,
			Font:     FontRef{Name: bodyFont, Size: 14},
		})
	}
	return Page{Content: Content{Text: boxes}}
}

func chapterHeading(ch *project.Chapter) string {
	if ch.ID == 0 {
		return ch.Title
	}
	return fmt.Sprintf("Chapter %d: %s", ch.ID, ch.Title)
}

func pageNumberBox(n int) TextBox {
	return TextBox{
		Value:    strconv.Itoa(n),
		Position: [2]int{297, 810},
		Font:     FontRef{Name: bodyFont, Size: 9},
	}
}

// Paginate splits text into chunks of at most maxChars, breaking on
// paragraph boundaries where possible. Empty text yields one empty chunk
// so every chapter still gets a page.
func Paginate(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	paragraphs := strings.Split(text, "\n\n")
	var cur strings.Builder
	for _, para := range paragraphs {
		// Oversized paragraph: hard-split.
		for len(para) > maxChars {
			if cur.Len() > 0 {
				chunks = append(chunks, strings.TrimSpace(cur.String()))
				cur.Reset()
			}
			cut := strings.LastIndexByte(para[:maxChars], ' ')
			if cut <= 0 {
				cut = maxChars
			}
			chunks = append(chunks, strings.TrimSpace(para[:cut]))
			para = strings.TrimSpace(para[cut:])
		}
		if cur.Len()+len(para)+2 > maxChars && cur.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(cur.String()))
	}
	return chunks
}
