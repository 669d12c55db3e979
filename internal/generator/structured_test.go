package generator

import (
	"context"
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "fenced json block",
			in:   "Here you go:\n```json\n{\"a\": 1}\n```\nDone.",
			want: `{"a": 1}`,
		},
		{
			name: "fenced without language tag",
			in:   "```\n[1, 2]\n```",
			want: `[1, 2]`,
		},
		{
			name: "object with surrounding prose",
			in:   `Sure! {"title": "X"} Hope that helps.`,
			want: `{"title": "X"}`,
		},
		{
			name: "array with surrounding prose",
			in:   `The list: [1, 2, 3].`,
			want: `[1, 2, 3]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

const titleListSchema = `{
	"type": "object",
	"properties": {
		"titles": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"title": {"type": "string"},
					"subtitle": {"type": "string"}
				},
				"required": ["title"]
			}
		}
	},
	"required": ["titles"]
}`

func TestStructured_Valid(t *testing.T) {
	m := NewMock()
	m.DefaultResponse = `{"titles": [{"title": "A", "subtitle": "B"}]}`

	var out struct {
		Titles []struct {
			Title    string `json:"title"`
			Subtitle string `json:"subtitle"`
		} `json:"titles"`
	}
	if err := m.Structured(context.Background(), Request{Prompt: "titles please"}, titleListSchema, &out); err != nil {
		t.Fatalf("Structured() error = %v", err)
	}
	if len(out.Titles) != 1 || out.Titles[0].Title != "A" {
		t.Errorf("out = %+v, want one title A", out)
	}
}

func TestStructured_RepairsInvalidThenSucceeds(t *testing.T) {
	m := NewMock()
	// First reply is prose; the repair prompt embeds the previous
	// response, so match on it to return valid JSON the second time.
	m.Order = []string{"previous response was invalid", "titles"}
	m.Responses = map[string]string{
		"previous response was invalid": `{"titles": [{"title": "Fixed"}]}`,
		"titles":                        "I cannot produce JSON, sorry.",
	}

	var out struct {
		Titles []struct {
			Title string `json:"title"`
		} `json:"titles"`
	}
	if err := m.Structured(context.Background(), Request{Prompt: "titles"}, titleListSchema, &out); err != nil {
		t.Fatalf("Structured() error = %v", err)
	}
	if len(out.Titles) != 1 || out.Titles[0].Title != "Fixed" {
		t.Errorf("out = %+v, want repaired title", out)
	}
}

func TestStructured_FailsAfterRepairBudget(t *testing.T) {
	m := NewMock()
	m.DefaultResponse = "still not JSON"

	var out map[string]any
	err := m.Structured(context.Background(), Request{Prompt: "anything"}, titleListSchema, &out)
	if !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("Structured() error = %v, want ErrInvalidJSON", err)
	}
}

func TestRateLimiter_AllowsBurstUpToLimit(t *testing.T) {
	rl := NewRateLimiter(60)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
}
