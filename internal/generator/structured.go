package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxRepairAttempts limits the self-repair loop when structured output
// fails parsing or validation.
const maxRepairAttempts = 1

// structuredViaText implements Structured on top of a Text capability:
// the schema is shown to the model in the prompt, the reply is parsed
// locally, validated against the compiled schema, and on failure the
// model gets one chance to repair its own output.
func structuredViaText(ctx context.Context, g Generator, req Request, schema string, out any) error {
	compiled, err := jsonschema.CompileString("schema.json", schema)
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}

	prompt := req.Prompt + "\n\nRespond with a single JSON document conforming to this JSON schema, with no surrounding prose:\n" + schema
	attempt := Request{System: req.System, Prompt: prompt, MaxTokens: req.MaxTokens, Temperature: req.Temperature}

	var lastErr error
	for i := 0; i <= maxRepairAttempts; i++ {
		raw, err := g.Text(ctx, attempt)
		if err != nil {
			return err
		}

		extracted := ExtractJSON(raw)
		if verr := validateJSON(compiled, extracted); verr != nil {
			lastErr = verr
			attempt = Request{
				System: req.System,
				Prompt: prompt + "\n\nYour previous response was invalid: " + verr.Error() +
					"\nPrevious response:\n" + raw + "\n\nReturn corrected JSON only.",
				MaxTokens:   req.MaxTokens,
				Temperature: req.Temperature,
			}
			continue
		}

		if err := json.Unmarshal([]byte(extracted), out); err != nil {
			return fmt.Errorf("failed to unmarshal structured output: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidJSON, lastErr)
}

func validateJSON(schema *jsonschema.Schema, raw string) error {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// ExtractJSON pulls the first JSON document out of a model reply,
// stripping markdown fences and surrounding prose.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)

	// Fenced block first
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "\n")
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}

	// Otherwise take the outermost object or array
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(s, pair[0])
		end := strings.LastIndexByte(s, pair[1])
		if start >= 0 && end > start {
			return strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
