package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Schema is the DefraDB schema for quill's collections. Project documents
// carry the full project as a JSON blob; the extra columns exist for
// lookups and the CAS version filter.
const Schema = `
type Project {
	project_id: String @index(unique: true)
	owner_email: String @index
	created_at: DateTime
	version: Int
	doc: String
}

type PendingIntent {
	intent_id: String @index(unique: true)
	owner_email: String @index
	owner_name: String
	topic: String
	reason: String
	created_at: DateTime
}
`

// AddSchema registers a schema with DefraDB. Re-adding an existing schema
// is reported by Defra as an error containing "already exists"; callers
// treat that as success via EnsureSchema.
func (d *Defra) AddSchema(ctx context.Context, schema string) error {
	req, err := http.NewRequestWithContext(ctx, "POST", d.url+"/api/v0/schema", strings.NewReader(schema))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("schema error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// EnsureSchema registers quill's schema, tolerating a previous registration.
func (d *Defra) EnsureSchema(ctx context.Context) error {
	err := d.AddSchema(ctx, Schema)
	if err != nil && strings.Contains(err.Error(), "already exists") {
		return nil
	}
	return err
}
