package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillhq/quill/internal/project"
)

// Defra is a Store backed by DefraDB over its HTTP/GraphQL API.
//
// Projects are stored as one document per project: a JSON blob plus the
// columns needed for lookups (owner email, created_at) and for the CAS
// write (version). All mutation is whole-document overwrite, so the
// consistency model within a document is last-writer-wins, guarded by the
// version filter.
type Defra struct {
	url        string
	httpClient *http.Client
}

// NewDefra creates a client for the DefraDB instance at url.
func NewDefra(url string) *Defra {
	return &Defra{
		url: strings.TrimSuffix(url, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GQLResponse represents a GraphQL response.
type GQLResponse struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors []GQLError     `json:"errors,omitempty"`
}

// GQLError represents a GraphQL error.
type GQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// Err returns the first error message or empty string.
func (r *GQLResponse) Err() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// HealthCheck checks if DefraDB is responding.
func (d *Defra) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", d.url+"/health-check", nil)
	if err != nil {
		return err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Execute sends a GraphQL request and returns the response.
func (d *Defra) Execute(ctx context.Context, query string, variables map[string]any) (*GQLResponse, error) {
	reqBody := struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables,omitempty"`
	}{Query: query, Variables: variables}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.url+"/api/v0/graphql", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("defra server error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var gqlResp GQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w (body: %s)", err, string(respBody))
	}
	return &gqlResp, nil
}

func (d *Defra) Create(ctx context.Context, p *project.Project) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}

	query := fmt.Sprintf(`mutation {
		create_Project(input: {
			project_id: %q,
			owner_email: %q,
			created_at: %q,
			version: %d,
			doc: %s
		}) { _docID }
	}`, p.ID, p.Metadata.Owner.Email, p.CreatedAt.Format(time.RFC3339Nano), p.Version, strconv.Quote(string(doc)))

	resp, err := d.Execute(ctx, query, nil)
	if err != nil {
		return err
	}
	if msg := resp.Err(); msg != "" {
		return fmt.Errorf("create error: %s", msg)
	}
	return nil
}

func (d *Defra) Get(ctx context.Context, id string) (*project.Project, error) {
	query := fmt.Sprintf(`{
		Project(filter: {project_id: {_eq: %q}}) { doc }
	}`, id)

	resp, err := d.Execute(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	if msg := resp.Err(); msg != "" {
		return nil, fmt.Errorf("get error: %s", msg)
	}
	docs, _ := resp.Data["Project"].([]any)
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return decodeProjectDoc(docs[0])
}

func (d *Defra) Update(ctx context.Context, p *project.Project) error {
	next := p.Clone()
	next.Version = p.Version + 1
	next.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}

	// The version filter makes this a compare-and-swap: zero matched
	// documents means a newer writer got there first.
	query := fmt.Sprintf(`mutation {
		update_Project(
			filter: {project_id: {_eq: %q}, version: {_eq: %d}},
			input: {version: %d, doc: %s}
		) { _docID }
	}`, p.ID, p.Version, next.Version, strconv.Quote(string(doc)))

	resp, err := d.Execute(ctx, query, nil)
	if err != nil {
		return err
	}
	if msg := resp.Err(); msg != "" {
		return fmt.Errorf("update error: %s", msg)
	}
	updated, _ := resp.Data["update_Project"].([]any)
	if len(updated) == 0 {
		if _, err := d.Get(ctx, p.ID); err != nil {
			return err
		}
		return ErrVersionConflict
	}

	p.Version = next.Version
	p.UpdatedAt = next.UpdatedAt
	return nil
}

func (d *Defra) LatestByOwner(ctx context.Context, email string) (*project.Project, error) {
	query := fmt.Sprintf(`{
		Project(
			filter: {owner_email: {_eq: %q}},
			order: {created_at: DESC},
			limit: 1
		) { doc }
	}`, email)

	resp, err := d.Execute(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	if msg := resp.Err(); msg != "" {
		return nil, fmt.Errorf("latest-by-owner error: %s", msg)
	}
	docs, _ := resp.Data["Project"].([]any)
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return decodeProjectDoc(docs[0])
}

func (d *Defra) List(ctx context.Context) ([]*project.Project, error) {
	query := `{
		Project(order: {created_at: DESC}) { doc }
	}`

	resp, err := d.Execute(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	if msg := resp.Err(); msg != "" {
		return nil, fmt.Errorf("list error: %s", msg)
	}

	docs, _ := resp.Data["Project"].([]any)
	projects := make([]*project.Project, 0, len(docs))
	for _, raw := range docs {
		p, err := decodeProjectDoc(raw)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func (d *Defra) RecordPendingIntent(ctx context.Context, intent PendingIntent) error {
	if intent.ID == "" {
		intent.ID = uuid.New().String()
	}
	query := fmt.Sprintf(`mutation {
		create_PendingIntent(input: {
			intent_id: %q,
			owner_email: %q,
			owner_name: %q,
			topic: %q,
			reason: %q,
			created_at: %q
		}) { _docID }
	}`, intent.ID, intent.OwnerEmail, intent.OwnerName, intent.Topic, intent.Reason,
		intent.CreatedAt.Format(time.RFC3339Nano))

	resp, err := d.Execute(ctx, query, nil)
	if err != nil {
		return err
	}
	if msg := resp.Err(); msg != "" {
		return fmt.Errorf("pending intent error: %s", msg)
	}
	return nil
}

func (d *Defra) PendingIntents(ctx context.Context) ([]PendingIntent, error) {
	query := `{
		PendingIntent(order: {created_at: DESC}) {
			intent_id owner_email owner_name topic reason created_at
		}
	}`

	resp, err := d.Execute(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	if msg := resp.Err(); msg != "" {
		return nil, fmt.Errorf("pending intents error: %s", msg)
	}

	docs, _ := resp.Data["PendingIntent"].([]any)
	intents := make([]PendingIntent, 0, len(docs))
	for _, raw := range docs {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		intent := PendingIntent{
			ID:         str(m["intent_id"]),
			OwnerEmail: str(m["owner_email"]),
			OwnerName:  str(m["owner_name"]),
			Topic:      str(m["topic"]),
			Reason:     str(m["reason"]),
		}
		if ts, err := time.Parse(time.RFC3339Nano, str(m["created_at"])); err == nil {
			intent.CreatedAt = ts
		}
		intents = append(intents, intent)
	}
	return intents, nil
}

func decodeProjectDoc(raw any) (*project.Project, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected document shape: %T", raw)
	}
	blob := str(m["doc"])
	if blob == "" {
		return nil, fmt.Errorf("document missing doc field")
	}
	var p project.Project
	if err := json.Unmarshal([]byte(blob), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project: %w", err)
	}
	return &p, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
