package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
)

func TestClient_GetDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/projects/abc" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc","topic":"beekeeping"}`))
	}))
	defer srv.Close()

	// Trailing slash on the base URL must not produce a double slash.
	client := NewClient(srv.URL + "/")
	var got struct {
		ID    string `json:"id"`
		Topic string `json:"topic"`
	}
	if err := client.Get(context.Background(), "/api/projects/abc", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != "abc" || got.Topic != "beekeeping" {
		t.Errorf("unexpected response: %+v", got)
	}
}

func TestClient_PostSendsJSONBody(t *testing.T) {
	var contentType, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	req := map[string]string{"topic": "beekeeping"}
	var resp struct {
		OK bool `json:"ok"`
	}
	if err := client.Post(context.Background(), "/api/projects", req, &resp); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("expected JSON content type, got %q", contentType)
	}
	if !strings.Contains(body, `"topic":"beekeeping"`) {
		t.Errorf("body missing topic: %s", body)
	}
	if !resp.OK {
		t.Error("expected decoded response")
	}
}

func TestClient_DecodesErrorBody(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantStatus int
	}{
		{
			name:       "json error envelope",
			status:     http.StatusNotFound,
			body:       `{"error":"project not found"}`,
			wantMsg:    "project not found",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "plain text body",
			status:     http.StatusInternalServerError,
			body:       "something broke\n",
			wantMsg:    "something broke",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL).Get(context.Background(), "/x", nil)
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if apiErr.Status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, apiErr.Status)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, apiErr.Message)
			}
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	notFound := &Error{Status: http.StatusNotFound, Message: "project not found"}
	conflict := &Error{Status: http.StatusConflict, Message: "cannot approve"}
	denied := &Error{Status: http.StatusPaymentRequired, Message: "no credits"}

	if !IsNotFound(notFound) || IsNotFound(conflict) {
		t.Error("IsNotFound misclassified")
	}
	if !IsConflict(conflict) || IsConflict(denied) {
		t.Error("IsConflict misclassified")
	}
	if !IsPaymentRequired(denied) || IsPaymentRequired(notFound) {
		t.Error("IsPaymentRequired misclassified")
	}
	if IsNotFound(errors.New("plain error")) {
		t.Error("plain errors must not match")
	}
	// Predicates see through wrapping.
	wrapped := errors.Join(errors.New("context"), notFound)
	if !IsNotFound(wrapped) {
		t.Error("expected IsNotFound to unwrap")
	}
}

func TestOutputTo(t *testing.T) {
	data := struct {
		ID    string `json:"id" yaml:"id"`
		Count int    `json:"count" yaml:"count"`
	}{ID: "abc", Count: 2}

	var jsonBuf strings.Builder
	if err := OutputTo(&jsonBuf, OutputFormatJSON, data); err != nil {
		t.Fatalf("json output failed: %v", err)
	}
	if !strings.Contains(jsonBuf.String(), `"id": "abc"`) {
		t.Errorf("unexpected json output: %s", jsonBuf.String())
	}

	var yamlBuf strings.Builder
	if err := OutputTo(&yamlBuf, OutputFormatYAML, data); err != nil {
		t.Fatalf("yaml output failed: %v", err)
	}
	if !strings.Contains(yamlBuf.String(), "id: abc") {
		t.Errorf("unexpected yaml output: %s", yamlBuf.String())
	}

	if err := OutputTo(&strings.Builder{}, OutputFormat("toml"), data); err == nil {
		t.Error("expected error for unknown format")
	}
}

type hitLog struct {
	mu   sync.Mutex
	hits []string
}

func (l *hitLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits = append(l.hits, s)
}

func (l *hitLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.hits...)
}

type stubEndpoint struct {
	method       string
	path         string
	requiresInit bool
	log          *hitLog
}

func (e *stubEndpoint) Route() (string, string, http.HandlerFunc) {
	return e.method, e.path, func(w http.ResponseWriter, r *http.Request) {
		e.log.add("handler:" + e.path)
	}
}

func (e *stubEndpoint) RequiresInit() bool { return e.requiresInit }

func (e *stubEndpoint) Command(func() string) *cobra.Command { return &cobra.Command{} }

func TestRegistry_WrapsInitRequiredRoutes(t *testing.T) {
	log := &hitLog{}
	reg := NewRegistry()
	reg.Register(&stubEndpoint{method: "GET", path: "/open", log: log})
	reg.Register(&stubEndpoint{method: "GET", path: "/guarded", requiresInit: true, log: log})

	guard := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			log.add("guard")
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	reg.RegisterRoutes(mux, guard)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	for _, path := range []string{"/open", "/guarded"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
	}

	want := []string{"handler:/open", "guard", "handler:/guarded"}
	got := log.all()
	if len(got) != len(want) {
		t.Fatalf("expected hits %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("hit %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
