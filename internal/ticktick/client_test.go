package ticktick

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
)

// countingTransport records how many requests pass through it.
type countingTransport struct {
	calls atomic.Int64
}

func (t *countingTransport) RoundTrip(_ *http.Request) (*http.Response, error) {
	t.calls.Add(1)
	return nil, errors.New("transport should not be reached")
}

func TestCallSetsBearerHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer t" {
			t.Errorf("Expected header 'Bearer t', got %q", got)
		}
		if r.URL.Path != "/project" {
			t.Errorf("Expected path /project, got %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient("t", WithBaseURL(srv.URL))

	data, err := client.Call(context.Background(), http.MethodGet, "/project", nil, nil)
	if err != nil {
		t.Fatalf("Call returned error: %v", err)
	}
	if string(data) != `[]` {
		t.Errorf("Expected response body passed through, got %q", data)
	}
}

func TestCallEncodesParamsExactlyOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.RawQuery; got != "projectId=p1" {
			t.Errorf("Expected query 'projectId=p1', got %q", got)
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient("t", WithBaseURL(srv.URL))

	params := url.Values{}
	params.Set("projectId", "p1")
	if _, err := client.Call(context.Background(), http.MethodGet, "/task", params, nil); err != nil {
		t.Fatalf("Call returned error: %v", err)
	}
}

func TestCallAddsLeadingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/project" {
			t.Errorf("Expected path /project, got %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient("t", WithBaseURL(srv.URL))
	if _, err := client.Call(context.Background(), http.MethodGet, "project", nil, nil); err != nil {
		t.Fatalf("Call returned error: %v", err)
	}
}

func TestCallAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := NewClient("t", WithBaseURL(srv.URL))

	_, err := client.Call(context.Background(), http.MethodGet, "/task", nil, nil)
	if err == nil {
		t.Fatal("Expected error for non-2xx response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", apiErr.StatusCode)
	}
	if apiErr.Body != "upstream exploded" {
		t.Errorf("Expected body surfaced verbatim, got %q", apiErr.Body)
	}
}

func TestCallMissingTokenSkipsNetwork(t *testing.T) {
	transport := &countingTransport{}
	client := NewClient("", WithHTTPClient(&http.Client{Transport: transport}))

	_, err := client.Call(context.Background(), http.MethodGet, "/project", nil, nil)
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("Expected ErrMissingToken, got %v", err)
	}
	if n := transport.calls.Load(); n != 0 {
		t.Errorf("Expected zero network calls, transport saw %d", n)
	}
}

func TestProjectsAcceptsBothPayloadShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bare array", body: `[{"id": "p1", "name": "Work"}]`},
		{name: "wrapped object", body: `{"projects": [{"id": "p1", "name": "Work"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("t", WithBaseURL(srv.URL))
			projects, err := client.Projects(context.Background())
			if err != nil {
				t.Fatalf("Projects returned error: %v", err)
			}
			if len(projects) != 1 || projects[0].ID != "p1" || projects[0].Name != "Work" {
				t.Errorf("Unexpected projects: %+v", projects)
			}
		})
	}
}

func TestProjectsRejectsUnexpectedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message": "nope"}`))
	}))
	defer srv.Close()

	client := NewClient("t", WithBaseURL(srv.URL))
	if _, err := client.Projects(context.Background()); err == nil {
		t.Error("Expected error for unexpected payload")
	}
}

func TestProjectDataAcceptsAlternateTaskKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/project/p1/data" {
			t.Errorf("Expected path /project/p1/data, got %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"project": {"id": "p1", "name": "Work"}, "task": [{"id": "t1", "title": "Ship it"}]}`))
	}))
	defer srv.Close()

	client := NewClient("t", WithBaseURL(srv.URL))
	pd, err := client.ProjectData(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ProjectData returned error: %v", err)
	}
	if pd.Project.ID != "p1" {
		t.Errorf("Expected project p1, got %+v", pd.Project)
	}
	if len(pd.Tasks) != 1 || pd.Tasks[0].Title != "Ship it" {
		t.Errorf("Unexpected tasks: %+v", pd.Tasks)
	}
}

func TestFindInboxID(t *testing.T) {
	tests := []struct {
		name     string
		projects []Project
		want     string
		wantErr  bool
	}{
		{
			name:     "id prefix",
			projects: []Project{{ID: "p1", Name: "Work"}, {ID: "inbox12345", Name: ""}},
			want:     "inbox12345",
		},
		{
			name:     "name match",
			projects: []Project{{ID: "abc", Name: " Inbox "}},
			want:     "abc",
		},
		{
			name:     "no inbox",
			projects: []Project{{ID: "p1", Name: "Work"}},
			wantErr:  true,
		},
		{
			name:    "empty listing",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindInboxID(tt.projects)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestInboxTasksFallsBackWhenBulkEndpointFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/project", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "inbox99", "name": "Inbox"}]`))
	})
	mux.HandleFunc("/task", func(w http.ResponseWriter, _ *http.Request) {
		// The documented failure mode of the bulk endpoint.
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "internal"}`))
	})
	mux.HandleFunc("/project/inbox99/data", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"project": {"id": "inbox99"}, "tasks": [{"id": "t1", "title": "Buy milk"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient("t", WithBaseURL(srv.URL))
	inboxID, tasks, err := client.InboxTasks(context.Background())
	if err != nil {
		t.Fatalf("InboxTasks returned error: %v", err)
	}
	if inboxID != "inbox99" {
		t.Errorf("Expected inbox id 'inbox99', got %q", inboxID)
	}
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" {
		t.Errorf("Unexpected tasks: %+v", tasks)
	}
}

func TestInboxTasksMergesAndDedupes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/project", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "inbox99", "name": "Inbox"}]`))
	})
	mux.HandleFunc("/task", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "t1", "title": "One"}, {"id": "t2", "title": "Two"}]`))
	})
	mux.HandleFunc("/project/inbox99/data", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"project": {"id": "inbox99"}, "tasks": [{"id": "t2", "title": "Two"}, {"id": "t3", "title": "Three"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient("t", WithBaseURL(srv.URL))
	_, tasks, err := client.InboxTasks(context.Background())
	if err != nil {
		t.Fatalf("InboxTasks returned error: %v", err)
	}

	if len(tasks) != 3 {
		t.Fatalf("Expected 3 merged tasks, got %d: %+v", len(tasks), tasks)
	}
	wantOrder := []string{"t1", "t2", "t3"}
	for i, id := range wantOrder {
		if tasks[i].ID != id {
			t.Errorf("Expected task %d to be %s, got %s", i, id, tasks[i].ID)
		}
	}
}

func TestInboxTasksLogsMergeOutcome(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/project", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "inbox99", "name": "Inbox"}]`))
	})
	mux.HandleFunc("/task", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "t1", "title": "One"}]`))
	})
	mux.HandleFunc("/project/inbox99/data", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"project": {"id": "inbox99"}, "tasks": []}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client := NewClient("t", WithBaseURL(srv.URL), WithLogger(logger))
	if _, _, err := client.InboxTasks(context.Background()); err != nil {
		t.Fatalf("InboxTasks returned error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"operation=inbox_tasks", "status=success", "project=inbox99"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log output to contain %q, got %q", want, out)
		}
	}
}

func TestInboxTasksFailsWhenBothSourcesFail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/project", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "inbox99", "name": "Inbox"}]`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient("t", WithBaseURL(srv.URL))
	if _, _, err := client.InboxTasks(context.Background()); err == nil {
		t.Error("Expected error when both task sources fail")
	}
}
