package ticktick

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/tickview/internal/logging"
)

// DefaultBaseURL is the TickTick Open API base.
const DefaultBaseURL = "https://api.ticktick.com/open/v1"

const defaultTimeout = 20 * time.Second

// Client issues authenticated requests against the TickTick Open API.
// One request at a time, no retries, no caching; a non-2xx response is
// surfaced as *APIError.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		c.httpc = httpc
	}
}

// WithLogger overrides the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the given bearer token. The token may be
// empty; every call checks it and fails with ErrMissingToken before any
// network I/O.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpc:   &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call issues one authenticated request and returns the raw response body.
// Query parameters are passed through verbatim. A non-nil body is encoded
// as JSON.
func (c *Client) Call(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ticktick request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	return data, nil
}

// Projects lists all projects for the authenticated user. TickTick returns
// either a bare array or an object wrapping a "projects" array; both shapes
// are accepted.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	data, err := c.Call(ctx, http.MethodGet, "/project", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	var list []Project
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Projects []Project `json:"projects"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Projects != nil {
		return wrapped.Projects, nil
	}

	return nil, fmt.Errorf("unexpected projects response")
}

// Tasks lists tasks via the bulk /task endpoint filtered by project id.
// This endpoint returns a server error on some accounts; callers are
// expected to fall back to ProjectData.
func (c *Client) Tasks(ctx context.Context, projectID string) ([]Task, error) {
	params := url.Values{}
	params.Set("projectId", projectID)

	c.logger.Debug("listing tasks", logging.ProjectID(projectID))
	data, err := c.Call(ctx, http.MethodGet, "/task", params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	var wires []taskWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("unexpected tasks response: %w", err)
	}
	return toTasks(wires), nil
}

// ProjectData fetches a project together with its tasks.
func (c *Client) ProjectData(ctx context.Context, projectID string) (*ProjectData, error) {
	c.logger.Debug("fetching project data", logging.ProjectID(projectID))
	data, err := c.Call(ctx, http.MethodGet, "/project/"+url.PathEscape(projectID)+"/data", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get project data: %w", err)
	}

	var wire projectDataWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("unexpected project data response: %w", err)
	}

	tasks := wire.Tasks
	if tasks == nil {
		tasks = wire.TasksAlt
	}

	return &ProjectData{
		Project: wire.Project,
		Tasks:   toTasks(tasks),
	}, nil
}

// FindInboxID locates the inbox in a project listing. TickTick marks the
// inbox either by an id starting with "inbox" or by the literal name.
func FindInboxID(projects []Project) (string, error) {
	for _, p := range projects {
		if strings.HasPrefix(p.ID, "inbox") {
			return p.ID, nil
		}
		if strings.EqualFold(strings.TrimSpace(p.Name), "inbox") {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("inbox project not found")
}

// InboxTasks resolves the inbox project and returns its tasks. Tasks are
// gathered from both the bulk /task endpoint and /project/{id}/data and
// deduplicated by id, because either source alone can be incomplete or
// failing depending on the account. Only when both sources fail is an
// error returned.
func (c *Client) InboxTasks(ctx context.Context) (string, []Task, error) {
	projects, err := c.Projects(ctx)
	if err != nil {
		return "", nil, err
	}

	inboxID, err := FindInboxID(projects)
	if err != nil {
		return "", nil, err
	}

	logger := logging.WithOperation(c.logger, "inbox_tasks")

	bulk, bulkErr := c.Tasks(ctx, inboxID)
	if bulkErr != nil {
		logger.Debug("bulk task endpoint failed, falling back to project data",
			logging.Err(bulkErr))
	}

	var fromData []Task
	pd, dataErr := c.ProjectData(ctx, inboxID)
	if dataErr != nil {
		logger.Debug("project data endpoint failed",
			logging.Err(dataErr))
	} else {
		fromData = pd.Tasks
	}

	if bulkErr != nil && dataErr != nil {
		logger.Debug("inbox listing failed",
			logging.Status(logging.StatusError),
			logging.ProjectID(inboxID))
		return "", nil, errors.Join(bulkErr, dataErr)
	}

	merged := dedupeTasks(append(bulk, fromData...))
	logger.Debug("inbox listing assembled",
		logging.Status(logging.StatusSuccess),
		logging.ProjectID(inboxID),
		slog.Int("bulk_count", len(bulk)),
		slog.Int("project_data_count", len(fromData)),
		slog.Int("merged_count", len(merged)))

	return inboxID, merged, nil
}
