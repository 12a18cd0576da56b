package ticktick

import (
	"time"
)

// wireTimeLayout is TickTick's timestamp format, e.g.
// "2025-08-30T09:00:00.000+0000". RFC3339 is tolerated as a fallback.
const wireTimeLayout = "2006-01-02T15:04:05.000-0700"

// Project represents a TickTick project (list).
type Project struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// Task represents a TickTick task as consumed by the application.
// Tasks are read-only here; the system never mutates them.
type Task struct {
	ID          string
	Title       string
	Tags        []string
	CreatedTime time.Time
	DueDate     time.Time
	ProjectID   string
	Status      int
	Priority    int
}

// ProjectData is the payload of /project/{id}/data: the project together
// with its tasks.
type ProjectData struct {
	Project Project
	Tasks   []Task
}

// taskWire mirrors the TickTick task JSON.
type taskWire struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	CreatedTime string   `json:"createdTime"`
	DueDate     string   `json:"dueDate"`
	ProjectID   string   `json:"projectId"`
	Status      int      `json:"status"`
	Priority    int      `json:"priority"`
}

// projectDataWire mirrors /project/{id}/data. Some accounts return the task
// list under "task" instead of "tasks".
type projectDataWire struct {
	Project  Project    `json:"project"`
	Tasks    []taskWire `json:"tasks"`
	TasksAlt []taskWire `json:"task"`
}

// toTask converts a wire task to our Task type. Untitled tasks fall back to
// their content, then to a placeholder, matching how the inbox page labels
// them.
func toTask(w taskWire) Task {
	title := w.Title
	if title == "" {
		title = w.Content
	}
	if title == "" {
		title = "(untitled)"
	}

	return Task{
		ID:          w.ID,
		Title:       title,
		Tags:        w.Tags,
		CreatedTime: parseWireTime(w.CreatedTime),
		DueDate:     parseWireTime(w.DueDate),
		ProjectID:   w.ProjectID,
		Status:      w.Status,
		Priority:    w.Priority,
	}
}

func toTasks(ws []taskWire) []Task {
	if len(ws) == 0 {
		return nil
	}
	tasks := make([]Task, len(ws))
	for i, w := range ws {
		tasks[i] = toTask(w)
	}
	return tasks
}

// parseWireTime parses a TickTick timestamp. An empty or unparseable value
// yields the zero time.
func parseWireTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(wireTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// dedupeTasks removes duplicate task ids, preserving first-seen order.
// Tasks without an id are kept as-is.
func dedupeTasks(tasks []Task) []Task {
	seen := make(map[string]bool, len(tasks))
	result := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != "" {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
		}
		result = append(result, t)
	}
	return result
}
