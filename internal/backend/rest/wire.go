package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"tasksync/internal/service"
)

// localLayout is a zone-less timestamp as emitted by servers that store
// local date-times. Such values are read as UTC.
const localLayout = "2006-01-02T15:04:05.999999999"

// todoJSON is the wire form of a task.
type todoJSON struct {
	ID          wireID   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	CreatedAt   wireTime `json:"createdAt,omitzero"`
}

func (t todoJSON) task() (service.Task, error) {
	status, err := service.ParseStatus(t.Status)
	if err != nil {
		// Servers default a missing status to pending.
		if t.Status != "" {
			return service.Task{}, err
		}
		status = service.StatusPending
	}
	if t.ID == "" {
		return service.Task{}, fmt.Errorf("task without id")
	}
	return service.Task{
		ID:          string(t.ID),
		Title:       t.Title,
		Description: t.Description,
		Status:      status,
		CreatedAt:   time.Time(t.CreatedAt),
	}, nil
}

func fromTask(t service.Task) todoJSON {
	return todoJSON{
		ID:          wireID(t.ID),
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   wireTime(t.CreatedAt),
	}
}

// wireID accepts numeric or string identifiers and writes numeric ones back
// as numbers.
type wireID string

func (id *wireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id: %s", data)
	}
	*id = wireID(n.String())
	return nil
}

func (id wireID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// wireTime reads RFC 3339 or zone-less timestamps.
type wireTime time.Time

func (t *wireTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = wireTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid timestamp: %s", data)
	}
	if s == "" {
		*t = wireTime{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		*t = wireTime(parsed)
		return nil
	}
	parsed, err := time.ParseInLocation(localLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %s", s)
	}
	*t = wireTime(parsed)
	return nil
}

func (t wireTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(localLayout))
}

func (t wireTime) IsZero() bool {
	return time.Time(t).IsZero()
}
