// Package cluster talks to the external theme/shadow clustering job service:
// submit a job over HTTP, then consume typed status events from a
// per-job push channel until it completes or fails. No retry happens at this
// boundary; the caller bounds the wait with a context deadline.
package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/coder/websocket"
)

const (
	EventJobStatus    = "job_status"
	EventJobCompleted = "job_completed"
	EventJobError     = "job_error"
	EventError        = "error"
)

// Event is one message on a job's push channel.
type Event struct {
	Type   string          `json:"type"`
	JobID  string          `json:"job_id,omitempty"`
	Status string          `json:"status,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// Submit posts a clustering payload and returns the assigned job id.
func (c *Client) Submit(ctx context.Context, path string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode cluster payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit clustering job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("clustering service returned %d: %s", resp.StatusCode, data)
	}

	var parsed submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode job submission response: %w", err)
	}
	if parsed.JobID == "" {
		return "", fmt.Errorf("clustering service returned no job id")
	}
	return parsed.JobID, nil
}

// Wait subscribes to the job's event channel and blocks until a terminal
// event or ctx expiry. Unknown event types are ignored.
func (c *Client) Wait(ctx context.Context, jobID string) (json.RawMessage, error) {
	conn, _, err := websocket.Dial(ctx, c.eventsURL(jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to job %s: %w", jobID, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("push channel closed for job %s: %w", jobID, err)
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("malformed event for job %s: %w", jobID, err)
		}

		switch event.Type {
		case EventJobCompleted:
			return event.Result, nil
		case EventJobError, EventError:
			return nil, fmt.Errorf("clustering job %s failed: %s", jobID, event.Error)
		}
	}
}

func (c *Client) eventsURL(jobID string) string {
	ws := c.baseURL
	if strings.HasPrefix(ws, "https://") {
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	} else if strings.HasPrefix(ws, "http://") {
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return fmt.Sprintf("%s/jobs/%s/events", ws, jobID)
}
