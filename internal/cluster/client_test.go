package cluster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cluster-themes", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"job_id": "job-42"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	jobID, err := client.Submit(context.Background(), "/cluster-themes", map[string]string{"k": "v"})

	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)
	assert.Equal(t, "v", gotBody["k"])
}

func TestSubmitServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Submit(context.Background(), "/cluster-themes", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSubmitMissingJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Submit(context.Background(), "/cluster-themes", nil)
	assert.Error(t, err)
}

// eventServer accepts the job websocket and pushes the given events in order.
func eventServer(t *testing.T, events []Event) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/job-42/events", r.URL.Path)
		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		for _, event := range events {
			require.NoError(t, wsjson.Write(ctx, conn, event))
		}
		// Keep the connection open so the client reads all events.
		time.Sleep(100 * time.Millisecond)
	}))
}

func TestWaitCompletion(t *testing.T) {
	srv := eventServer(t, []Event{
		{Type: EventJobStatus, JobID: "job-42", Status: "running"},
		{Type: "heartbeat"},
		{Type: EventJobCompleted, JobID: "job-42", Result: json.RawMessage(`{"themes": []}`)},
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := NewClient(srv.URL).Wait(ctx, "job-42")

	require.NoError(t, err)
	assert.JSONEq(t, `{"themes": []}`, string(result))
}

func TestWaitJobError(t *testing.T) {
	srv := eventServer(t, []Event{
		{Type: EventJobError, JobID: "job-42", Error: "clustering blew up"},
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := NewClient(srv.URL).Wait(ctx, "job-42")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "clustering blew up")
}

func TestWaitContextDeadline(t *testing.T) {
	srv := eventServer(t, nil)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL).Wait(ctx, "job-42")
	assert.Error(t, err)
}

func TestEventsURLSchemeSwap(t *testing.T) {
	assert.Equal(t, "ws://host:1234/jobs/j/events", NewClient("http://host:1234/").eventsURL("j"))
	assert.Equal(t, "wss://host/jobs/j/events", NewClient("https://host").eventsURL("j"))
}
