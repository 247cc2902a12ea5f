package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"poker-canvas/internal/config"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(nil, config.Default())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func createRoom(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms", map[string]any{
		"name": "Sprint 12",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["room_id"].(string)
}

func joinUser(t *testing.T, ts *httptest.Server, roomID, name string, spectator bool) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/join", map[string]any{
		"name":         name,
		"is_spectator": spectator,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["user_id"].(string)
}

func pickCard(t *testing.T, ts *httptest.Server, roomID, userID, label string, value float64) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/votes", map[string]any{
		"user_id":    userID,
		"card_label": label,
		"card_value": value,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func fetchRoom(t *testing.T, ts *httptest.Server, roomID string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

func fetchNodes(t *testing.T, ts *httptest.Server, roomID string) []any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID+"/nodes", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["nodes"].([]any)
}

func roomVotes(t *testing.T, body map[string]any) []map[string]any {
	t.Helper()
	raw, ok := body["votes"].([]any)
	if !ok {
		t.Fatalf("expected votes list, got %#v", body["votes"])
	}
	votes := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		votes = append(votes, entry.(map[string]any))
	}
	return votes
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

// fakeClock advances only when told to, pinning server timestamps in tests.
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}
