package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestDaemon(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second})
}

func TestStartSuccess(t *testing.T) {
	c := newTestDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/start" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestErrorKindsMapToSentinels(t *testing.T) {
	cases := []struct {
		kind   string
		status int
		want   error
	}{
		{"already_running", http.StatusConflict, ErrAlreadyRunning},
		{"operation_in_progress", http.StatusConflict, ErrOperationInProgress},
		{"start_timeout", http.StatusGatewayTimeout, ErrStartTimeout},
		{"stop_timeout", http.StatusGatewayTimeout, ErrStopTimeout},
		{"early_exit", http.StatusBadGateway, ErrEarlyExit},
		{"spawn", http.StatusUnprocessableEntity, ErrSpawn},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			c := newTestDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "details", Kind: tc.kind})
			}))
			err := c.Start(context.Background())
			if !errors.Is(err, tc.want) {
				t.Fatalf("kind %q: expected %v, got %v", tc.kind, tc.want, err)
			}
		})
	}
}

func TestErrorWithoutKind(t *testing.T) {
	c := newTestDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "boom"})
	}))
	err := c.Stop(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, sentinel := range []error{ErrAlreadyRunning, ErrStartTimeout, ErrStopTimeout, ErrSpawn} {
		if errors.Is(err, sentinel) {
			t.Fatalf("kindless error should not match %v", sentinel)
		}
	}
}

func TestStatusDecode(t *testing.T) {
	started := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	c := newTestDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Status{
			Service:   "middled",
			State:     "running",
			Running:   true,
			PID:       4242,
			StartedAt: started,
			Uptime:    "1m30s",
		})
	}))
	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Service != "middled" || !st.Running || st.PID != 4242 || !st.StartedAt.Equal(started) {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestHistoryPassesLimit(t *testing.T) {
	c := newTestDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("expected limit=5, got %q", got)
		}
		_ = json.NewEncoder(w).Encode([]Event{
			{Service: "middled", PID: 1, State: "running", OccurredAt: time.Now().UTC()},
		})
	}))
	events, err := c.History(context.Background(), 5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(events) != 1 || events[0].State != "running" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestIsReachable(t *testing.T) {
	c := newTestDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Status{Service: "middled", State: "stopped"})
	}))
	if !c.IsReachable(context.Background()) {
		t.Fatalf("expected reachable")
	}

	dead := New(Config{BaseURL: "http://127.0.0.1:1/api", Timeout: 200 * time.Millisecond})
	if dead.IsReachable(context.Background()) {
		t.Fatalf("expected unreachable")
	}
}

func TestDefaultsApplied(t *testing.T) {
	c := New(Config{})
	if c.baseURL != DefaultConfig().BaseURL {
		t.Fatalf("default base URL not applied: %q", c.baseURL)
	}
	if c.client.Timeout != DefaultConfig().Timeout {
		t.Fatalf("default timeout not applied: %v", c.client.Timeout)
	}
}
