package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

type stubModel struct{ loaded bool }

func (s stubModel) ModelLoaded() bool { return s.loaded }

func TestHandleHealth(t *testing.T) {
	server := NewServer(Config{ServiceName: "race-forecast", Version: "1.2.3"})

	rec := httptest.NewRecorder()
	server.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "ok" || resp.Service != "race-forecast" || resp.Version != "1.2.3" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleReady(t *testing.T) {
	tests := []struct {
		name     string
		ready    bool
		pingErr  error
		loaded   bool
		wantCode int
	}{
		{"everything up", true, nil, true, http.StatusOK},
		{"not marked ready", false, nil, true, http.StatusServiceUnavailable},
		{"database down", true, errors.New("refused"), true, http.StatusServiceUnavailable},
		{"no model loaded", true, nil, false, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer(Config{
				ServiceName: "race-forecast",
				DB:          stubPinger{err: tt.pingErr},
				Model:       stubModel{loaded: tt.loaded},
			})
			server.SetReady(tt.ready)

			rec := httptest.NewRecorder()
			server.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
		})
	}
}
