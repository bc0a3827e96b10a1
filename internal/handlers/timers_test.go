package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"smart_switch/internal/models"
	"smart_switch/internal/rules"
	"smart_switch/internal/service"
)

func TestTimerHandlers(t *testing.T) {
	tm := &mockTimers{timers: []models.Timer{{ID: "a", Name: "Morning"}}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Timers: tm})

	w := call(r, http.MethodGet, "/api/v1/timers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d", w.Code)
	}
	var list struct {
		Count  int            `json:"count"`
		Timers []models.Timer `json:"timers"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Count != 1 || list.Timers[0].Name != "Morning" {
		t.Fatalf("unexpected list: %+v", list)
	}

	body := `{"name":"Geyser","startTime":"2025-01-01T06:00:00+05:00","endTime":"2025-01-01T07:00:00+05:00","days":[1,2],"enabled":true}`
	w = call(r, http.MethodPost, "/api/v1/timers", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d, body=%s", w.Code, w.Body.String())
	}
	if tm.created.Name != "Geyser" || len(tm.created.Days) != 2 || !tm.created.Enabled {
		t.Fatalf("unexpected timer passed to service: %+v", tm.created)
	}
	if tm.created.StartTime.Hour() != 6 {
		t.Fatalf("start time not parsed: %v", tm.created.StartTime)
	}

	w = call(r, http.MethodPut, "/api/v1/timers/a/enabled", `{"enabled":false}`)
	if w.Code != http.StatusOK || tm.enabledID != "a" || tm.enabledVal {
		t.Fatalf("enable status=%d id=%q val=%v", w.Code, tm.enabledID, tm.enabledVal)
	}

	w = call(r, http.MethodDelete, "/api/v1/timers/a", "")
	if w.Code != http.StatusNoContent || tm.deletedID != "a" {
		t.Fatalf("delete status=%d id=%q", w.Code, tm.deletedID)
	}
}

func TestTimerHandlers_Errors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		method string
		path   string
		body   string
		want   int
	}{
		{"missing_name", nil, http.MethodPost, "/api/v1/timers", `{"days":[1]}`, http.StatusBadRequest},
		{"invalid_timer", fmt.Errorf("%w: %w", service.ErrInvalidTimer, rules.ErrTimerRange), http.MethodPost, "/api/v1/timers",
			`{"name":"x","startTime":"2025-01-01T06:00:00Z","endTime":"2025-01-01T05:00:00Z","days":[1]}`, http.StatusBadRequest},
		{"not_found", service.ErrTimerNotFound, http.MethodDelete, "/api/v1/timers/zz", "", http.StatusNotFound},
		{"enable_not_found", service.ErrTimerNotFound, http.MethodPut, "/api/v1/timers/zz/enabled", `{"enabled":true}`, http.StatusNotFound},
		{"enable_write_failed", service.ErrWriteFailed, http.MethodPut, "/api/v1/timers/zz/enabled", `{"enabled":true}`, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Timers: &mockTimers{err: tc.err}})
			w := call(r, tc.method, tc.path, tc.body)
			if w.Code != tc.want {
				t.Fatalf("got %d, want %d (body=%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}
