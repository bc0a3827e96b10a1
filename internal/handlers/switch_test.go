package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"smart_switch/internal/models"
	"smart_switch/internal/service"
)

func TestSwitchHandlers_GetSetToggle(t *testing.T) {
	sw := &mockSwitch{dashboard: models.Dashboard{RelayOn: true, ActiveTimerID: "t1"}}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, Switch: sw}
	r := newTestRouter(s)

	// no auth → 401
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/switch", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	w = call(r, http.MethodGet, "/api/v1/switch", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d, body=%s", w.Code, w.Body.String())
	}
	var d models.Dashboard
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("unmarshal dashboard: %v", err)
	}
	if !d.RelayOn || d.ActiveTimerID != "t1" {
		t.Fatalf("unexpected dashboard: %+v", d)
	}

	w = call(r, http.MethodPut, "/api/v1/switch", `{"on":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put status=%d, body=%s", w.Code, w.Body.String())
	}
	if sw.lastOn == nil || *sw.lastOn {
		t.Fatalf("expected SetRelay(false), got %v", sw.lastOn)
	}
	var res models.RelayResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Current || !res.Previous {
		t.Fatalf("unexpected relay result: %+v", res)
	}

	// "on" is required
	w = call(r, http.MethodPut, "/api/v1/switch", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing on, got %d", w.Code)
	}

	w = call(r, http.MethodPost, "/api/v1/switch/toggle", "")
	if w.Code != http.StatusOK || sw.toggles != 1 {
		t.Fatalf("toggle status=%d toggles=%d", w.Code, sw.toggles)
	}
}

func TestSwitchHandlers_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"emergency", service.ErrEmergencyActive, http.StatusConflict},
		{"write_failed", fmt.Errorf("%w: timeout", service.ErrWriteFailed), http.StatusBadGateway},
		{"stopped", service.ErrControllerStopped, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sw := &mockSwitch{relayErr: tc.err}
			r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Switch: sw})

			w := call(r, http.MethodPut, "/api/v1/switch", `{"on":true}`)
			if w.Code != tc.want {
				t.Fatalf("got %d, want %d (body=%s)", w.Code, tc.want, w.Body.String())
			}
			var out struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.Error == "" {
				t.Fatalf("expected error message")
			}
			if tc.want == http.StatusInternalServerError && out.Error != errSetRelay {
				t.Fatalf("internal errors must not leak, got %q", out.Error)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&service.Service{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
}
