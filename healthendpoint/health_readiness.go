package healthendpoint

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// readinessCacheDuration bounds how often the checkers hit their
// backends, so a scraper polling readiness cannot hammer the stores.
const readinessCacheDuration = 30 * time.Second

type (
	Pinger interface {
		Ping() error
	}

	ReadinessCheck struct {
		Name   string `json:"name"`
		Type   string `json:"type"`
		Status string `json:"status"`
	}
	readinessResponse struct {
		OverallStatus string           `json:"overall_status"`
		Checks        []ReadinessCheck `json:"checks"`
	}
	Checker func() ReadinessCheck
)

const (
	statusUp   = "UP"
	statusDown = "DOWN"
)

type readinessHandler struct {
	checkers []Checker
	timeFunc func() time.Time

	mu       sync.Mutex
	cached   []byte
	cachedAt time.Time
}

func readiness(checkers []Checker, timeFunc func() time.Time) func(w http.ResponseWriter, r *http.Request, vars map[string]string) {
	handler := &readinessHandler{checkers: checkers, timeFunc: timeFunc}
	return handler.handle
}

func (h *readinessHandler) handle(w http.ResponseWriter, r *http.Request, vars map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	response, err := h.response()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal error"}`))
		return
	}
	_, _ = w.Write(response)
}

// response serves the cached result while it is fresh. The lock is held
// across the checks so concurrent requests share a single round of
// checker calls.
func (h *readinessHandler) response() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.timeFunc()
	if h.cached != nil && now.Sub(h.cachedAt) < readinessCacheDuration {
		return h.cached, nil
	}

	checks := make([]ReadinessCheck, 0, len(h.checkers))
	overallStatus := statusUp
	for _, checker := range h.checkers {
		check := checker()
		checks = append(checks, check)
		if check.Status == statusDown {
			overallStatus = statusDown
		}
	}
	response, err := json.Marshal(readinessResponse{OverallStatus: overallStatus, Checks: checks})
	if err != nil {
		return nil, err
	}
	h.cached = response
	h.cachedAt = now
	return response, nil
}

func DbChecker(dbName string, pinger Pinger) Checker {
	if pinger != nil {
		return func() ReadinessCheck {
			status := statusUp
			err := pinger.Ping()
			if err != nil {
				status = statusDown
			}
			return ReadinessCheck{Name: dbName, Type: "database", Status: status}
		}
	} else {
		return func() ReadinessCheck {
			return ReadinessCheck{Name: dbName, Type: "database", Status: statusUp}
		}
	}
}
