package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Checker probes one dependency.
type Checker func(ctx context.Context) error

const (
	statusUp   = "up"
	statusDown = "down"

	readinessTimeout = 3 * time.Second
)

type healthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]checkResult `json:"checks,omitempty"`
}

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Health struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

func NewHealth() *Health {
	return &Health{checkers: make(map[string]Checker)}
}

func (h *Health) Register(name string, c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = c
}

// Live answers 200 while the process is serving.
func (h *Health) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: statusUp, Timestamp: time.Now().UTC()})
}

// Ready runs every checker in parallel and answers 503 if any fails.
func (h *Health) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]checkResult, len(checkers))
		g       errgroup.Group
	)
	for name, check := range checkers {
		g.Go(func() error {
			res := checkResult{Status: statusUp}
			if err := check(ctx); err != nil {
				res = checkResult{Status: statusDown, Error: err.Error()}
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status, code := statusUp, http.StatusOK
	for _, res := range results {
		if res.Status == statusDown {
			status, code = statusDown, http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, code, healthResponse{Status: status, Timestamp: time.Now().UTC(), Checks: results})
}
