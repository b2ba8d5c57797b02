// Package health exposes the session's status for local monitoring.
//
// This package implements:
//   - Session status tracking (phase, bound lead, automation state)
//   - Uptime and last re-sync reporting
//   - An optional HTTP endpoint serving the status as JSON
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"domsync/internal/logging"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Status is returned by the /health endpoint.
//
// Fields:
//   - Status: "healthy" while the session is running
//   - Uptime: how long the companion has been running
//   - Phase: detection phase of the session
//   - Lead: bound lead number, empty when none
//   - Automation: state of the close-out automation
//   - LastResync: when the overlay last re-extracted the page
//   - LastNotice: the last timeout or failure shown to the operator
type Status struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Phase      string `json:"phase"`
	Lead       string `json:"lead"`
	Automation string `json:"automation"`
	LastResync string `json:"last_resync"`
	LastNotice string `json:"last_notice"`
}

// Monitor tracks session status.
//
// Thread-safety:
//   - All fields are protected by RWMutex
//   - Safe for concurrent updates from the controller's tasks
//
// All methods are safe on a nil *Monitor.
type Monitor struct {
	clock      clockwork.Clock
	startTime  time.Time
	phase      string
	lead       string
	automation string
	lastResync time.Time
	lastNotice string
	mu         sync.RWMutex
}

// NewMonitor creates a monitor. A nil clock uses the real clock.
func NewMonitor(clock clockwork.Clock) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Monitor{
		clock:      clock,
		startTime:  clock.Now(),
		phase:      "empty",
		automation: "idle",
	}
}

// RecordResync records a completed re-sync and the lead it bound.
func (m *Monitor) RecordResync(phase, lead string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastResync = m.clock.Now()
	m.phase = phase
	m.lead = lead
}

// SetPhase updates the detection phase.
func (m *Monitor) SetPhase(phase string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = phase
}

// SetAutomation updates the automation state.
func (m *Monitor) SetAutomation(state string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.automation = state
}

// RecordNotice records the last notice shown to the operator.
func (m *Monitor) RecordNotice(notice string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastNotice = notice
}

// GetStatus returns the current status.
func (m *Monitor) GetStatus() Status {
	if m == nil {
		return Status{Status: "unknown"}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	lastResync := ""
	if !m.lastResync.IsZero() {
		lastResync = m.lastResync.Format("2006-01-02 15:04:05")
	}

	return Status{
		Status:     "healthy",
		Uptime:     m.clock.Since(m.startTime).String(),
		Phase:      m.phase,
		Lead:       m.lead,
		Automation: m.automation,
		LastResync: lastResync,
		LastNotice: m.lastNotice,
	}
}

// Handler serves the monitor's status as JSON.
func Handler(monitor *Monitor) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(monitor.GetStatus())
	})
	return mux
}

// StartServer serves /health on port until ctx is done. It returns once
// the listener is bound; the server runs in the background.
//
// Example response:
//
//	{
//	  "status": "healthy",
//	  "uptime": "12m3s",
//	  "phase": "bound",
//	  "lead": "AB12CD34",
//	  "automation": "idle",
//	  "last_resync": "2026-02-05 13:02:00",
//	  "last_notice": ""
//	}
func StartServer(ctx context.Context, monitor *Monitor, port string, logger *zap.SugaredLogger) (net.Addr, error) {
	logger = logging.OrNop(logger)

	ln, err := net.Listen("tcp", "127.0.0.1:"+port)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{Handler: Handler(monitor), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infow("✓ Status server started", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warnw("⚠️  Status server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return ln.Addr(), nil
}
