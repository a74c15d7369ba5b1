package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/elys-network/yieldvault/internal/avm"
	"github.com/elys-network/yieldvault/internal/logger"
	"github.com/elys-network/yieldvault/internal/metrics"
	"github.com/elys-network/yieldvault/internal/state"
	"github.com/elys-network/yieldvault/internal/types"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var webLogger = logger.GetForComponent("web_server")

// Keeper is the read side of the keeper the server reports on.
type Keeper interface {
	Status() avm.Status
	RecentSnapshots(limit int) []types.CycleSnapshot
}

// WebServer serves the read-only vault status API and prometheus metrics.
type WebServer struct {
	router     *mux.Router
	addr       string
	keeper     Keeper
	persistent bool
	started    time.Time
}

// NewWebServer creates a new web server instance. When persistent is set, cycle history and
// analytics are read from the database; otherwise from the keeper's in-memory history.
func NewWebServer(addr string, keeper Keeper, persistent bool) *WebServer {
	if addr == "" {
		addr = ":8080"
	}

	server := &WebServer{
		router:     mux.NewRouter(),
		addr:       addr,
		keeper:     keeper,
		persistent: persistent,
		started:    time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/vault", ws.handleGetVault).Methods("GET")
	api.HandleFunc("/vault/allocations", ws.handleGetAllocations).Methods("GET")
	api.HandleFunc("/vault/summary", ws.handleGetVaultSummary).Methods("GET")
	api.HandleFunc("/vault/history", ws.handleGetValueHistory).Methods("GET")
	api.HandleFunc("/cycles", ws.handleGetCycles).Methods("GET")
	api.HandleFunc("/cycles/latest", ws.handleGetLatestCycle).Methods("GET")
	api.HandleFunc("/cycles/{id}", ws.handleGetCycle).Methods("GET")
	api.HandleFunc("/performance", ws.handleGetPerformanceMetrics).Methods("GET")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Handler exposes the router, mainly for tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("addr", ws.addr).Msg("Starting web server")

	server := &http.Server{
		Addr:         ws.addr,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth reports DEGRADED when the last cycle failed or the database is unreachable.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hasErrors := false
	cycleInfo := map[string]interface{}{
		"current_cycle":     0,
		"last_cycle_time":   nil,
		"last_cycle_status": "none",
		"actions_executed":  0,
	}
	if latest := ws.keeper.RecentSnapshots(1); len(latest) > 0 {
		cycle := latest[0]
		status := "completed"
		if !cycle.Success {
			status = "failed"
			hasErrors = true
		}
		cycleInfo = map[string]interface{}{
			"current_cycle":     cycle.CycleNumber,
			"last_cycle_time":   cycle.Timestamp,
			"last_cycle_status": status,
			"last_cycle_slot":   cycle.Slot,
			"actions_executed":  len(cycle.ActionReceipts),
		}
	}

	dbHealthy := true
	if ws.persistent {
		if err := state.TestDBConnection(); err != nil {
			dbHealthy = false
			hasErrors = true
		}
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if hasErrors {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"keeper_status": map[string]interface{}{
			"database_enabled": ws.persistent,
			"database_healthy": dbHealthy,
			"cycle_info":       cycleInfo,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

func (ws *WebServer) handleGetVault(w http.ResponseWriter, r *http.Request) {
	ws.writeJSONResponse(w, http.StatusOK, ws.keeper.Status())
}

func (ws *WebServer) handleGetAllocations(w http.ResponseWriter, r *http.Request) {
	status := ws.keeper.Status()
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"slot":         status.Slot,
		"idle_reserve": status.IdleReserve,
		"target":       status.TargetAllocation,
		"actual":       status.ActualAllocation,
		"positions":    status.Positions,
	})
}

// handleGetCycles returns recent cycles, newest first
func (ws *WebServer) handleGetCycles(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, 100)

	var cycles []types.CycleSnapshot
	if ws.persistent {
		var err error
		cycles, err = state.GetRecentCycles(limit)
		if err != nil {
			webLogger.Error().Err(err).Msg("Failed to get recent cycles")
			ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve cycles")
			return
		}
	} else {
		cycles = ws.keeper.RecentSnapshots(limit)
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"cycles": cycles,
		"count":  len(cycles),
		"limit":  limit,
	})
}

// handleGetCycle returns a specific cycle by its cycle id
func (ws *WebServer) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if ws.persistent {
		cycle, err := state.GetCycleByID(id)
		if err != nil {
			if !errors.Is(err, state.ErrSnapshotNotFound) {
				webLogger.Error().Err(err).Str("cycleId", id).Msg("Failed to get cycle")
			}
			ws.writeErrorResponse(w, http.StatusNotFound, "Cycle not found")
			return
		}
		ws.writeJSONResponse(w, http.StatusOK, cycle)
		return
	}

	for _, cycle := range ws.keeper.RecentSnapshots(0) {
		if cycle.CycleID == id {
			ws.writeJSONResponse(w, http.StatusOK, cycle)
			return
		}
	}
	ws.writeErrorResponse(w, http.StatusNotFound, "Cycle not found")
}

// handleGetLatestCycle returns the most recent cycle
func (ws *WebServer) handleGetLatestCycle(w http.ResponseWriter, r *http.Request) {
	cycles := ws.keeper.RecentSnapshots(1)
	if len(cycles) == 0 {
		ws.writeErrorResponse(w, http.StatusNotFound, "No cycles found")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, cycles[0])
}

// handleGetVaultSummary returns vault summary statistics
func (ws *WebServer) handleGetVaultSummary(w http.ResponseWriter, r *http.Request) {
	if !ws.requirePersistence(w) {
		return
	}
	summary, err := state.GetVaultSummary()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get vault summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve vault summary")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, summary)
}

func (ws *WebServer) handleGetValueHistory(w http.ResponseWriter, r *http.Request) {
	if !ws.requirePersistence(w) {
		return
	}
	points, err := state.GetValueHistory(parseLimit(r, 100, 1000))
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get value history")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve value history")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"points": points})
}

// handleGetPerformanceMetrics returns performance metrics
func (ws *WebServer) handleGetPerformanceMetrics(w http.ResponseWriter, r *http.Request) {
	if !ws.requirePersistence(w) {
		return
	}
	perf, err := state.GetPerformanceMetrics()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get performance metrics")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve performance metrics")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, perf)
}

func (ws *WebServer) requirePersistence(w http.ResponseWriter) bool {
	if ws.persistent {
		return true
	}
	ws.writeErrorResponse(w, http.StatusNotImplemented, "Database persistence is disabled")
	return false
}

func parseLimit(r *http.Request, fallback, max int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= max {
			return parsed
		}
	}
	return fallback
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests and counts them
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapper.statusCode)).Inc()

		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
