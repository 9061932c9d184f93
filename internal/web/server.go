package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/impactvault/ivm/internal/config"
	"github.com/impactvault/ivm/internal/donation"
	"github.com/impactvault/ivm/internal/logger"
	"github.com/impactvault/ivm/internal/metrics"
	"github.com/impactvault/ivm/internal/router"
	"github.com/impactvault/ivm/internal/state"
	"github.com/impactvault/ivm/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer handles HTTP requests for portfolio and donation visibility.
type WebServer struct {
	router    *mux.Router
	port      string
	portfolio *router.PortfolioRouter
	ledger    *donation.Ledger
	events    *types.Recorder
	persisted bool
}

// NewWebServer creates a new web server instance. persisted controls whether
// the database-backed endpoints are served.
func NewWebServer(port string, portfolio *router.PortfolioRouter, ledger *donation.Ledger, events *types.Recorder, persisted bool) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:    mux.NewRouter(),
		port:      port,
		portfolio: portfolio,
		ledger:    ledger,
		events:    events,
		persisted: persisted,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/portfolio/summary", ws.handlePortfolioSummary).Methods("GET")
	api.HandleFunc("/donations", ws.handleDonations).Methods("GET")
	api.HandleFunc("/events", ws.handleEvents).Methods("GET")
	if ws.persisted {
		api.HandleFunc("/harvests", ws.handleHarvests).Methods("GET")
	}

	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (ws *WebServer) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	adapters := ws.portfolio.Adapters()
	statuses := make([]any, 0, len(adapters))
	for _, a := range adapters {
		statuses = append(statuses, a.Status())
	}

	ws.writeJSON(w, map[string]any{
		"total_assets":   ws.portfolio.TotalAssets().String(),
		"weights":        ws.portfolio.Weights(),
		"adapters":       statuses,
		"donated_global": ws.ledger.GlobalTotal().String(),
	})
}

func (ws *WebServer) handleDonations(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, map[string]any{
		"recipient":    config.DonationRecipient,
		"global_total": ws.ledger.GlobalTotal().String(),
		"entries":      ws.ledger.Entries(),
	})
}

func (ws *WebServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, ws.events.Events())
}

func (ws *WebServer) handleHarvests(w http.ResponseWriter, r *http.Request) {
	snapshots, err := state.RecentHarvestSnapshots(20)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to load harvest snapshots")
		http.Error(w, "failed to load harvest snapshots", http.StatusInternalServerError)
		return
	}
	ws.writeJSON(w, snapshots)
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
