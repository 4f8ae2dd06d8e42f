// Package controlapi exposes the Engine and node/discovery control
// plane over HTTP and WebSocket: layer stack mutation, beat clock
// control, discovered-node observation, and transport mode switching.
package controlapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/chromadmx/chromadmx/internal/beatclock"
	"github.com/chromadmx/chromadmx/internal/discovery"
	"github.com/chromadmx/chromadmx/internal/effects"
	"github.com/chromadmx/chromadmx/internal/router"
)

var routerModeByName = map[string]router.Mode{
	"real":      router.ModeReal,
	"simulated": router.ModeSimulated,
	"mixed":     router.ModeMixed,
}

var routerModeNames = map[router.Mode]string{
	router.ModeReal:      "real",
	router.ModeSimulated: "simulated",
	router.ModeMixed:     "mixed",
}

var connStateNames = map[router.ConnState]string{
	router.StateDisconnected: "disconnected",
	router.StateConnecting:   "connecting",
	router.StateConnected:    "connected",
	router.StateError:        "error",
}

// Server wires the effect engine's LayerController, the beat clock,
// the node discovery registry and the transport router into an HTTP
// API, with a WebSocket stream for beat-state and node-list push
// updates.
type Server struct {
	layers    effects.LayerController
	beat      *beatclock.Composite
	discovery *discovery.Registry
	transport *router.Router

	corsOrigin string

	ps *pubsub

	stopChan chan struct{}
}

// New creates a Server. corsOrigin configures the allowed browser
// origin for the control UI, matching the daemon's own config.
func New(layers effects.LayerController, beat *beatclock.Composite, disc *discovery.Registry, transport *router.Router, corsOrigin string) *Server {
	return &Server{
		layers:     layers,
		beat:       beat,
		discovery:  disc,
		transport:  transport,
		corsOrigin: corsOrigin,
		ps:         newPubSub(),
		stopChan:   make(chan struct{}),
	}
}

// Handler builds the chi router exposing the control API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{s.corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	})
	r.Use(corsMiddleware.Handler)

	r.Get("/health", s.handleHealth)

	r.Route("/api/layers", func(r chi.Router) {
		r.Get("/", s.handleListLayers)
		r.Post("/", s.handleAppendLayer)
		r.Put("/{index}", s.handleSetLayer)
		r.Delete("/{index}", s.handleRemoveLayer)
	})
	r.Put("/api/master-dimmer", s.handleSetMasterDimmer)

	r.Route("/api/scenes", func(r chi.Router) {
		r.Get("/capture", s.handleCaptureScene)
		r.Post("/apply", s.handleApplyScene)
	})

	r.Route("/api/beat", func(r chi.Router) {
		r.Get("/", s.handleGetBeat)
		r.Post("/tap", s.handleTap)
		r.Post("/reset", s.handleBeatReset)
		r.Put("/tempo", s.handleSetTempoMultiplier)
	})

	r.Route("/api/nodes", func(r chi.Router) {
		r.Get("/", s.handleListNodes)
		r.Post("/poll", s.handleForcePoll)
		r.Post("/start", s.handleStartDiscovery)
		r.Post("/stop", s.handleStopDiscovery)
	})

	r.Route("/api/transport", func(r chi.Router) {
		r.Get("/", s.handleTransportState)
		r.Put("/mode", s.handleSwitchMode)
	})

	r.Get("/ws", s.handleWebSocket)

	return r
}

// Start launches the background broadcaster that pushes beat-state
// and node-list updates to WebSocket subscribers.
func (s *Server) Start() {
	go s.broadcastLoop()
}

// Stop signals the broadcaster to exit.
func (s *Server) Stop() {
	close(s.stopChan)
}

func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.ps.publish(TopicBeatState, s.beat.State())
			s.ps.publish(TopicNodeList, s.discovery.Snapshot())
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
