// Package server exposes strategy evaluation over HTTP. Callers post a price
// window and receive the resulting signal plus the guard verdict; the server
// holds no position state, so every request must carry its own snapshot.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/quantive-lab/pulse-trading/internal/guard"
	"github.com/quantive-lab/pulse-trading/internal/logger"
	"github.com/quantive-lab/pulse-trading/internal/strategy"
	"github.com/quantive-lab/pulse-trading/internal/types"
	"github.com/quantive-lab/pulse-trading/internal/version"
)

// Server serves the evaluation API for the strategies held in a registry.
type Server struct {
	registry   *strategy.Registry
	logger     *logger.Logger
	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates an evaluation server backed by the given registry.
func NewServer(registry *strategy.Registry, log *logger.Logger) *Server {
	return &Server{
		registry:   registry,
		logger:     log,
		httpServer: nil,
		listener:   nil,
	}
}

// EvaluateRequest is the body of POST /api/v1/evaluate.
type EvaluateRequest struct {
	Strategy  string                `json:"strategy"`
	Window    []types.Bar           `json:"window"`
	Positions []types.Position      `json:"positions"`
	Context   *types.TradingContext `json:"context,omitempty"`
}

// EvaluateResponse carries the signal and the guard verdict for it.
type EvaluateResponse struct {
	Signal      types.Signal `json:"signal"`
	Executable  bool         `json:"executable"`
	GuardReason string       `json:"guard_reason"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Router builds the HTTP routing table. Exposed so tests can drive the
// handlers through httptest without opening a socket.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/api/v1/strategies", s.handleStrategies).Methods("GET")
	router.HandleFunc("/api/v1/evaluate", s.handleEvaluate).Methods("POST")

	return router
}

// Start begins serving on the given address. Pass ":0" for an ephemeral port.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	s.logger.Info("evaluation server started", zap.String("address", s.Address()))

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// Address returns the listen address, empty before Start.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.GetVersion(),
	})
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{
		"strategies": s.registry.List(),
	})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})

		return
	}

	if req.Strategy == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "strategy is required"})

		return
	}

	strat, err := s.registry.Create(req.Strategy)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})

		return
	}

	window := types.PriceWindow(req.Window)
	if err := window.Validate(); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	tradingCtx := optional.None[types.TradingContext]()
	if req.Context != nil {
		tradingCtx = optional.Some(*req.Context)
	}

	signal := strat.Evaluate(window, req.Positions, tradingCtx)
	executable, reason := guard.CanExecute(strat.Live(), signal, req.Positions, tradingCtx)

	s.writeJSON(w, http.StatusOK, EvaluateResponse{
		Signal:      signal,
		Executable:  executable,
		GuardReason: reason,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("cannot encode response", zap.Error(err))
	}
}
