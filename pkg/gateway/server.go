// Package gateway exposes the dispatch loop over HTTP and websockets:
// one chat endpoint, transcript readback, health and metrics, with
// per-client rate limiting and graceful shutdown.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/parthardas/helpdesk/internal/observability"
	"github.com/parthardas/helpdesk/pkg/conversation"
	"github.com/parthardas/helpdesk/pkg/dispatch"
	"github.com/parthardas/helpdesk/pkg/domains"
)

const timeoutResponse = "This is taking longer than expected. Please try again in a moment."

// Config holds server configuration
type Config struct {
	Host               string
	Port               int
	RateLimitPerMinute int
	MaxConcurrent      int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration

	// DefaultDomain serves requests that do not name a domain.
	DefaultDomain string

	// Bundles maps domain names to their assembled loops.
	Bundles map[string]*domains.Bundle

	Store *conversation.Store

	// History, when set, receives every user and assistant message for
	// durable transcript storage.
	History conversation.History

	Logger zerolog.Logger
}

// Server is the HTTP gateway.
type Server struct {
	cfg      Config
	server   *http.Server
	upgrader websocket.Upgrader
	limiters *RateLimiterRegistry
	logger   zerolog.Logger

	shutdownMu     sync.RWMutex
	isShuttingDown bool
	inFlightReqs   sync.WaitGroup
}

// NewServer creates a gateway server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if len(cfg.Bundles) == 0 {
		return nil, fmt.Errorf("at least one domain bundle is required")
	}
	if _, ok := cfg.Bundles[cfg.DefaultDomain]; !ok {
		return nil, fmt.Errorf("default domain %q has no bundle", cfg.DefaultDomain)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("conversation store is required")
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 60
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Minute
	}

	s := &Server{
		cfg:      cfg,
		limiters: NewRateLimiterRegistry(cfg.RateLimitPerMinute, cfg.MaxConcurrent),
		logger:   cfg.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", observability.MetricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(s.trackInFlight)

		r.Post("/chat", s.handleChat)
		r.Get("/sessions/{id}", s.handleSession)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// Start runs the server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Strs("domains", s.domainNames()).
		Msg("Gateway server starting")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting new requests and drains in-flight turns.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn().Msg("Shutdown deadline reached with requests still in flight")
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) domainNames() []string {
	names := make([]string, 0, len(s.cfg.Bundles))
	for name := range s.cfg.Bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// requestLogger logs one line per request in zerolog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// rateLimit enforces the per-client sliding window.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := s.limiters.For(r.RemoteAddr)
		if allowed, reason := limiter.CheckRequestAllowed(); !allowed {
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: reason})
			return
		}
		limiter.RecordRequestStart()
		defer limiter.RecordRequestEnd()

		next.ServeHTTP(w, r)
	})
}

// trackInFlight refuses new work during shutdown and counts active requests.
func (s *Server) trackInFlight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.shutdownMu.RLock()
		shuttingDown := s.isShuttingDown
		s.shutdownMu.RUnlock()
		if shuttingDown {
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "server is shutting down"})
			return
		}

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Domains:  s.domainNames(),
		Sessions: s.cfg.Store.Len(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	resp, status, errResp := s.serveTurn(r.Context(), req)
	if errResp != nil {
		writeJSON(w, status, errResp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// serveTurn runs one conversation turn for HTTP and websocket ingress alike.
func (s *Server) serveTurn(ctx context.Context, req ChatRequest) (ChatResponse, int, *ErrorResponse) {
	if req.Message == "" {
		return ChatResponse{}, http.StatusBadRequest, &ErrorResponse{Error: "message is required"}
	}

	domain := req.Domain
	if domain == "" {
		domain = s.cfg.DefaultDomain
	}
	bundle, ok := s.cfg.Bundles[domain]
	if !ok {
		return ChatResponse{}, http.StatusBadRequest, &ErrorResponse{
			Error: fmt.Sprintf("unknown domain %q", domain),
		}
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = conversation.NewSessionID()
	}

	state, release := s.cfg.Store.Acquire(sessionID, domain)
	defer release()

	if state.Domain != domain {
		// An existing session keeps its domain when the request names none.
		if req.Domain == "" {
			domain = state.Domain
			bundle, ok = s.cfg.Bundles[domain]
			if !ok {
				return ChatResponse{}, http.StatusBadRequest, &ErrorResponse{
					Error: fmt.Sprintf("session %s belongs to unserved domain %q", sessionID, state.Domain),
				}
			}
		} else {
			return ChatResponse{}, http.StatusBadRequest, &ErrorResponse{
				Error: fmt.Sprintf("session %s belongs to domain %q", sessionID, state.Domain),
			}
		}
	}

	turnID := uuid.NewString()
	state.BeginTurn(req.Message)

	result, err := bundle.Loop.Run(ctx, state)
	if err != nil {
		// Timeout leaves the record retryable; tell the client to retry.
		s.logger.Warn().
			Str("session_id", sessionID).
			Str("turn_id", turnID).
			Err(err).
			Msg("Turn timed out")
		if errors.Is(err, dispatch.ErrTurnTimeout) {
			return ChatResponse{
				Response:  timeoutResponse,
				SessionID: sessionID,
				Domain:    domain,
				RoutingInfo: RoutingInfo{
					TurnID:  turnID,
					Outcome: "timeout",
				},
			}, http.StatusOK, nil
		}
		return ChatResponse{}, http.StatusInternalServerError, &ErrorResponse{Error: "internal error"}
	}

	s.archiveTurn(ctx, sessionID, req.Message, state.Response)
	observability.SetActiveSessions(s.cfg.Store.Len())

	return ChatResponse{
		Response:  state.Response,
		SessionID: sessionID,
		Domain:    domain,
		AgentUsed: result.AgentUsed,
		Done:      state.Done,
		RoutingInfo: RoutingInfo{
			TurnID:  turnID,
			Trail:   result.Trail,
			Outcome: result.Outcome,
			Steps:   result.Steps,
		},
	}, http.StatusOK, nil
}

// archiveTurn persists the exchanged messages; failures are logged, never
// surfaced to the client.
func (s *Server) archiveTurn(ctx context.Context, sessionID, userMsg, assistantMsg string) {
	if s.cfg.History == nil {
		return
	}

	now := time.Now().UTC()
	if err := s.cfg.History.Append(ctx, sessionID, conversation.Message{
		Role: "user", Content: userMsg, Timestamp: now,
	}); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to archive user message")
		return
	}
	if assistantMsg == "" {
		return
	}
	if err := s.cfg.History.Append(ctx, sessionID, conversation.Message{
		Role: "assistant", Content: assistantMsg, Timestamp: now,
	}); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to archive assistant message")
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if snapshot, ok := s.cfg.Store.Peek(sessionID); ok {
		writeJSON(w, http.StatusOK, SessionResponse{
			SessionID: snapshot.SessionID,
			Domain:    snapshot.Domain,
			Done:      snapshot.Done,
			Context:   snapshot.Context,
			History:   snapshot.History,
		})
		return
	}

	// Fall back to the durable transcript for expired sessions.
	if s.cfg.History != nil {
		messages, err := s.cfg.History.Load(r.Context(), sessionID)
		if err == nil && len(messages) > 0 {
			writeJSON(w, http.StatusOK, SessionResponse{
				SessionID: sessionID,
				History:   messages,
			})
			return
		}
	}

	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "session not found"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// One session per connection unless the client pins its own.
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = conversation.NewSessionID()
	}

	for {
		var req ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("WebSocket read failed")
			}
			return
		}
		req.SessionID = sessionID

		resp, _, errResp := s.serveTurn(r.Context(), req)
		if errResp != nil {
			if err := conn.WriteJSON(errResp); err != nil {
				return
			}
			continue
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
