package gateway

import "github.com/parthardas/helpdesk/pkg/conversation"

// ChatRequest is the inbound message for POST /v1/chat and websocket frames.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Domain    string `json:"domain,omitempty"`
}

// RoutingInfo describes how a turn was dispatched.
type RoutingInfo struct {
	TurnID  string   `json:"turn_id"`
	Trail   []string `json:"trail,omitempty"`
	Outcome string   `json:"outcome"`
	Steps   int      `json:"steps"`
}

// ChatResponse is the outbound reply for POST /v1/chat and websocket frames.
type ChatResponse struct {
	Response    string      `json:"response"`
	SessionID   string      `json:"session_id"`
	Domain      string      `json:"domain"`
	AgentUsed   string      `json:"agent_used,omitempty"`
	Done        bool        `json:"done"`
	RoutingInfo RoutingInfo `json:"routing_info"`
}

// SessionResponse is the transcript readback for GET /v1/sessions/{id}.
type SessionResponse struct {
	SessionID string                 `json:"session_id"`
	Domain    string                 `json:"domain"`
	Done      bool                   `json:"done"`
	Context   map[string]any         `json:"context,omitempty"`
	History   []conversation.Message `json:"history"`
}

// ErrorResponse is the body for client errors (4xx). Internal failures are
// surfaced as a normal ChatResponse with an apology, never as a 5xx body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status   string   `json:"status"`
	Domains  []string `json:"domains"`
	Sessions int      `json:"sessions"`
}
