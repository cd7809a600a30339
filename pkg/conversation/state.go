package conversation

import (
	"time"
)

// RouteEnd is the sentinel routing label that terminates a turn.
const RouteEnd = "END"

// Message is a single transcript entry.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the mutable per-conversation record driven through the dispatch
// loop. It is owned exclusively by the active turn; callers must serialize
// access per session (see Store.Acquire).
type State struct {
	SessionID string         `json:"session_id"`
	Domain    string         `json:"domain"`
	UserInput string         `json:"user_input"`
	Response  string         `json:"response"`
	RouteTo   string         `json:"route_to"`
	Done      bool           `json:"done"`
	Context   map[string]any `json:"context"`
	History   []Message      `json:"history"`
	StepCount int            `json:"step_count"`
}

// NewState creates a fresh state record for a session.
func NewState(sessionID, domain string) *State {
	return &State{
		SessionID: sessionID,
		Domain:    domain,
		Context:   make(map[string]any),
	}
}

// BeginTurn resets the per-turn fields for a new user message while keeping
// the accumulated context and transcript. The user message is appended to
// the history immediately so every decision sees it.
func (s *State) BeginTurn(input string) {
	s.UserInput = input
	s.Response = ""
	s.RouteTo = ""
	s.Done = false
	s.StepCount = 0
	s.Append("user", input)
}

// Append adds an entry to the transcript.
func (s *State) Append(role, content string) {
	s.History = append(s.History, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

// Update is a partial state update returned by a handler. Zero-valued
// fields are left untouched on merge.
type Update struct {
	// Response to present to the user.
	Response string

	// RouteTo re-routes the conversation; only handlers permitted to
	// hand control back set this.
	RouteTo string

	// Context entries to merge into the accumulated context.
	Context map[string]any

	// End signals that the handler considers the turn complete. The
	// dispatch loop, not the handler, flips State.Done.
	End bool
}

// Merge folds a partial update into the state record.
func (s *State) Merge(u Update) {
	if u.Response != "" {
		s.Response = u.Response
	}
	if u.RouteTo != "" {
		s.RouteTo = u.RouteTo
	}
	for k, v := range u.Context {
		if s.Context == nil {
			s.Context = make(map[string]any)
		}
		s.Context[k] = v
	}
}

// Snapshot returns a shallow copy of the record with its own context map
// and history slice, suitable for read-only inspection outside the turn.
func (s *State) Snapshot() State {
	out := *s
	out.Context = make(map[string]any, len(s.Context))
	for k, v := range s.Context {
		out.Context[k] = v
	}
	out.History = make([]Message, len(s.History))
	copy(out.History, s.History)
	return out
}
