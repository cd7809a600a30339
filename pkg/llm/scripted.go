package llm

import (
	"context"
	"sync"
)

// Scripted is a Provider that replays canned responses in order. It backs
// tests and the offline demo mode, where no hosted API is reachable.
type Scripted struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     []Request
}

// NewScripted creates a scripted provider with no queued responses.
// An exhausted script returns an empty string, which callers treat as a
// malformed completion.
func NewScripted(responses ...string) *Scripted {
	return &Scripted{responses: responses}
}

// Name returns the provider name.
func (s *Scripted) Name() string {
	return "scripted"
}

// Enqueue appends a canned response to the script.
func (s *Scripted) Enqueue(response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, response)
}

// EnqueueError appends a canned failure to the script. Errors are consumed
// before responses.
func (s *Scripted) EnqueueError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

// Generate returns the next scripted response or error.
func (s *Scripted) Generate(_ context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, req)

	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", wrapProviderError(s.Name(), err)
	}

	if len(s.responses) == 0 {
		return "", nil
	}

	response := s.responses[0]
	s.responses = s.responses[1:]
	return response, nil
}

// Calls returns a copy of every request seen so far.
func (s *Scripted) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	calls := make([]Request, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// CallCount returns the number of Generate invocations.
func (s *Scripted) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
