package decision

import (
	"context"
	"fmt"

	"github.com/parthardas/helpdesk/pkg/conversation"
)

// Decider maps conversation state to the next routing label.
type Decider interface {
	// Decide returns one label from the configured vocabulary, or the
	// terminal sentinel.
	Decide(ctx context.Context, state *conversation.State) (string, error)

	// Strategy names the decision strategy, for logging and metrics.
	Strategy() string
}

// Vocabulary is the closed label set a delegate decider may produce,
// paired with the capability descriptions embedded in its prompt.
type Vocabulary struct {
	// Labels are the permitted routing labels, excluding the terminal
	// sentinel (which is always permitted).
	Labels []string

	// Descriptions are "label: capability" lines, one per label.
	Descriptions []string
}

// Contains reports whether a label is in the vocabulary or is the
// terminal sentinel.
func (v Vocabulary) Contains(label string) bool {
	if label == conversation.RouteEnd {
		return true
	}
	for _, l := range v.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// ParseError marks delegate output that was not a usable routing label:
// malformed JSON, schema violations, or labels outside the vocabulary.
// It is recovered locally by the fallback chain and never surfaced to the
// user.
type ParseError struct {
	Output string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unusable routing decision: %s", e.Reason)
}
