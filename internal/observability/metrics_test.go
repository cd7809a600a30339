package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	RecordTurn("banking", "completed", 120*time.Millisecond, 2)
	RecordDecision("keyword", "accounts")
	RecordDecisionFallback("delegate")
	RecordHandler("banking", "accounts", 30*time.Millisecond, nil)
	RecordHandler("banking", "billing", 10*time.Millisecond, errors.New("boom"))
	RecordBudgetExceeded("cafe")
	SetActiveSessions(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	body := w.Body.String()

	for _, name := range []string{
		"turns_total",
		"turn_duration_seconds",
		"decisions_total",
		"decision_fallback_total",
		"handler_duration_seconds",
		"handler_errors_total",
		"step_budget_exceeded_total",
		"dispatch_steps",
		"active_sessions",
	} {
		assert.Contains(t, body, name)
	}

	assert.Contains(t, body, `turns_total{domain="banking",outcome="completed"} 1`)
	assert.Contains(t, body, `handler_errors_total{domain="banking",handler="billing"} 1`)
	assert.Contains(t, body, "active_sessions 3")
}

func TestEnsureRegisteredIsIdempotent(t *testing.T) {
	// MustRegister would panic on a second registration attempt.
	assert.NotPanics(t, func() {
		EnsureRegistered()
		EnsureRegistered()
	})
}
