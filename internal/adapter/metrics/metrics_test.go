package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.LedgerMetrics = (*LedgerMetrics)(nil)
	_ ports.LedgerMetrics = Noop{}
)

func TestLedgerMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveIntent(domain.TransactionTypeEarn, "committed", 5*time.Millisecond)
	m.ObserveIntent(domain.TransactionTypeEarn, "committed", time.Millisecond)
	m.ObserveIntent(domain.TransactionTypeVote, "rejected", time.Millisecond)
	m.IncReplay()
	m.AddVoteWeight(5)
	m.AddVoteWeight(0)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.intents.WithLabelValues("EARN", "committed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.intents.WithLabelValues("VOTE", "rejected")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.replays))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.voteWeight))
	assert.Equal(t, 2, testutil.CollectAndCount(m.processTime))
}

func TestLedgerMetrics_Handler(t *testing.T) {
	m := New()
	m.IncReplay()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "sup_ledger_idempotent_replays_total 1"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.IncReplay()
	assert.Equal(t, float64(0), testutil.ToFloat64(b.replays))
}
