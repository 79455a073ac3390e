package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/outreach-labs/contact-pipeline/internal/types"
)

func newObservedEmitter(t *testing.T) (*Emitter, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return NewEmitter(zap.New(core)), logs
}

func TestConnectorCall_Success(t *testing.T) {
	e, logs := newObservedEmitter(t)

	e.ConnectorCall("c1", types.SourcePlaces, 120*time.Millisecond, 3, 0.049, nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.InfoLevel, entry.Level)
	assert.Equal(t, "connector call", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "places_listing", fields["source"])
	assert.Equal(t, int64(120), fields["latency_ms"])
	assert.Equal(t, int64(3), fields["candidates_found"])
	assert.Equal(t, 0.049, fields["cost"])
}

func TestConnectorCall_FailureLogsAtWarn(t *testing.T) {
	e, logs := newObservedEmitter(t)

	e.ConnectorCall("c1", types.SourceSocial, time.Second, 0, 0.005, errors.New("quota exceeded"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.WarnLevel, entry.Level)
	assert.Equal(t, "connector call failed", entry.Message)
	assert.Equal(t, "quota exceeded", entry.ContextMap()["error"])
}

func TestCompanyDone(t *testing.T) {
	e, logs := newObservedEmitter(t)

	e.CompanyDone(&types.PipelineResult{
		Company: types.CompanyRecord{ID: "c1", Name: "Acme Plumbing"},
		Outcome: types.OutcomeResolved,
		Contacts: []types.ScoredContact{
			{Score: 120, IsValid: true},
			{Score: 55},
		},
		StagesCompleted: []string{"domain_places_lookup", "contact_places_listing"},
		CostEstimate:    0.059,
	})

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "resolved", fields["outcome"])
	assert.Equal(t, int64(1), fields["valid_contacts"])
	assert.Equal(t, int64(2), fields["total_contacts"])
}

func TestInvariantViolationLogsAtError(t *testing.T) {
	e, logs := newObservedEmitter(t)

	e.InvariantViolation("c1", "candidate marked valid despite hard failure")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zap.ErrorLevel, logs.All()[0].Level)
}

func TestNewEmitter_NilLoggerIsSafe(t *testing.T) {
	e := NewEmitter(nil)
	assert.NotPanics(t, func() {
		e.ConnectorCall("c1", types.SourcePlaces, 0, 0, 0, nil)
		e.Stage("c1", "domain_places_lookup", 0)
	})
	assert.NotNil(t, e.Logger())
}
