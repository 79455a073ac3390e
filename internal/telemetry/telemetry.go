// Package telemetry emits the structured events external analysis consumes to
// compute success-rate and cost-per-valid-contact tables. The pipeline only
// emits events; aggregation happens downstream.
package telemetry

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// Emitter writes structured pipeline events.
type Emitter struct {
	log *zap.Logger
}

// NewEmitter wraps a zap logger. Pass zap.NewNop() in tests.
func NewEmitter(log *zap.Logger) *Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{log: log}
}

// NewLogger builds the production logger used by the CLI. Events go to stderr
// as JSON so stdout stays reserved for result records.
func NewLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// ConnectorCall records one connector invocation: source, latency, result
// count, and cost. This is the primary tuning signal for the waterfall.
func (e *Emitter) ConnectorCall(companyID string, source types.SourceTag, latency time.Duration, found int, cost float64, err error) {
	fields := []zap.Field{
		zap.String("stage", "connector"),
		zap.String("company_id", companyID),
		zap.String("source", string(source)),
		zap.Int64("latency_ms", latency.Milliseconds()),
		zap.Int("candidates_found", found),
		zap.Float64("cost", cost),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		e.log.Warn("connector call failed", fields...)
		return
	}
	e.log.Info("connector call", fields...)
}

// Stage records a waterfall stage transition.
func (e *Emitter) Stage(companyID, stage string, latency time.Duration, fields ...zap.Field) {
	all := append([]zap.Field{
		zap.String("stage", stage),
		zap.String("company_id", companyID),
		zap.Int64("latency_ms", latency.Milliseconds()),
	}, fields...)
	e.log.Info("stage complete", all...)
}

// CompanyDone records a finalized PipelineResult.
func (e *Emitter) CompanyDone(result *types.PipelineResult) {
	e.log.Info("company done",
		zap.String("stage", "finalize"),
		zap.String("company_id", result.Company.ID),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("valid_contacts", result.ValidCount()),
		zap.Int("total_contacts", len(result.Contacts)),
		zap.Float64("cost", result.CostEstimate),
		zap.Strings("stages_completed", result.StagesCompleted),
	)
}

// InvariantViolation records a scorer invariant breach. Loud on purpose: in
// production the contact is forced invalid, but the event must never be silent.
func (e *Emitter) InvariantViolation(companyID string, detail string) {
	e.log.Error("scoring invariant violation",
		zap.String("stage", "scoring"),
		zap.String("company_id", companyID),
		zap.String("detail", detail),
	)
}

// Logger exposes the underlying logger for packages that add their own fields.
func (e *Emitter) Logger() *zap.Logger {
	return e.log
}
