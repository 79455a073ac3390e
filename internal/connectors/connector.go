// Package connectors provides uniform adapters to the external data sources
// the resolution waterfalls draw from. Every connector returns zero or more
// raw candidates with a source tag; "zero results" is a valid empty return,
// never an error. Infrastructure failures surface as SourceUnavailableError.
package connectors

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/outreach-labs/contact-pipeline/internal/ratelimit"
	"github.com/outreach-labs/contact-pipeline/internal/telemetry"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// Connector is the uniform adapter contract for one external data source.
type Connector interface {
	// Tag returns the connector's fixed source tag.
	Tag() types.SourceTag
	// ReliabilityWeight is the source-level prior fed to the scorer (0..1).
	ReliabilityWeight() float64
	// UnitCost is the estimated dollar cost of one Fetch call.
	UnitCost() float64
	// Fetch returns raw candidates for a company. An empty slice means the
	// source had no data; a SourceUnavailableError means the source itself
	// failed (timeout, rate limit, auth).
	Fetch(ctx context.Context, company types.CompanyRecord) ([]types.Candidate, error)
}

// SourceUnavailableError indicates a connector-level infrastructure failure:
// timeout, rate limit, or auth. Recoverable; callers retry once, then treat
// the connector as having returned zero candidates.
type SourceUnavailableError struct {
	Source  types.SourceTag
	Message string
	Cause   error
}

func (e *SourceUnavailableError) Error() string {
	if e.Cause != nil {
		return string(e.Source) + " unavailable: " + e.Message + ": " + e.Cause.Error()
	}
	return string(e.Source) + " unavailable: " + e.Message
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Cause
}

// IsSourceUnavailable reports whether err is a SourceUnavailableError.
func IsSourceUnavailable(err error) bool {
	var su *SourceUnavailableError
	return errors.As(err, &su)
}

// unavailable wraps an underlying error in a SourceUnavailableError.
func unavailable(source types.SourceTag, message string, cause error) error {
	return &SourceUnavailableError{Source: source, Message: message, Cause: cause}
}

// Caller wraps connector invocations with the cross-cutting policy every
// call site needs: per-call timeout, one retry on transient errors, shared
// rate limiting, budget accounting, and the structured telemetry event that
// replaces the ad hoc print statements of earlier generations.
type Caller struct {
	Limiter  *ratelimit.Limiter
	Budget   *ratelimit.BudgetCounter
	Emitter  *telemetry.Emitter
	Timeouts map[types.SourceTag]time.Duration
}

// DefaultTimeout applies when a connector has no per-tag override.
const DefaultTimeout = 30 * time.Second

// maxRetries is the fixed retry cap on transient network errors.
const maxRetries = 1

// Call invokes the connector with timeout, retry, rate limiting, budgeting,
// and telemetry. On SourceUnavailableError after retries, it returns the
// error and a nil slice; the caller decides whether that degrades to "zero
// candidates" or marks the whole company as errored.
func (cl *Caller) Call(ctx context.Context, conn Connector, company types.CompanyRecord) ([]types.Candidate, error) {
	tag := conn.Tag()
	timeout := cl.timeout(tag)

	if cl.Limiter != nil && !cl.Limiter.Wait(tag, time.Now().Add(timeout)) {
		return nil, unavailable(tag, "rate limit wait exceeded timeout", nil)
	}

	start := time.Now()
	candidates, err := cl.fetchOnce(ctx, conn, company, timeout)
	if err != nil && retryable(err) {
		for attempt := 0; attempt < maxRetries; attempt++ {
			candidates, err = cl.fetchOnce(ctx, conn, company, timeout)
			if err == nil || !retryable(err) {
				break
			}
		}
	}
	latency := time.Since(start)

	cost := conn.UnitCost()
	if cl.Budget != nil {
		cl.Budget.Add(cost)
	}
	if cl.Emitter != nil {
		cl.Emitter.ConnectorCall(company.ID, tag, latency, len(candidates), cost, err)
	}

	if err != nil {
		return nil, err
	}

	// Drop candidates carrying unknown source tags at ingestion.
	filtered := candidates[:0]
	for _, c := range candidates {
		if types.IsValidSource(c.Source) {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

func (cl *Caller) fetchOnce(ctx context.Context, conn Connector, company types.CompanyRecord, timeout time.Duration) ([]types.Candidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	candidates, err := conn.Fetch(callCtx, company)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, unavailable(conn.Tag(), "call timed out", err)
		}
		if IsSourceUnavailable(err) {
			return nil, err
		}
		return nil, unavailable(conn.Tag(), "fetch failed", err)
	}
	return candidates, nil
}

func (cl *Caller) timeout(tag types.SourceTag) time.Duration {
	if t, ok := cl.Timeouts[tag]; ok && t > 0 {
		return t
	}
	return DefaultTimeout
}

// retryable reports whether the error looks like a transient network fault
// worth one retry. Deadline expiry is not retried: the budget is spent.
func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var su *SourceUnavailableError
	if errors.As(err, &su) && su.Cause != nil {
		var inner net.Error
		return errors.As(su.Cause, &inner)
	}
	return false
}
