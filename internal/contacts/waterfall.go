// Package contacts orchestrates the source connectors into the contact
// resolution waterfall: a cheap verified-listing probe with an early-exit
// policy, then a concurrent fan-out across the remaining connectors, then one
// joint scoring pass so corroboration bonuses apply across sources.
package contacts

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/outreach-labs/contact-pipeline/internal/connectors"
	"github.com/outreach-labs/contact-pipeline/internal/scoring"
	"github.com/outreach-labs/contact-pipeline/internal/telemetry"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// DefaultEarlyExitThreshold is the score at which a verified-listing candidate
// alone is good enough to skip the remaining, costlier connectors.
const DefaultEarlyExitThreshold = 85

// DefaultNeedsVerification bounds the gray zone routed to manual review.
const DefaultNeedsVerification = 50

// Result is the contact waterfall's output for one company.
type Result struct {
	// Contacts holds every valid scored contact, sorted by score descending.
	Contacts []types.ScoredContact
	// NeedsReview holds gray-zone contacts: not valid, but scored high enough
	// that a human pass may rescue them.
	NeedsReview []types.ScoredContact
	// StagesAttempted names each connector invoked, in order, whether or not
	// it produced candidates. Zero-candidate outcomes are diagnosed from this.
	StagesAttempted []string
	// EarlyExit is set when the verified-listing probe finalized on its own.
	EarlyExit bool
	// AllFailed is set when every invoked connector failed with
	// SourceUnavailable. The orchestrator maps this to an error outcome.
	AllFailed bool
	// Cost is the summed unit cost of every connector invoked.
	Cost float64
	// Errors collects connector failure messages.
	Errors []string
}

// Waterfall runs the contact resolution stages for one company.
type Waterfall struct {
	// Connectors in invocation order. The first connector tagged as the
	// verified-listing source drives the early-exit probe.
	Connectors []connectors.Connector
	Caller     *connectors.Caller
	Scorer     *scoring.Scorer
	Emitter    *telemetry.Emitter

	EarlyExitThreshold int
	NeedsVerification  int
}

// Resolve invokes connectors per the early-exit policy and scores all
// resulting candidates together. A connector failing with SourceUnavailable
// degrades to zero candidates; only all connectors failing marks the result
// as failed outright.
func (w *Waterfall) Resolve(ctx context.Context, company types.CompanyRecord) *Result {
	earlyExit := w.EarlyExitThreshold
	if earlyExit <= 0 {
		earlyExit = DefaultEarlyExitThreshold
	}
	needsVerification := w.NeedsVerification
	if needsVerification <= 0 {
		needsVerification = DefaultNeedsVerification
	}

	res := &Result{}

	var placesConn connectors.Connector
	var rest []connectors.Connector
	for _, conn := range w.Connectors {
		if conn.Tag() == types.SourcePlaces && placesConn == nil {
			placesConn = conn
		} else {
			rest = append(rest, conn)
		}
	}

	var pool []types.Candidate
	failures := 0
	invoked := 0

	// Early-exit probe: the verified-listing connector alone, scored alone.
	if placesConn != nil {
		invoked++
		res.StagesAttempted = append(res.StagesAttempted, stageName(placesConn.Tag()))
		res.Cost += placesConn.UnitCost()
		candidates, err := w.Caller.Call(ctx, placesConn, company)
		if err != nil {
			failures++
			res.Errors = append(res.Errors, err.Error())
		} else {
			pool = append(pool, candidates...)
			if top, ok := w.earlyExitCandidate(candidates, company, earlyExit); ok {
				res.EarlyExit = true
				w.finalize(res, candidates, company, needsVerification)
				w.emitEarlyExit(company.ID, top)
				return res
			}
		}
	}

	// Fan out the remaining connectors; they are independent of each other.
	// Only the scoring pass has to wait for all of them.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, conn := range rest {
		conn := conn
		invoked++
		res.StagesAttempted = append(res.StagesAttempted, stageName(conn.Tag()))
		res.Cost += conn.UnitCost()
		g.Go(func() error {
			candidates, err := w.Caller.Call(gctx, conn, company)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				res.Errors = append(res.Errors, err.Error())
				return nil
			}
			pool = append(pool, candidates...)
			return nil
		})
	}
	_ = g.Wait()

	if invoked > 0 && failures == invoked {
		res.AllFailed = true
		return res
	}

	w.finalize(res, pool, company, needsVerification)
	return res
}

// earlyExitCandidate scores the probe's candidates in isolation and reports
// whether the best one clears the early-exit bar: threshold score, strong
// title, and a phone. Bare listing data carries no titles, so the exit fires
// only when the probe's candidates arrive pre-enriched (a CRM re-run, or a
// connector that merges owner info into the listing).
func (w *Waterfall) earlyExitCandidate(candidates []types.Candidate, company types.CompanyRecord, threshold int) (types.ScoredContact, bool) {
	scored := w.Scorer.ScoreAll(candidates, company)
	if len(scored) == 0 {
		return types.ScoredContact{}, false
	}
	top := scored[0]
	if top.Score < threshold {
		return top, false
	}
	if scoring.ClassifyTitle(top.Candidate.Title) != scoring.TitleStrong {
		return top, false
	}
	if scoring.NormalizePhone(top.Candidate.Phone) == "" {
		return top, false
	}
	return top, true
}

// finalize scores the pool jointly and splits valid contacts from gray-zone
// review items.
func (w *Waterfall) finalize(res *Result, pool []types.Candidate, company types.CompanyRecord, needsVerification int) {
	for _, sc := range w.Scorer.ScoreAll(pool, company) {
		switch {
		case sc.IsValid:
			res.Contacts = append(res.Contacts, sc)
		case sc.Score >= needsVerification:
			res.NeedsReview = append(res.NeedsReview, sc)
		}
	}
}

func (w *Waterfall) emitEarlyExit(companyID string, top types.ScoredContact) {
	if w.Emitter == nil {
		return
	}
	w.Emitter.Stage(companyID, "contact_early_exit", 0,
		zap.Int("score", top.Score),
		zap.String("source", string(top.Candidate.Source)),
	)
}

func stageName(tag types.SourceTag) string {
	return "contact_" + string(tag)
}
