package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/outreach-labs/contact-pipeline/internal/contacts"
	"github.com/outreach-labs/contact-pipeline/internal/db"
	"github.com/outreach-labs/contact-pipeline/internal/domains"
	"github.com/outreach-labs/contact-pipeline/internal/observability"
	"github.com/outreach-labs/contact-pipeline/internal/ratelimit"
	"github.com/outreach-labs/contact-pipeline/internal/telemetry"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// DefaultMaxConcurrency bounds the company-unit worker pool.
const DefaultMaxConcurrency = 10

// Runner orchestrates the batch: one independent unit of work per company,
// bounded parallelism across units, strictly sequential waterfall stages
// within a unit.
type Runner struct {
	Domains  *domains.Resolver
	Contacts *contacts.Waterfall
	Emitter  *telemetry.Emitter
	Budget   *ratelimit.BudgetCounter

	// Database persistence is optional; save failures are warnings.
	Database *db.DB
	RunID    uuid.UUID

	// Printer is set in verbose mode only.
	Printer *observability.Printer

	MaxConcurrency int
}

// RunBatch processes every company and streams results through writer as
// units finish. Cancellation is cooperative: an in-flight unit finishes its
// current waterfall stage but starts no new stage, and its partial result is
// still written with stages_completed reflecting what ran.
func (r *Runner) RunBatch(ctx context.Context, companies []types.CompanyRecord, writer *ResultWriter) ([]types.PipelineResult, error) {
	concurrency := r.MaxConcurrency
	if concurrency <= 0 {
		concurrency = DefaultMaxConcurrency
	}

	results := make([]types.PipelineResult, len(companies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range companies {
		i := i
		g.Go(func() error {
			result, reviews := r.resolveCompany(gctx, companies[i])
			results[i] = *result

			if r.Emitter != nil {
				r.Emitter.CompanyDone(result)
			}
			if writer != nil {
				if err := writer.WriteResult(result); err != nil {
					return err
				}
				for _, item := range reviews {
					if err := writer.WriteReview(item); err != nil {
						return err
					}
				}
			}
			r.persist(gctx, result, reviews)
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// resolveCompany runs one company's unit of work: domain waterfall, then
// contact waterfall. Each stage boundary checks for cancellation and budget
// exhaustion before starting the next stage.
func (r *Runner) resolveCompany(ctx context.Context, company types.CompanyRecord) (*types.PipelineResult, []ReviewItem) {
	result := &types.PipelineResult{
		Company: company,
		Outcome: types.OutcomeNoCandidates,
	}
	var reviews []ReviewItem

	if reason, stopped := r.stopped(ctx); stopped {
		result.Outcome = types.OutcomeError
		result.Errors = append(result.Errors, reason)
		return result, reviews
	}

	// Domain waterfall, unless the input already carries a domain.
	if company.Domain == "" && r.Domains != nil {
		resolved, trace, err := r.Domains.Resolve(ctx, company)
		result.StagesCompleted = append(result.StagesCompleted, trace.Stages...)
		result.CostEstimate += trace.Cost
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
		if resolved != nil {
			result.ResolvedDomain = resolved
			if resolved.NeedsManualReview {
				reviews = append(reviews, ReviewItem{
					CompanyID:   company.ID,
					CompanyName: company.Name,
					Kind:        "domain",
					Domain:      resolved,
				})
			} else if resolved.Domain != "" {
				// Enrich the record in place for the contact stage: email
				// domain matching depends on it.
				company.Domain = resolved.Domain
				result.Company.Domain = resolved.Domain
			}
		}
		if r.Printer != nil {
			r.Printer.PrintResolvedDomain(company.Name, resolved, trace.Stages)
		}
	}

	if reason, stopped := r.stopped(ctx); stopped {
		result.Outcome = types.OutcomeError
		result.Errors = append(result.Errors, reason)
		return result, reviews
	}

	// Contact waterfall.
	wres := r.Contacts.Resolve(ctx, company)
	result.StagesCompleted = append(result.StagesCompleted, wres.StagesAttempted...)
	result.CostEstimate += wres.Cost
	result.Errors = append(result.Errors, wres.Errors...)
	result.Contacts = wres.Contacts

	for i := range wres.NeedsReview {
		reviews = append(reviews, ReviewItem{
			CompanyID:   company.ID,
			CompanyName: company.Name,
			Kind:        "contact",
			Contact:     &wres.NeedsReview[i],
		})
	}

	switch {
	case wres.AllFailed:
		result.Outcome = types.OutcomeError
	case len(result.Contacts) > 0:
		result.Outcome = types.OutcomeResolved
	default:
		result.Outcome = types.OutcomeNoCandidates
	}

	if r.Printer != nil {
		r.Printer.PrintScoredContacts(result.Contacts)
	}

	return result, reviews
}

// stopped reports whether the unit must not start another stage: batch
// cancellation or cost budget exhaustion.
func (r *Runner) stopped(ctx context.Context) (string, bool) {
	if ctx.Err() != nil {
		return "batch cancelled", true
	}
	if r.Budget != nil && r.Budget.Exhausted() {
		return "cost budget exhausted", true
	}
	return "", false
}

// persist saves the result and review items when a database is configured.
// Persistence failures never fail the batch.
func (r *Runner) persist(ctx context.Context, result *types.PipelineResult, reviews []ReviewItem) {
	if r.Database == nil {
		return
	}
	if err := r.Database.SaveResult(ctx, r.RunID, result); err != nil {
		r.warn("failed to persist result", result.Company.ID, err)
	}
	for _, item := range reviews {
		if err := r.Database.SaveReviewItem(ctx, r.RunID, item.CompanyID, item.Kind, item); err != nil {
			r.warn("failed to persist review item", item.CompanyID, err)
		}
	}
}

func (r *Runner) warn(msg, companyID string, err error) {
	if r.Emitter == nil {
		return
	}
	r.Emitter.Logger().Warn(msg,
		zap.String("company_id", companyID),
		zap.Error(err),
	)
}
