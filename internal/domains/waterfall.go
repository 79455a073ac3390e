package domains

import (
	"context"
	"math"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/outreach-labs/contact-pipeline/internal/connectors"
	"github.com/outreach-labs/contact-pipeline/internal/fetch"
	"github.com/outreach-labs/contact-pipeline/internal/fuzzy"
	"github.com/outreach-labs/contact-pipeline/internal/scoring"
	"github.com/outreach-labs/contact-pipeline/internal/telemetry"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// Default thresholds for the stage policy.
const (
	DefaultAutoAccept        = 85
	DefaultNeedsVerification = 50
)

// Stage names recorded in stages_completed and telemetry.
const (
	StagePlacesLookup     = "domain_places_lookup"
	StageSearchLookup     = "domain_search_lookup"
	StageDeepVerification = "domain_deep_verification"
	StageManualReview     = "domain_manual_review"
)

// aggregatorHosts never count as a company's own domain.
var aggregatorHosts = map[string]bool{
	"facebook.com":       true,
	"instagram.com":      true,
	"linkedin.com":       true,
	"twitter.com":        true,
	"x.com":              true,
	"yelp.com":           true,
	"yellowpages.com":    true,
	"bbb.org":            true,
	"mapquest.com":       true,
	"angi.com":           true,
	"houzz.com":          true,
	"thumbtack.com":      true,
	"homeadvisor.com":    true,
	"google.com":         true,
	"wikipedia.org":      true,
	"youtube.com":        true,
	"nextdoor.com":       true,
	"indeed.com":         true,
	"glassdoor.com":      true,
	"opencorporates.com": true,
}

// Resolver runs the domain resolution waterfall. Stages are strictly
// sequential: each stage's gray-zone decision depends on the confidence the
// prior stage produced.
type Resolver struct {
	Places   *connectors.PlacesClient
	Search   *connectors.SearchClient
	Verifier *Verifier
	Matcher  *fuzzy.Matcher
	Emitter  *telemetry.Emitter

	FetchOptions *fetch.Options

	AutoAccept        int
	NeedsVerification int
}

// deepVerifyUnitCost covers the verification fetches plus one LLM call.
const deepVerifyUnitCost = 0.01

// Trace records which stages ran and what they cost, for stages_completed
// and the batch cost estimate.
type Trace struct {
	Stages []string
	Cost   float64
}

// candidate is one domain hypothesis moving through the stages.
type candidate struct {
	domain     string
	confidence int
	source     types.SourceTag
	method     string
	verified   bool
}

// Resolve runs the waterfall for one company and returns the resolved domain
// plus a trace of the stages that ran. A nil ResolvedDomain with nil error
// means no candidate surfaced anywhere; connector-level failures degrade a
// stage to "no candidate" rather than aborting the waterfall.
func (r *Resolver) Resolve(ctx context.Context, company types.CompanyRecord) (*types.ResolvedDomain, Trace, error) {
	autoAccept := r.AutoAccept
	if autoAccept <= 0 {
		autoAccept = DefaultAutoAccept
	}
	needsVerification := r.NeedsVerification
	if needsVerification <= 0 {
		needsVerification = DefaultNeedsVerification
	}

	var trace Trace
	var best candidate

	// Stage 1: verified-listing phone match. An exact phone match against an
	// operational listing is terminal at confidence 99. A parked domain is
	// discarded outright, never downgraded to a review item.
	if r.Places != nil && company.Phone != "" {
		trace.Stages = append(trace.Stages, StagePlacesLookup)
		trace.Cost += connectors.PlacesUnitCost
		start := time.Now()
		cand, err := r.placesStage(ctx, company)
		r.emitStage(company.ID, StagePlacesLookup, start, cand, err)
		if err == nil && cand.domain != "" {
			switch {
			case cand.confidence < autoAccept:
				best = better(best, cand)
			case !r.parked(ctx, cand.domain):
				return accept(cand, false), trace, nil
			}
		}
	}

	// Stage 2: knowledge-graph / search lookup.
	if r.Search != nil {
		trace.Stages = append(trace.Stages, StageSearchLookup)
		trace.Cost += connectors.OSINTUnitCost
		start := time.Now()
		cand, err := r.searchStage(ctx, company)
		r.emitStage(company.ID, StageSearchLookup, start, cand, err)
		if err == nil && cand.domain != "" {
			switch {
			case cand.confidence < autoAccept:
				best = better(best, cand)
			case !r.parked(ctx, cand.domain):
				return accept(cand, false), trace, nil
			}
		}
	}

	// Stage 3: deep verification, only for gray-zone candidates. Below the
	// gray zone there is nothing credible enough to spend a fetch on.
	if r.Verifier != nil && best.domain != "" &&
		best.confidence >= needsVerification && best.confidence < autoAccept {
		trace.Stages = append(trace.Stages, StageDeepVerification)
		trace.Cost += deepVerifyUnitCost
		start := time.Now()
		conf, ok, err := r.Verifier.Verify(ctx, company, best.domain, best.confidence)
		verified := candidate{domain: best.domain, confidence: conf, source: best.source, method: "deep_verification", verified: ok}
		r.emitStage(company.ID, StageDeepVerification, start, verified, err)
		if err == nil {
			if !ok {
				// Denied: the candidate is wrong, not merely uncertain.
				best = candidate{}
			} else {
				best = verified
				return accept(best, best.confidence < autoAccept), trace, nil
			}
		}
	}

	// Stage 4: manual-review fallback with the best-effort candidate, if any.
	// The parking check applies here too: gray-zone candidates skip the
	// auto-accept check above, so this is their last gate.
	trace.Stages = append(trace.Stages, StageManualReview)
	if best.domain == "" || r.parked(ctx, best.domain) {
		return nil, trace, nil
	}
	return accept(best, true), trace, nil
}

// placesStage looks for a listing whose phone exactly matches the input phone.
func (r *Resolver) placesStage(ctx context.Context, company types.CompanyRecord) (candidate, error) {
	listings, err := r.Places.Listings(ctx, company)
	if err != nil {
		return candidate{}, err
	}

	want := scoring.NormalizePhone(company.Phone)
	for _, l := range listings {
		if l.Website == "" || want == "" {
			continue
		}
		if scoring.NormalizePhone(l.FormattedPhone) == want {
			return candidate{
				domain:     hostOf(l.Website),
				confidence: 99,
				source:     types.SourcePlaces,
				method:     "phone_match",
				verified:   true,
			}, nil
		}
	}
	return candidate{}, nil
}

// searchStage queries the web for the company and scores candidate domains by
// name similarity. A top result whose title carries the exact company name is
// treated as a verified entity; otherwise the fuzzy matcher decides.
func (r *Resolver) searchStage(ctx context.Context, company types.CompanyRecord) (candidate, error) {
	query := company.Name
	if len(company.ContextKeywords) > 0 {
		query += " " + strings.Join(company.ContextKeywords, " ")
	}

	results, err := r.Search.Search(ctx, types.SourceOSINT, query, 10)
	if err != nil {
		return candidate{}, err
	}

	var best candidate
	for i, res := range results {
		host := hostOf(res.Link)
		if host == "" || isAggregator(host) {
			continue
		}

		sim := fuzzy.Similarity(domainLabel(host), company.Name)

		var cand candidate
		switch {
		case i == 0 && titleNamesCompany(res.Title, company.Name):
			// Verified-entity shape: top hit, exact company name in title.
			cand = candidate{
				domain:     host,
				confidence: clampInt(85+int(math.Round(13*sim)), 85, 98),
				source:     types.SourceOSINT,
				method:     "entity_card",
				verified:   true,
			}
		case sim >= 0.90:
			cand = candidate{
				domain:     host,
				confidence: clampInt(85+int(math.Round((sim-0.90)*100)), 85, 95),
				source:     types.SourceOSINT,
				method:     "fuzzy_match",
			}
		default:
			// Below the fuzzy bar the candidate enters (or misses) the gray
			// zone in proportion to its similarity.
			cand = candidate{
				domain:     host,
				confidence: clampInt(int(math.Round(sim*90)), 0, 84),
				source:     types.SourceOSINT,
				method:     "fuzzy_match",
			}
		}
		best = better(best, cand)
	}
	return best, nil
}

// parked fetches the candidate's homepage and runs the parking detector.
// A fetch failure is not evidence of parking.
func (r *Resolver) parked(ctx context.Context, domain string) bool {
	result, err := fetch.URL(ctx, "https://"+domain+"/", r.FetchOptions)
	if err != nil && result == nil {
		return false
	}
	return IsParkingPage(result.HTML)
}

func (r *Resolver) emitStage(companyID, stage string, start time.Time, cand candidate, err error) {
	if r.Emitter == nil {
		return
	}
	fields := []zap.Field{
		zap.String("domain", cand.domain),
		zap.Int("confidence", cand.confidence),
		zap.String("method", cand.method),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	r.Emitter.Stage(companyID, stage, time.Since(start), fields...)
}

func accept(c candidate, needsReview bool) *types.ResolvedDomain {
	return &types.ResolvedDomain{
		Domain:            c.domain,
		Confidence:        c.confidence,
		Source:            c.source,
		Method:            c.method,
		Verified:          c.verified,
		NeedsManualReview: needsReview,
	}
}

func better(a, b candidate) candidate {
	if b.confidence > a.confidence {
		return b
	}
	return a
}

// titleNamesCompany reports whether the result title contains the exact
// company name, case-insensitive.
func titleNamesCompany(title, companyName string) bool {
	return strings.Contains(strings.ToLower(title), strings.ToLower(strings.TrimSpace(companyName)))
}

// hostOf extracts a bare lowercase hostname from a URL, dropping www.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimPrefix(strings.ToLower(strings.Split(raw, "/")[0]), "www.")
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// isAggregator checks the host and its registrable parent against the
// aggregator list.
func isAggregator(host string) bool {
	if aggregatorHosts[host] {
		return true
	}
	parts := strings.Split(host, ".")
	if len(parts) > 2 {
		return aggregatorHosts[strings.Join(parts[len(parts)-2:], ".")]
	}
	return false
}

// domainLabel strips the TLD so "millersplumbing.com" compares as
// "millersplumbing".
func domainLabel(host string) string {
	if i := strings.Index(host, "."); i > 0 {
		return host[:i]
	}
	return host
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
