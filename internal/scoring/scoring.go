// Package scoring computes contact validity scores. The design is a
// short-circuiting guard chain followed by a signed additive weight table:
// hard requirements reject outright before any points accumulate, so a
// business name with a phone number can never stack its way past the
// threshold. Every contribution is itemized in Reasons for auditability.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/outreach-labs/contact-pipeline/internal/fuzzy"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// RejectedScore is the sentinel score for candidates failing a hard
// requirement. Weighted scoring never runs for these.
const RejectedScore = -1000

// DefaultValidThreshold is the minimum score for validity. Raised from the
// historical 50 so that source+phone+title stacking alone cannot cross it.
const DefaultValidThreshold = 70

// Weight table. Signed on purpose: missing email and missing phone are
// penalties, not merely absent bonuses, because they gut outreach usability.
const (
	weightNameMulti  = 40
	weightNameSingle = 10

	weightEmailCompanyDomain = 40
	weightEmailOtherBusiness = 25
	weightEmailGeneric       = 5
	weightEmailMissing       = -30

	weightPhonePresent = 15
	weightPhoneMissing = -10

	weightTitleStrong       = 30
	weightTitleWeak         = 20
	weightTitleUnrecognized = 10
	weightTitleMissing      = -10

	// Max source contribution. reliability_weight <= 1.0 keeps any single
	// source at or below the other weighted categories.
	sourceWeightScale = 40

	corroborationBonus = 10
	corroborationCap   = 20
)

// InvariantViolationError indicates the scorer was about to mark a contact
// valid despite a hard-requirement failure. This is a scorer bug, not a data
// problem; in production the contact is forced invalid instead.
type InvariantViolationError struct {
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("scoring invariant violation: %s", e.Detail)
}

// Scorer evaluates candidates against a company record.
type Scorer struct {
	matcher     *fuzzy.Matcher
	reliability map[types.SourceTag]float64
	threshold   int

	// Strict makes invariant violations panic instead of degrading to an
	// invalid verdict. Enabled in tests and dev builds.
	Strict bool

	// OnViolation, if set, is called when an invariant violation is forced
	// to invalid in non-strict mode.
	OnViolation func(detail string)
}

// NewScorer creates a Scorer. reliability maps each source tag to its
// connector's declared reliability weight (0..1); threshold <= 0 uses the
// default.
func NewScorer(matcher *fuzzy.Matcher, reliability map[types.SourceTag]float64, threshold int) *Scorer {
	if matcher == nil {
		matcher = fuzzy.NewMatcher(nil)
	}
	if threshold <= 0 {
		threshold = DefaultValidThreshold
	}
	return &Scorer{
		matcher:     matcher,
		reliability: reliability,
		threshold:   threshold,
	}
}

// Score evaluates one candidate. allCandidates is the full candidate set for
// this run (including candidate itself) so corroboration bonuses apply across
// sources. Candidates are read-only; scoring twice yields identical results.
func (s *Scorer) Score(candidate types.Candidate, company types.CompanyRecord, allCandidates []types.Candidate) types.ScoredContact {
	// Hard requirements: evaluated as short-circuiting guards before any
	// additive scoring. A rejected candidate keeps the sentinel score.
	if reason, rejected := s.hardReject(candidate, company); rejected {
		return types.ScoredContact{
			Candidate: candidate,
			Score:     RejectedScore,
			IsValid:   false,
			Reasons:   []string{reason},
		}
	}

	var score int
	var reasons []string
	add := func(points int, label string) {
		score += points
		reasons = append(reasons, fmt.Sprintf("%+d %s", points, label))
	}

	// Name shape.
	if len(strings.Fields(candidate.Name)) >= 2 {
		add(weightNameMulti, "multi-token name")
	} else {
		add(weightNameSingle, "single-token name")
	}

	// Email quality.
	switch domain := EmailDomain(candidate.Email); {
	case candidate.Email == "" || domain == "":
		add(weightEmailMissing, "no email")
	case sameDomain(domain, companyDomain(company, candidate)):
		add(weightEmailCompanyDomain, "email matches company domain")
	case IsGenericEmailDomain(domain):
		add(weightEmailGeneric, "generic consumer email")
	default:
		add(weightEmailOtherBusiness, "business email, non-matching domain")
	}

	// Phone.
	if NormalizePhone(candidate.Phone) != "" {
		add(weightPhonePresent, "phone present")
	} else {
		add(weightPhoneMissing, "no phone")
	}

	// Title.
	switch ClassifyTitle(candidate.Title) {
	case TitleStrong:
		add(weightTitleStrong, "strong decision-maker title")
	case TitleWeak:
		add(weightTitleWeak, "recognized title")
	case TitleUnrecognized:
		add(weightTitleUnrecognized, "unrecognized title")
	default:
		add(weightTitleMissing, "no title")
	}

	// Source reliability prior, capped at sourceWeightScale.
	rel := s.reliability[candidate.Source]
	if rel > 1.0 {
		rel = 1.0
	}
	if rel > 0 {
		add(int(math.Round(sourceWeightScale*rel)), fmt.Sprintf("source reliability (%s)", candidate.Source))
	}

	// Corroboration across the run's candidate set.
	if bonus, n := s.corroboration(candidate, allCandidates); bonus > 0 {
		add(bonus, fmt.Sprintf("corroborated by %d candidate(s)", n))
	}

	valid := score >= s.threshold

	// Defensive re-check: a valid verdict must be impossible here if a hard
	// requirement failed, since hardReject returned above. If it trips, the
	// guard chain has a bug.
	if valid {
		if reason, rejected := s.hardReject(candidate, company); rejected {
			detail := fmt.Sprintf("candidate %q marked valid despite hard failure: %s", candidate.Name, reason)
			if s.Strict {
				panic(&InvariantViolationError{Detail: detail})
			}
			if s.OnViolation != nil {
				s.OnViolation(detail)
			}
			return types.ScoredContact{
				Candidate: candidate,
				Score:     RejectedScore,
				IsValid:   false,
				Reasons:   append(reasons, "FORCED INVALID: "+reason),
			}
		}
	}

	return types.ScoredContact{
		Candidate: candidate,
		Score:     score,
		IsValid:   valid,
		Reasons:   reasons,
	}
}

// ScoreAll scores every candidate in the run together (so corroboration
// applies) and returns the results sorted by score descending.
func (s *Scorer) ScoreAll(candidates []types.Candidate, company types.CompanyRecord) []types.ScoredContact {
	scored := make([]types.ScoredContact, 0, len(candidates))
	for _, c := range candidates {
		if !types.IsValidSource(c.Source) {
			// Unknown sources are rejected at ingestion, not scored.
			continue
		}
		scored = append(scored, s.Score(c, company, candidates))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// hardReject returns the rejection reason for candidates failing a hard
// requirement.
func (s *Scorer) hardReject(candidate types.Candidate, company types.CompanyRecord) (string, bool) {
	if strings.TrimSpace(candidate.Name) == "" {
		return "no name", true
	}
	if s.matcher.IsCompanyName(candidate.Name, company.Name) {
		return "company name, not a person", true
	}
	if NormalizePhone(candidate.Phone) == "" && EmailDomain(candidate.Email) == "" {
		return "no contact method", true
	}
	return "", false
}

// corroboration counts other candidates sharing a normalized phone or a
// matching non-generic email domain. Identical source alone never counts.
func (s *Scorer) corroboration(candidate types.Candidate, all []types.Candidate) (bonus, count int) {
	phone := NormalizePhone(candidate.Phone)
	domain := EmailDomain(candidate.Email)
	if IsGenericEmailDomain(domain) {
		domain = ""
	}

	seen := 0
	for i := range all {
		other := all[i]
		if other == candidate {
			continue
		}
		match := false
		if phone != "" && NormalizePhone(other.Phone) == phone {
			match = true
		}
		if !match && domain != "" {
			otherDomain := EmailDomain(other.Email)
			if !IsGenericEmailDomain(otherDomain) && sameDomain(domain, otherDomain) {
				match = true
			}
		}
		if match {
			seen++
		}
	}

	bonus = seen * corroborationBonus
	if bonus > corroborationCap {
		bonus = corroborationCap
	}
	return bonus, seen
}

// companyDomain picks the domain to match candidate emails against: the
// company record's resolved domain, falling back to the candidate's own hint.
func companyDomain(company types.CompanyRecord, candidate types.Candidate) string {
	if company.Domain != "" {
		return company.Domain
	}
	return candidate.CompanyDomainHint
}
