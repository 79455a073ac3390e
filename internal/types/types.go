// Package types defines the shared data model for the contact discovery pipeline.
package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// SourceTag identifies which external data source produced a candidate.
type SourceTag string

// Source tags for the supported connectors.
const (
	SourcePlaces    SourceTag = "places_listing"
	SourceWebsite   SourceTag = "website_scrape"
	SourceSocial    SourceTag = "social_search"
	SourceOSINT     SourceTag = "osint_search"
	SourceDirectory SourceTag = "business_directory"
)

// AllSourceTags returns every recognized source tag.
func AllSourceTags() []SourceTag {
	return []SourceTag{SourcePlaces, SourceWebsite, SourceSocial, SourceOSINT, SourceDirectory}
}

// IsValidSource reports whether tag is one of the fixed source tags.
// Candidates carrying an unknown tag are rejected at ingestion, not scored.
func IsValidSource(tag SourceTag) bool {
	switch tag {
	case SourcePlaces, SourceWebsite, SourceSocial, SourceOSINT, SourceDirectory:
		return true
	}
	return false
}

// CompanyRecord is the pipeline input: a company to resolve a contact for.
// Name is required; the remaining fields are enrichment hints. The domain
// waterfall may populate Domain in place; nothing else mutates the record.
type CompanyRecord struct {
	ID              string   `json:"id,omitempty"`
	Name            string   `json:"name" validate:"required"`
	Domain          string   `json:"domain,omitempty" validate:"omitempty,fqdn"`
	Phone           string   `json:"phone,omitempty"`
	Address         string   `json:"address,omitempty"`
	ContextKeywords []string `json:"context_keywords,omitempty"`
}

// Candidate is a raw, unvalidated contact record returned by one connector.
// Candidates are never mutated after creation; the scorer only reads them.
type Candidate struct {
	Source            SourceTag `json:"source"`
	Name              string    `json:"name,omitempty"`
	Title             string    `json:"title,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	Email             string    `json:"email,omitempty"`
	LinkedInURL       string    `json:"linkedin_url,omitempty"`
	RawConfidence     float64   `json:"raw_confidence,omitempty"`
	CompanyDomainHint string    `json:"company_domain_hint,omitempty"`
}

// ScoredContact is a Candidate plus its computed validity verdict.
// Score is signed; IsValid requires both the threshold and the hard
// requirements (name present, not a company name, contact method present).
type ScoredContact struct {
	Candidate Candidate `json:"candidate"`
	Score     int       `json:"score"`
	IsValid   bool      `json:"is_valid"`
	Reasons   []string  `json:"reasons"`
}

// ResolvedDomain is the output of the domain resolution waterfall.
type ResolvedDomain struct {
	Domain            string    `json:"domain"`
	Confidence        int       `json:"confidence"`
	Source            SourceTag `json:"source"`
	Method            string    `json:"method"`
	Verified          bool      `json:"verified"`
	NeedsManualReview bool      `json:"needs_manual_review,omitempty"`
}

// Outcome classifies a company's terminal pipeline state. Distinguishing
// "no data available" from "pipeline broke" is deliberate: conflating the
// two hides infrastructure failures behind apparent data absence.
type Outcome string

const (
	OutcomeResolved     Outcome = "resolved"
	OutcomeNoCandidates Outcome = "no_candidates"
	OutcomeError        Outcome = "error"
)

// PipelineResult is the terminal artifact for one company. Immutable once
// the orchestrator finalizes it.
type PipelineResult struct {
	Company         CompanyRecord   `json:"company"`
	ResolvedDomain  *ResolvedDomain `json:"resolved_domain,omitempty"`
	Contacts        []ScoredContact `json:"contacts"`
	Outcome         Outcome         `json:"outcome"`
	StagesCompleted []string        `json:"stages_completed"`
	CostEstimate    float64         `json:"cost_estimate"`
	Errors          []string        `json:"errors,omitempty"`
}

// ValidCount returns the number of contacts with IsValid set.
func (r *PipelineResult) ValidCount() int {
	n := 0
	for _, c := range r.Contacts {
		if c.IsValid {
			n++
		}
	}
	return n
}

// InvalidCompanyRecordError indicates a record rejected before any connector
// call. It is surfaced to the caller immediately and never retried.
type InvalidCompanyRecordError struct {
	Field   string
	Message string
}

func (e *InvalidCompanyRecordError) Error() string {
	return fmt.Sprintf("invalid company record: %s: %s", e.Field, e.Message)
}

var recordValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateCompanyRecord checks required fields on an ingested record.
func ValidateCompanyRecord(rec *CompanyRecord) error {
	if err := recordValidator.Struct(rec); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return &InvalidCompanyRecordError{
				Field:   verrs[0].Field(),
				Message: fmt.Sprintf("failed %q validation", verrs[0].Tag()),
			}
		}
		return &InvalidCompanyRecordError{Field: "(record)", Message: err.Error()}
	}
	return nil
}
