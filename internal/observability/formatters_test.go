package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/outreach-labs/contact-pipeline/internal/types"
)

func TestPrintResolvedDomain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResolvedDomain("Acme Plumbing", &types.ResolvedDomain{
		Domain:     "acmeplumbing.com",
		Confidence: 99,
		Method:     "phone_match",
		Verified:   true,
	}, []string{"domain_places_lookup"})

	out := buf.String()
	assert.Contains(t, out, "DOMAIN RESOLUTION")
	assert.Contains(t, out, "acmeplumbing.com")
	assert.Contains(t, out, "phone_match")
	assert.Contains(t, out, "domain_places_lookup")
}

func TestPrintResolvedDomain_Unresolved(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResolvedDomain("Ghost LLC", nil, []string{"domain_manual_review"})

	assert.Contains(t, buf.String(), "(unresolved)")
}

func TestPrintScoredContacts(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintScoredContacts([]types.ScoredContact{{
		Candidate: types.Candidate{Source: types.SourcePlaces, Name: "Jane Smith", Title: "Owner"},
		Score:     161,
		IsValid:   true,
		Reasons:   []string{"+40 multi-token name", "+36 source reliability (places_listing)"},
	}})

	out := buf.String()
	assert.Contains(t, out, "SCORED CONTACTS")
	assert.Contains(t, out, "Jane Smith (Owner)")
	assert.Contains(t, out, "+40 multi-token name")
}

func TestPrintScoredContacts_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintScoredContacts(nil)

	assert.Contains(t, buf.String(), "NO VALID CONTACTS FOUND")
}

func TestPrintBatchSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	results := []types.PipelineResult{
		{Outcome: types.OutcomeResolved, Contacts: []types.ScoredContact{{IsValid: true}, {IsValid: true}}},
		{Outcome: types.OutcomeNoCandidates},
		{Outcome: types.OutcomeError},
	}
	p.PrintBatchSummary(results, 1.50)

	out := buf.String()
	assert.Contains(t, out, "Companies:      3")
	assert.Contains(t, out, "Resolved:       1")
	assert.Contains(t, out, "No candidates:  1")
	assert.Contains(t, out, "Errors:         1")
	assert.Contains(t, out, "Valid contacts: 2")
	assert.Contains(t, out, "Total cost:     $1.50")
	assert.Contains(t, out, "Cost per valid: $0.75")
}
