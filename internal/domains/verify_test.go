package domains

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outreach-labs/contact-pipeline/internal/fetch"
	"github.com/outreach-labs/contact-pipeline/internal/llm"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// roundTripFunc serves canned responses without touching the network.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func staticSiteOptions(html string) *fetch.Options {
	return &fetch.Options{
		UserAgent: fetch.DefaultUserAgent,
		Client: &http.Client{Transport: roundTripFunc(func(_ *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(html)),
				Header:     make(http.Header),
			}, nil
		})},
	}
}

func unreachableSiteOptions() *fetch.Options {
	return &fetch.Options{
		UserAgent: fetch.DefaultUserAgent,
		Client: &http.Client{Transport: roundTripFunc(func(_ *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})},
	}
}

// fakeLLM returns a scripted response for every GenerateJSON call.
type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) GenerateJSON(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return f.response, f.err
}
func (f *fakeLLM) Close() error { return nil }

var verifyCompany = types.CompanyRecord{
	Name:    "Acme Plumbing",
	Phone:   "(206) 555-0100",
	Address: "123 Main St, Seattle, WA 98101",
}

func TestVerify_PhoneEvidenceDecidesAlone(t *testing.T) {
	html := `<html><body><main>Acme corporate site. Call (206) 555-0100 now.</main></body></html>`
	v := &Verifier{FetchOptions: staticSiteOptions(html)}

	conf, ok, err := v.Verify(context.Background(), verifyCompany, "acmeplumbing.com", 60)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, verifyMaxConfidence, conf)
}

func TestVerify_ParkedDomainDenied(t *testing.T) {
	html := `<html><body>This domain is for sale. Call (206) 555-0100 to buy it.</body></html>`
	v := &Verifier{FetchOptions: staticSiteOptions(html)}

	_, ok, err := v.Verify(context.Background(), verifyCompany, "acmeplumbing.com", 60)

	require.NoError(t, err)
	assert.False(t, ok, "the parking check runs before any evidence is weighed")
}

func TestVerify_LLMConfirmationClamped(t *testing.T) {
	html := `<html><body><main>Plumbing services in the Pacific Northwest.</main></body></html>`
	v := &Verifier{
		FetchOptions: staticSiteOptions(html),
		LLM:          &fakeLLM{response: `{"match": true, "confidence": 97, "reason": "name and area match"}`},
	}

	conf, ok, err := v.Verify(context.Background(), verifyCompany, "acmeplumbing.com", 60)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, verifyMaxConfidence, conf, "a deep-verified domain never outranks a phone match")
}

func TestVerify_LLMDenialDiscards(t *testing.T) {
	html := `<html><body><main>Unrelated crafts blog.</main></body></html>`
	v := &Verifier{
		FetchOptions: staticSiteOptions(html),
		LLM:          &fakeLLM{response: `{"match": false, "confidence": 10, "reason": "different business"}`},
	}

	_, ok, err := v.Verify(context.Background(), verifyCompany, "crafts.example.com", 60)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_LLMFailureFallsBackToRules(t *testing.T) {
	html := `<html><body><main>Welcome to Acme Plumbing of Seattle.</main></body></html>`
	v := &Verifier{
		FetchOptions: staticSiteOptions(html),
		LLM:          &fakeLLM{err: errors.New("quota exceeded")},
	}

	conf, ok, err := v.Verify(context.Background(), verifyCompany, "acmeplumbing.com", 60)

	require.NoError(t, err)
	assert.True(t, ok, "rule judge confirms on company name in page text")
	assert.Equal(t, 75, conf, "base 60 plus the rule-judge bump")
}

func TestVerify_UnreachableDomainErrors(t *testing.T) {
	v := &Verifier{FetchOptions: unreachableSiteOptions()}

	_, _, err := v.Verify(context.Background(), verifyCompany, "acmeplumbing.com", 60)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "deep verification fetch failed")
}

func TestRuleJudge(t *testing.T) {
	assert.True(t, ruleJudge(verifyCompany, "Welcome to acme plumbing, Seattle's best.", pageEvidence{}))
	assert.True(t, ruleJudge(verifyCompany, "Visit us at 123 Main St, Seattle WA 98101.", pageEvidence{}),
		"address token overlap confirms without the name")
	assert.False(t, ruleJudge(verifyCompany, "A blog about sourdough.", pageEvidence{}))
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, verifyMinConfidence, clampConfidence(10))
	assert.Equal(t, 80, clampConfidence(80))
	assert.Equal(t, verifyMaxConfidence, clampConfidence(120))
}

func TestExtractEvidence(t *testing.T) {
	ev := extractEvidence("Call (206) 555-0100 or (425) 555-0199 for service.")
	assert.Len(t, ev.phones, 2)

	ev = extractEvidence("No numbers here.")
	assert.Empty(t, ev.phones)
}
