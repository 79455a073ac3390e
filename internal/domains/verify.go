package domains

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/outreach-labs/contact-pipeline/internal/fetch"
	"github.com/outreach-labs/contact-pipeline/internal/llm"
	"github.com/outreach-labs/contact-pipeline/internal/scoring"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// Confidence bounds for a deep-verification confirmation.
const (
	verifyMinConfidence = 70
	verifyMaxConfidence = 90
)

var pagePhonePattern = regexp.MustCompile(`(\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)

// Verifier performs the deep-verification stage: fetch the candidate domain's
// pages, extract phone and address evidence, and have a judge confirm or deny
// that the site belongs to the company. The judge is an LLM when configured,
// with a deterministic rule-based fallback so the stage degrades rather than
// disappears when no API key is present.
type Verifier struct {
	LLM          llm.Client
	FetchOptions *fetch.Options
}

// judgment is the JSON shape the LLM judge returns.
type judgment struct {
	Match      bool   `json:"match"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

// Verify fetches the candidate domain and decides whether it belongs to the
// company. A confirmed candidate returns an adjusted confidence in [70,90];
// a denied candidate returns ok=false and must be discarded. baseConfidence
// anchors the adjustment so a barely-gray candidate does not outrank one that
// arrived nearly auto-accepted.
func (v *Verifier) Verify(ctx context.Context, company types.CompanyRecord, domain string, baseConfidence int) (confidence int, ok bool, err error) {
	pageText, html, fetchErr := v.fetchEvidence(ctx, domain)
	if fetchErr != nil {
		return 0, false, fetchErr
	}
	if IsParkingPage(html) {
		return 0, false, nil
	}

	evidence := extractEvidence(pageText)

	// Hard phone evidence decides on its own: a page printing the company's
	// phone is the company's page.
	if company.Phone != "" {
		want := scoring.NormalizePhone(company.Phone)
		for _, p := range evidence.phones {
			if want != "" && scoring.NormalizePhone(p) == want {
				return verifyMaxConfidence, true, nil
			}
		}
	}

	if v.LLM != nil {
		if conf, matched, jerr := v.judgeLLM(ctx, company, domain, pageText, evidence); jerr == nil {
			if !matched {
				return 0, false, nil
			}
			return clampConfidence(conf), true, nil
		}
		// LLM failure falls through to the rule-based judge.
	}

	if ruleJudge(company, pageText, evidence) {
		conf := baseConfidence + 15
		return clampConfidence(conf), true, nil
	}
	return 0, false, nil
}

// pageEvidence is the structured signal pulled from fetched page text.
type pageEvidence struct {
	phones []string
}

func extractEvidence(text string) pageEvidence {
	return pageEvidence{
		phones: pagePhonePattern.FindAllString(text, 5),
	}
}

// fetchEvidence retrieves the candidate domain's homepage and contact page,
// returning concatenated extracted text plus raw HTML for the parking check.
func (v *Verifier) fetchEvidence(ctx context.Context, domain string) (text, html string, err error) {
	var texts []string
	var htmls []string
	var lastErr error

	for _, path := range []string{"/", "/contact"} {
		result, ferr := fetch.URL(ctx, "https://"+domain+path, v.FetchOptions)
		if ferr != nil {
			lastErr = ferr
			continue
		}
		htmls = append(htmls, result.HTML)
		if t, terr := fetch.ExtractMainText(result.HTML, fetch.ContactPageSelectors()); terr == nil {
			texts = append(texts, t)
		}
	}

	if len(htmls) == 0 {
		return "", "", fmt.Errorf("deep verification fetch failed for %s: %w", domain, lastErr)
	}
	return strings.Join(texts, "\n"), strings.Join(htmls, "\n"), nil
}

// judgeLLM asks the model whether the page belongs to the company. The prompt
// pins the response to a strict JSON shape so parsing stays trivial.
func (v *Verifier) judgeLLM(ctx context.Context, company types.CompanyRecord, domain, pageText string, ev pageEvidence) (int, bool, error) {
	if len(pageText) > 4000 {
		pageText = pageText[:4000]
	}

	prompt := fmt.Sprintf(`You are verifying whether a website belongs to a specific business.

Business name: %s
Business phone: %s
Business address: %s
Candidate domain: %s
Phone numbers found on the page: %s

Page text:
%s

Does this website belong to this business? Respond with JSON only:
{"match": true/false, "confidence": 0-100, "reason": "one sentence"}`,
		company.Name, company.Phone, company.Address, domain,
		strings.Join(ev.phones, ", "), pageText)

	raw, err := v.LLM.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return 0, false, err
	}

	var j judgment
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &j); err != nil {
		return 0, false, fmt.Errorf("judge returned unparseable JSON: %w", err)
	}
	return j.Confidence, j.Match, nil
}

// ruleJudge is the deterministic fallback: confirm when the page text names
// the company or shares enough address tokens with the input record.
func ruleJudge(company types.CompanyRecord, pageText string, ev pageEvidence) bool {
	lower := strings.ToLower(pageText)

	if strings.Contains(lower, strings.ToLower(strings.TrimSpace(company.Name))) {
		return true
	}

	if company.Address != "" {
		tokens := strings.Fields(strings.ToLower(company.Address))
		matched := 0
		for _, tok := range tokens {
			tok = strings.Trim(tok, ",.")
			if len(tok) >= 3 && strings.Contains(lower, tok) {
				matched++
			}
		}
		if len(tokens) > 0 && float64(matched)/float64(len(tokens)) >= 0.6 {
			return true
		}
	}
	return false
}

func clampConfidence(c int) int {
	if c < verifyMinConfidence {
		return verifyMinConfidence
	}
	if c > verifyMaxConfidence {
		return verifyMaxConfidence
	}
	return c
}
