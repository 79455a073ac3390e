package connectors

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/outreach-labs/contact-pipeline/internal/fetch"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// WebsiteReliability is low on purpose: contact pages are dominated by
// generic role emails (info@, office@) that rarely name a decision-maker.
const WebsiteReliability = 0.3

// WebsiteUnitCost reflects bandwidth only; scraping is nearly free.
const WebsiteUnitCost = 0.001

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`(\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)

	// roleEmailPrefixes are generic mailbox names that carry no person.
	roleEmailPrefixes = map[string]bool{
		"info": true, "contact": true, "office": true, "sales": true,
		"support": true, "admin": true, "hello": true, "mail": true,
		"team": true, "service": true, "billing": true, "jobs": true,
	}
)

// WebsiteConnector scrapes the company's own site for contact information.
// It probes common contact-page paths and parses page text plus schema.org
// markup. UseBrowser enables a headless-browser fallback for SPA sites.
type WebsiteConnector struct {
	FetchOptions *fetch.Options
	UseBrowser   bool
	MaxPages     int
}

func (w *WebsiteConnector) Tag() types.SourceTag       { return types.SourceWebsite }
func (w *WebsiteConnector) ReliabilityWeight() float64 { return WebsiteReliability }
func (w *WebsiteConnector) UnitCost() float64          { return WebsiteUnitCost }

// Fetch scrapes contact pages on the company's domain. A company without a
// resolved domain yields zero candidates; that is data absence, not failure.
func (w *WebsiteConnector) Fetch(ctx context.Context, company types.CompanyRecord) ([]types.Candidate, error) {
	if company.Domain == "" {
		return nil, nil
	}

	maxPages := w.MaxPages
	if maxPages <= 0 {
		maxPages = 3
	}

	var candidates []types.Candidate
	fetched := 0
	var lastErr error

	for _, path := range fetch.ContactPagePaths() {
		if fetched >= maxPages {
			break
		}
		pageURL := "https://" + company.Domain + path

		result, err := fetch.URL(ctx, pageURL, w.FetchOptions)
		if err != nil {
			if ctx.Err() != nil {
				return nil, unavailable(types.SourceWebsite, "fetch cancelled", ctx.Err())
			}
			lastErr = err
			continue
		}
		fetched++

		html := result.HTML
		if w.UseBrowser {
			if text, _ := fetch.ExtractMainText(html, fetch.ContactPageSelectors()); fetch.ShouldUseBrowser(text) {
				if rendered, berr := fetch.WithBrowser(ctx, pageURL, fetch.DefaultTimeout); berr == nil {
					html = rendered
				}
			}
		}

		pageCandidates := w.parsePage(html, company)
		candidates = append(candidates, pageCandidates...)

		// The dedicated contact page usually has everything; stop early
		// once a page produced candidates.
		if len(pageCandidates) > 0 {
			break
		}
	}

	if fetched == 0 && lastErr != nil {
		// Every probe failed at the transport level: the site is down or
		// unreachable, which is an infrastructure outcome.
		return nil, unavailable(types.SourceWebsite, "all contact-page fetches failed", lastErr)
	}

	return dedupeCandidates(candidates), nil
}

// parsePage extracts contact candidates from one page's HTML.
func (w *WebsiteConnector) parsePage(html string, company types.CompanyRecord) []types.Candidate {
	var candidates []types.Candidate

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	// schema.org Person markup is the highest-precision signal on a page.
	doc.Find(`[itemtype*="schema.org/Person"]`).Each(func(_ int, sel *goquery.Selection) {
		cand := types.Candidate{
			Source:            types.SourceWebsite,
			Name:              strings.TrimSpace(sel.Find(`[itemprop="name"]`).First().Text()),
			Title:             strings.TrimSpace(sel.Find(`[itemprop="jobTitle"]`).First().Text()),
			Email:             cleanEmail(sel.Find(`[itemprop="email"]`).First().Text()),
			Phone:             strings.TrimSpace(sel.Find(`[itemprop="telephone"]`).First().Text()),
			CompanyDomainHint: company.Domain,
		}
		if cand.Name != "" || cand.Email != "" {
			candidates = append(candidates, cand)
		}
	})

	// mailto: links carry emails that text regex can miss (obfuscated text).
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		email := cleanEmail(strings.TrimPrefix(href, "mailto:"))
		if email != "" {
			candidates = append(candidates, types.Candidate{
				Source:            types.SourceWebsite,
				Name:              personNameNear(sel),
				Email:             email,
				CompanyDomainHint: company.Domain,
			})
		}
	})

	// Fall back to plain-text extraction over the contact region.
	text, _ := fetch.ExtractMainText(html, fetch.ContactPageSelectors())
	emails := emailPattern.FindAllString(text, 5)
	phones := phonePattern.FindAllString(text, 3)

	phone := ""
	if len(phones) > 0 {
		phone = strings.TrimSpace(phones[0])
	}
	for _, email := range emails {
		candidates = append(candidates, types.Candidate{
			Source:            types.SourceWebsite,
			Name:              nameFromPersonalEmail(email),
			Email:             strings.ToLower(email),
			Phone:             phone,
			CompanyDomainHint: company.Domain,
		})
	}
	if len(emails) == 0 && phone != "" {
		candidates = append(candidates, types.Candidate{
			Source:            types.SourceWebsite,
			Phone:             phone,
			CompanyDomainHint: company.Domain,
		})
	}

	return candidates
}

// personNameNear pulls a short human-looking label from the anchor text or
// its parent element, skipping labels that are just the email again.
func personNameNear(sel *goquery.Selection) string {
	label := strings.TrimSpace(sel.Text())
	if label == "" || strings.Contains(label, "@") {
		label = strings.TrimSpace(sel.Parent().Find("strong, b, h1, h2, h3, h4").First().Text())
	}
	if strings.Contains(label, "@") || len(strings.Fields(label)) > 4 {
		return ""
	}
	return label
}

// nameFromPersonalEmail guesses a person name from a first.last@ style
// mailbox. Generic role mailboxes yield no name.
func nameFromPersonalEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return ""
	}
	local := strings.ToLower(email[:at])
	if roleEmailPrefixes[local] {
		return ""
	}
	parts := strings.FieldsFunc(local, func(r rune) bool { return r == '.' || r == '_' || r == '-' })
	if len(parts) != 2 {
		return ""
	}
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, "0123456789") {
			return ""
		}
	}
	return title(parts[0]) + " " + title(parts[1])
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func cleanEmail(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	if !emailPattern.MatchString(s) {
		return ""
	}
	return s
}

// dedupeCandidates collapses candidates sharing the same email or the same
// name+phone pair, keeping the first (and most complete) occurrence.
func dedupeCandidates(candidates []types.Candidate) []types.Candidate {
	if len(candidates) <= 1 {
		return candidates
	}
	seen := make(map[string]bool, len(candidates))
	out := make([]types.Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(c.Email)
		if key == "" {
			key = strings.ToLower(c.Name) + "|" + c.Phone
		}
		if key == "|" || !seen[key] {
			seen[key] = true
			out = append(out, c)
		}
	}
	return out
}
