package connectors

import (
	"context"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// SocialReliability reflects that professional-network profiles are
// self-reported but rarely fabricate the company affiliation outright.
const SocialReliability = 0.8

// SocialUnitCost approximates one programmable-search query.
const SocialUnitCost = 0.005

// SearchClient is the shared programmable-search wrapper used by the social
// and OSINT connectors and by the domain waterfall's knowledge-graph stage.
type SearchClient struct {
	APIKey   string
	EngineID string

	// newService is swapped in tests.
	newService func(ctx context.Context) (*customsearch.Service, error)
}

// NewSearchClient creates a client for Google Programmable Search.
func NewSearchClient(apiKey, engineID string) *SearchClient {
	return &SearchClient{APIKey: apiKey, EngineID: engineID}
}

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string
	Link    string
	Snippet string
}

// Search runs one query and returns up to num results.
func (c *SearchClient) Search(ctx context.Context, source types.SourceTag, query string, num int64) ([]SearchResult, error) {
	build := c.newService
	if build == nil {
		build = func(ctx context.Context) (*customsearch.Service, error) {
			return customsearch.NewService(ctx, option.WithAPIKey(c.APIKey))
		}
	}

	svc, err := build(ctx)
	if err != nil {
		return nil, unavailable(source, "failed to create search service", err)
	}

	if num <= 0 || num > 10 {
		num = 10
	}
	resp, err := svc.Cse.List().Cx(c.EngineID).Q(query).Num(num).Context(ctx).Do()
	if err != nil {
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 429 {
			return nil, unavailable(source, "search API rate limited", err)
		}
		return nil, unavailable(source, "search request failed", err)
	}

	results := make([]SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, SearchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}

// SocialConnector searches professional-network profiles for people tied to
// the company. Profile result titles follow a stable "Name - Title - Company"
// shape that parses without fetching the profile itself.
type SocialConnector struct {
	Client *SearchClient
}

func (s *SocialConnector) Tag() types.SourceTag       { return types.SourceSocial }
func (s *SocialConnector) ReliabilityWeight() float64 { return SocialReliability }
func (s *SocialConnector) UnitCost() float64          { return SocialUnitCost }

// Fetch queries for profiles mentioning the company name, preferring
// decision-maker keywords.
func (s *SocialConnector) Fetch(ctx context.Context, company types.CompanyRecord) ([]types.Candidate, error) {
	query := `site:linkedin.com/in "` + company.Name + `" (owner OR founder OR president OR CEO)`
	results, err := s.Client.Search(ctx, types.SourceSocial, query, 10)
	if err != nil {
		return nil, err
	}

	var candidates []types.Candidate
	for _, r := range results {
		name, title := parseProfileTitle(r.Title)
		if name == "" {
			continue
		}
		candidates = append(candidates, types.Candidate{
			Source:      types.SourceSocial,
			Name:        name,
			Title:       title,
			LinkedInURL: r.Link,
		})
	}
	return dedupeCandidates(candidates), nil
}

// parseProfileTitle splits a profile result title of the form
// "Jane Smith - Owner - Acme Plumbing | LinkedIn" into name and job title.
func parseProfileTitle(raw string) (name, title string) {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, "|"); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}

	parts := strings.Split(raw, " - ")
	if len(parts) == 1 {
		parts = strings.Split(raw, " – ")
	}
	if len(parts) == 0 {
		return "", ""
	}

	name = strings.TrimSpace(parts[0])
	if name == "" || strings.Count(name, " ") > 4 {
		return "", ""
	}
	if len(parts) > 1 {
		title = strings.TrimSpace(parts[1])
	}
	return name, title
}
