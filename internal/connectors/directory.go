package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// DirectoryReliability is the highest prior of any source: registry filings
// are legal documents naming real registered agents and officers.
const DirectoryReliability = 0.95

// DirectoryUnitCost approximates one registry API lookup.
const DirectoryUnitCost = 0.02

// DirectoryClient queries a business-registry aggregation API for officer and
// registered-agent filings. The API returns OpenCorporates-style JSON.
type DirectoryClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewDirectoryClient creates a client with production defaults.
func NewDirectoryClient(apiKey, baseURL string) *DirectoryClient {
	return &DirectoryClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
	}
}

type directoryResponse struct {
	Companies []struct {
		Name     string `json:"name"`
		Officers []struct {
			Name     string `json:"name"`
			Position string `json:"position"`
			Phone    string `json:"phone,omitempty"`
			Email    string `json:"email,omitempty"`
		} `json:"officers"`
	} `json:"companies"`
}

// Officers looks up registry filings for the company and returns the raw
// response. Jurisdiction comes from the company address when parseable.
func (c *DirectoryClient) Officers(ctx context.Context, company types.CompanyRecord) (*directoryResponse, error) {
	q := url.Values{}
	q.Set("q", company.Name)
	if city := quoteCityToken(company.Address); city != "" {
		q.Set("jurisdiction_hint", company.Address)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/v1/companies/search?"+q.Encode(), nil)
	if err != nil {
		return nil, unavailable(types.SourceDirectory, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, unavailable(types.SourceDirectory, "HTTP request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, unavailable(types.SourceDirectory, "rate limited", nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, unavailable(types.SourceDirectory, "authentication failed", nil)
	case resp.StatusCode == http.StatusNotFound:
		return &directoryResponse{}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, unavailable(types.SourceDirectory, fmt.Sprintf("HTTP status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(types.SourceDirectory, "failed to read response", err)
	}
	var out directoryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, unavailable(types.SourceDirectory, "failed to parse response", err)
	}
	return &out, nil
}

// DirectoryConnector adapts registry lookups to the Connector contract.
type DirectoryConnector struct {
	Client *DirectoryClient
}

func (d *DirectoryConnector) Tag() types.SourceTag       { return types.SourceDirectory }
func (d *DirectoryConnector) ReliabilityWeight() float64 { return DirectoryReliability }
func (d *DirectoryConnector) UnitCost() float64          { return DirectoryUnitCost }

// Fetch converts officer filings into candidates. Registered agents that are
// service companies rather than people survive here; the scorer's
// company-name guard rejects them downstream.
func (d *DirectoryConnector) Fetch(ctx context.Context, company types.CompanyRecord) ([]types.Candidate, error) {
	resp, err := d.Client.Officers(ctx, company)
	if err != nil {
		return nil, err
	}

	var candidates []types.Candidate
	for _, co := range resp.Companies {
		for _, officer := range co.Officers {
			candidates = append(candidates, types.Candidate{
				Source: types.SourceDirectory,
				Name:   officer.Name,
				Title:  officer.Position,
				Phone:  officer.Phone,
				Email:  officer.Email,
			})
		}
	}
	return dedupeCandidates(candidates), nil
}
