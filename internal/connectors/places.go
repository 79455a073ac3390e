package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// placesBaseURL is the Google Places API endpoint. Overridable for tests.
const placesBaseURL = "https://maps.googleapis.com/maps/api/place"

// PlacesReliability is the empirical reliability weight for verified map
// listings: the highest-yield source after business registries.
const PlacesReliability = 0.9

// PlacesUnitCost approximates one text-search + details call pair.
const PlacesUnitCost = 0.049

// Listing is a raw map/places result. The domain waterfall consumes listings
// directly (phone matching); the contact connector converts them into
// candidates.
type Listing struct {
	Name             string `json:"name"`
	FormattedPhone   string `json:"formatted_phone_number"`
	FormattedAddress string `json:"formatted_address"`
	Website          string `json:"website"`
	BusinessStatus   string `json:"business_status"`
	PlaceID          string `json:"place_id"`
}

// PlacesClient queries the places API for business listings.
type PlacesClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewPlacesClient creates a client with production defaults.
func NewPlacesClient(apiKey string) *PlacesClient {
	return &PlacesClient{
		APIKey:     apiKey,
		BaseURL:    placesBaseURL,
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// Listings searches for business listings matching the company name, using
// the address as a location bias when present.
func (c *PlacesClient) Listings(ctx context.Context, company types.CompanyRecord) ([]Listing, error) {
	query := company.Name
	if company.Address != "" {
		query += " " + company.Address
	}

	searchURL := fmt.Sprintf("%s/textsearch/json?query=%s&key=%s",
		c.BaseURL, url.QueryEscape(query), url.QueryEscape(c.APIKey))

	var search struct {
		Status  string `json:"status"`
		Results []struct {
			PlaceID          string `json:"place_id"`
			Name             string `json:"name"`
			FormattedAddress string `json:"formatted_address"`
			BusinessStatus   string `json:"business_status"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, searchURL, &search); err != nil {
		return nil, err
	}
	switch search.Status {
	case "OK", "ZERO_RESULTS":
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return nil, unavailable(types.SourcePlaces, "places API "+search.Status, nil)
	case "REQUEST_DENIED", "INVALID_REQUEST":
		return nil, unavailable(types.SourcePlaces, "places API "+search.Status, nil)
	}

	// Details lookup for the top few results only; each costs a call.
	limit := 3
	if len(search.Results) < limit {
		limit = len(search.Results)
	}

	listings := make([]Listing, 0, limit)
	for _, r := range search.Results[:limit] {
		detailURL := fmt.Sprintf("%s/details/json?place_id=%s&fields=name,formatted_phone_number,formatted_address,website,business_status&key=%s",
			c.BaseURL, url.QueryEscape(r.PlaceID), url.QueryEscape(c.APIKey))

		var detail struct {
			Status string  `json:"status"`
			Result Listing `json:"result"`
		}
		if err := c.getJSON(ctx, detailURL, &detail); err != nil {
			return nil, err
		}
		if detail.Status != "OK" {
			continue
		}
		detail.Result.PlaceID = r.PlaceID
		listings = append(listings, detail.Result)
	}

	return listings, nil
}

func (c *PlacesClient) getJSON(ctx context.Context, urlStr string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return unavailable(types.SourcePlaces, "failed to create request", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return unavailable(types.SourcePlaces, "HTTP request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return unavailable(types.SourcePlaces, "rate limited", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return unavailable(types.SourcePlaces, fmt.Sprintf("HTTP status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return unavailable(types.SourcePlaces, "failed to read response", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return unavailable(types.SourcePlaces, "failed to parse response", err)
	}
	return nil
}

// PlacesConnector adapts the places client to the Connector contract.
// Listings frequently put the business name in the contact-name position;
// the scorer's company-name guard is responsible for catching those.
type PlacesConnector struct {
	Client *PlacesClient
}

func (p *PlacesConnector) Tag() types.SourceTag       { return types.SourcePlaces }
func (p *PlacesConnector) ReliabilityWeight() float64 { return PlacesReliability }
func (p *PlacesConnector) UnitCost() float64          { return PlacesUnitCost }

// Fetch converts listings into raw candidates.
func (p *PlacesConnector) Fetch(ctx context.Context, company types.CompanyRecord) ([]types.Candidate, error) {
	listings, err := p.Client.Listings(ctx, company)
	if err != nil {
		return nil, err
	}

	candidates := make([]types.Candidate, 0, len(listings))
	for _, l := range listings {
		if l.BusinessStatus != "" && l.BusinessStatus != "OPERATIONAL" {
			continue
		}
		candidates = append(candidates, types.Candidate{
			Source:            types.SourcePlaces,
			Name:              l.Name,
			Phone:             l.FormattedPhone,
			CompanyDomainHint: domainFromURL(l.Website),
		})
	}
	return candidates, nil
}

// domainFromURL extracts a bare hostname from a URL string.
func domainFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimPrefix(strings.Split(raw, "/")[0], "www.")
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
