package domains

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outreach-labs/contact-pipeline/internal/connectors"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

func newListingServer(t *testing.T, phone, website string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/textsearch/"):
			fmt.Fprint(w, `{"status": "OK", "results": [{"place_id": "p1", "name": "Acme Plumbing", "business_status": "OPERATIONAL"}]}`)
		case strings.Contains(r.URL.Path, "/details/"):
			fmt.Fprintf(w, `{"status": "OK", "result": {
				"name": "Acme Plumbing",
				"formatted_phone_number": %q,
				"website": %q,
				"business_status": "OPERATIONAL"
			}}`, phone, website)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestResolve_PhoneMatchIsTerminal(t *testing.T) {
	srv := newListingServer(t, "(206) 555-0100", "https://www.acmeplumbing.com")
	defer srv.Close()

	r := &Resolver{
		Places:       &connectors.PlacesClient{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()},
		FetchOptions: staticSiteOptions(`<html><body><h1>Acme Plumbing</h1></body></html>`),
	}

	resolved, trace, err := r.Resolve(context.Background(), types.CompanyRecord{
		ID:    "c1",
		Name:  "Acme Plumbing",
		Phone: "+1 206-555-0100",
	})

	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "acmeplumbing.com", resolved.Domain)
	assert.Equal(t, 99, resolved.Confidence)
	assert.Equal(t, "phone_match", resolved.Method)
	assert.True(t, resolved.Verified)
	assert.False(t, resolved.NeedsManualReview)
	assert.Equal(t, []string{StagePlacesLookup}, trace.Stages)
	assert.InDelta(t, connectors.PlacesUnitCost, trace.Cost, 1e-9)
}

func TestResolve_ParkedDomainIsDiscarded(t *testing.T) {
	srv := newListingServer(t, "(206) 555-0100", "https://acmeplumbing.com")
	defer srv.Close()

	r := &Resolver{
		Places:       &connectors.PlacesClient{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()},
		FetchOptions: staticSiteOptions(`<html><body>This domain is for sale.</body></html>`),
	}

	resolved, trace, err := r.Resolve(context.Background(), types.CompanyRecord{
		ID:    "c1",
		Name:  "Acme Plumbing",
		Phone: "206-555-0100",
	})

	require.NoError(t, err)
	assert.Nil(t, resolved, "a parked listing is dropped even on a phone match, not sent to review")
	assert.Contains(t, trace.Stages, StageManualReview)
}

func TestResolve_ParkedGrayZoneCandidateNeverReachesReview(t *testing.T) {
	srv := newListingServer(t, "(206) 555-0100", "https://acmeplumbing.com")
	defer srv.Close()

	// AutoAccept above 99 forces the phone-match candidate down the
	// best-effort path, where the parking gate must still apply.
	r := &Resolver{
		Places:       &connectors.PlacesClient{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()},
		FetchOptions: staticSiteOptions(`<html><body>Buy this domain! Make an offer today.</body></html>`),
		AutoAccept:   100,
	}

	resolved, trace, err := r.Resolve(context.Background(), types.CompanyRecord{
		ID:    "c1",
		Name:  "Acme Plumbing",
		Phone: "206-555-0100",
	})

	require.NoError(t, err)
	assert.Nil(t, resolved)
	assert.Equal(t, []string{StagePlacesLookup, StageManualReview}, trace.Stages)
}

func TestResolve_PhoneMismatchFallsThrough(t *testing.T) {
	srv := newListingServer(t, "(425) 555-0999", "https://acmeplumbing.com")
	defer srv.Close()

	r := &Resolver{
		Places:       &connectors.PlacesClient{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()},
		FetchOptions: unreachableSiteOptions(),
	}

	resolved, trace, err := r.Resolve(context.Background(), types.CompanyRecord{
		ID:    "c1",
		Name:  "Acme Plumbing",
		Phone: "206-555-0100",
	})

	require.NoError(t, err)
	assert.Nil(t, resolved, "a mismatched phone yields no candidate at all")
	assert.Equal(t, []string{StagePlacesLookup, StageManualReview}, trace.Stages)
}

func TestResolve_NothingConfiguredGoesToManualReview(t *testing.T) {
	r := &Resolver{}

	resolved, trace, err := r.Resolve(context.Background(), types.CompanyRecord{ID: "c1", Name: "Acme Plumbing"})

	require.NoError(t, err)
	assert.Nil(t, resolved)
	assert.Equal(t, []string{StageManualReview}, trace.Stages)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "acme.com", hostOf("https://www.acme.com/contact?x=1"))
	assert.Equal(t, "acme.com", hostOf("https://ACME.COM"))
	assert.Equal(t, "acme.com", hostOf("acme.com/about"))
	assert.Equal(t, "", hostOf(""))
}

func TestDomainLabel(t *testing.T) {
	assert.Equal(t, "millersplumbing", domainLabel("millersplumbing.com"))
	assert.Equal(t, "acme", domainLabel("acme.co.uk"))
	assert.Equal(t, "localhost", domainLabel("localhost"))
}

func TestIsAggregator(t *testing.T) {
	assert.True(t, isAggregator("yelp.com"))
	assert.True(t, isAggregator("www2.facebook.com"), "subdomains of aggregators count")
	assert.False(t, isAggregator("acmeplumbing.com"))
}

func TestTitleNamesCompany(t *testing.T) {
	assert.True(t, titleNamesCompany("Acme Plumbing - Seattle's Trusted Plumber", "Acme Plumbing"))
	assert.True(t, titleNamesCompany("ACME PLUMBING | Home", "acme plumbing"))
	assert.False(t, titleNamesCompany("Best Plumbers Near You", "Acme Plumbing"))
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 85, clampInt(80, 85, 98))
	assert.Equal(t, 90, clampInt(90, 85, 98))
	assert.Equal(t, 98, clampInt(120, 85, 98))
}

func TestBetter(t *testing.T) {
	a := candidate{domain: "a.com", confidence: 70}
	b := candidate{domain: "b.com", confidence: 84}
	assert.Equal(t, b, better(a, b))
	assert.Equal(t, b, better(b, a))
	assert.Equal(t, a, better(a, candidate{}))
}
