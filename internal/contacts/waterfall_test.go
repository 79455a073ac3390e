package contacts

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outreach-labs/contact-pipeline/internal/connectors"
	"github.com/outreach-labs/contact-pipeline/internal/fuzzy"
	"github.com/outreach-labs/contact-pipeline/internal/scoring"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// stubConnector returns fixed candidates or a fixed error and counts calls.
type stubConnector struct {
	tag        types.SourceTag
	candidates []types.Candidate
	err        error
	calls      atomic.Int64
}

func (s *stubConnector) Tag() types.SourceTag       { return s.tag }
func (s *stubConnector) ReliabilityWeight() float64 { return reliabilityFor(s.tag) }
func (s *stubConnector) UnitCost() float64          { return 0.01 }

func (s *stubConnector) Fetch(_ context.Context, _ types.CompanyRecord) ([]types.Candidate, error) {
	s.calls.Add(1)
	return s.candidates, s.err
}

func reliabilityFor(tag types.SourceTag) float64 {
	switch tag {
	case types.SourcePlaces:
		return 0.9
	case types.SourceDirectory:
		return 0.95
	case types.SourceSocial:
		return 0.8
	case types.SourceOSINT:
		return 0.65
	default:
		return 0.3
	}
}

func newTestWaterfall(conns ...connectors.Connector) *Waterfall {
	reliability := make(map[types.SourceTag]float64, len(conns))
	for _, c := range conns {
		reliability[c.Tag()] = c.ReliabilityWeight()
	}
	return &Waterfall{
		Connectors: conns,
		Caller:     &connectors.Caller{},
		Scorer:     scoring.NewScorer(fuzzy.NewMatcher(nil), reliability, 0),
	}
}

var acme = types.CompanyRecord{ID: "c1", Name: "Acme Plumbing", Domain: "acmeplumbing.com"}

func sourceUnavailable(tag types.SourceTag) error {
	return &connectors.SourceUnavailableError{Source: tag, Message: "down for test"}
}

func TestResolve_EarlyExitSkipsRemainingConnectors(t *testing.T) {
	places := &stubConnector{
		tag: types.SourcePlaces,
		candidates: []types.Candidate{{
			Source: types.SourcePlaces,
			Name:   "Jane Smith",
			Title:  "Owner",
			Phone:  "206-555-0100",
			Email:  "jane@acmeplumbing.com",
		}},
	}
	social := &stubConnector{tag: types.SourceSocial}

	res := newTestWaterfall(places, social).Resolve(context.Background(), acme)

	assert.True(t, res.EarlyExit)
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "Jane Smith", res.Contacts[0].Candidate.Name)
	assert.Equal(t, int64(0), social.calls.Load(), "early exit must not invoke the remaining connectors")
	assert.Equal(t, []string{"contact_places_listing"}, res.StagesAttempted)
	assert.InDelta(t, 0.01, res.Cost, 1e-9)
}

func TestResolve_NoEarlyExitWithoutStrongTitle(t *testing.T) {
	places := &stubConnector{
		tag: types.SourcePlaces,
		candidates: []types.Candidate{{
			Source: types.SourcePlaces,
			Name:   "Jane Smith",
			Title:  "Office Manager",
			Phone:  "206-555-0100",
			Email:  "jane@acmeplumbing.com",
		}},
	}
	social := &stubConnector{
		tag: types.SourceSocial,
		candidates: []types.Candidate{{
			Source: types.SourceSocial,
			Name:   "Bob Jones",
			Title:  "Owner",
			Phone:  "206-555-0199",
		}},
	}

	res := newTestWaterfall(places, social).Resolve(context.Background(), acme)

	assert.False(t, res.EarlyExit)
	assert.Equal(t, int64(1), social.calls.Load())
	assert.Len(t, res.Contacts, 2, "both candidates validate in the joint pass")
	assert.Equal(t, []string{"contact_places_listing", "contact_social_search"}, res.StagesAttempted)
}

func TestResolve_JointScoringAppliesCorroboration(t *testing.T) {
	// The website candidate shares the OSINT candidate's phone, so the joint
	// pass grants a corroboration bonus neither would earn alone.
	osint := &stubConnector{
		tag: types.SourceOSINT,
		candidates: []types.Candidate{{
			Source: types.SourceOSINT,
			Name:   "Bob Jones",
			Title:  "Owner",
			Phone:  "206-555-0100",
		}},
	}
	website := &stubConnector{
		tag: types.SourceWebsite,
		candidates: []types.Candidate{{
			Source: types.SourceWebsite,
			Phone:  "206 555 0100",
			Email:  "info@acmeplumbing.com",
		}},
	}

	res := newTestWaterfall(osint, website).Resolve(context.Background(), acme)

	require.NotEmpty(t, res.Contacts)
	top := res.Contacts[0]
	assert.Equal(t, "Bob Jones", top.Candidate.Name)
	assert.Contains(t, top.Reasons, "+10 corroborated by 1 candidate(s)")
}

func TestResolve_AllConnectorsFailing(t *testing.T) {
	places := &stubConnector{tag: types.SourcePlaces, err: sourceUnavailable(types.SourcePlaces)}
	social := &stubConnector{tag: types.SourceSocial, err: sourceUnavailable(types.SourceSocial)}

	res := newTestWaterfall(places, social).Resolve(context.Background(), acme)

	assert.True(t, res.AllFailed)
	assert.Empty(t, res.Contacts)
	assert.Len(t, res.Errors, 2)
}

func TestResolve_PartialFailureIsNotAllFailed(t *testing.T) {
	places := &stubConnector{tag: types.SourcePlaces, err: sourceUnavailable(types.SourcePlaces)}
	directory := &stubConnector{
		tag: types.SourceDirectory,
		candidates: []types.Candidate{{
			Source: types.SourceDirectory,
			Name:   "Jane Smith",
			Title:  "President",
			Email:  "jane@acmeplumbing.com",
		}},
	}

	res := newTestWaterfall(places, directory).Resolve(context.Background(), acme)

	assert.False(t, res.AllFailed)
	assert.Len(t, res.Errors, 1)
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "Jane Smith", res.Contacts[0].Candidate.Name)
}

func TestResolve_GrayZoneGoesToNeedsReview(t *testing.T) {
	// A weak title with no email from a low-reliability source lands between
	// the review floor and the validity threshold.
	website := &stubConnector{
		tag: types.SourceWebsite,
		candidates: []types.Candidate{{
			Source: types.SourceWebsite,
			Name:   "Madge Harvey",
			Phone:  "206-555-0100",
			Title:  "Office Manager",
		}},
	}

	res := newTestWaterfall(website).Resolve(context.Background(), acme)

	assert.Empty(t, res.Contacts)
	require.Len(t, res.NeedsReview, 1)
	assert.Equal(t, "Madge Harvey", res.NeedsReview[0].Candidate.Name)
}

func TestResolve_ZeroCandidatesEverywhere(t *testing.T) {
	places := &stubConnector{tag: types.SourcePlaces}
	social := &stubConnector{tag: types.SourceSocial}

	res := newTestWaterfall(places, social).Resolve(context.Background(), acme)

	assert.False(t, res.AllFailed, "zero candidates is a valid outcome, not a failure")
	assert.Empty(t, res.Contacts)
	assert.Empty(t, res.NeedsReview)
	assert.Len(t, res.StagesAttempted, 2)
}
