package connectors

import (
	"context"
	"regexp"
	"strings"

	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// OSINTReliability sits mid-table: open-web mentions name real people but
// snippets conflate owners, customers, and reporters.
const OSINTReliability = 0.65

// OSINTUnitCost approximates one programmable-search query.
const OSINTUnitCost = 0.005

// ownerMention matches "NAME, owner of" / "NAME is the founder of" style
// phrasings in search snippets. Capture group 1 is the person, group 2 the
// role word.
var ownerMention = regexp.MustCompile(
	`([A-Z][a-z]+(?: [A-Z]\.?)? [A-Z][a-z]+),? (?:is |was )?(?:the )?(owner|founder|co-founder|president|ceo|manager|director)\b`)

// OSINTConnector searches the open web for news, permits, and review mentions
// naming the people behind a company.
type OSINTConnector struct {
	Client *SearchClient
}

func (o *OSINTConnector) Tag() types.SourceTag       { return types.SourceOSINT }
func (o *OSINTConnector) ReliabilityWeight() float64 { return OSINTReliability }
func (o *OSINTConnector) UnitCost() float64          { return OSINTUnitCost }

// Fetch queries the open web for owner/founder mentions of the company and
// extracts name+title pairs from result snippets.
func (o *OSINTConnector) Fetch(ctx context.Context, company types.CompanyRecord) ([]types.Candidate, error) {
	query := `"` + company.Name + `" (owner OR founder OR president) `
	if company.Address != "" {
		query += quoteCityToken(company.Address)
	}

	results, err := o.Client.Search(ctx, types.SourceOSINT, strings.TrimSpace(query), 10)
	if err != nil {
		return nil, err
	}

	var candidates []types.Candidate
	for _, r := range results {
		text := r.Title + ". " + r.Snippet
		for _, m := range ownerMention.FindAllStringSubmatch(text, 3) {
			candidates = append(candidates, types.Candidate{
				Source: types.SourceOSINT,
				Name:   strings.TrimSpace(m[1]),
				Title:  strings.ToLower(m[2]),
			})
		}
	}
	return dedupeCandidates(candidates), nil
}

// quoteCityToken pulls the city portion of a street address to narrow the
// query without over-constraining it.
func quoteCityToken(address string) string {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return ""
	}
	city := strings.TrimSpace(parts[len(parts)-2])
	if city == "" {
		return ""
	}
	return `"` + city + `"`
}
