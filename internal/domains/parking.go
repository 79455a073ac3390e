// Package domains resolves a company name to a verified domain through a
// staged waterfall: verified listings, knowledge-graph search, deep page
// verification, and a manual-review fallback. Each stage either resolves with
// a confidence or defers to the next; the gray-zone policy lives in the
// resolver, not the stages.
package domains

import "strings"

// parkingMarkers are phrases whose presence on a page marks it as a parked or
// for-sale domain. Accepting one of these as a company domain is a correctness
// failure regardless of how confident the upstream match was, so the detector
// runs before any acceptance and its verdict is not negotiable.
var parkingMarkers = []string{
	"this domain is for sale",
	"domain is for sale",
	"buy this domain",
	"purchase this domain",
	"make an offer on this domain",
	"domain may be for sale",
	"this domain has expired",
	"domain name parking",
	"parked free, courtesy of",
	"this web page is parked",
	"related searches",
	"sedo domain parking",
	"hugedomains.com",
	"afternic.com",
	"dan.com is the",
	"premium domain",
	"domain broker",
}

// parkingHosts are registrar lots; a candidate domain redirecting to or hosted
// on one of these is parked by definition.
var parkingHosts = []string{
	"sedoparking.com",
	"parkingcrew.net",
	"hugedomains.com",
	"afternic.com",
	"dan.com",
	"bodis.com",
	"above.com",
	"undeveloped.com",
}

// IsParkingPage reports whether the page content matches a known parking or
// for-sale marker. Matching is case-insensitive over the raw HTML so markers
// inside scripts and meta tags are caught too.
func IsParkingPage(html string) bool {
	if html == "" {
		return false
	}
	lower := strings.ToLower(html)
	for _, marker := range parkingMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	for _, host := range parkingHosts {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}
