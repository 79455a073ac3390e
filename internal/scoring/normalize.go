package scoring

import (
	"strings"
)

// genericEmailProviders are consumer mail domains. An email on one of these
// still counts as a contact method but earns almost no score: it cannot
// corroborate company affiliation.
var genericEmailProviders = map[string]bool{
	"gmail.com":      true,
	"yahoo.com":      true,
	"hotmail.com":    true,
	"outlook.com":    true,
	"aol.com":        true,
	"icloud.com":     true,
	"live.com":       true,
	"msn.com":        true,
	"protonmail.com": true,
	"proton.me":      true,
	"ymail.com":      true,
	"me.com":         true,
	"mac.com":        true,
	"comcast.net":    true,
	"att.net":        true,
	"verizon.net":    true,
}

// strongTitles mark clear decision-makers.
var strongTitles = map[string]bool{
	"owner":      true,
	"ceo":        true,
	"founder":    true,
	"co-founder": true,
	"cofounder":  true,
	"president":  true,
}

// weakTitles are recognized but less decisive.
var weakTitles = map[string]bool{
	"manager":          true,
	"general manager":  true,
	"office manager":   true,
	"director":         true,
	"vp":               true,
	"vice president":   true,
	"coo":              true,
	"cfo":              true,
	"cto":              true,
	"partner":          true,
	"principal":        true,
	"managing partner": true,
}

// TitleClass buckets a raw title string for scoring.
type TitleClass int

const (
	TitleNone TitleClass = iota
	TitleUnrecognized
	TitleWeak
	TitleStrong
)

// ClassifyTitle maps a free-text title onto a TitleClass. Matching is
// case-insensitive and tolerates compound titles ("Owner / Operator").
func ClassifyTitle(title string) TitleClass {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return TitleNone
	}
	if strongTitles[title] || weakTitles[title] {
		if strongTitles[title] {
			return TitleStrong
		}
		return TitleWeak
	}
	// Compound titles: any strong token wins, then any weak token.
	for _, part := range strings.FieldsFunc(title, func(r rune) bool {
		return r == '/' || r == ',' || r == '&' || r == '-' || r == ' '
	}) {
		if strongTitles[part] {
			return TitleStrong
		}
	}
	for _, part := range strings.FieldsFunc(title, func(r rune) bool {
		return r == '/' || r == ','
	}) {
		if weakTitles[strings.TrimSpace(part)] {
			return TitleWeak
		}
	}
	return TitleUnrecognized
}

// NormalizePhone reduces a phone string to its significant digits: all
// non-digits stripped, then the last 10 digits (drops country code noise).
// Returns "" for strings with fewer than 7 digits.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < 7 {
		return ""
	}
	if len(d) > 10 {
		d = d[len(d)-10:]
	}
	return d
}

// EmailDomain extracts the lowercased domain of an email address, or "".
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

// IsGenericEmailDomain reports whether the domain is a consumer provider.
func IsGenericEmailDomain(domain string) bool {
	return genericEmailProviders[strings.ToLower(domain)]
}

// sameDomain compares two domains ignoring case and a www. prefix.
func sameDomain(a, b string) bool {
	trim := func(s string) string {
		return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "www.")
	}
	ta, tb := trim(a), trim(b)
	return ta != "" && ta == tb
}
