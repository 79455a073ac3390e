// Package fuzzy provides string similarity and company-name heuristics used by
// the domain resolver (candidate domain vs. registered business name) and the
// contact scorer (rejecting business names that masquerade as people).
//
// Heuristic suffix lists plus token overlap are used instead of NER because the
// inputs are short, noisy business-listing strings and the scorer's tests need
// deterministic behavior.
package fuzzy

import (
	"strings"
	"unicode"
)

// legalSuffixes are tokens that mark a string as a business entity rather than
// a person. Matched against individual lowercased tokens with punctuation
// stripped, so "Bros." and "bros" both hit.
var legalSuffixes = map[string]bool{
	"llc":          true,
	"inc":          true,
	"corp":         true,
	"corporation":  true,
	"ltd":          true,
	"limited":      true,
	"co":           true,
	"company":      true,
	"bros":         true,
	"brothers":     true,
	"services":     true,
	"service":      true,
	"construction": true,
	"enterprises":  true,
	"group":        true,
	"holdings":     true,
	"solutions":    true,
	"plumbing":     true,
	"roofing":      true,
	"landscaping":  true,
	"contracting":  true,
	"electric":     true,
	"hvac":         true,
}

// tokenOverlapThreshold is the share of company-name tokens that must appear
// in the candidate name for the two to be considered the same entity.
const tokenOverlapThreshold = 0.8

// Matcher compares strings with an optional industry-specific suffix list
// layered on top of the built-in legal-entity suffixes.
type Matcher struct {
	extraSuffixes map[string]bool
}

// NewMatcher creates a Matcher. industrySuffixes extends the built-in
// legal-entity suffix list (e.g. "towing", "excavating" for a trades vertical).
func NewMatcher(industrySuffixes []string) *Matcher {
	extra := make(map[string]bool, len(industrySuffixes))
	for _, s := range industrySuffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			extra[s] = true
		}
	}
	return &Matcher{extraSuffixes: extra}
}

// Similarity returns a similarity score in [0, 1] between two strings.
// It takes the max of token-set overlap and normalized edit distance, both
// computed on lowercased, punctuation-stripped forms.
func Similarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	jaccard := tokenJaccard(tokenize(na), tokenize(nb))
	edit := editRatio(na, nb)
	if jaccard > edit {
		return jaccard
	}
	return edit
}

// IsCompanyName reports whether candidateName is (a variant of) the company
// name rather than a person. This check is load-bearing: a business name that
// slips through here reaches the scorer as a plausible decision-maker.
func (m *Matcher) IsCompanyName(candidateName, companyName string) bool {
	cand := normalize(candidateName)
	comp := normalize(companyName)
	if cand == "" || comp == "" {
		return false
	}

	// Exact match, case-insensitive.
	if cand == comp {
		return true
	}

	// Substring containment in either direction.
	if strings.Contains(cand, comp) || strings.Contains(comp, cand) {
		return true
	}

	// Legal-entity or industry suffix anywhere in the candidate name.
	for _, tok := range tokenize(cand) {
		if legalSuffixes[tok] || m.extraSuffixes[tok] {
			return true
		}
	}

	// Token overlap: most of the company-name tokens appear in the candidate.
	compTokens := tokenize(comp)
	if len(compTokens) == 0 {
		return false
	}
	candSet := make(map[string]bool)
	for _, tok := range tokenize(cand) {
		candSet[tok] = true
	}
	present := 0
	for _, tok := range compTokens {
		if candSet[tok] {
			present++
		}
	}
	return float64(present)/float64(len(compTokens)) >= tokenOverlapThreshold
}

// normalize lowercases and strips punctuation, collapsing runs of whitespace.
func normalize(s string) string {
	var sb strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			sb.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(sb.String())
}

func tokenize(s string) []string {
	return strings.Fields(s)
}

func tokenJaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}
	inter := 0
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// editRatio is 1 - levenshtein(a,b)/max(len(a),len(b)).
func editRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
