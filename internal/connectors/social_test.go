package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProfileTitle(t *testing.T) {
	cases := []struct {
		raw       string
		wantName  string
		wantTitle string
	}{
		{"Jane Smith - Owner - Acme Plumbing | LinkedIn", "Jane Smith", "Owner"},
		{"Jane Smith – Owner – Acme Plumbing | LinkedIn", "Jane Smith", "Owner"},
		{"Bob Jones - President | LinkedIn", "Bob Jones", "President"},
		{"Jane Smith | LinkedIn", "Jane Smith", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		name, title := parseProfileTitle(tc.raw)
		assert.Equal(t, tc.wantName, name, "raw %q", tc.raw)
		assert.Equal(t, tc.wantTitle, title, "raw %q", tc.raw)
	}
}

func TestParseProfileTitle_RejectsLongNonNames(t *testing.T) {
	name, _ := parseProfileTitle("Top 10 Plumbing Companies In The Greater Seattle Area - Blog | LinkedIn")
	assert.Equal(t, "", name)
}

func TestOwnerMentionExtraction(t *testing.T) {
	cases := []struct {
		text     string
		wantName string
		wantRole string
	}{
		{"Jane Smith, owner of Acme Plumbing, said the permit was filed.", "Jane Smith", "owner"},
		{"Bob Jones is the founder of the company.", "Bob Jones", "founder"},
		{"Mary J. Blige was the president before the merger.", "Mary J. Blige", "president"},
	}
	for _, tc := range cases {
		m := ownerMention.FindStringSubmatch(tc.text)
		if assert.NotNil(t, m, "text %q", tc.text) {
			assert.Equal(t, tc.wantName, m[1])
			assert.Equal(t, tc.wantRole, m[2])
		}
	}
}

func TestOwnerMentionIgnoresPlainSentences(t *testing.T) {
	assert.Nil(t, ownerMention.FindStringSubmatch("The plumbing company opened in 1998."))
	assert.Nil(t, ownerMention.FindStringSubmatch("homeowners in the area recommend them"))
}

func TestQuoteCityToken(t *testing.T) {
	assert.Equal(t, `"Seattle"`, quoteCityToken("123 Main St, Seattle, WA 98101"))
	assert.Equal(t, "", quoteCityToken("123 Main St"))
	assert.Equal(t, "", quoteCityToken(""))
}
