package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outreach-labs/contact-pipeline/internal/types"
)

var acmeCompany = types.CompanyRecord{Name: "Acme Plumbing", Domain: "acmeplumbing.com"}

func TestParsePage_SchemaOrgPerson(t *testing.T) {
	html := `<html><body>
		<div itemscope itemtype="https://schema.org/Person">
			<span itemprop="name">Jane Smith</span>
			<span itemprop="jobTitle">Owner</span>
			<span itemprop="email">jane@acmeplumbing.com</span>
			<span itemprop="telephone">(206) 555-0100</span>
		</div>
	</body></html>`

	w := &WebsiteConnector{}
	candidates := dedupeCandidates(w.parsePage(html, acmeCompany))

	require.NotEmpty(t, candidates)
	assert.Equal(t, "Jane Smith", candidates[0].Name)
	assert.Equal(t, "Owner", candidates[0].Title)
	assert.Equal(t, "jane@acmeplumbing.com", candidates[0].Email)
	assert.Equal(t, "acmeplumbing.com", candidates[0].CompanyDomainHint)
}

func TestParsePage_MailtoAnchor(t *testing.T) {
	html := `<html><body><main>
		<p><strong>Jane Smith</strong>
		<a href="mailto:jane@acmeplumbing.com?subject=hi">Email me</a></p>
	</main></body></html>`

	w := &WebsiteConnector{}
	candidates := w.parsePage(html, acmeCompany)

	require.NotEmpty(t, candidates)
	assert.Equal(t, "jane@acmeplumbing.com", candidates[0].Email, "mailto query string stripped")
}

func TestParsePage_TextFallback(t *testing.T) {
	html := `<html><body><main>
		<p>Call us at (206) 555-0100 or write to bob.jones@acmeplumbing.com</p>
	</main></body></html>`

	w := &WebsiteConnector{}
	candidates := w.parsePage(html, acmeCompany)

	require.NotEmpty(t, candidates)
	assert.Equal(t, "Bob Jones", candidates[0].Name, "first.last mailbox implies a person")
	assert.Equal(t, "bob.jones@acmeplumbing.com", candidates[0].Email)
	assert.NotEmpty(t, candidates[0].Phone)
}

func TestParsePage_PhoneOnlyPage(t *testing.T) {
	html := `<html><body><main><p>Reach us: (206) 555-0100</p></main></body></html>`

	w := &WebsiteConnector{}
	candidates := w.parsePage(html, acmeCompany)

	require.Len(t, candidates, 1)
	assert.Empty(t, candidates[0].Email)
	assert.NotEmpty(t, candidates[0].Phone)
}

func TestNameFromPersonalEmail(t *testing.T) {
	assert.Equal(t, "Jane Smith", nameFromPersonalEmail("jane.smith@acme.com"))
	assert.Equal(t, "Jane Smith", nameFromPersonalEmail("jane_smith@acme.com"))
	assert.Equal(t, "", nameFromPersonalEmail("info@acme.com"), "role mailbox carries no person")
	assert.Equal(t, "", nameFromPersonalEmail("jane@acme.com"), "single token is ambiguous")
	assert.Equal(t, "", nameFromPersonalEmail("jane.smith2@acme.com"), "digits are not names")
}

func TestCleanEmail(t *testing.T) {
	assert.Equal(t, "jane@acme.com", cleanEmail("  Jane@Acme.com  "))
	assert.Equal(t, "jane@acme.com", cleanEmail("jane@acme.com?subject=hello"))
	assert.Equal(t, "", cleanEmail("not an email"))
	assert.Equal(t, "", cleanEmail(""))
}

func TestDedupeCandidates(t *testing.T) {
	in := []types.Candidate{
		{Source: types.SourceWebsite, Name: "Jane Smith", Email: "jane@acme.com"},
		{Source: types.SourceWebsite, Email: "JANE@acme.com"},
		{Source: types.SourceWebsite, Name: "Bob Jones", Phone: "206-555-0100"},
		{Source: types.SourceWebsite, Name: "Bob Jones", Phone: "206-555-0100"},
	}

	out := dedupeCandidates(in)

	require.Len(t, out, 2)
	assert.Equal(t, "Jane Smith", out[0].Name, "first occurrence wins")
	assert.Equal(t, "Bob Jones", out[1].Name)
}
