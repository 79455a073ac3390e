package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCompanyRecord(t *testing.T) {
	rec := CompanyRecord{Name: "Acme Plumbing", Domain: "acmeplumbing.com"}
	assert.NoError(t, ValidateCompanyRecord(&rec))
}

func TestValidateCompanyRecord_MissingName(t *testing.T) {
	rec := CompanyRecord{Domain: "acmeplumbing.com"}

	err := ValidateCompanyRecord(&rec)

	require.Error(t, err)
	var verr *InvalidCompanyRecordError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Name", verr.Field)
}

func TestValidateCompanyRecord_BadDomain(t *testing.T) {
	rec := CompanyRecord{Name: "Acme Plumbing", Domain: "not a domain"}

	err := ValidateCompanyRecord(&rec)

	require.Error(t, err)
	var verr *InvalidCompanyRecordError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Domain", verr.Field)
}

func TestIsValidSource(t *testing.T) {
	for _, tag := range AllSourceTags() {
		assert.True(t, IsValidSource(tag), "tag %s", tag)
	}
	assert.False(t, IsValidSource(SourceTag("carrier_pigeon")))
	assert.False(t, IsValidSource(SourceTag("")))
}

func TestPipelineResult_ValidCount(t *testing.T) {
	result := PipelineResult{
		Contacts: []ScoredContact{
			{Score: 120, IsValid: true},
			{Score: 55, IsValid: false},
			{Score: 90, IsValid: true},
		},
	}
	assert.Equal(t, 2, result.ValidCount())
	assert.Zero(t, (&PipelineResult{}).ValidCount())
}
