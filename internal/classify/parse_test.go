package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propertypassport/internal/domain"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected *Suggestion
	}{
		{
			name:     "type and title",
			line:     "gas_safety | Landlord gas safety record 2025",
			expected: &Suggestion{DocumentType: domain.DocumentGasSafety, Title: "Landlord gas safety record 2025"},
		},
		{
			name:     "spaced type is normalised",
			line:     "Title Deed | Official copy of register",
			expected: &Suggestion{DocumentType: domain.DocumentTitleDeed, Title: "Official copy of register"},
		},
		{
			name:     "unknown type becomes other",
			line:     "invoice | Kitchen fitting invoice",
			expected: &Suggestion{DocumentType: domain.DocumentOther, Title: "Kitchen fitting invoice"},
		},
		{
			name:     "markdown emphasis stripped",
			line:     "**epc_certificate** | \"EPC rating C\"",
			expected: &Suggestion{DocumentType: domain.DocumentEPCCertificate, Title: "EPC rating C"},
		},
		{
			name:     "no separator",
			line:     "survey",
			expected: nil,
		},
		{
			name:     "empty line",
			line:     "   ",
			expected: nil,
		},
		{
			name:     "preamble with separator",
			line:     "Here is the answer | below",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLine(tt.line))
		})
	}
}

func TestParseResponse(t *testing.T) {
	raw := "Based on the image:\n\nsurvey | RICS Level 2 survey\nwarranty | ignored"
	s := ParseResponse(raw)
	require.NotNil(t, s)
	assert.Equal(t, domain.DocumentSurvey, s.DocumentType)
	assert.Equal(t, "RICS Level 2 survey", s.Title)
	assert.Equal(t, raw, s.RawResponse)

	assert.Nil(t, ParseResponse("I cannot read this document."))
}

func TestPromptListsEveryType(t *testing.T) {
	for _, dt := range domain.DocumentTypes {
		assert.Contains(t, Prompt, string(dt))
	}
}

func TestSupports(t *testing.T) {
	assert.True(t, Supports("image/png"))
	assert.False(t, Supports("application/pdf"))
}
