package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string // "" means no amount
	}{
		{"dollar sign", "Please pay $45.20 soon", "45.20"},
		{"whole dollars", "Charge $45", "45.00"},
		{"keyword", "Amount: 145.50", "145.50"},
		{"keyword with dollar", "TOTAL: $99.99", "99.99"},
		{"owing", "owing 12.00", "12.00"},
		{"currency word", "you owe 30 dollars", "30.00"},
		{"nzd suffix", "Balance 88.10 NZD", "88.10"},
		{"max wins", "$48.50 paid of $145.50 total", "145.50"},
		{"keyword number beats smaller dollar", "$5.00 fee, due 60", "60.00"},
		{"upper bound exclusive", "$10000.00", ""},
		{"above bound ignored", "$12000.00 annual, $120.00 monthly", "120.00"},
		{"zero ignored", "$0.00", ""},
		{"just below bound", "$9999.99", "9999.99"},
		{"none", "no numbers here", ""},
		{"comma splits number", "$1,234.56", "1.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractAmount(tt.text)
			if tt.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestExtractDueDate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string // "" means absent
	}{
		{"due colon", "Due: 15/09/2024", "2024-09-15"},
		{"due dashes", "due 01-10-2024", "2024-10-01"},
		{"pay by", "Please pay by 3/9/24", "2024-09-03"},
		{"payment by", "Payment by: 28/02/2025", "2025-02-28"},
		{"date then due", "30/11/2024 due", "2024-11-30"},
		{"month first fallback", "Due 09/15/2024", "2024-09-15"},
		{"invalid both ways", "Due 31/31/2024", ""},
		{"impossible day", "Due 31/02/2024 or pay by 01/03/2024", "2024-03-01"},
		{"no keyword", "Issued 15/09/2024", ""},
		{"three digit year", "Due 15/09/202", ""},
		{"none", "nothing to see", ""},
		{"first pattern wins", "Pay by 20/09/2024. Due: 25/09/2024", "2024-09-25"},
		{"first match only", "Due: soon. Due: 12/12/2024", "2024-12-12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractDueDate(tt.body)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseDate_LeapYear(t *testing.T) {
	d, ok := parseDate("29/02/2024")
	require.True(t, ok)
	assert.Equal(t, "2024-02-29", d.Format("2006-01-02"))

	_, ok = parseDate("29/02/2023")
	assert.False(t, ok)
}

func TestExtractReferenceID(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"reference", "Reference: ME-123456", "ME-123456"},
		{"reference hash", "Reference #AB1234", "AB1234"},
		{"account", "Account: ME-123456", "ME-123456"},
		{"invoice", "Invoice 20240901", "20240901"},
		{"bill", "Bill# X9Y8Z7", "X9Y8Z7"},
		{"too short", "Reference: AB12", ""},
		{"reference before account", "Account: ACC-000111 Reference: REF-222333", "REF-222333"},
		{"lowercase token", "reference: abc-123456", "abc-123456"},
		{"none", "Thanks for your payment", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractReferenceID(tt.body))
		})
	}
}
