package render

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"itinerary-pdf/internal/domain"
)

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "", formatDate(""))
	assert.Equal(t, "March 4, 2026", formatDate("2026-03-04"))
	assert.Equal(t, "March 4, 2026", formatDate("2026-03-04T10:00:00Z"))
	assert.Equal(t, "next week", formatDate("next week"))
}

func TestCurrencyCode(t *testing.T) {
	assert.Equal(t, "INR", currencyCode("INR", "USD"))
	assert.Equal(t, "EUR", currencyCode("eur", "USD"))
	assert.Equal(t, "GBP", currencyCode("", "GBP"))
	assert.Equal(t, "USD", currencyCode("NOPE", ""))
	assert.Equal(t, "USD", currencyCode("", "???"))
}

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		amount string
		code   string
		want   string
	}{
		{"0", "USD", "$0.00"},
		{"1234.5", "USD", "$1,234.50"},
		{"1234567.891", "", "$1,234,567.89"},
		{"-999.99", "USD", "$-999.99"},
		{"150000", "INR", "₹150,000.00"},
		{"12", "EUR", "€12.00"},
	}
	for _, tc := range cases {
		got := formatMoney(decimal.RequireFromString(tc.amount), tc.code)
		assert.Equal(t, tc.want, got, tc.amount)
	}
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "100.00", groupThousands(decimal.NewFromInt(100)))
	assert.Equal(t, "1,000.00", groupThousands(decimal.NewFromInt(1000)))
	assert.Equal(t, "-12,345.68", groupThousands(decimal.RequireFromString("-12345.678")))
}

func TestNoteTypeAndActivities(t *testing.T) {
	assert.Equal(t, "warning", noteType(domain.NoteWarning))
	assert.Equal(t, "info", noteType(""))
	assert.Equal(t, "info", noteType("bogus"))
	assert.True(t, hasActivities([]string{"", "Museum"}))
	assert.False(t, hasActivities([]string{" ", ""}))
}
