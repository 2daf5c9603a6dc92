package render

import (
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"itinerary-pdf/internal/domain"
)

const fallbackCurrency = "USD"

var funcMap = template.FuncMap{
	"formatDate":    formatDate,
	"money":         formatMoney,
	"join":          strings.Join,
	"hasActivities": hasActivities,
	"noteType":      noteType,
}

var printer = message.NewPrinter(language.English)

var dateLayouts = []string{time.DateOnly, time.RFC3339, "2006-01-02T15:04"}

// formatDate prints ISO dates as "January 2, 2006". Unparseable input is
// returned unchanged.
func formatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("January 2, 2006")
		}
	}
	return s
}

// currencyCode returns code when it is a known ISO 4217 code, otherwise
// fallback, otherwise USD.
func currencyCode(code, fallback string) string {
	for _, c := range []string{code, fallback} {
		if u, err := currency.ParseISO(strings.TrimSpace(c)); err == nil {
			return u.String()
		}
	}
	return fallbackCurrency
}

func currencySymbol(code string) string {
	u, err := currency.ParseISO(currencyCode(code, ""))
	if err != nil {
		return fallbackCurrency + " "
	}
	sym := printer.Sprint(currency.Symbol(u))
	if sym == u.String() {
		return sym + " "
	}
	return sym
}

// formatMoney formats amount with the currency symbol and thousands
// separators, e.g. "₹150,000.00".
func formatMoney(amount decimal.Decimal, code string) string {
	return currencySymbol(code) + groupThousands(amount)
}

func groupThousands(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	intPart, decPart, _ := strings.Cut(d.StringFixed(2), ".")

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteRune(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String() + "." + decPart
}

func hasActivities(items []string) bool {
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

func noteType(t domain.NoteType) string {
	switch t {
	case domain.NoteWarning, domain.NoteImportant:
		return string(t)
	}
	return string(domain.NoteInfo)
}
