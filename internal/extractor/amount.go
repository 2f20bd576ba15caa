package extractor

import (
	"regexp"

	"github.com/shopspring/decimal"
)

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$(\d+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)(?:amount|total|due|owing)[\s:$]*(\d+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d{2})?)\s*(?:dollars?|nzd)`),
}

// maxPlausibleAmount is the exclusive upper bound for a bill amount.
var maxPlausibleAmount = decimal.NewFromInt(10000)

// extractAmount collects every amount candidate and returns the largest one
// in (0, 10000). Picking the maximum favours the total over itemised lines;
// changing it changes which bills get created.
func extractAmount(text string) (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false

	for _, c := range amountCandidates(text) {
		if !c.IsPositive() || c.GreaterThanOrEqual(maxPlausibleAmount) {
			continue
		}
		if !found || c.GreaterThan(best) {
			best = c
			found = true
		}
	}
	return best, found
}

// amountCandidates returns every numeric match of every amount pattern,
// in pattern order.
func amountCandidates(text string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, re := range amountPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			d, err := decimal.NewFromString(m[1])
			if err != nil {
				continue
			}
			out = append(out, d)
		}
	}
	return out
}
