package extractor

import "regexp"

var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)reference[\s#:]*([A-Z0-9\-]{6,})`),
	regexp.MustCompile(`(?i)account[\s#:]*([A-Z0-9\-]{6,})`),
	regexp.MustCompile(`(?i)invoice[\s#:]*([A-Z0-9\-]{6,})`),
	regexp.MustCompile(`(?i)bill[\s#:]*([A-Z0-9\-]{6,})`),
}

// extractReferenceID returns the first token of six or more letters, digits
// or dashes following a reference keyword, trying keywords in order.
// Empty means none was found.
func extractReferenceID(body string) string {
	for _, re := range referencePatterns {
		if m := re.FindStringSubmatch(body); m != nil {
			return m[1]
		}
	}
	return ""
}
