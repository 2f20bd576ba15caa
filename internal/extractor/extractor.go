// Package extractor turns inbound bill emails into structured bills.
//
// Extraction is heuristic. A message yields a bill only when a company rule
// matches and at least one plausible amount is present; everything else is
// optional. Not finding a bill is a normal outcome, not an error.
package extractor

import (
	"strings"
	"time"
	"unicode"

	"github.com/flateze/flateze/internal/model"
	"github.com/flateze/flateze/internal/rules"
)

// Extractor applies a company rule set to message text. It holds no mutable
// state and is safe for concurrent use.
type Extractor struct {
	rules *rules.Set
}

// New creates an Extractor. A nil rule set means the built-in defaults.
func New(rs *rules.Set) *Extractor {
	if rs == nil {
		rs = rules.Default()
	}
	return &Extractor{rules: rs}
}

// Extract returns the bill described by msg, or false when the sender is not
// a known company or no plausible amount is present.
func (e *Extractor) Extract(msg model.RawMessage) (*model.ExtractedBill, bool) {
	subject, body := normalizeSpace(msg.Subject), normalizeSpace(msg.Body)

	rule, ok := e.rules.Match(subject, body)
	if !ok {
		return nil, false
	}

	amount, ok := extractAmount(subject + " " + body)
	if !ok {
		return nil, false
	}

	return &model.ExtractedBill{
		Company:     rule.Company,
		Type:        rule.Type,
		Amount:      amount,
		DueDate:     extractDueDate(body),
		BillDate:    msg.ReceivedAt,
		ReferenceID: extractReferenceID(body),
		Subject:     msg.Subject,
		Body:        msg.Body,
	}, true
}

// normalizeSpace turns non-ASCII spaces such as NBSP into ' ', since \s in
// the field patterns only matches ASCII whitespace.
func normalizeSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII && unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}

// ExtractRaw decodes a raw RFC 5322 message and extracts a bill from it.
// fallback is used as the bill date when the message has no Date header.
// Malformed input returns an error wrapping ErrMalformed. A message without
// a subject or a text body is not a bill.
func (e *Extractor) ExtractRaw(raw []byte, fallback time.Time) (*model.ExtractedBill, bool, error) {
	msg, err := ParseMessage(raw, fallback)
	if err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(msg.Subject) == "" || strings.TrimSpace(msg.Body) == "" {
		return nil, false, nil
	}
	bill, ok := e.Extract(msg)
	return bill, ok, nil
}
