package model

import (
	"regexp"
	"time"
)

// RawMessage is the decoded text of one inbound email.
type RawMessage struct {
	Subject    string
	Body       string // plain text
	ReceivedAt time.Time
}

// CompanyRule maps a sender pattern to a canonical company and bill type.
type CompanyRule struct {
	Pattern *regexp.Regexp // compiled case-insensitive
	Company string
	Type    BillType
}

// Matches reports whether the rule's pattern occurs in text.
func (r CompanyRule) Matches(text string) bool {
	return r.Pattern != nil && r.Pattern.MatchString(text)
}
