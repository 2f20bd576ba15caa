package rules

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/flateze/flateze/internal/model"
)

// Header is the CSV header for company-rules.csv.
const Header = "pattern,company,bill_type"

const (
	numFields  = 3
	colPattern = 0
	colCompany = 1
	colType    = 2
)

// ReadRules reads company-rules.csv, preserving row order.
func ReadRules(r io.Reader) ([]model.CompanyRule, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading rules CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var rules []model.CompanyRule
	for i, rec := range records[1:] {
		rule, err := UnmarshalRule(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// WriteRules writes company-rules.csv.
func WriteRules(w io.Writer, rules []model.CompanyRule) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, rule := range rules {
		if err := cw.Write(MarshalRule(rule)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalRule converts a CompanyRule to a CSV row. The case-insensitive
// flag added at compile time is stripped.
func MarshalRule(rule model.CompanyRule) []string {
	row := make([]string, numFields)
	if rule.Pattern != nil {
		row[colPattern] = strings.TrimPrefix(rule.Pattern.String(), "(?i)")
	}
	row[colCompany] = rule.Company
	row[colType] = string(rule.Type)
	return row
}

// UnmarshalRule converts a CSV row to a CompanyRule.
func UnmarshalRule(record []string) (model.CompanyRule, error) {
	if len(record) != numFields {
		return model.CompanyRule{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	pattern := strings.TrimSpace(record[colPattern])
	if pattern == "" {
		return model.CompanyRule{}, fmt.Errorf("empty pattern")
	}
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return model.CompanyRule{}, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}

	company := strings.TrimSpace(record[colCompany])
	if company == "" {
		return model.CompanyRule{}, fmt.Errorf("empty company for pattern %q", pattern)
	}

	t, err := model.ParseBillType(record[colType])
	if err != nil {
		return model.CompanyRule{}, err
	}

	return model.CompanyRule{Pattern: re, Company: company, Type: t}, nil
}
