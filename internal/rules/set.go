package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flateze/flateze/internal/model"
)

// Set is an ordered, read-only sequence of company rules.
type Set struct {
	rules []model.CompanyRule
}

// NewSet creates a Set. The slice is copied; later edits to it have no effect.
func NewSet(rules []model.CompanyRule) *Set {
	cp := make([]model.CompanyRule, len(rules))
	copy(cp, rules)
	return &Set{rules: cp}
}

// Default returns a Set over DefaultRules.
func Default() *Set {
	return NewSet(DefaultRules())
}

// Load reads a company-rules.csv file and returns a Set.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening company rules: %w", err)
	}
	defer f.Close()

	rules, err := ReadRules(f)
	if err != nil {
		return nil, fmt.Errorf("reading company rules %s: %w", path, err)
	}
	return NewSet(rules), nil
}

// Save writes the set to path, creating parent directories.
func (s *Set) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating rules dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating company rules file: %w", err)
	}
	defer f.Close()

	if err := WriteRules(f, s.rules); err != nil {
		return fmt.Errorf("writing company rules: %w", err)
	}
	return nil
}

// All returns a copy of the rules in match order.
func (s *Set) All() []model.CompanyRule {
	cp := make([]model.CompanyRule, len(s.rules))
	copy(cp, s.rules)
	return cp
}

// Len returns the number of rules.
func (s *Set) Len() int {
	return len(s.rules)
}

// Match returns the first rule whose pattern occurs in
// lower(subject + " " + body).
func (s *Set) Match(subject, body string) (model.CompanyRule, bool) {
	text := strings.ToLower(subject + " " + body)
	for _, r := range s.rules {
		if r.Matches(text) {
			return r, true
		}
	}
	return model.CompanyRule{}, false
}
