package triage

import (
	"strings"

	"golang.org/x/text/cases"
)

// Classifier maps free-text symptom descriptions to a category and a
// severity tier using the keyword tables.
type Classifier struct {
	tables *Tables
}

func NewClassifier(t *Tables) *Classifier {
	if t == nil {
		t = DefaultTables()
	}
	return &Classifier{tables: t}
}

// Tables returns the tables the classifier was built with.
func (c *Classifier) Tables() *Tables {
	return c.tables
}

// Classify returns the first category in Priority whose keywords appear in
// text, or CategoryGeneral.
func (c *Classifier) Classify(text string) Category {
	folded := fold(text)
	for _, cat := range Priority {
		if containsAny(folded, c.tables.keywords[cat]) {
			return cat
		}
	}
	return CategoryGeneral
}

// Severity checks the high tier before the medium tier.
func (c *Classifier) Severity(text string) Severity {
	folded := fold(text)
	switch {
	case containsAny(folded, c.tables.highSeverity):
		return SeverityHigh
	case containsAny(folded, c.tables.mediumSeverity):
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// A cases.Caser keeps state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
