package models

import (
	"fmt"
	"strings"
)

// SwotAnalysis is the structured result produced by the analysis runner.
type SwotAnalysis struct {
	PrimaryEntity      string   `json:"primary_entity"`
	ComparisonEntities []string `json:"comparison_entities"`
	Strengths          []string `json:"strengths"`
	Weaknesses         []string `json:"weaknesses"`
	Opportunities      []string `json:"opportunities"`
	Threats            []string `json:"threats"`
	Analysis           string   `json:"analysis"`
}

// Category is one of the four SWOT buckets.
type Category struct {
	Name  string
	Items []string
}

// Categories returns the SWOT buckets in report order.
func (a *SwotAnalysis) Categories() []Category {
	return []Category{
		{Name: "Strengths", Items: a.Strengths},
		{Name: "Weaknesses", Items: a.Weaknesses},
		{Name: "Opportunities", Items: a.Opportunities},
		{Name: "Threats", Items: a.Threats},
	}
}

// IsComparative reports whether the analysis was run against competitors.
func (a *SwotAnalysis) IsComparative() bool {
	return len(a.ComparisonEntities) > 0
}

// Clone returns a deep copy.
func (a *SwotAnalysis) Clone() *SwotAnalysis {
	if a == nil {
		return nil
	}
	out := *a
	out.ComparisonEntities = cloneStrings(a.ComparisonEntities)
	out.Strengths = cloneStrings(a.Strengths)
	out.Weaknesses = cloneStrings(a.Weaknesses)
	out.Opportunities = cloneStrings(a.Opportunities)
	out.Threats = cloneStrings(a.Threats)
	return &out
}

// ValidationLimits bounds the shape of an acceptable analysis.
type ValidationLimits struct {
	MinItems          int
	MaxItems          int
	MinAnalysisLength int
	MaxAnalysisLength int
}

// Issues lists every way the analysis falls short of limits. An empty result
// means the analysis is acceptable.
func (a *SwotAnalysis) Issues(limits ValidationLimits) []string {
	var issues []string
	if strings.TrimSpace(a.PrimaryEntity) == "" {
		issues = append(issues, "primary_entity must not be empty.")
	}
	for _, cat := range a.Categories() {
		if len(cat.Items) < limits.MinItems {
			issues = append(issues, fmt.Sprintf(
				"%s should have at least %d points. Current count is %d.",
				cat.Name, limits.MinItems, len(cat.Items)))
		}
		if limits.MaxItems > 0 && len(cat.Items) > limits.MaxItems {
			issues = append(issues, fmt.Sprintf(
				"%s should have at most %d points. Current count is %d.",
				cat.Name, limits.MaxItems, len(cat.Items)))
		}
	}
	n := len([]rune(a.Analysis))
	if n < limits.MinAnalysisLength {
		issues = append(issues, fmt.Sprintf(
			"Analysis should have at least %d characters. Current count is %d.",
			limits.MinAnalysisLength, n))
	}
	if limits.MaxAnalysisLength > 0 && n > limits.MaxAnalysisLength {
		issues = append(issues, fmt.Sprintf(
			"Analysis should have at most %d characters. Current count is %d.",
			limits.MaxAnalysisLength, n))
	}
	return issues
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
