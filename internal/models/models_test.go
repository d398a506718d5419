package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var defaultLimits = ValidationLimits{MinItems: 2, MaxItems: 10, MinAnalysisLength: 100, MaxAnalysisLength: 5000}

func validAnalysis() SwotAnalysis {
	return SwotAnalysis{
		PrimaryEntity:      "Acme",
		ComparisonEntities: []string{"Globex"},
		Strengths:          []string{"Strong brand", "Wide distribution"},
		Weaknesses:         []string{"Slow product cycles", "High costs"},
		Opportunities:      []string{"Emerging markets", "Online sales"},
		Threats:            []string{"Globex price war", "Regulation"},
		Analysis:           strings.Repeat("Acme leads Globex on brand reach. ", 4),
	}
}

func TestIssues_Valid(t *testing.T) {
	a := validAnalysis()
	require.Empty(t, a.Issues(defaultLimits))
}

func TestIssues_Messages(t *testing.T) {
	a := validAnalysis()
	a.Strengths = []string{"Only one"}
	a.Analysis = "too short"

	issues := a.Issues(defaultLimits)
	require.Equal(t, []string{
		"Strengths should have at least 2 points. Current count is 1.",
		"Analysis should have at least 100 characters. Current count is 9.",
	}, issues)
}

func TestIssues_Maximums(t *testing.T) {
	a := validAnalysis()
	a.Threats = make([]string, 11)
	a.Analysis = strings.Repeat("x", 5001)

	issues := a.Issues(defaultLimits)
	require.Contains(t, issues, "Threats should have at most 10 points. Current count is 11.")
	require.Contains(t, issues, "Analysis should have at most 5000 characters. Current count is 5001.")
}

func TestIssues_EmptyPrimary(t *testing.T) {
	a := validAnalysis()
	a.PrimaryEntity = "  "
	require.Contains(t, a.Issues(defaultLimits), "primary_entity must not be empty.")
}

func TestClone_IsDeep(t *testing.T) {
	a := validAnalysis()
	b := a.Clone()
	b.Strengths[0] = "changed"
	b.ComparisonEntities = append(b.ComparisonEntities, "Initech")

	require.Equal(t, "Strong brand", a.Strengths[0])
	require.Equal(t, []string{"Globex"}, a.ComparisonEntities)
	require.Nil(t, (*SwotAnalysis)(nil).Clone())
}

func TestCategories_Order(t *testing.T) {
	a := validAnalysis()
	var names []string
	for _, c := range a.Categories() {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"Strengths", "Weaknesses", "Opportunities", "Threats"}, names)
	require.True(t, a.IsComparative())
}

func TestStringArray_Scan(t *testing.T) {
	var a StringArray
	require.NoError(t, a.Scan([]byte(`["Globex","Initech"]`)))
	require.Equal(t, StringArray{"Globex", "Initech"}, a)

	require.NoError(t, a.Scan("Globex"))
	require.Equal(t, StringArray{"Globex"}, a)

	require.NoError(t, a.Scan(nil))
	require.Equal(t, StringArray{}, a)

	v, err := StringArray(nil).Value()
	require.NoError(t, err)
	require.Equal(t, "[]", v)
}
