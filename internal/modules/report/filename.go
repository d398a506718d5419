package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/strategiq/swot/internal/models"
)

const maxNamePart = 30

var (
	unsafeNameChars = regexp.MustCompile(`[^\w\s-]`)
	nameWhitespace  = regexp.MustCompile(`\s+`)
)

// Filename builds the download name
// swot-<primary>[-vs-<first comparison>[-plus<N>]]-<YYYY-MM-DD>.pdf.
func Filename(a models.SwotAnalysis, now time.Time) string {
	entities := sanitizeNamePart(a.PrimaryEntity)
	if entities == "" {
		entities = "analysis"
	}
	if len(a.ComparisonEntities) > 0 {
		if first := sanitizeNamePart(a.ComparisonEntities[0]); first != "" {
			entities += "-vs-" + first
		}
		if extra := len(a.ComparisonEntities) - 1; extra > 0 {
			entities += fmt.Sprintf("-plus%d", extra)
		}
	}
	return fmt.Sprintf("swot-%s-%s.pdf", entities, now.Format(time.DateOnly))
}

// sanitizeNamePart keeps ASCII word characters, spaces and hyphens, turns
// whitespace runs into single hyphens and cuts the result to maxNamePart.
func sanitizeNamePart(s string) string {
	s = unsafeNameChars.ReplaceAllString(s, "")
	s = nameWhitespace.ReplaceAllString(strings.TrimSpace(s), "-")
	if len(s) > maxNamePart {
		s = s[:maxNamePart]
	}
	return strings.TrimRight(s, "-")
}
