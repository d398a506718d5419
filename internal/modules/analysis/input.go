package analysis

import (
	"fmt"
	"strings"

	"github.com/strategiq/swot/internal/config"
)

// Request names the entities to analyse.
type Request struct {
	Primary     string
	Comparisons []string
}

// ParseRequest normalises form input: the comparison field is split on commas
// and empty names are dropped.
func ParseRequest(primary, comparisons string, limits config.InputLimitsConfig) (Request, error) {
	primary = strings.TrimSpace(primary)
	if primary == "" {
		return Request{}, ErrNoPrimaryEntity
	}
	if limits.MaxPrimaryLength > 0 && len([]rune(primary)) > limits.MaxPrimaryLength {
		return Request{}, fmt.Errorf("primary entity exceeds %d characters", limits.MaxPrimaryLength)
	}
	if limits.MaxComparisonLength > 0 && len([]rune(comparisons)) > limits.MaxComparisonLength {
		return Request{}, fmt.Errorf("comparison entities exceed %d characters", limits.MaxComparisonLength)
	}

	var comps []string
	for _, part := range strings.Split(comparisons, ",") {
		if name := strings.TrimSpace(part); name != "" {
			comps = append(comps, name)
		}
	}
	if limits.MaxComparisonCount > 0 && len(comps) > limits.MaxComparisonCount {
		return Request{}, fmt.Errorf("at most %d comparison entities are allowed, got %d", limits.MaxComparisonCount, len(comps))
	}
	return Request{Primary: primary, Comparisons: comps}, nil
}

// Entities returns the primary entity followed by the comparisons.
func (r Request) Entities() []string {
	return append([]string{r.Primary}, r.Comparisons...)
}
