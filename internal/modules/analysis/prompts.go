package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You are an advanced AI assistant specializing in comprehensive SWOT analyses.
You are given research gathered with web search (search_web), website scraping
(fetch_website_content) and community discussion (get_reddit_insights). Ground
every conclusion in that research.

When given a single entity:
- Generate a detailed SWOT analysis grounded in the gathered intelligence.

When given a primary entity AND one or more comparison entities:
- Generate a SWOT analysis FOCUSED on the primary entity.
- Weave comparative insights into every SWOT category. Explicitly reference
  how the primary entity stacks up against each competitor.
- The analysis (executive summary) must highlight key competitive
  differentiators between the entities.

SWOT Categories:
1. **Strengths**: Internal advantages of the primary entity (vs competitors).
2. **Weaknesses**: Internal disadvantages relative to competitors.
3. **Opportunities**: External factors the primary entity can leverage.
4. **Threats**: External risks, especially those posed by the compared entities.

Output requirements:
- Respond with a single JSON object and nothing else, with the keys
  "primary_entity", "comparison_entities", "strengths", "weaknesses",
  "opportunities", "threats" and "analysis".
- Populate primary_entity with exactly what was provided as the primary subject.
- Populate comparison_entities with the list of entities being compared against
  (empty list if single-entity mode).
- Deliver at least 3 points per SWOT category as plain strings.
- Back every point with specific evidence from the research.
- The analysis field must be a substantive executive summary (150+ characters).
  It may use Markdown.`

// researchNote is one tool result fed to the model.
type researchNote struct {
	Tool   string
	Input  string
	Output string
}

func buildUserPrompt(req Request, notes []researchNote) string {
	var b strings.Builder
	if len(req.Comparisons) > 0 {
		comp := strings.Join(req.Comparisons, ", ")
		fmt.Fprintf(&b, "Perform a comparative SWOT analysis.\nPrimary entity: %s\nCompare against: %s\n\n", req.Primary, comp)
		fmt.Fprintf(&b, "The SWOT must centre on %s but explicitly contrast it with %s in each category.\n", req.Primary, comp)
		listJSON, _ := json.Marshal(req.Comparisons)
		fmt.Fprintf(&b, "Set primary_entity to %q and comparison_entities to %s in your output.\n", req.Primary, listJSON)
	} else {
		fmt.Fprintf(&b, "Perform a comprehensive SWOT analysis for: %s\n", req.Primary)
		fmt.Fprintf(&b, "Set primary_entity to %q and comparison_entities to an empty list in your output.\n", req.Primary)
	}

	if len(notes) > 0 {
		b.WriteString("\n## Research\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "\n### %s(%s)\n%s\n", n.Tool, n.Input, n.Output)
		}
	}
	return b.String()
}

func buildRetryPrompt(base string, previous string, issues []string) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n## Previous attempt\n")
	b.WriteString(truncateText(previous, 6000))
	b.WriteString("\n\nThe previous answer was rejected. Fix the following and answer again with the full JSON object:\n")
	for _, issue := range issues {
		b.WriteString("- ")
		b.WriteString(issue)
		b.WriteString("\n")
	}
	return b.String()
}
