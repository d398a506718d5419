package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/strategiq/swot/internal/config"
	"github.com/strategiq/swot/internal/models"
	"github.com/stretchr/testify/require"
)

var testLimits = models.ValidationLimits{MinItems: 2, MaxItems: 10, MinAnalysisLength: 100, MaxAnalysisLength: 5000}

type scriptedGenerator struct {
	mu      sync.Mutex
	replies []string
	prompts []string
	err     error
}

func (g *scriptedGenerator) Generate(_ context.Context, _, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	reply := g.replies[0]
	if len(g.replies) > 1 {
		g.replies = g.replies[1:]
	}
	return reply, nil
}

type funcSearcher func(ctx context.Context, q string) (string, error)

func (f funcSearcher) Search(ctx context.Context, q string) (string, error) { return f(ctx, q) }

type funcFetcher func(ctx context.Context, u string) (string, error)

func (f funcFetcher) Fetch(ctx context.Context, u string) (string, error) { return f(ctx, u) }

type funcInsights func(ctx context.Context, q string) (string, error)

func (f funcInsights) Insights(ctx context.Context, q string) (string, error) { return f(ctx, q) }

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) report(msg string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func goodReply(t *testing.T) string {
	t.Helper()
	out, err := json.Marshal(models.SwotAnalysis{
		PrimaryEntity: "whatever the model says",
		Strengths:     []string{"Strong brand", "Wide distribution", " "},
		Weaknesses:    []string{"Slow product cycles", "High costs"},
		Opportunities: []string{"Emerging markets", "Online sales"},
		Threats:       []string{"Globex price war", "Regulation"},
		Analysis:      strings.Repeat("Acme leads Globex on brand reach but trails on cost. ", 3),
	})
	require.NoError(t, err)
	return "```json\n" + string(out) + "\n```"
}

func TestRunner_ComparativeRun(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{replies: []string{goodReply(t)}}
	var searched, fetched []string
	var mu sync.Mutex

	r := NewRunner(Options{
		Generator: gen,
		Searcher: funcSearcher(func(_ context.Context, q string) (string, error) {
			mu.Lock()
			searched = append(searched, q)
			mu.Unlock()
			return "Summary: about " + q, nil
		}),
		Fetcher: funcFetcher(func(_ context.Context, u string) (string, error) {
			mu.Lock()
			fetched = append(fetched, u)
			mu.Unlock()
			return "homepage text", nil
		}),
		Insights: funcInsights(func(_ context.Context, q string) (string, error) {
			return "", errors.New("reddit down")
		}),
		Limits: testLimits,
	})

	rec := &recorder{}
	got, err := r.Run(context.Background(), Request{Primary: "Acme", Comparisons: []string{"globex.com"}}, rec.report)
	require.NoError(t, err)

	require.Equal(t, "Acme", got.PrimaryEntity)
	require.Equal(t, []string{"globex.com"}, got.ComparisonEntities)
	require.Equal(t, []string{"Strong brand", "Wide distribution"}, got.Strengths)

	require.ElementsMatch(t, []string{"Acme", "globex.com"}, searched)
	require.Equal(t, []string{"globex.com"}, fetched)
	require.ElementsMatch(t, []string{
		ToolMessage(toolSearchWeb),
		ToolMessage(toolSearchWeb),
		ToolMessage(toolFetchWebsite),
		ToolMessage(toolRedditInsights),
	}, rec.msgs)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	require.Contains(t, prompt, "Compare against: globex.com")
	require.Contains(t, prompt, "Summary: about Acme")
	require.Contains(t, prompt, "homepage text")
	require.Contains(t, prompt, "Tool failed:")
}

func TestRunner_RetriesWithIssues(t *testing.T) {
	t.Parallel()

	weak := `{"primary_entity":"Acme","strengths":["one"],"weaknesses":["a","b"],"opportunities":["a","b"],"threats":["a","b"],"analysis":"short"}`
	gen := &scriptedGenerator{replies: []string{weak, "not json at all", goodReply(t)}}
	r := NewRunner(Options{Generator: gen, Limits: testLimits})

	got, err := r.Run(context.Background(), Request{Primary: "Acme"}, nil)
	require.NoError(t, err)
	require.Empty(t, got.ComparisonEntities)
	require.Len(t, gen.prompts, 3)
	require.Contains(t, gen.prompts[1], "Strengths should have at least 2 points. Current count is 1.")
	require.Contains(t, gen.prompts[1], "Analysis should have at least 100 characters. Current count is 5.")
	require.Contains(t, gen.prompts[2], "valid JSON object")
}

func TestRunner_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{replies: []string{`{"analysis":"tiny"}`}}
	r := NewRunner(Options{Generator: gen, Limits: testLimits, MaxAttempts: 2})

	_, err := r.Run(context.Background(), Request{Primary: "Acme"}, nil)
	require.ErrorIs(t, err, ErrValidationFailure)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, 2, verr.Attempts)
	require.NotEmpty(t, verr.Issues)
	require.Len(t, gen.prompts, 2)
}

func TestRunner_GeneratorError(t *testing.T) {
	t.Parallel()

	boom := errors.New("rate limited")
	r := NewRunner(Options{Generator: &scriptedGenerator{err: boom}, Limits: testLimits})

	_, err := r.Run(context.Background(), Request{Primary: "Acme"}, nil)
	require.ErrorIs(t, err, boom)
}

func TestRunner_RequiresGeneratorAndPrimary(t *testing.T) {
	t.Parallel()

	_, err := NewRunner(Options{}).Run(context.Background(), Request{Primary: "Acme"}, nil)
	require.ErrorIs(t, err, ErrProviderNotReady)

	_, err = NewRunner(Options{Generator: &scriptedGenerator{}}).Run(context.Background(), Request{}, nil)
	require.ErrorIs(t, err, ErrNoPrimaryEntity)
}

func TestRunner_CancelledResearch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(Options{
		Generator: &scriptedGenerator{replies: []string{"{}"}},
		Searcher: funcSearcher(func(ctx context.Context, _ string) (string, error) {
			cancel()
			<-ctx.Done()
			return "", ctx.Err()
		}),
		Limits: testLimits,
	})

	_, err := r.Run(ctx, Request{Primary: "Acme"}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func defaultInputLimits() config.InputLimitsConfig {
	return config.InputLimitsConfig{MaxPrimaryLength: 500, MaxComparisonLength: 2000, MaxComparisonCount: 10}
}

func TestParseRequest(t *testing.T) {
	t.Parallel()

	limits := defaultInputLimits()

	req, err := ParseRequest("  Acme ", "Globex, , Initech ,", limits)
	require.NoError(t, err)
	require.Equal(t, "Acme", req.Primary)
	require.Equal(t, []string{"Globex", "Initech"}, req.Comparisons)
	require.Equal(t, []string{"Acme", "Globex", "Initech"}, req.Entities())

	req, err = ParseRequest("Acme", "", limits)
	require.NoError(t, err)
	require.Empty(t, req.Comparisons)

	_, err = ParseRequest("   ", "", limits)
	require.ErrorIs(t, err, ErrNoPrimaryEntity)

	_, err = ParseRequest(strings.Repeat("a", 501), "", limits)
	require.Error(t, err)

	_, err = ParseRequest("Acme", strings.Repeat("x,", 11), limits)
	require.Error(t, err)
}

func TestUnmarshalAIJSON(t *testing.T) {
	t.Parallel()

	var out struct {
		A int `json:"a"`
	}
	require.NoError(t, unmarshalAIJSON("```json\n{\"a\":1}\n```", &out))
	require.Equal(t, 1, out.A)

	require.NoError(t, unmarshalAIJSON("Here you go: {\"a\":2} hope it helps", &out))
	require.Equal(t, 2, out.A)

	require.ErrorIs(t, unmarshalAIJSON("nothing here", &out), ErrInvalidJSON)
}

func TestLooksLikeURL(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"https://acme.com", "http://x.io/about", "globex.com", "www.initech.co.uk/path"} {
		require.True(t, LooksLikeURL(s), s)
	}
	for _, s := range []string{"Acme", "Acme Corp.", "v1.0", "", "a.b"} {
		require.False(t, LooksLikeURL(s), s)
	}
}
