package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/strategiq/swot/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxAttempts = 3
	researchParallel   = 4
)

// Reporter receives human-readable progress messages. It may be called from
// several goroutines at once.
type Reporter func(message string)

// ToolMessage is the progress line emitted before a research tool runs.
func ToolMessage(tool string) string { return "Using tool: " + tool }

type Options struct {
	Generator   Generator
	Searcher    Searcher
	Fetcher     Fetcher
	Insights    InsightSource
	Limits      models.ValidationLimits
	MaxAttempts int
	Logger      *zap.Logger
}

// Runner researches the requested entities and asks the model for a SWOT
// analysis, retrying with feedback until the result validates.
type Runner struct {
	gen         Generator
	search      Searcher
	fetch       Fetcher
	insights    InsightSource
	limits      models.ValidationLimits
	maxAttempts int
	log         *zap.Logger
}

func NewRunner(opts Options) *Runner {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Runner{
		gen:         opts.Generator,
		search:      opts.Searcher,
		fetch:       opts.Fetcher,
		insights:    opts.Insights,
		limits:      opts.Limits,
		maxAttempts: opts.MaxAttempts,
		log:         opts.Logger,
	}
}

// Run performs a complete analysis. report may be nil.
func (r *Runner) Run(ctx context.Context, req Request, report Reporter) (*models.SwotAnalysis, error) {
	if strings.TrimSpace(req.Primary) == "" {
		return nil, ErrNoPrimaryEntity
	}
	if r.gen == nil {
		return nil, ErrProviderNotReady
	}
	if report == nil {
		report = func(string) {}
	}

	notes, err := r.research(ctx, req, report)
	if err != nil {
		return nil, err
	}
	return r.generate(ctx, req, notes)
}

type researchTask struct {
	tool  string
	input string
	call  func(ctx context.Context, input string) (string, error)
}

func (r *Runner) plan(req Request) []researchTask {
	var tasks []researchTask
	for _, entity := range req.Entities() {
		if r.search != nil {
			tasks = append(tasks, researchTask{tool: toolSearchWeb, input: entity, call: r.search.Search})
		}
		if r.fetch != nil && LooksLikeURL(entity) {
			tasks = append(tasks, researchTask{tool: toolFetchWebsite, input: entity, call: r.fetch.Fetch})
		}
	}
	if r.insights != nil {
		tasks = append(tasks, researchTask{tool: toolRedditInsights, input: req.Primary, call: r.insights.Insights})
	}
	return tasks
}

// research runs every planned tool call. Tool failures become notes so the
// model can still work from partial research; only cancellation aborts.
func (r *Runner) research(ctx context.Context, req Request, report Reporter) ([]researchNote, error) {
	tasks := r.plan(req)
	notes := make([]researchNote, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(researchParallel)
	for i, task := range tasks {
		g.Go(func() error {
			report(ToolMessage(task.tool))
			out, err := task.call(gctx, task.input)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.log.Warn("research tool failed",
					zap.String("tool", task.tool),
					zap.String("input", task.input),
					zap.Error(err),
				)
				out = "Tool failed: " + err.Error()
			}
			notes[i] = researchNote{Tool: task.tool, Input: task.input, Output: out}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *Runner) generate(ctx context.Context, req Request, notes []researchNote) (*models.SwotAnalysis, error) {
	base := buildUserPrompt(req, notes)
	prompt := base
	var issues []string

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		raw, err := r.gen.Generate(ctx, systemPrompt, prompt)
		if err != nil {
			return nil, fmt.Errorf("generate analysis: %w", err)
		}

		var out models.SwotAnalysis
		if err := unmarshalAIJSON(raw, &out); err != nil {
			issues = []string{"Response must be a single valid JSON object with the required keys."}
		} else {
			normalizeOutput(&out, req)
			issues = out.Issues(r.limits)
			if len(issues) == 0 {
				r.log.Info("analysis generated",
					zap.String("primary", req.Primary),
					zap.Int("attempt", attempt),
				)
				return &out, nil
			}
		}

		r.log.Info("analysis rejected",
			zap.String("primary", req.Primary),
			zap.Int("attempt", attempt),
			zap.Strings("issues", issues),
		)
		prompt = buildRetryPrompt(base, raw, issues)
	}
	return nil, &ValidationError{Attempts: r.maxAttempts, Issues: issues}
}

// normalizeOutput pins the entity fields to the request and drops blank
// points.
func normalizeOutput(out *models.SwotAnalysis, req Request) {
	out.PrimaryEntity = req.Primary
	out.ComparisonEntities = append([]string{}, req.Comparisons...)
	out.Strengths = cleanItems(out.Strengths)
	out.Weaknesses = cleanItems(out.Weaknesses)
	out.Opportunities = cleanItems(out.Opportunities)
	out.Threats = cleanItems(out.Threats)
	out.Analysis = strings.TrimSpace(out.Analysis)
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
