// Package analysis gathers research on the requested entities and turns it
// into a validated SWOT analysis with a language model.
package analysis

import (
	"github.com/strategiq/swot/internal/config"
	"go.uber.org/zap"
)

// NewFromConfig wires a Runner from application config. A missing AI key is
// logged and leaves the runner without a generator, so runs fail with
// ErrProviderNotReady instead of preventing startup.
func NewFromConfig(cfg *config.AppConfig, log *zap.Logger) *Runner {
	client := NewHTTPClient(cfg.RequestTimeout(), cfg.ConnectTimeout())

	gen, err := NewGenerator(cfg.AI, client)
	if err != nil {
		log.Warn("AI provider unavailable", zap.Error(err))
	}

	opts := Options{
		Searcher:    NewTavilySearch(cfg.Search.TavilyAPIKey, cfg.Search.Endpoint, cfg.Search.MaxResults, client),
		Fetcher:     NewWebScraper(client, cfg.Reddit.UserAgent),
		Limits:      cfg.ValidationLimits(),
		MaxAttempts: cfg.AI.MaxAttempts,
		Logger:      log.Named("analysis"),
	}
	if gen != nil {
		opts.Generator = gen
	}
	if cfg.Reddit.Enable {
		opts.Insights = NewRedditInsights(RedditOptions{
			Subreddits: cfg.Reddit.Subreddits,
			Limit:      cfg.Reddit.Limit,
			UserAgent:  cfg.Reddit.UserAgent,
			Client:     client,
			Logger:     log.Named("reddit"),
		})
	}
	return NewRunner(opts)
}
