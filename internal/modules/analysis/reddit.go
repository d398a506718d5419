package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	toolRedditInsights    = "get_reddit_insights"
	defaultRedditEndpoint = "https://www.reddit.com"
	maxSubreddits         = 10
	maxRedditSelftext     = 1500
)

// InsightSource gathers community commentary for a query.
type InsightSource interface {
	Insights(ctx context.Context, query string) (string, error)
}

// RedditInsights searches subreddits through Reddit's public JSON listing.
type RedditInsights struct {
	endpoint   string
	subreddits []string
	limit      int
	userAgent  string
	client     *http.Client
	log        *zap.Logger
}

type RedditOptions struct {
	Endpoint   string
	Subreddits []string
	Limit      int
	UserAgent  string
	Client     *http.Client
	Logger     *zap.Logger
}

func NewRedditInsights(opts RedditOptions) *RedditInsights {
	if opts.Endpoint == "" {
		opts.Endpoint = defaultRedditEndpoint
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	subs := opts.Subreddits
	if len(subs) > maxSubreddits {
		subs = subs[:maxSubreddits]
	}
	return &RedditInsights{
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		subreddits: subs,
		limit:      opts.Limit,
		userAgent:  opts.UserAgent,
		client:     opts.Client,
		log:        opts.Logger,
	}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title    string `json:"title"`
				URL      string `json:"url"`
				Selftext string `json:"selftext"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Insights searches every configured subreddit concurrently. A failing
// subreddit contributes an error line instead of failing the whole call.
func (r *RedditInsights) Insights(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", newToolError(toolRedditInsights, KindValidation, nil, "empty query")
	}
	if len(r.subreddits) == 0 {
		return "", newToolError(toolRedditInsights, KindAPI, nil, "no subreddits configured")
	}

	results := make([][]string, len(r.subreddits))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range r.subreddits {
		g.Go(func() error {
			posts, err := r.searchSubreddit(gctx, name, query)
			if err != nil {
				r.log.Warn("subreddit search failed", zap.String("subreddit", name), zap.Error(err))
				results[i] = []string{fmt.Sprintf("Error searching r/%s: %v", name, err)}
				return nil
			}
			results[i] = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", newToolError(toolRedditInsights, KindAPI, err, "Reddit search failed for %q", query)
	}

	var insights []string
	for _, posts := range results {
		insights = append(insights, posts...)
	}
	if len(insights) == 0 {
		return "No Reddit insights found for this query.", nil
	}
	return strings.Join(insights, "\n"), nil
}

func (r *RedditInsights) searchSubreddit(ctx context.Context, name, query string) ([]string, error) {
	params := neturl.Values{}
	params.Set("q", query)
	params.Set("restrict_sr", "1")
	params.Set("limit", strconv.Itoa(r.limit))
	u := fmt.Sprintf("%s/r/%s/search.json?%s", r.endpoint, neturl.PathEscape(name), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	posts := make([]string, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		p := child.Data
		posts = append(posts, fmt.Sprintf("Title: %s\nURL: %s\nContent: %s\n",
			p.Title, p.URL, truncateText(p.Selftext, maxRedditSelftext)))
	}
	return posts, nil
}
