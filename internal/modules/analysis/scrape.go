package analysis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"

	"golang.org/x/net/html"
)

const (
	toolFetchWebsite  = "fetch_website_content"
	maxPageBytes      = 4 << 20
	defaultUserAgent  = "StrategIQ/1.0 (+https://github.com/strategiq/swot)"
	maxScrapedContent = 20000
)

// Fetcher downloads a page and returns its visible text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// WebScraper fetches pages over HTTP and strips markup with x/net/html.
type WebScraper struct {
	client    *http.Client
	userAgent string
}

func NewWebScraper(client *http.Client, userAgent string) *WebScraper {
	if client == nil {
		client = http.DefaultClient
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}
	return &WebScraper{client: client, userAgent: userAgent}
}

func (s *WebScraper) Fetch(ctx context.Context, rawURL string) (string, error) {
	target := normalizeURL(rawURL)
	if target == "" {
		return "", newToolError(toolFetchWebsite, KindValidation, nil, "invalid URL %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", newToolError(toolFetchWebsite, KindValidation, err, "invalid URL %q", rawURL)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return "", newToolError(toolFetchWebsite, KindNetwork, err, "Timeout for %s", target)
		}
		return "", newToolError(toolFetchWebsite, KindNetwork, err, "Failed to fetch %s", target)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", newToolError(toolFetchWebsite, KindNetwork,
			fmt.Errorf("status %d", resp.StatusCode), "Failed to fetch %s", target)
	}

	text, err := extractText(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", newToolError(toolFetchWebsite, KindContent, err, "Failed to parse content from %s", target)
	}
	return truncateText(text, maxScrapedContent), nil
}

// extractText returns the visible text of an HTML document, one space
// between text nodes.
func extractText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var parts []string
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", err
			}
			return strings.Join(parts, " "), nil
		case html.StartTagToken:
			name, _ := z.TagName()
			if isInvisibleTag(string(name)) {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if isInvisibleTag(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if text := strings.Join(strings.Fields(string(z.Text())), " "); text != "" {
				parts = append(parts, text)
			}
		}
	}
}

func isInvisibleTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "template", "svg":
		return true
	}
	return false
}

// LooksLikeURL reports whether an entity should be scraped as a website.
func LooksLikeURL(entity string) bool {
	s := strings.ToLower(strings.TrimSpace(entity))
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return true
	}
	if strings.ContainsAny(s, " \t") || !strings.Contains(s, ".") {
		return false
	}
	host := s
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	dot := strings.LastIndexByte(host, '.')
	return dot > 0 && len(host)-dot-1 >= 2
}

func normalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := neturl.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	t, ok := err.(timeout)
	return ok && t.Timeout()
}
