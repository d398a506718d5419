package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	toolSearchWeb         = "search_web"
	defaultTavilyEndpoint = "https://api.tavily.com"
)

// Searcher runs a web search and returns a text digest of the results.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// TavilySearch queries the Tavily search REST API.
type TavilySearch struct {
	apiKey     string
	endpoint   string
	maxResults int
	client     *http.Client
}

func NewTavilySearch(apiKey, endpoint string, maxResults int, client *http.Client) *TavilySearch {
	if endpoint == "" {
		endpoint = defaultTavilyEndpoint
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &TavilySearch{
		apiKey:     strings.TrimSpace(apiKey),
		endpoint:   strings.TrimRight(endpoint, "/"),
		maxResults: maxResults,
		client:     client,
	}
}

type tavilyRequest struct {
	Query         string `json:"query"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (s *TavilySearch) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", newToolError(toolSearchWeb, KindValidation, nil, "empty query")
	}
	if s.apiKey == "" {
		return "", newToolError(toolSearchWeb, KindAPI, nil, "Tavily API key is not configured")
	}

	body, err := json.Marshal(tavilyRequest{Query: query, IncludeAnswer: true, MaxResults: s.maxResults})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/search", bytes.NewReader(body))
	if err != nil {
		return "", newToolError(toolSearchWeb, KindValidation, err, "build request for %q", query)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", newToolError(toolSearchWeb, KindNetwork, err, "Tavily search failed for %q", query)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newToolError(toolSearchWeb, KindNetwork, err, "read Tavily response for %q", query)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", newToolError(toolSearchWeb, KindAPI,
			fmt.Errorf("status %d: %s", resp.StatusCode, truncateText(strings.TrimSpace(string(respBody)), 200)),
			"Tavily search failed for %q", query)
	}

	var out tavilyResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", newToolError(toolSearchWeb, KindContent, err, "decode Tavily response for %q", query)
	}
	return formatSearchResults(out), nil
}

func formatSearchResults(r tavilyResponse) string {
	parts := make([]string, 0, len(r.Results)+1)
	if strings.TrimSpace(r.Answer) != "" {
		parts = append(parts, "Summary: "+r.Answer)
	}
	for _, item := range r.Results {
		parts = append(parts, fmt.Sprintf("Title: %s\nURL: %s\nContent: %s", item.Title, item.URL, item.Content))
	}
	if len(parts) == 0 {
		return "No results found."
	}
	return strings.Join(parts, "\n\n")
}
