package search

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Result is one web search hit handed to a risk stage for grounding.
type Result struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Client queries the DuckDuckGo HTML endpoint. Stages call Search at most a
// small fixed number of times per turn (once, by convention in the stage
// instructions); the client itself only bounds the result count.
type Client struct {
	endpoint   string
	maxResults int
	http       *http.Client
	logger     *zap.Logger
}

// NewClient creates a search client. endpoint defaults to the DuckDuckGo
// HTML frontend; maxResults defaults to 5.
func NewClient(endpoint string, maxResults int, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = "https://html.duckduckgo.com/html/"
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		endpoint:   endpoint,
		maxResults: maxResults,
		http:       &http.Client{Timeout: 20 * time.Second},
		logger:     logger,
	}
}

var (
	resultRe  = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	snippetRe = regexp.MustCompile(`(?s)<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
)

// Search runs one query and returns a bounded list of results.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	u := c.endpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "riskline/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	results := parseResults(string(body), c.maxResults)
	c.logger.Debug("search complete",
		zap.String("query", query),
		zap.Int("results", len(results)))
	return results, nil
}

// parseResults extracts up to max results from the HTML result page.
func parseResults(page string, max int) []Result {
	links := resultRe.FindAllStringSubmatch(page, -1)
	snippets := snippetRe.FindAllStringSubmatch(page, -1)

	var results []Result
	for i, m := range links {
		if len(results) >= max {
			break
		}
		href := html.UnescapeString(m[1])
		title := cleanText(m[2])
		if href == "" || title == "" {
			continue
		}
		href = resolveRedirect(href)
		r := Result{
			Title:  title,
			URL:    href,
			Source: hostOf(href),
		}
		if i < len(snippets) {
			r.Snippet = cleanText(snippets[i][1])
		}
		results = append(results, r)
	}
	return results
}

// resolveRedirect unwraps the uddg redirect parameter DuckDuckGo wraps
// result links in.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func cleanText(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}

// MarshalResults serialises results for tool output; empty is "[]", not null.
func MarshalResults(results []Result) string {
	if len(results) == 0 {
		return "[]"
	}
	b, err := json.Marshal(results)
	if err != nil {
		return "[]"
	}
	return string(b)
}
