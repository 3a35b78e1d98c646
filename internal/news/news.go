package news

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Searcher answers free-text queries with a short plain-text digest
type Searcher interface {
	SearchWeb(ctx context.Context, query string) (string, error)
}

// maxResults bounds the digest handed back to the model
const maxResults = 5

// DuckDuckGo queries the DuckDuckGo Instant Answer API. No API key
// required, so it works in both live and sim deployments.
type DuckDuckGo struct {
	http   *resty.Client
	logger zerolog.Logger
}

// NewDuckDuckGo creates a web searcher backed by DuckDuckGo
func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{
		http:   resty.New().SetBaseURL("https://api.duckduckgo.com"),
		logger: zerolog.Nop(),
	}
}

// WithLogger sets the searcher logger
func (d *DuckDuckGo) WithLogger(logger zerolog.Logger) *DuckDuckGo {
	d.logger = logger.With().Str("component", "news").Logger()
	return d
}

type instantAnswer struct {
	Abstract      string        `json:"Abstract"`
	AbstractText  string        `json:"AbstractText"`
	Heading       string        `json:"Heading"`
	RelatedTopics []topicResult `json:"RelatedTopics"`
}

type topicResult struct {
	Text     string        `json:"Text"`
	FirstURL string        `json:"FirstURL"`
	Topics   []topicResult `json:"Topics"`
}

// SearchWeb returns up to five result lines for a query
func (d *DuckDuckGo) SearchWeb(ctx context.Context, query string) (string, error) {
	var answer instantAnswer
	resp, err := d.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":       query,
			"format":  "json",
			"no_html": "1",
		}).
		SetResult(&answer).
		Get("/")
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("web search: status %d", resp.StatusCode())
	}

	lines := make([]string, 0, maxResults)
	if answer.AbstractText != "" {
		lines = append(lines, fmt.Sprintf("- %s: %s", answer.Heading, answer.AbstractText))
	}
	lines = appendTopics(lines, answer.RelatedTopics)

	if len(lines) == 0 {
		return fmt.Sprintf("No results found for %q.", query), nil
	}
	d.logger.Debug().Str("query", query).Int("results", len(lines)).Msg("Web search complete")
	return strings.Join(lines, "\n"), nil
}

func appendTopics(lines []string, topics []topicResult) []string {
	for _, t := range topics {
		if len(lines) >= maxResults {
			break
		}
		if t.Text != "" {
			lines = append(lines, "- "+t.Text)
			continue
		}
		lines = appendTopics(lines, t.Topics)
	}
	return lines
}

// StaticSearcher returns a canned digest for deterministic runs
type StaticSearcher struct{}

// NewStaticSearcher creates a searcher for sim mode
func NewStaticSearcher() *StaticSearcher {
	return &StaticSearcher{}
}

// SearchWeb returns a fixed placeholder digest
func (s *StaticSearcher) SearchWeb(_ context.Context, query string) (string, error) {
	return fmt.Sprintf("- Simulated search: no live news feed configured for %q.", query), nil
}
