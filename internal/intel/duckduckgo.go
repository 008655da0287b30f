package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const duckDuckGoURL = "https://api.duckduckgo.com/"

// DuckDuckGo queries the DuckDuckGo instant answer API
type DuckDuckGo struct {
	baseURL string
	client  *http.Client
}

// NewDuckDuckGo creates a DuckDuckGo source. An empty baseURL selects the public API.
func NewDuckDuckGo(baseURL string) *DuckDuckGo {
	if baseURL == "" {
		baseURL = duckDuckGoURL
	}
	return &DuckDuckGo{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *DuckDuckGo) Name() string {
	return "duckduckgo"
}

type ddgTopic struct {
	Text   string     `json:"Text"`
	Topics []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	AbstractText  string     `json:"AbstractText"`
	Answer        string     `json:"Answer"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// Search returns the abstract and related topic texts for query
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	httpReq, err := http.NewRequestWithContext(ctx, "GET", d.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	var ddgResp ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&ddgResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var snippets []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" && (limit <= 0 || len(snippets) < limit) {
			snippets = append(snippets, s)
		}
	}

	add(ddgResp.Answer)
	add(ddgResp.AbstractText)
	var walk func([]ddgTopic)
	walk = func(topics []ddgTopic) {
		for _, t := range topics {
			add(t.Text)
			walk(t.Topics)
		}
	}
	walk(ddgResp.RelatedTopics)

	if len(snippets) == 0 {
		return nil, ErrNoResults
	}
	return snippets, nil
}
