// Package intel gathers best-effort market context for an audit prompt.
package intel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// FallbackNotice replaces the snippets whenever the search cannot deliver any
const FallbackNotice = "[Inteligencia de mercado no disponible: la búsqueda web falló. Usa promedios conservadores de la zona.]"

// ErrNoResults is returned by a Source that answered without usable snippets
var ErrNoResults = errors.New("no search results")

const (
	DefaultTimeout = 5 * time.Second
	DefaultLimit   = 3
)

// Source performs a free-text search and returns text snippets
type Source interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Cache stores snippets by query
type Cache interface {
	Get(ctx context.Context, query string) ([]string, bool, error)
	Set(ctx context.Context, query string, snippets []string) error
}

// Result is the outcome of a gather; Text is always usable in a prompt
type Result struct {
	Text     string   `json:"text"`
	Snippets []string `json:"snippets,omitempty"`
	Source   string   `json:"source"`
	Cached   bool     `json:"cached"`
	Fallback bool     `json:"fallback"`
}

// Gatherer wraps a Source with a timeout, a snippet limit and an optional cache
type Gatherer struct {
	source  Source
	cache   Cache
	timeout time.Duration
	limit   int
}

// Option configures a Gatherer
type Option func(*Gatherer)

// WithCache enables caching of successful searches
func WithCache(c Cache) Option {
	return func(g *Gatherer) { g.cache = c }
}

// WithTimeout bounds each search
func WithTimeout(d time.Duration) Option {
	return func(g *Gatherer) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLimit caps the number of snippets kept
func WithLimit(n int) Option {
	return func(g *Gatherer) {
		if n > 0 {
			g.limit = n
		}
	}
}

// NewGatherer creates a Gatherer. A nil source always yields the fallback notice.
func NewGatherer(source Source, opts ...Option) *Gatherer {
	g := &Gatherer{
		source:  source,
		timeout: DefaultTimeout,
		limit:   DefaultLimit,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Gather searches for query and never fails: errors degrade to FallbackNotice
func (g *Gatherer) Gather(ctx context.Context, query string) Result {
	if g == nil || g.source == nil {
		return fallback("none")
	}
	name := g.source.Name()

	if g.cache != nil {
		snippets, ok, err := g.cache.Get(ctx, query)
		if err != nil {
			log.Warn().Err(err).Str("query", query).Msg("Intel cache lookup failed")
		} else if ok && len(snippets) > 0 {
			return Result{Text: Format(snippets), Snippets: snippets, Source: name, Cached: true}
		}
	}

	sctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	snippets, err := g.search(sctx, query)
	if err != nil {
		log.Warn().Err(err).Str("source", name).Str("query", query).Msg("Market intel unavailable, using fallback")
		return fallback(name)
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, query, snippets); err != nil {
			log.Warn().Err(err).Str("query", query).Msg("Failed to cache intel")
		}
	}

	log.Debug().Str("source", name).Int("snippets", len(snippets)).Msg("Market intel gathered")
	return Result{Text: Format(snippets), Snippets: snippets, Source: name}
}

func (g *Gatherer) search(ctx context.Context, query string) (snippets []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("search panicked: %v", r)
		}
	}()

	raw, err := g.source.Search(ctx, query, g.limit)
	if err != nil {
		return nil, err
	}

	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			snippets = append(snippets, s)
		}
		if len(snippets) == g.limit {
			break
		}
	}
	if len(snippets) == 0 {
		return nil, ErrNoResults
	}
	return snippets, nil
}

// Format renders snippets as a bullet list
func Format(snippets []string) string {
	lines := make([]string, 0, len(snippets))
	for _, s := range snippets {
		lines = append(lines, "- "+s)
	}
	return strings.Join(lines, "\n")
}

func fallback(source string) Result {
	return Result{Text: FallbackNotice, Source: source, Fallback: true}
}
