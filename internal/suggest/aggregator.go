package suggest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ZhanXPX/glance-multisearch/internal/history"
)

const (
	// MaxSuggestions caps the merged result returned to the caller.
	MaxSuggestions = 12

	// MaxHistoryMatches caps how many remembered queries join the merge.
	MaxHistoryMatches = 6
)

// Response is the aggregated suggestion result. From echoes the engine name
// the caller requested, even when an unknown name fell back to the primary
// engine.
type Response struct {
	Suggestions []string `json:"suggestions"`
	From        string   `json:"from"`
}

// Aggregator merges one provider's suggestions with matching history
// entries. A provider failure never fails the aggregation: autocomplete
// answers with best-effort data or nothing, not with an error.
type Aggregator struct {
	registry *Registry
	history  *history.Service
	log      zerolog.Logger
}

// NewAggregator wires the registry and history service together.
func NewAggregator(registry *Registry, hist *history.Service, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		registry: registry,
		history:  hist,
		log:      log.With().Str("component", "suggest").Logger(),
	}
}

// Suggest runs the per-call pipeline: short-circuit on empty query, collect
// history matches from the full history, dispatch to the named provider
// (unknown names fall back), then merge provider-first with dedup and cap.
func (a *Aggregator) Suggest(ctx context.Context, rawUser, engine, rawQuery string) Response {
	q := history.NormalizeQuery(rawQuery)
	if q == "" {
		return Response{Suggestions: []string{}, From: engine}
	}

	historyMatches := a.history.Matches(rawUser, q, MaxHistoryMatches)

	provider := a.registry.Lookup(engine)
	remote, err := provider.Suggest(ctx, q)
	if err != nil {
		// Upstream outage degrades to history-only results.
		a.log.Warn().Err(err).Str("engine", provider.Name()).Msg("provider failed")
		remote = nil
	}

	merged := uniqueLimit(append(remote, historyMatches...), MaxSuggestions)
	return Response{Suggestions: merged, From: engine}
}
