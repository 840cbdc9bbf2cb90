package search

import (
	"context"

	"popcorn/internal/metrics"
	"popcorn/internal/utils"
)

// Result is the outcome of a one-shot search.
type Result struct {
	Query      string           `json:"query"`
	Candidates ParsedCandidates `json:"candidates"`
	Movies     []ResolvedHit    `json:"movies"`
	People     []ResolvedHit    `json:"people"`
	Disclaimer string           `json:"disclaimer"`
}

// Pipeline runs completion, parsing, resolution and classification for a
// single query without debouncing or session state. Upstream failures yield
// an empty result.
type Pipeline struct {
	completer Completer
	resolver  CandidateResolver
	logger    *utils.Logger
}

func NewPipeline(completer Completer, resolver CandidateResolver, logger *utils.Logger) *Pipeline {
	return &Pipeline{completer: completer, resolver: resolver, logger: logger}
}

func (p *Pipeline) Run(ctx context.Context, query string) Result {
	result := Result{
		Query:      query,
		Candidates: ParsedCandidates{MovieTitles: []string{}, PeopleNames: []string{}},
		Movies:     []ResolvedHit{},
		People:     []ResolvedHit{},
		Disclaimer: Disclaimer,
	}
	metrics.SearchGenerationsTotal.WithLabelValues("started").Inc()

	text, err := p.completer.Complete(ctx, query)
	if err != nil {
		p.logger.Error("Completion failed for query", query+":", err)
		metrics.SearchGenerationsTotal.WithLabelValues("failed").Inc()
		return result
	}

	result.Candidates = Parse(text)
	if result.Candidates.Empty() {
		metrics.SearchGenerationsTotal.WithLabelValues("empty").Inc()
		return result
	}

	classified := Classify(p.resolver.Resolve(ctx, result.Candidates))
	result.Movies = classified.Movies
	result.People = classified.People
	metrics.SearchGenerationsTotal.WithLabelValues("settled").Inc()
	return result
}
