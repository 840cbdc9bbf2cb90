package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"popcorn/internal/clients/metadata"
	"popcorn/internal/metrics"
	"popcorn/internal/utils"
)

type Origin string

const (
	OriginMovie  Origin = "movie"
	OriginPerson Origin = "person"
)

// Lookup is the subset of the TMDB client the resolver needs.
type Lookup interface {
	SearchMovie(ctx context.Context, title string) ([]metadata.SearchHit, error)
	SearchPerson(ctx context.Context, name string) ([]metadata.SearchHit, error)
}

// ResolvedHit is the top lookup result for one candidate, tagged with the
// candidate list that produced it.
type ResolvedHit struct {
	Origin    Origin             `json:"origin"`
	Candidate string             `json:"candidate"`
	Hit       metadata.SearchHit `json:"hit"`
}

type Resolver struct {
	lookup      Lookup
	concurrency int
	logger      *utils.Logger
}

func NewResolver(lookup Lookup, concurrency int, logger *utils.Logger) *Resolver {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Resolver{lookup: lookup, concurrency: concurrency, logger: logger}
}

// Resolve looks up every candidate concurrently and waits for all of them.
// Output order is movie candidates then people, each in candidate order.
// A failed or empty lookup contributes nothing.
func (r *Resolver) Resolve(ctx context.Context, candidates ParsedCandidates) []ResolvedHit {
	total := len(candidates.MovieTitles) + len(candidates.PeopleNames)
	if total == 0 {
		return []ResolvedHit{}
	}

	slots := make([]*ResolvedHit, total)

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, title := range candidates.MovieTitles {
		g.Go(func() error {
			slots[i] = r.first(ctx, OriginMovie, title, r.lookup.SearchMovie)
			return nil
		})
	}
	offset := len(candidates.MovieTitles)
	for i, name := range candidates.PeopleNames {
		g.Go(func() error {
			slots[offset+i] = r.first(ctx, OriginPerson, name, r.lookup.SearchPerson)
			return nil
		})
	}
	_ = g.Wait()

	hits := make([]ResolvedHit, 0, total)
	for _, slot := range slots {
		if slot != nil {
			hits = append(hits, *slot)
		}
	}
	return hits
}

func (r *Resolver) first(ctx context.Context, origin Origin, candidate string, lookup func(context.Context, string) ([]metadata.SearchHit, error)) *ResolvedHit {
	results, err := lookup(ctx, candidate)
	if err != nil {
		metrics.LookupFailuresTotal.WithLabelValues(string(origin)).Inc()
		r.logger.Warn("Lookup failed for", string(origin), "candidate", candidate+":", err)
		return nil
	}
	if len(results) == 0 {
		r.logger.Debug("No", string(origin), "match for", candidate)
		return nil
	}
	return &ResolvedHit{Origin: origin, Candidate: candidate, Hit: results[0]}
}
