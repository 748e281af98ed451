// Package aggregate fans a search out to many sources and merges the answers.
package aggregate

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"mangascout/internal/domain"
	"mangascout/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SourceError is the failure of one source during a fan-out. Results the
// source produced before failing are still merged.
type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e SourceError) Unwrap() error {
	return e.Err
}

type Aggregator struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Aggregator {
	return &Aggregator{log: log}
}

type slot struct {
	results []domain.Result
	err     *SourceError
}

// SearchAll queries every adapter concurrently. Each goroutine writes only its
// own slot and the merge happens after all of them return, so the output does
// not depend on completion order.
func (a *Aggregator) SearchAll(ctx context.Context, query string, adapters []domain.Adapter, opts domain.SearchOptions) ([]domain.Result, []SourceError) {
	log := a.log.With().Str("request", uuid.NewString()).Str("query", query).Logger()
	slots := make([]slot, len(adapters))

	var wg sync.WaitGroup
	for i, adapter := range adapters {
		if adapter == nil {
			slots[i].err = &SourceError{
				Source: fmt.Sprintf("#%d", i),
				Err:    domain.NewError(domain.KindInvalidConfig, "search", "", fmt.Errorf("nil adapter")),
			}
			continue
		}

		wg.Add(1)
		go func(i int, adapter domain.Adapter) {
			defer wg.Done()
			slots[i] = a.search(ctx, log, adapter, query, opts)
		}(i, adapter)
	}
	wg.Wait()

	var results []domain.Result
	var errs []SourceError
	for _, s := range slots {
		results = append(results, s.results...)
		if s.err != nil {
			errs = append(errs, *s.err)
		}
	}
	Merge(results)

	log.Debug().Int("results", len(results)).Int("errors", len(errs)).Msg("search finished")
	return results, errs
}

func (a *Aggregator) search(ctx context.Context, log zerolog.Logger, adapter domain.Adapter, query string, opts domain.SearchOptions) (s slot) {
	name := adapter.Name()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("source", name).Interface("panic", r).Msg("source search panicked")
			s = slot{err: &SourceError{Source: name, Err: fmt.Errorf("panic: %v", r)}}
		}
	}()

	results, err := adapter.Search(ctx, query, opts)
	metrics.SourceSearchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	metrics.SourceSearchesTotal.WithLabelValues(name, metrics.Outcome(err)).Inc()

	for i := range results {
		if results[i].Source == "" {
			results[i].Source = name
		}
	}
	s.results = results

	if err != nil {
		log.Warn().Err(err).Str("source", name).Int("partial", len(results)).Msg("source search failed")
		s.err = &SourceError{Source: name, Err: err}
	}
	return s
}

// Merge sorts results by similarity and rating, both descending, then by source
// and URL so equal entries land in a fixed order.
func Merge(results []domain.Result) {
	slices.SortStableFunc(results, func(a, b domain.Result) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		if c := cmp.Compare(b.RatingOrZero(), a.RatingOrZero()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.URL, b.URL)
	})
}
