// Package pipeline sequences a full collection run: the three source
// collectors, the aggregator, the snapshot store, and the presentation
// collaborator.
package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vchiuchiolo/district-stats/internal/sources"
	"github.com/vchiuchiolo/district-stats/pkg/aggregate"
	"github.com/vchiuchiolo/district-stats/pkg/errors"
	"github.com/vchiuchiolo/district-stats/pkg/logging"
	"github.com/vchiuchiolo/district-stats/pkg/stats"
)

// Store persists a run snapshot and returns where it was written.
type Store interface {
	Write(stats.Snapshot) (string, error)
}

// Presenter consumes the canonical record to refresh a display. It is an
// external collaborator: nothing it does feeds back into the pipeline.
type Presenter interface {
	Present(stats.CanonicalStats) error
}

// Pipeline runs collectors, aggregation, persistence, and presentation in
// order. Collector failures are soft: a source that cannot be reached
// contributes a zeroed partial result and the run continues. Aggregation
// and persistence failures are fatal to the run.
type Pipeline struct {
	collectors []sources.Collector
	store      Store
	presenter  Presenter
	aggOpts    []aggregate.Option
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCollectors sets the source collectors to run.
func WithCollectors(cs ...sources.Collector) Option {
	return func(p *Pipeline) {
		p.collectors = cs
	}
}

// WithStore sets the snapshot store.
func WithStore(s Store) Option {
	return func(p *Pipeline) {
		p.store = s
	}
}

// WithPresenter sets the presentation collaborator. Optional.
func WithPresenter(pr Presenter) Option {
	return func(p *Pipeline) {
		p.presenter = pr
	}
}

// WithAggregateOptions forwards options to the aggregator.
func WithAggregateOptions(opts ...aggregate.Option) Option {
	return func(p *Pipeline) {
		p.aggOpts = opts
	}
}

// New creates a pipeline.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if len(p.collectors) == 0 {
		return nil, &errors.ConfigError{Component: "pipeline", Message: "no collectors configured"}
	}
	if p.store == nil {
		return nil, &errors.ConfigError{Component: "pipeline", Message: "no snapshot store configured"}
	}
	return p, nil
}

// Run executes one full collection run and returns the persisted snapshot.
//
// The collectors share no state and run concurrently; each owns its
// credential for the duration of its call. A collector that panics or
// whose source is down still yields a partial result, so Run only fails
// on aggregation or persistence faults.
func (p *Pipeline) Run(ctx context.Context) (stats.Snapshot, error) {
	log := logging.Ctx(ctx)

	results := p.collect(ctx)

	directory := p.resultFor(results, stats.SourceDirectory)
	mdm := p.resultFor(results, stats.SourceDeviceManagement)
	sis := p.resultFor(results, stats.SourceStudentInformation)

	record := aggregate.Aggregate(directory, mdm, sis, p.aggOpts...)

	log.Info().
		Int("students", record.TotalStudents).
		Int("staff", record.TotalStaff).
		Int("devices", record.TotalDevices).
		Int("notes", len(record.Notes)).
		Msg("Aggregated canonical record")
	for _, note := range record.Notes {
		log.Warn().Str("note", note).Msg("Cross-source discrepancy")
	}

	snap := stats.NewSnapshot(record, directory, mdm, sis)

	path, err := p.store.Write(snap)
	if err != nil {
		return snap, err
	}
	log.Info().Str("path", path).Msg("Snapshot persisted")

	if p.presenter != nil {
		// Presentation is outside the run's failure contract: a render
		// fault is reported but the run still counts as complete.
		if err := p.presenter.Present(record); err != nil {
			log.Error().Err(err).Msg("Presentation failed")
		}
	}

	return snap, nil
}

// collect fans the collectors out concurrently and gathers their partial
// results keyed by source.
func (p *Pipeline) collect(ctx context.Context) map[stats.Source]stats.PartialResult {
	log := logging.Ctx(ctx)

	results := make(map[stats.Source]stats.PartialResult, len(p.collectors))
	resultCh := make(chan stats.PartialResult, len(p.collectors))

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range p.collectors {
		c := c
		g.Go(func() error {
			log.Info().Str("source", string(c.Name())).Msg("Collecting")
			resultCh <- c.Collect(logging.WithSource(gctx, string(c.Name())))
			return nil
		})
	}
	_ = g.Wait() // collectors never return errors
	close(resultCh)

	for r := range resultCh {
		if r.Failed() {
			log.Warn().Str("source", string(r.Source)).Str("error", r.Error).Msg("Source collection failed")
		}
		results[r.Source] = r
	}
	return results
}

// resultFor returns the collected result for a source, or a zeroed
// failure record when no collector reported for it.
func (p *Pipeline) resultFor(results map[stats.Source]stats.PartialResult, src stats.Source) stats.PartialResult {
	if r, ok := results[src]; ok {
		return r
	}
	return stats.Failed(src, nil, errors.New("no collector configured for source "+string(src)))
}
