// Package sources defines the collector contract shared by the three
// administrative backends. Each collector wraps an authenticated transport
// client with domain semantics and reduces the source's records to
// integer counts.
package sources

import (
	"context"

	"github.com/vchiuchiolo/district-stats/pkg/stats"
)

// Collector maps one source's API surface to a partial result of domain
// counts.
//
// Collect never fails hard: authentication, transport, and parse failures
// are all folded into the returned PartialResult as a zeroed count set
// with an error descriptor. This keeps the pipeline running even when a
// source is entirely unreachable.
type Collector interface {
	// Name identifies the source this collector reads.
	Name() stats.Source

	// Metrics lists the metric names this collector reports. A failed
	// collection zeroes exactly these.
	Metrics() []stats.Metric

	// Collect gathers the source's counts. Each call acquires a fresh
	// credential; nothing is cached across runs. The collector owns its
	// credential exclusively for the duration of the call.
	Collect(ctx context.Context) stats.PartialResult
}
