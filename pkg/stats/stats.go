// Package stats defines the data model for district statistics: the
// per-source partial results produced by collectors, the reconciled
// canonical record, and the persisted run snapshot.
package stats

import (
	"encoding/json"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/vchiuchiolo/district-stats/pkg/errors"
)

// Source identifies one of the administrative backends.
type Source string

// Known sources.
const (
	SourceDirectory          Source = "directory"
	SourceDeviceManagement   Source = "device_management"
	SourceStudentInformation Source = "student_information"
)

// Metric names a single counted figure within a partial result.
type Metric string

// Known metrics.
const (
	MetricStaff       Metric = "staff"
	MetricStudents    Metric = "students"
	MetricChromebooks Metric = "chromebooks"
	MetricMacs        Metric = "macs"
	MetricIPads       Metric = "ipads"
)

// PartialResult is one source's contribution to a run: a set of
// non-negative counts keyed by metric, or an error descriptor when the
// source could not be collected. The two are mutually exclusive; a result
// carrying an error has every count at zero. A PartialResult is owned by
// its producing collector until it is handed to the aggregator.
type PartialResult struct {
	Source Source
	Counts map[Metric]int
	Error  string
}

// NewPartialResult builds a successful result for a source.
func NewPartialResult(source Source, counts map[Metric]int) PartialResult {
	c := make(map[Metric]int, len(counts))
	for m, n := range counts {
		if n < 0 {
			n = 0
		}
		c[m] = n
	}
	return PartialResult{Source: source, Counts: c}
}

// Failed builds a zeroed result recording why the source could not be
// collected. Every metric the source would normally report is present with
// a zero count so the aggregator sees a fully-populated mapping.
func Failed(source Source, metrics []Metric, err error) PartialResult {
	counts := make(map[Metric]int, len(metrics))
	for _, m := range metrics {
		counts[m] = 0
	}
	msg := "unknown failure"
	if err != nil {
		msg = err.Error()
	}
	return PartialResult{Source: source, Counts: counts, Error: msg}
}

// Failed reports whether this result records a collection failure.
func (p PartialResult) Failed() bool {
	return p.Error != ""
}

// Count returns the count for a metric, or zero when the metric is absent.
func (p PartialResult) Count(m Metric) int {
	return p.Counts[m]
}

// MarshalJSON encodes the wire form: counts flattened alongside the
// error descriptor, matching the persisted snapshot format.
//
//	{"staff": 50, "students": 400, "error": null}
func (p PartialResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Counts)+1)
	for m, n := range p.Counts {
		out[string(m)] = n
	}
	if p.Error != "" {
		out["error"] = p.Error
	} else {
		out["error"] = nil
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the flattened wire form back into counts and error.
func (p *PartialResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.WrapParse("json", "partial result", err)
	}

	p.Counts = make(map[Metric]int, len(raw))
	for key, val := range raw {
		if key == "error" {
			var msg *string
			if err := json.Unmarshal(val, &msg); err != nil {
				return errors.WrapParse("json", "partial result error", err)
			}
			if msg != nil {
				p.Error = *msg
			}
			continue
		}
		var n int
		if err := json.Unmarshal(val, &n); err != nil {
			return errors.WrapParse("json", "partial result count "+key, err)
		}
		if n < 0 {
			n = 0
		}
		p.Counts[Metric(key)] = n
	}
	return nil
}

// CanonicalStats is the reconciled record of a run. It is created once by
// the aggregator and immutable thereafter. TotalDevices always equals
// Chromebooks + MacComputers + IPads.
type CanonicalStats struct {
	TotalStudents int      `json:"total_students"`
	TotalStaff    int      `json:"total_staff"`
	Chromebooks   int      `json:"chromebooks"`
	MacComputers  int      `json:"mac_computers"`
	IPads         int      `json:"ipads"`
	TotalDevices  int      `json:"total_devices"`
	Notes         []string `json:"notes"`
}

// Consistent reports whether the record's derived totals hold.
func (c CanonicalStats) Consistent() bool {
	if c.TotalStudents < 0 || c.TotalStaff < 0 || c.Chromebooks < 0 || c.MacComputers < 0 || c.IPads < 0 {
		return false
	}
	return c.TotalDevices == c.Chromebooks+c.MacComputers+c.IPads
}

// Snapshot is the persisted artifact of one run: the canonical record plus
// the raw per-source partial results that produced it. Append-only; never
// mutated after creation.
type Snapshot struct {
	RunID      uuid.UUID                `json:"run_id"`
	Timestamp  utc.Time                 `json:"timestamp"`
	Aggregated CanonicalStats           `json:"aggregated"`
	Raw        map[Source]PartialResult `json:"raw"`
}

// NewSnapshot assembles a snapshot for the given run results.
func NewSnapshot(aggregated CanonicalStats, raw ...PartialResult) Snapshot {
	m := make(map[Source]PartialResult, len(raw))
	for _, r := range raw {
		m[r.Source] = r
	}
	return Snapshot{
		RunID:      uuid.New(),
		Timestamp:  utc.Now(),
		Aggregated: aggregated,
		Raw:        m,
	}
}
