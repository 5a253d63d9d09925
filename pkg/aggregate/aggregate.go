// Package aggregate reconciles the three per-source partial results into
// one canonical statistics record under fixed precedence rules.
//
// Precedence is not configurable: enrollment counts come from the
// student-information service (official enrollment) with the directory as
// fallback, staff and chromebook counts come from the directory, and
// computer and tablet counts come from the device-management service.
// The device total is always recomputed, never read from a source.
package aggregate

import (
	"fmt"

	"github.com/vchiuchiolo/district-stats/pkg/constants"
	"github.com/vchiuchiolo/district-stats/pkg/stats"
)

// Option configures aggregation behavior.
type Option func(*options)

type options struct {
	tolerance int
}

// WithTolerance overrides the student-count discrepancy tolerance.
func WithTolerance(n int) Option {
	return func(o *options) {
		o.tolerance = n
	}
}

// Aggregate combines the three partial results into a canonical record.
// It is a pure function: deterministic, no I/O, and it never inspects a
// result's error descriptor. A zeroed result from a failed source is
// treated identically to a legitimately-zero count. Callers that need to
// distinguish the two must look at the PartialResult directly.
func Aggregate(directory, mdm, sis stats.PartialResult, opts ...Option) stats.CanonicalStats {
	o := options{tolerance: constants.DefaultStudentTolerance}
	for _, opt := range opts {
		opt(&o)
	}

	sisStudents := sis.Count(stats.MetricStudents)
	dirStudents := directory.Count(stats.MetricStudents)

	// Students: official enrollment wins, directory is the fallback.
	students := sisStudents
	if students <= 0 {
		students = dirStudents
	}

	// Staff: directory accounts are the most current, regardless of what
	// the student-information service reports.
	staff := directory.Count(stats.MetricStaff)

	chromebooks := directory.Count(stats.MetricChromebooks)
	macs := mdm.Count(stats.MetricMacs)
	ipads := mdm.Count(stats.MetricIPads)

	notes := []string{}
	if sisStudents > 0 && dirStudents > 0 {
		if diff := abs(sisStudents - dirStudents); diff > o.tolerance {
			notes = append(notes, fmt.Sprintf(
				"Student count differs by %d between student information (%d) and directory (%d)",
				diff, sisStudents, dirStudents))
		}
	}

	return stats.CanonicalStats{
		TotalStudents: students,
		TotalStaff:    staff,
		Chromebooks:   chromebooks,
		MacComputers:  macs,
		IPads:         ipads,
		TotalDevices:  chromebooks + macs + ipads,
		Notes:         notes,
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
