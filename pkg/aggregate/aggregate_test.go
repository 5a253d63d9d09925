package aggregate_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vchiuchiolo/district-stats/pkg/aggregate"
	"github.com/vchiuchiolo/district-stats/pkg/errors"
	"github.com/vchiuchiolo/district-stats/pkg/stats"
)

func directoryResult(staff, students, chromebooks int) stats.PartialResult {
	return stats.NewPartialResult(stats.SourceDirectory, map[stats.Metric]int{
		stats.MetricStaff:       staff,
		stats.MetricStudents:    students,
		stats.MetricChromebooks: chromebooks,
	})
}

func mdmResult(macs, ipads int) stats.PartialResult {
	return stats.NewPartialResult(stats.SourceDeviceManagement, map[stats.Metric]int{
		stats.MetricMacs:  macs,
		stats.MetricIPads: ipads,
	})
}

func sisResult(students, staff int) stats.PartialResult {
	return stats.NewPartialResult(stats.SourceStudentInformation, map[stats.Metric]int{
		stats.MetricStudents: students,
		stats.MetricStaff:    staff,
	})
}

func TestAggregateScenarios(t *testing.T) {
	t.Run("enrollment within tolerance produces no note", func(t *testing.T) {
		record := aggregate.Aggregate(
			directoryResult(50, 400, 300),
			mdmResult(20, 15),
			sisResult(410, 0),
		)

		assert.Equal(t, 410, record.TotalStudents)
		assert.Equal(t, 50, record.TotalStaff)
		assert.Equal(t, 300, record.Chromebooks)
		assert.Equal(t, 20, record.MacComputers)
		assert.Equal(t, 15, record.IPads)
		assert.Equal(t, 335, record.TotalDevices)
		assert.Empty(t, record.Notes, "delta of exactly 10 is within tolerance")
	})

	t.Run("enrollment beyond tolerance records one note", func(t *testing.T) {
		record := aggregate.Aggregate(
			directoryResult(50, 400, 300),
			mdmResult(20, 15),
			sisResult(425, 0),
		)

		assert.Equal(t, 425, record.TotalStudents, "student-information still wins")
		require.Len(t, record.Notes, 1)
		assert.Contains(t, record.Notes[0], "25")
		assert.Contains(t, record.Notes[0], "425")
		assert.Contains(t, record.Notes[0], "400")
	})

	t.Run("failed device management still yields consistent record", func(t *testing.T) {
		failed := stats.Failed(stats.SourceDeviceManagement,
			[]stats.Metric{stats.MetricMacs, stats.MetricIPads},
			errors.NewAuthenticationError("device_management", "client_credentials", "no token received", errors.ErrNoToken))

		record := aggregate.Aggregate(
			directoryResult(50, 400, 300),
			failed,
			sisResult(410, 0),
		)

		assert.Equal(t, 0, record.MacComputers)
		assert.Equal(t, 0, record.IPads)
		assert.Equal(t, 300, record.TotalDevices)
		assert.True(t, record.Consistent())
	})
}

func TestAggregatePrecedence(t *testing.T) {
	t.Run("directory students used when enrollment is zero", func(t *testing.T) {
		record := aggregate.Aggregate(
			directoryResult(50, 400, 300),
			mdmResult(20, 15),
			sisResult(0, 0),
		)
		assert.Equal(t, 400, record.TotalStudents)
		assert.Empty(t, record.Notes, "no note when either count is zero")
	})

	t.Run("directory staff wins over student information staff", func(t *testing.T) {
		record := aggregate.Aggregate(
			directoryResult(50, 400, 300),
			mdmResult(20, 15),
			sisResult(410, 95),
		)
		assert.Equal(t, 50, record.TotalStaff)
	})

	t.Run("all sources failed yields all zeros", func(t *testing.T) {
		record := aggregate.Aggregate(
			stats.Failed(stats.SourceDirectory, []stats.Metric{stats.MetricStaff, stats.MetricStudents, stats.MetricChromebooks}, errors.ErrSourceUnavailable),
			stats.Failed(stats.SourceDeviceManagement, []stats.Metric{stats.MetricMacs, stats.MetricIPads}, errors.ErrSourceUnavailable),
			stats.Failed(stats.SourceStudentInformation, []stats.Metric{stats.MetricStudents, stats.MetricStaff}, errors.ErrSourceUnavailable),
		)
		assert.Equal(t, stats.CanonicalStats{Notes: []string{}}, record)
		assert.True(t, record.Consistent())
	})
}

func TestAggregateToleranceBoundary(t *testing.T) {
	cases := []struct {
		delta    int
		wantNote bool
	}{
		{delta: 9, wantNote: false},
		{delta: 10, wantNote: false},
		{delta: 11, wantNote: true},
		{delta: 100, wantNote: true},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("delta %d", tc.delta), func(t *testing.T) {
			record := aggregate.Aggregate(
				directoryResult(50, 400, 300),
				mdmResult(20, 15),
				sisResult(400+tc.delta, 0),
			)
			if tc.wantNote {
				assert.Len(t, record.Notes, 1)
			} else {
				assert.Empty(t, record.Notes)
			}
		})
	}
}

func TestAggregateCustomTolerance(t *testing.T) {
	record := aggregate.Aggregate(
		directoryResult(50, 400, 300),
		mdmResult(20, 15),
		sisResult(403, 0),
		aggregate.WithTolerance(2),
	)
	require.Len(t, record.Notes, 1)
	assert.Contains(t, record.Notes[0], "3")
}

func TestAggregateDeviceTotalInvariant(t *testing.T) {
	// Spot-check the derived total across a spread of inputs, including
	// zero and asymmetric counts.
	for _, counts := range [][3]int{{0, 0, 0}, {1, 0, 0}, {0, 7, 3}, {300, 20, 15}, {1000, 1, 999}} {
		record := aggregate.Aggregate(
			directoryResult(10, 100, counts[0]),
			mdmResult(counts[1], counts[2]),
			sisResult(100, 0),
		)
		assert.Equal(t, counts[0]+counts[1]+counts[2], record.TotalDevices)
		assert.True(t, record.Consistent())
	}
}
