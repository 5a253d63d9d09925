package widget

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vchiuchiolo/district-stats/pkg/stats"
)

func TestPresent(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRenderer(filepath.Join(dir, "out"))
	require.NoError(t, err)
	r.now = func() time.Time {
		return time.Date(2025, time.September, 2, 7, 30, 0, 0, time.UTC)
	}

	record := stats.CanonicalStats{
		TotalStudents: 1412,
		TotalStaff:    57,
		Chromebooks:   1300,
		MacComputers:  25,
		IPads:         80,
		TotalDevices:  1405,
	}
	require.NoError(t, r.Present(record))

	data, err := os.ReadFile(filepath.Join(dir, "out", FileName))
	require.NoError(t, err)
	html := string(data)

	// Counts render with thousands separators.
	assert.Contains(t, html, ">1,412<")
	assert.Contains(t, html, ">57<")
	assert.Contains(t, html, ">1,405<")
	assert.Contains(t, html, ">1,300<")
	assert.Contains(t, html, ">25<")
	assert.Contains(t, html, ">80<")
	assert.Contains(t, html, "September 2, 2025 at 7:30 AM")
	assert.Contains(t, html, `http-equiv="refresh" content="3600"`)
}

func TestPresentOverwrites(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRenderer(dir)
	require.NoError(t, err)

	require.NoError(t, r.Present(stats.CanonicalStats{TotalStudents: 1}))
	require.NoError(t, r.Present(stats.CanonicalStats{TotalStudents: 2}))

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), ">2<")
	assert.NotContains(t, string(data), ">1<")
}
