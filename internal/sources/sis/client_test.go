package sis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vchiuchiolo/district-stats/internal/config"
	"github.com/vchiuchiolo/district-stats/pkg/stats"
)

// fakeSIS answers the token endpoint plus minimal-page listing queries
// with configurable per-resource totals and statuses.
type fakeSIS struct {
	totals   map[string]int // resource -> totalCount
	statuses map[string]int // resource -> HTTP status override
}

func (f *fakeSIS) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "sis-token"}`))
	})

	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sis-token", r.Header.Get("Authorization"))
		assert.Equal(t, "1", r.URL.Query().Get("pageSize"), "count probes must not materialize records")

		resource := r.URL.Path[len("/v1/"):]
		if status, ok := f.statuses[resource]; ok {
			w.WriteHeader(status)
			return
		}
		total, ok := f.totals[resource]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(pagedResponse{PagingInfo: pagingInfo{TotalCount: total}})
	})

	return httptest.NewServer(mux)
}

func testConfig(serverURL string) config.StudentInformationConfig {
	return config.StudentInformationConfig{
		BaseURL:        serverURL,
		TokenURL:       serverURL + "/auth/token",
		ClientID:       "id",
		ClientSecret:   "secret",
		StaffEndpoints: []string{"staff", "employees", "personnel"},
	}
}

func TestCollect(t *testing.T) {
	fake := &fakeSIS{totals: map[string]int{"students": 410, "staff": 95}}
	server := fake.server(t)
	defer server.Close()

	result := New(testConfig(server.URL)).Collect(context.Background())

	require.False(t, result.Failed(), "error: %s", result.Error)
	assert.Equal(t, 410, result.Count(stats.MetricStudents))
	assert.Equal(t, 95, result.Count(stats.MetricStaff))
}

func TestStaffFallbackChain(t *testing.T) {
	t.Run("first candidate missing, second zero, third wins", func(t *testing.T) {
		fake := &fakeSIS{totals: map[string]int{
			"students":  410,
			"employees": 0, // answers 200 but reports nothing
			"personnel": 88,
		}}
		server := fake.server(t)
		defer server.Close()

		result := New(testConfig(server.URL)).Collect(context.Background())

		require.False(t, result.Failed())
		assert.Equal(t, 88, result.Count(stats.MetricStaff))
	})

	t.Run("no candidate works yields zero staff without failing", func(t *testing.T) {
		fake := &fakeSIS{
			totals:   map[string]int{"students": 410},
			statuses: map[string]int{"staff": 403, "employees": 500},
		}
		server := fake.server(t)
		defer server.Close()

		result := New(testConfig(server.URL)).Collect(context.Background())

		require.False(t, result.Failed(), "staff probe is best-effort")
		assert.Equal(t, 410, result.Count(stats.MetricStudents))
		assert.Zero(t, result.Count(stats.MetricStaff))
	})

	t.Run("probe order is the configured order", func(t *testing.T) {
		fake := &fakeSIS{totals: map[string]int{
			"students":  410,
			"staff":     60,
			"employees": 70, // never reached: staff answered first
		}}
		server := fake.server(t)
		defer server.Close()

		result := New(testConfig(server.URL)).Collect(context.Background())
		assert.Equal(t, 60, result.Count(stats.MetricStaff))
	})
}

func TestCollectTokenFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	result := New(testConfig(server.URL)).Collect(context.Background())

	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "no token received")
	assert.Zero(t, result.Count(stats.MetricStudents))
	assert.Zero(t, result.Count(stats.MetricStaff))
}

func TestCollectStudentCountFailure(t *testing.T) {
	// Unlike the staff probe, the enrollment count has no fallback.
	fake := &fakeSIS{
		totals:   map[string]int{"staff": 95},
		statuses: map[string]int{"students": 500},
	}
	server := fake.server(t)
	defer server.Close()

	result := New(testConfig(server.URL)).Collect(context.Background())

	assert.True(t, result.Failed())
	assert.Zero(t, result.Count(stats.MetricStudents))
	assert.Zero(t, result.Count(stats.MetricStaff))
}
