package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vchiuchiolo/district-stats/internal/config"
	"github.com/vchiuchiolo/district-stats/pkg/stats"
)

// fakeDirectory serves a token endpoint plus paginated user and device
// listings keyed by org unit.
type fakeDirectory struct {
	users   map[string][]userRecord   // org unit -> users
	devices map[string][]deviceRecord // org unit -> devices
	perPage int
}

func (f *fakeDirectory) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token": "dir-token"}`))
	})

	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer dir-token", r.Header.Get("Authorization"))
		ou := orgUnitFromQuery(r.URL.Query().Get("query"))
		page, next := paginate(f.users[ou], r.URL.Query().Get("pageToken"), f.perPage)
		_ = json.NewEncoder(w).Encode(usersResponse{Users: page, NextPageToken: next})
	})

	mux.HandleFunc("/devices", func(w http.ResponseWriter, r *http.Request) {
		ou := r.URL.Query().Get("orgUnitPath")
		page, next := paginate(f.devices[ou], r.URL.Query().Get("pageToken"), f.perPage)
		_ = json.NewEncoder(w).Encode(devicesResponse{Devices: page, NextPageToken: next})
	})

	return mux
}

// orgUnitFromQuery unwraps "orgUnitPath='/users/staff'" into the path.
func orgUnitFromQuery(query string) string {
	var ou string
	_, _ = fmt.Sscanf(query, "orgUnitPath='%s", &ou)
	if len(ou) > 0 && ou[len(ou)-1] == '\'' {
		ou = ou[:len(ou)-1]
	}
	return ou
}

// paginate slices records into pages with numeric continuation tokens.
func paginate[T any](records []T, token string, perPage int) ([]T, string) {
	if perPage <= 0 {
		perPage = 2
	}
	start := 0
	if token != "" {
		_, _ = fmt.Sscanf(token, "p%d", &start)
	}
	end := start + perPage
	if end >= len(records) {
		return records[start:], ""
	}
	return records[start:end], fmt.Sprintf("p%d", end)
}

func testConfig(serverURL string) config.DirectoryConfig {
	return config.DirectoryConfig{
		BaseURL:           serverURL,
		TokenURL:          serverURL + "/oauth/token",
		ClientID:          "id",
		ClientSecret:      "secret",
		StaffOrgUnit:      "/users/employees",
		StudentOrgUnit:    "/users/students",
		ChromebookOrgUnit: "/chromebooks/2025",
	}
}

func TestCollect(t *testing.T) {
	fake := &fakeDirectory{
		users: map[string][]userRecord{
			"/users/employees": {
				{PrimaryEmail: "a@x", Suspended: false},
				{PrimaryEmail: "b@x", Suspended: true},
				{PrimaryEmail: "c@x", Suspended: false},
				{PrimaryEmail: "d@x", Suspended: false},
				{PrimaryEmail: "e@x", Suspended: false},
			},
			"/users/students": {
				{PrimaryEmail: "s1@x"}, {PrimaryEmail: "s2@x"}, {PrimaryEmail: "s3@x"},
			},
		},
		devices: map[string][]deviceRecord{
			"/chromebooks/2025": {
				{SerialNumber: "1", Status: "ACTIVE"},
				{SerialNumber: "2", Status: "DEPROVISIONED"},
				{SerialNumber: "3", Status: "ACTIVE"},
			},
		},
		perPage: 2, // force pagination across several pages
	}

	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := New(testConfig(server.URL))
	result := client.Collect(context.Background())

	require.False(t, result.Failed(), "error: %s", result.Error)
	assert.Equal(t, 4, result.Count(stats.MetricStaff), "suspended accounts excluded")
	assert.Equal(t, 3, result.Count(stats.MetricStudents))
	assert.Equal(t, 2, result.Count(stats.MetricChromebooks), "only ACTIVE devices counted")
}

func TestCollectTokenFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			_, _ = w.Write([]byte(`{"error": "invalid_client"}`))
			return
		}
		t.Errorf("unexpected request to %s after failed token exchange", r.URL.Path)
	}))
	defer server.Close()

	client := New(testConfig(server.URL))
	result := client.Collect(context.Background())

	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "no token received")
	for _, m := range client.Metrics() {
		assert.Zero(t, result.Count(m))
	}
}

func TestCollectListingFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			_, _ = w.Write([]byte(`{"access_token": "dir-token"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`backend down`))
	}))
	defer server.Close()

	client := New(testConfig(server.URL))
	result := client.Collect(context.Background())

	assert.True(t, result.Failed())
	assert.Zero(t, result.Count(stats.MetricStaff))
	assert.Zero(t, result.Count(stats.MetricStudents))
	assert.Zero(t, result.Count(stats.MetricChromebooks))
}

func TestCollectSendsDelegationSubject(t *testing.T) {
	var gotSubject string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			require.NoError(t, r.ParseForm())
			gotSubject = r.PostForm.Get("subject")
			_, _ = w.Write([]byte(`{"access_token": "dir-token"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(usersResponse{})
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.AdminSubject = "admin@district.org"

	New(cfg).Collect(context.Background())
	assert.Equal(t, "admin@district.org", gotSubject)
}
