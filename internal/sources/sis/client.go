// Package sis collects enrollment figures from the district's
// student-information service. Counts come from the paging metadata of
// minimal-page-size queries, so no record lists are ever materialized.
package sis

import (
	"context"
	"net/url"
	"strconv"

	"github.com/vchiuchiolo/district-stats/internal/config"
	"github.com/vchiuchiolo/district-stats/internal/transport"
	"github.com/vchiuchiolo/district-stats/pkg/constants"
	"github.com/vchiuchiolo/district-stats/pkg/logging"
	"github.com/vchiuchiolo/district-stats/pkg/stats"
)

// pagedResponse is the relevant slice of any listing response; only the
// paging metadata is read.
type pagedResponse struct {
	PagingInfo pagingInfo `json:"pagingInfo"`
}

type pagingInfo struct {
	TotalCount int `json:"totalCount"`
}

// Client implements the sources.Collector interface for the
// student-information service.
type Client struct {
	cfg       config.StudentInformationConfig
	transport *transport.Client
}

// New creates a student-information collector.
func New(cfg config.StudentInformationConfig) *Client {
	return &Client{
		cfg:       cfg,
		transport: transport.New(string(stats.SourceStudentInformation)),
	}
}

// Name identifies the source this collector reads.
func (c *Client) Name() stats.Source {
	return stats.SourceStudentInformation
}

// Metrics lists the metric names this collector reports.
func (c *Client) Metrics() []stats.Metric {
	return []stats.Metric{stats.MetricStudents, stats.MetricStaff}
}

// Collect reads the enrollment total and probes for a staff total. A
// student-count failure fails the whole result; the staff probe is
// best-effort and falls back to zero when no candidate endpoint works.
func (c *Client) Collect(ctx context.Context) stats.PartialResult {
	log := logging.Ctx(ctx)

	cred, err := c.transport.Token(ctx, c.cfg.TokenURL, c.cfg.ClientID, c.cfg.ClientSecret)
	if err != nil {
		log.Error().Err(err).Str("source", string(c.Name())).Msg("Token acquisition failed")
		return stats.Failed(c.Name(), c.Metrics(), err)
	}

	students, err := c.totalCount(ctx, cred, "students")
	if err != nil {
		return stats.Failed(c.Name(), c.Metrics(), err)
	}

	staff := c.probeStaffCount(ctx, cred)

	log.Info().
		Int("students", students).
		Int("staff", staff).
		Msg("Student-information counts collected")

	return stats.NewPartialResult(c.Name(), map[stats.Metric]int{
		stats.MetricStudents: students,
		stats.MetricStaff:    staff,
	})
}

// probeStaffCount walks the ordered list of candidate staff resources and
// accepts the first that answers 200 with a non-zero total. The schema for
// staff varies by deployment, so this is an explicit finite fallback
// chain: every candidate failing terminates with a zero count, not an
// error.
func (c *Client) probeStaffCount(ctx context.Context, cred transport.Credential) int {
	log := logging.Ctx(ctx)

	for _, endpoint := range c.cfg.StaffEndpoints {
		count, err := c.totalCount(ctx, cred, endpoint)
		if err != nil {
			log.Debug().Err(err).Str("endpoint", endpoint).Msg("Staff endpoint probe failed")
			continue
		}
		if count > 0 {
			return count
		}
	}
	return 0
}

// totalCount queries one resource with the smallest possible page and
// returns the reported total record count.
func (c *Client) totalCount(ctx context.Context, cred transport.Credential, resource string) (int, error) {
	query := url.Values{
		"pageNo":   {"1"},
		"pageSize": {strconv.Itoa(constants.CountProbePageSize)},
	}

	resp, err := c.transport.Get(ctx, c.cfg.BaseURL+"/v1/"+resource, cred, query)
	if err != nil {
		return 0, err
	}
	var result pagedResponse
	if err := c.transport.DecodeResponse(resp, &result); err != nil {
		return 0, err
	}
	return result.PagingInfo.TotalCount, nil
}
