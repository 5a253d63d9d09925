// Package directory collects headcount and chromebook figures from the
// district's directory service. It counts active (non-suspended) user
// accounts under the staff and student organizational units and active
// device records under the chromebook unit.
package directory

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/vchiuchiolo/district-stats/internal/config"
	"github.com/vchiuchiolo/district-stats/internal/transport"
	"github.com/vchiuchiolo/district-stats/pkg/constants"
	"github.com/vchiuchiolo/district-stats/pkg/logging"
	"github.com/vchiuchiolo/district-stats/pkg/stats"
)

// deviceStatusActive is the directory's status value for an in-service device.
const deviceStatusActive = "ACTIVE"

// Response structures for the directory API.
type usersResponse struct {
	Users         []userRecord `json:"users"`
	NextPageToken string       `json:"nextPageToken"`
}

type userRecord struct {
	PrimaryEmail string `json:"primaryEmail"`
	Suspended    bool   `json:"suspended"`
}

type devicesResponse struct {
	Devices       []deviceRecord `json:"devices"`
	NextPageToken string         `json:"nextPageToken"`
}

type deviceRecord struct {
	SerialNumber string `json:"serialNumber"`
	Status       string `json:"status"`
}

// Client implements the sources.Collector interface for the directory
// service.
type Client struct {
	cfg       config.DirectoryConfig
	transport *transport.Client
}

// New creates a directory collector.
func New(cfg config.DirectoryConfig) *Client {
	return &Client{
		cfg:       cfg,
		transport: transport.New(string(stats.SourceDirectory)),
	}
}

// Name identifies the source this collector reads.
func (c *Client) Name() stats.Source {
	return stats.SourceDirectory
}

// Metrics lists the metric names this collector reports.
func (c *Client) Metrics() []stats.Metric {
	return []stats.Metric{stats.MetricStaff, stats.MetricStudents, stats.MetricChromebooks}
}

// Collect counts active staff accounts, student accounts, and chromebooks.
// One credential is acquired for all three listings; any failure zeroes
// the whole result.
func (c *Client) Collect(ctx context.Context) stats.PartialResult {
	log := logging.Ctx(ctx)

	var extra []url.Values
	if c.cfg.AdminSubject != "" {
		// Domain-wide delegation: act as the administrative identity.
		extra = append(extra, url.Values{"subject": {c.cfg.AdminSubject}})
	}

	cred, err := c.transport.Token(ctx, c.cfg.TokenURL, c.cfg.ClientID, c.cfg.ClientSecret, extra...)
	if err != nil {
		log.Error().Err(err).Str("source", string(c.Name())).Msg("Token acquisition failed")
		return stats.Failed(c.Name(), c.Metrics(), err)
	}

	staff, err := c.countUsers(ctx, cred, c.cfg.StaffOrgUnit)
	if err != nil {
		return stats.Failed(c.Name(), c.Metrics(), err)
	}

	students, err := c.countUsers(ctx, cred, c.cfg.StudentOrgUnit)
	if err != nil {
		return stats.Failed(c.Name(), c.Metrics(), err)
	}

	chromebooks, err := c.countDevices(ctx, cred, c.cfg.ChromebookOrgUnit)
	if err != nil {
		return stats.Failed(c.Name(), c.Metrics(), err)
	}

	log.Info().
		Int("staff", staff).
		Int("students", students).
		Int("chromebooks", chromebooks).
		Msg("Directory counts collected")

	return stats.NewPartialResult(c.Name(), map[stats.Metric]int{
		stats.MetricStaff:       staff,
		stats.MetricStudents:    students,
		stats.MetricChromebooks: chromebooks,
	})
}

// countUsers lists every user under an organizational unit and counts the
// non-suspended ones. Filtering happens client-side after full pagination;
// the directory's server-side status filter is not reliable across
// deployments.
func (c *Client) countUsers(ctx context.Context, cred transport.Credential, orgUnit string) (int, error) {
	var all []userRecord

	err := transport.ForEachPage(ctx, func(ctx context.Context, pageToken string) (string, error) {
		query := url.Values{
			"query":      {fmt.Sprintf("orgUnitPath='%s'", orgUnit)},
			"maxResults": {strconv.Itoa(constants.DirectoryPageSize)},
		}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		resp, err := c.transport.Get(ctx, c.cfg.BaseURL+"/users", cred, query)
		if err != nil {
			return "", err
		}

		var page usersResponse
		if err := c.transport.DecodeResponse(resp, &page); err != nil {
			return "", err
		}

		all = append(all, page.Users...)
		return page.NextPageToken, nil
	})
	if err != nil {
		return 0, err
	}

	active := 0
	for _, u := range all {
		if !u.Suspended {
			active++
		}
	}
	return active, nil
}

// countDevices lists every device under an organizational unit and counts
// the active ones.
func (c *Client) countDevices(ctx context.Context, cred transport.Credential, orgUnit string) (int, error) {
	var all []deviceRecord

	err := transport.ForEachPage(ctx, func(ctx context.Context, pageToken string) (string, error) {
		query := url.Values{
			"orgUnitPath": {orgUnit},
			"maxResults":  {strconv.Itoa(constants.DirectoryPageSize)},
		}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		resp, err := c.transport.Get(ctx, c.cfg.BaseURL+"/devices", cred, query)
		if err != nil {
			return "", err
		}

		var page devicesResponse
		if err := c.transport.DecodeResponse(resp, &page); err != nil {
			return "", err
		}

		all = append(all, page.Devices...)
		return page.NextPageToken, nil
	})
	if err != nil {
		return 0, err
	}

	active := 0
	for _, d := range all {
		if d.Status == deviceStatusActive {
			active++
		}
	}
	return active, nil
}
