// Package mdm collects device-inventory figures from the district's
// device-management service: enrolled computer records and enrolled
// mobile-device records.
package mdm

import (
	"context"

	"github.com/vchiuchiolo/district-stats/internal/config"
	"github.com/vchiuchiolo/district-stats/internal/transport"
	"github.com/vchiuchiolo/district-stats/pkg/logging"
	"github.com/vchiuchiolo/district-stats/pkg/stats"
)

// Endpoint paths on the device-management server.
const (
	tokenPath         = "/api/oauth/token"
	computersPath     = "/JSSResource/computers"
	mobileDevicesPath = "/JSSResource/mobiledevices"
)

// Response structures for the device-management API.
type computersResponse struct {
	Computers []computerRecord `json:"computers"`
}

type computerRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type mobileDevicesResponse struct {
	MobileDevices []mobileDeviceRecord `json:"mobile_devices"`
}

type mobileDeviceRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Client implements the sources.Collector interface for the
// device-management service.
type Client struct {
	cfg       config.DeviceManagementConfig
	transport *transport.Client
}

// New creates a device-management collector.
func New(cfg config.DeviceManagementConfig) *Client {
	return &Client{
		cfg:       cfg,
		transport: transport.New(string(stats.SourceDeviceManagement)),
	}
}

// Name identifies the source this collector reads.
func (c *Client) Name() stats.Source {
	return stats.SourceDeviceManagement
}

// Metrics lists the metric names this collector reports.
func (c *Client) Metrics() []stats.Metric {
	return []stats.Metric{stats.MetricMacs, stats.MetricIPads}
}

// Collect counts enrolled computers and mobile devices. A single token
// acquisition covers both listing calls; they are otherwise independent.
func (c *Client) Collect(ctx context.Context) stats.PartialResult {
	log := logging.Ctx(ctx)

	cred, err := c.transport.Token(ctx, c.cfg.BaseURL+tokenPath, c.cfg.ClientID, c.cfg.ClientSecret)
	if err != nil {
		log.Error().Err(err).Str("source", string(c.Name())).Msg("Token acquisition failed")
		return stats.Failed(c.Name(), c.Metrics(), err)
	}

	macs, err := c.countComputers(ctx, cred)
	if err != nil {
		return stats.Failed(c.Name(), c.Metrics(), err)
	}

	ipads, err := c.countMobileDevices(ctx, cred)
	if err != nil {
		return stats.Failed(c.Name(), c.Metrics(), err)
	}

	log.Info().
		Int("macs", macs).
		Int("ipads", ipads).
		Msg("Device-management counts collected")

	return stats.NewPartialResult(c.Name(), map[stats.Metric]int{
		stats.MetricMacs:  macs,
		stats.MetricIPads: ipads,
	})
}

func (c *Client) countComputers(ctx context.Context, cred transport.Credential) (int, error) {
	resp, err := c.transport.Get(ctx, c.cfg.BaseURL+computersPath, cred, nil)
	if err != nil {
		return 0, err
	}

	var result computersResponse
	if err := c.transport.DecodeResponse(resp, &result); err != nil {
		return 0, err
	}
	return len(result.Computers), nil
}

func (c *Client) countMobileDevices(ctx context.Context, cred transport.Credential) (int, error) {
	resp, err := c.transport.Get(ctx, c.cfg.BaseURL+mobileDevicesPath, cred, nil)
	if err != nil {
		return 0, err
	}

	var result mobileDevicesResponse
	if err := c.transport.DecodeResponse(resp, &result); err != nil {
		return 0, err
	}
	return len(result.MobileDevices), nil
}
