// Package transport provides the authenticated HTTP client used against
// the district's administrative backends. It owns token acquisition,
// bearer authentication, response decoding, and pagination; collectors
// layer domain meaning on top.
package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"

	"github.com/vchiuchiolo/district-stats/pkg/constants"
	"github.com/vchiuchiolo/district-stats/pkg/errors"
)

// Client performs HTTP requests against a single source backend.
//
// Certificate validation is disabled: the sources live on the district's
// internal network behind self-signed certificates, and the deployment
// treats that network as the trust boundary.
type Client struct {
	http   *http.Client
	source string
}

// New creates a transport client for the named source.
func New(source string) *Client {
	return &Client{
		http: &http.Client{
			Timeout: constants.SourceHTTPTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // self-signed certs on the internal network
			},
		},
		source: source,
	}
}

// Source returns the name of the source this client talks to.
func (c *Client) Source() string {
	return c.source
}

// Get performs an authenticated GET against the given URL with optional
// query parameters. Network failures and timeouts surface as typed errors;
// the response status is not inspected here (see DecodeResponse).
func (c *Client) Get(ctx context.Context, rawURL string, cred Credential, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &errors.ConfigError{Component: c.source, Message: "invalid request URL " + rawURL, Err: err}
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	req.Header.Set("Accept", "application/json")
	cred.Apply(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.wrapTransport(rawURL, err)
	}
	return resp, nil
}

// wrapTransport converts low-level HTTP client failures into the typed
// errors the collectors report.
func (c *Client) wrapTransport(endpoint string, err error) error {
	var uerr *url.Error
	if stderrors.As(err, &uerr) && uerr.Timeout() {
		return &errors.TimeoutError{
			Operation: "GET " + endpoint,
			Duration:  constants.SourceHTTPTimeout.String(),
			Message:   uerr.Err.Error(),
		}
	}
	return &errors.APIError{
		Source:   c.source,
		Endpoint: endpoint,
		Message:  "request failed",
		Err:      err,
	}
}

// DecodeResponse decodes a JSON response into the target structure.
// Non-200 responses become APIErrors carrying a truncated body; malformed
// bodies become ParseErrors.
func (c *Client) DecodeResponse(resp *http.Response, target any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &errors.APIError{
			Source:     c.source,
			StatusCode: resp.StatusCode,
			Message:    Truncate(string(body), constants.MaxErrorBodyLength),
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", c.source+" response", err)
	}

	return nil
}

// Truncate shortens s to at most n bytes for inclusion in error messages.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
