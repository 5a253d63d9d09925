package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vchiuchiolo/district-stats/pkg/constants"
	"github.com/vchiuchiolo/district-stats/pkg/errors"
)

// Credential is an opaque bearer token issued by a source's token
// endpoint. Credentials are acquired once per run per collector and never
// cached across runs.
type Credential struct {
	Token    string
	Source   string
	IssuedAt time.Time
}

// Apply sets the credential's bearer token on a request. A zero credential
// applies nothing, which lets unauthenticated probes share the code path.
func (c Credential) Apply(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

// tokenResponse is the relevant slice of an OAuth token exchange response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Token performs a client-credentials exchange against the source's token
// endpoint. The credentials are sent as a form-encoded POST body; extra
// form values (e.g. a delegation subject) are merged in when given. A
// response without an access_token field fails with an AuthenticationError
// carrying the truncated raw body for diagnostics.
func (c *Client) Token(ctx context.Context, tokenURL, clientID, clientSecret string, extra ...url.Values) (Credential, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}
	for _, vals := range extra {
		for k, vs := range vals {
			for _, v := range vs {
				form.Add(k, v)
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, &errors.ConfigError{Component: c.source, Message: "invalid token URL " + tokenURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Credential{}, c.wrapTransport(tokenURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Credential{}, errors.WrapIO("read", "token response", err)
	}

	var tok tokenResponse
	if jsonErr := json.Unmarshal(body, &tok); jsonErr != nil {
		return Credential{}, &errors.AuthenticationError{
			Source:  c.source,
			Method:  "client_credentials",
			Message: "token response not parseable",
			Body:    Truncate(string(body), constants.MaxErrorBodyLength),
			Err:     jsonErr,
		}
	}

	if tok.AccessToken == "" {
		return Credential{}, &errors.AuthenticationError{
			Source:  c.source,
			Method:  "client_credentials",
			Message: "no token received",
			Body:    Truncate(string(body), constants.MaxErrorBodyLength),
			Err:     errors.ErrNoToken,
		}
	}

	return Credential{
		Token:    tok.AccessToken,
		Source:   c.source,
		IssuedAt: time.Now().UTC(),
	}, nil
}
