// Package storefront talks to the shop backend that submits jobs: it fetches the
// shop's signing keys and posts job results back.
package storefront

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/zeptools/gw-impose/jobs"
	"github.com/zeptools/gw-impose/sec"
)

var ErrNotFound = errors.New("storefront: not found")

type Client struct {
	*http.Client // [Embedded]
	Conf         *Conf
	Tokens       *sec.OutputTokens          // nil = results carry no download link
	PublicURL    string                     // base for download links, e.g. https://impose.example.com
	Notify       func(clientID string) bool // which submitting clients want callbacks. nil = all
	Now          func() time.Time
}

// Ensure Client implements jobs.Notifier
var _ jobs.Notifier = (*Client)(nil)

func (c *Client) timeout() time.Duration {
	if d, err := time.ParseDuration(c.Conf.Timeout); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

func (c *Client) newRequest(ctx context.Context, method string, endpoint string, body io.Reader) (*http.Request, error) {
	upstrReq, err := http.NewRequestWithContext(ctx, method, c.Conf.Host+endpoint, body)
	if err != nil {
		return nil, err
	}
	upstrReq.Header.Set("Client-Id", c.Conf.ClientID)
	if body != nil {
		upstrReq.Header.Set("Content-Type", "application/json")
	}
	return upstrReq, nil
}

// GetJWKS fetches the keys the storefront signs API tokens with
func (c *Client) GetJWKS(ctx context.Context) (*sec.JWKS, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	endpoint := c.Conf.JWKSEndpoint
	if endpoint == "" {
		endpoint = "/.well-known/jwks.json"
	}
	upstrReq, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	upstrReq.Header.Set("Accept", "application/jwk-set+json")
	upstrRes, err := c.Do(upstrReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err = upstrRes.Body.Close(); err != nil {
			log.Printf("[WARN][STOREFRONT] %v", err)
		}
	}()
	if upstrRes.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if upstrRes.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks: HTTP Status Code: %d", upstrRes.StatusCode)
	}
	var jwks sec.JWKS
	if err = json.UnmarshalRead(io.LimitReader(upstrRes.Body, 1<<20), &jwks); err != nil {
		return nil, err
	}
	return &jwks, nil
}

// JobResult is the callback body
type JobResult struct {
	jobs.Status `json:",inline"`
	DownloadURL string `json:"download_url,omitempty"`
}

// JobFinished posts the result of a job submitted by a client that asked for callbacks
func (c *Client) JobFinished(ctx context.Context, st jobs.Status) error {
	if c.Conf.JobResultEndpoint == "" || (c.Notify != nil && !c.Notify(st.ClientID)) {
		return nil
	}
	result := JobResult{Status: st}
	if st.State == jobs.StateDone && c.Tokens != nil {
		now := time.Now()
		if c.Now != nil {
			now = c.Now()
		}
		token, err := c.Tokens.Issue(st.JobID, now)
		if err != nil {
			return err
		}
		result.DownloadURL = c.PublicURL + "/v1/outputs/" + token
	}
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	upstrReq, err := c.newRequest(ctx, http.MethodPost, c.Conf.JobResultEndpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	upstrRes, err := c.Do(upstrReq)
	if err != nil {
		return fmt.Errorf("job %s callback: %w", st.JobID, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(upstrRes.Body, 1<<16))
		if closeErr := upstrRes.Body.Close(); closeErr != nil {
			log.Printf("[WARN][STOREFRONT] %v", closeErr)
		}
	}()
	if upstrRes.StatusCode/100 != 2 {
		return fmt.Errorf("job %s callback: HTTP Status Code: %d", st.JobID, upstrRes.StatusCode)
	}
	log.Printf("[INFO][STOREFRONT] job %s result posted (%s)", st.JobID, st.State)
	return nil
}
