package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"gitlab.com/NebulousLabs/errors"
)

// Client is a client for the bootstrapper's API.
type Client struct {
	staticAddr   string
	staticClient *http.Client
}

// NewClient creates a new client for the API at addr, e.g.
// "http://localhost:4000".
func NewClient(addr string) *Client {
	return &Client{
		staticAddr:   addr,
		staticClient: &http.Client{},
	}
}

// Health calls the /health endpoint.
func (c *Client) Health() (HealthGET, error) {
	var hg HealthGET
	err := c.do(http.MethodGet, "/health", &hg)
	return hg, err
}

// Report calls the /report endpoint.
func (c *Client) Report() (ReportGET, error) {
	var rg ReportGET
	err := c.do(http.MethodGet, "/report", &rg)
	return rg, err
}

// Bootstrap calls the /bootstrap endpoint.
func (c *Client) Bootstrap() (ReportGET, error) {
	var rg ReportGET
	err := c.do(http.MethodPost, "/bootstrap", &rg)
	return rg, err
}

// Stats calls the /stats endpoint.
func (c *Client) Stats(database, collection string) (StatsGET, error) {
	var sg StatsGET
	path := fmt.Sprintf("/stats/%s/%s", url.PathEscape(database), url.PathEscape(collection))
	err := c.do(http.MethodGet, path, &sg)
	return sg, err
}

// do performs a request and decodes the response into obj. Non-2xx responses
// are returned as Error.
func (c *Client) do(method, path string, obj interface{}) error {
	req, err := http.NewRequest(method, c.staticAddr+path, nil)
	if err != nil {
		return errors.AddContext(err, "failed to create request")
	}
	resp, err := c.staticClient.Do(req)
	if err != nil {
		return errors.AddContext(err, "request failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.AddContext(err, "failed to read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr Error
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
			return fmt.Errorf("unexpected status code %d", resp.StatusCode)
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}
	return json.Unmarshal(body, obj)
}
