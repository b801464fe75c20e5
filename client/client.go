// Package client provides the Go client of the nbi-settings HTTP API.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/notebook-intelligence/nbi-settings/internal/api"
)

// Client talks to a running nbi-settings server.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a client for the server at baseURL.
// An empty access token sends unauthenticated requests.
func NewClient(baseURL, accessToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  httpClient,
	}
}

// BaseURL returns the URL of the server this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// constructAPIEndpoint joins the versioned API prefix and the given suffix onto the base URL.
func (c *Client) constructAPIEndpoint(suffixPath string) (string, error) {
	return url.JoinPath(c.baseURL, api.V0ApiPathPrefix, suffixPath)
}

// newRequest creates a request carrying the client's access token.
func (c *Client) newRequest(req *http.Request) *http.Request {
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	return req
}

// parseErrorResponse turns a non-success response into an error.
// The server reports errors as {"error": "..."}; anything else is passed through verbatim.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status: %d", resp.StatusCode)
	}
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return fmt.Errorf("request failed with status: %d, message: %s", resp.StatusCode, errResp.Error)
	}
	return fmt.Errorf("request failed with status: %d, message: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
