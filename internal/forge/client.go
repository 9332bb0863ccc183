// Package forge is a GitHub REST v3 client covering the endpoints the update
// pipeline drives: identity, team enumeration, file contents, branch
// comparison, forks, conditional writes and pull requests. One request per
// call; there is no retry layer, a failed call fails its candidate.
package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/condatools/feedtick/internal/common/version"
)

var (
	// ErrRateLimit indicates GitHub API rate limit exceeded
	ErrRateLimit = errors.New("GitHub API rate limit exceeded")
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("resource not found on GitHub")
	// ErrWriteConflict indicates a content write was rejected because the
	// file changed since its blob SHA was read
	ErrWriteConflict = errors.New("content write rejected: file changed upstream")
)

// APIError is a non-2xx response not covered by a specific error variable.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error: status %d: %s", e.StatusCode, e.Body)
}

// page size for collection endpoints
const perPage = 100

// Client handles communication with the GitHub API
type Client struct {
	BaseURL    string
	UserAgent  string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a GitHub API client authenticated with token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: "feedtick/" + version.Short(),
		Token:     token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do executes one API request. Payload, when non-nil, is sent as JSON; out,
// when non-nil, receives the decoded response body.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Handle rate limiting
	if resp.StatusCode == http.StatusForbidden &&
		resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return fmt.Errorf("%w: rate limit resets at %s",
			ErrRateLimit, resp.Header.Get("X-RateLimit-Reset"))
	}

	// Handle not found
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}

	// Handle other errors
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// get executes a GET request and decodes the response into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// listAll walks a paginated collection endpoint until a short page arrives.
func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	var all []T
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s%spage=%d&per_page=%d", path, sep, page, perPage)
		var batch []T
		if err := c.get(ctx, url, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			return all, nil
		}
	}
}
