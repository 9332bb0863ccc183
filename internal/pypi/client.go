// Package pypi looks up package releases on the PyPI index: latest published
// version, release file checksums via the JSON API, and a release-page
// scrape as the checksum fallback. Lookups are best effort with exactly one
// attempt per endpoint; a miss fails the one candidate that needed it.
package pypi

import (
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

// Error variables for index lookups
var (
	// ErrPackageLookup is returned when an index endpoint cannot be read
	ErrPackageLookup = errors.New("package index lookup failed")
	// ErrChecksumUnavailable is returned when no tier could produce a checksum
	ErrChecksumUnavailable = errors.New("checksum unavailable from package index")
)

const defaultTimeout = 30 * time.Second

// Client reads the PyPI JSON API and project pages.
type Client struct {
	apiURL    string
	pageURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a client for the given JSON API and project page base
// URLs, without trailing slashes.
func NewClient(apiURL, pageURL string) *Client {
	return &Client{
		apiURL:    strings.TrimRight(apiURL, "/"),
		pageURL:   strings.TrimRight(pageURL, "/"),
		userAgent: "feedtick/" + version.Short(),
		http:      &http.Client{Timeout: defaultTimeout},
	}
}

// SetHTTPClient sets a custom underlying HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.http = client
}

// releaseFile is one downloadable artifact of a release.
type releaseFile struct {
	Filename string            `json:"filename"`
	Digests  map[string]string `json:"digests"`
}

// packageDocument is the subset of the JSON API response the client reads.
type packageDocument struct {
	Info struct {
		Version string `json:"version"`
	} `json:"info"`
	Releases map[string][]releaseFile `json:"releases"`
}

// get performs a single GET request. There is no retry: a failed endpoint
// stays failed for this run.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackageLookup, err)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned status %d", ErrPackageLookup, url, resp.StatusCode)
	}
	return resp, nil
}

// fetchDocument reads and decodes the JSON API document for a package.
func (c *Client) fetchDocument(ctx context.Context, pkg string) (*packageDocument, error) {
	resp, err := c.get(ctx, fmt.Sprintf("%s/%s/json", c.apiURL, pkg))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var doc packageDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackageLookup, err)
	}
	return &doc, nil
}

// LatestVersion returns the newest published version of a package.
func (c *Client) LatestVersion(ctx context.Context, pkg string) (string, error) {
	doc, err := c.fetchDocument(ctx, pkg)
	if err != nil {
		return "", err
	}

	latest := strings.TrimSpace(doc.Info.Version)
	if latest == "" {
		return "", fmt.Errorf("%w: %s has no published version", ErrPackageLookup, pkg)
	}
	return latest, nil
}
