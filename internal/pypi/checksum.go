package pypi

import (
	"context"
	"fmt"
	"strings"

	"github.com/condatools/feedtick/internal/common/logger"
	"github.com/condatools/feedtick/internal/recipe"
)

// ReleaseChecksum returns the digest of the release archive for pkg at
// version whose filename ends with suffix. The JSON API is the first tier;
// when it cannot serve, the release page scrape is the second. The scrape
// publishes SHA-256 only, so for md5 recipes a JSON miss is final.
func (c *Client) ReleaseChecksum(ctx context.Context, pkg, version, suffix string, kind recipe.Kind) (string, error) {
	sum, jsonErr := c.jsonChecksum(ctx, pkg, version, suffix, kind)
	if jsonErr == nil {
		return sum, nil
	}

	if kind != recipe.SHA256 {
		return "", fmt.Errorf("%w: %v", ErrChecksumUnavailable, jsonErr)
	}

	log := logger.Component("pypi")
	log.Debug().Str("package", pkg).Str("version", version).
		AnErr("reason", jsonErr).Msg("json api missed, scraping release page")

	sum, scrapeErr := c.scrapeChecksum(ctx, pkg, version, suffix)
	if scrapeErr != nil {
		return "", fmt.Errorf("%w: %v; %v", ErrChecksumUnavailable, jsonErr, scrapeErr)
	}
	return sum, nil
}

// jsonChecksum is the first tier: the digests map of the matching release
// file in the JSON API document.
func (c *Client) jsonChecksum(ctx context.Context, pkg, version, suffix string, kind recipe.Kind) (string, error) {
	doc, err := c.fetchDocument(ctx, pkg)
	if err != nil {
		return "", err
	}

	files, ok := doc.Releases[version]
	if !ok {
		return "", fmt.Errorf("release %s not in json document for %s", version, pkg)
	}

	for _, f := range files {
		if !strings.HasSuffix(f.Filename, "."+suffix) {
			continue
		}
		if sum := f.Digests[string(kind)]; sum != "" {
			return sum, nil
		}
		return "", fmt.Errorf("release file %s has no %s digest", f.Filename, kind)
	}
	return "", fmt.Errorf("release %s of %s has no file matching suffix %q", version, pkg, suffix)
}
