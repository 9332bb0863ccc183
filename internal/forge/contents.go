package forge

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// File is a repository file read through the contents endpoint. Content is
// decoded; SHA is the blob identity used for conditional writes.
type File struct {
	Path    string
	SHA     string
	Content string
}

// GetFile reads a file from a repository's default branch.
func (c *Client) GetFile(ctx context.Context, owner, repo, path string) (*File, error) {
	var raw struct {
		Path     string `json:"path"`
		SHA      string `json:"sha"`
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path), &raw); err != nil {
		return nil, err
	}
	if raw.Encoding != "base64" {
		return nil, fmt.Errorf("unexpected content encoding %q for %s", raw.Encoding, path)
	}

	// The API wraps base64 content in newlines
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(raw.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", path, err)
	}

	return &File{Path: raw.Path, SHA: raw.SHA, Content: string(decoded)}, nil
}

// UpdateFile writes new content to a file, conditioned on the blob SHA the
// caller read earlier. The host rejects the write when the file has moved on
// since then; that rejection surfaces as ErrWriteConflict and is never
// retried.
func (c *Client) UpdateFile(ctx context.Context, owner, repo, path, branch, message, content, sha string) error {
	payload := struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha"`
		Branch  string `json:"branch,omitempty"`
	}{
		Message: message,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		SHA:     sha,
		Branch:  branch,
	}

	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path), payload, nil)

	var apiErr *APIError
	if errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusConflict || apiErr.StatusCode == http.StatusUnprocessableEntity) {
		return fmt.Errorf("%w: %s", ErrWriteConflict, path)
	}
	return err
}
