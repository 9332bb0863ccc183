package forge

import (
	"context"
	"fmt"
	"net/http"
)

// Pull is an open or historical pull request.
type Pull struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	Body    string `json:"body"`
	User    struct {
		Login string `json:"login"`
	} `json:"user"`
	Head struct {
		Label string `json:"label"`
		Ref   string `json:"ref"`
	} `json:"head"`
}

// NewPull describes a pull request to open. Head uses the cross-repository
// "owner:branch" form.
type NewPull struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Head  string `json:"head"`
	Base  string `json:"base"`
}

// CreatePull opens a pull request against owner/repo.
func (c *Client) CreatePull(ctx context.Context, owner, repo string, pull NewPull) (*Pull, error) {
	var created Pull
	path := fmt.Sprintf("/repos/%s/%s/pulls", owner, repo)
	if err := c.do(ctx, http.MethodPost, path, pull, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListPulls returns the pull requests on owner/repo in the given state
// ("open", "closed" or "all").
func (c *Client) ListPulls(ctx context.Context, owner, repo, state string) ([]Pull, error) {
	return listAll[Pull](ctx, c, fmt.Sprintf("/repos/%s/%s/pulls?state=%s", owner, repo, state))
}
