package forge

import (
	"context"
	"fmt"
	"net/http"
)

// Team is a GitHub team the authenticated user belongs to.
type Team struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ReposCount int    `json:"repos_count"`
}

// Repo is the subset of repository metadata the pipeline reads.
type Repo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Fork          bool   `json:"fork"`
	CloneURL      string `json:"clone_url"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// Comparison is the ahead/behind relation between two refs.
type Comparison struct {
	Status   string `json:"status"`
	AheadBy  int    `json:"ahead_by"`
	BehindBy int    `json:"behind_by"`
}

// User returns the authenticated user's login.
func (c *Client) User(ctx context.Context) (string, error) {
	var u struct {
		Login string `json:"login"`
	}
	if err := c.get(ctx, "/user", &u); err != nil {
		return "", err
	}
	return u.Login, nil
}

// ListTeams returns every team of the authenticated user.
func (c *Client) ListTeams(ctx context.Context) ([]Team, error) {
	return listAll[Team](ctx, c, "/user/teams")
}

// TeamRepos returns every repository a team manages.
func (c *Client) TeamRepos(ctx context.Context, teamID int64) ([]Repo, error) {
	return listAll[Repo](ctx, c, fmt.Sprintf("/teams/%d/repos", teamID))
}

// ListForks returns every fork of a repository.
func (c *Client) ListForks(ctx context.Context, owner, repo string) ([]Repo, error) {
	return listAll[Repo](ctx, c, fmt.Sprintf("/repos/%s/%s/forks", owner, repo))
}

// CreateFork forks a repository into the authenticated user's account. The
// host's copy runs asynchronously; the returned repo may still be settling.
func (c *Client) CreateFork(ctx context.Context, owner, repo string) (*Repo, error) {
	var fork Repo
	path := fmt.Sprintf("/repos/%s/%s/forks", owner, repo)
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &fork); err != nil {
		return nil, err
	}
	return &fork, nil
}

// DeleteRepo deletes a repository. The token needs delete scope.
func (c *Client) DeleteRepo(ctx context.Context, owner, repo string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/repos/%s/%s", owner, repo), nil, nil)
}

// CompareBranches compares two refs on a repository. Refs may be qualified
// with an owner ("user:master").
func (c *Client) CompareBranches(ctx context.Context, owner, repo, base, head string) (*Comparison, error) {
	var cmp Comparison
	path := fmt.Sprintf("/repos/%s/%s/compare/%s...%s", owner, repo, base, head)
	if err := c.get(ctx, path, &cmp); err != nil {
		return nil, err
	}
	return &cmp, nil
}
