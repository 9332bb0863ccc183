// Package tick drives the update pipeline across the feedstocks a user
// maintains: scan for out-of-date recipes, select the ones safe to update in
// one pass, patch each fork, regenerate the scaffolding and open pull
// requests. Every step is best effort; a failure is recorded against its
// feedstock and the run continues.
package tick

import (
	"github.com/condatools/feedtick/internal/common/config"
	"github.com/condatools/feedtick/internal/forge"
	"github.com/condatools/feedtick/internal/pypi"
	"github.com/condatools/feedtick/internal/regen"
)

// Pull request boilerplate, identical for every submitted update.
const (
	pullTitle = "Ticked version, regenerated if needed. (Double-check reqs!)"
	pullBody  = "(Built using feedtick)"
)

// Runner coordinates one scan or update run. Collaborators are injected at
// construction; the zero value is not usable.
type Runner struct {
	cfg       *config.Config
	overrides *config.Overrides
	forge     *forge.Client
	index     *pypi.Client
	regen     regen.Regenerator

	user    string
	dryRun  bool
	noRegen bool
	limit   int
}

// Option is a functional option for configuring Runner
type Option func(*Runner)

// WithUser overrides the acting GitHub login. When unset the login is
// resolved from the token at scan time.
func WithUser(user string) Option {
	return func(r *Runner) { r.user = user }
}

// WithDryRun stops every candidate after patch computation, before any
// side effect reaches the host.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) { r.dryRun = dryRun }
}

// WithNoRegenerate skips the regeneration cycle on written forks.
func WithNoRegenerate(noRegen bool) Option {
	return func(r *Runner) { r.noRegen = noRegen }
}

// WithLimit caps how many independent candidates one run updates.
// Zero means no cap.
func WithLimit(limit int) Option {
	return func(r *Runner) { r.limit = limit }
}

// WithOverrides sets the skip/pin overrides for the run.
func WithOverrides(o *config.Overrides) Option {
	return func(r *Runner) { r.overrides = o }
}

// WithForgeClient sets a custom GitHub client
func WithForgeClient(c *forge.Client) Option {
	return func(r *Runner) { r.forge = c }
}

// WithIndexClient sets a custom PyPI client
func WithIndexClient(c *pypi.Client) Option {
	return func(r *Runner) { r.index = c }
}

// WithRegenerator sets a custom regenerator
func WithRegenerator(reg regen.Regenerator) Option {
	return func(r *Runner) { r.regen = reg }
}

// NewRunner creates a runner for the given configuration and credential.
func NewRunner(cfg *config.Config, token string, opts ...Option) *Runner {
	r := &Runner{cfg: cfg}

	for _, opt := range opts {
		opt(r)
	}

	if r.user == "" {
		r.user = cfg.GitHub.User
	}
	if r.overrides == nil {
		r.overrides = &config.Overrides{}
	}
	if r.forge == nil {
		r.forge = forge.NewClient(cfg.GitHub.APIURL, token)
	}
	if r.index == nil {
		r.index = pypi.NewClient(cfg.Index.APIURL, cfg.Index.PageURL)
	}

	return r
}

// regenerator returns the injected regenerator or builds the default
// tool-based one. The git author comes from gitconfig or feedtick config;
// without one the regeneration cycle cannot commit.
func (r *Runner) regenerator() (regen.Regenerator, error) {
	if r.regen != nil {
		return r.regen, nil
	}

	user, email, err := r.cfg.GetGitUser()
	if err != nil {
		return nil, err
	}

	r.regen = regen.NewToolRegenerator(r.cfg.Regen.Command, r.cfg.Regen.Args, user, email)
	return r.regen, nil
}
