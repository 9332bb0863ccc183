package tick

import (
	"context"
	"fmt"

	"github.com/condatools/feedtick/internal/batch"
	"github.com/condatools/feedtick/internal/common/config"
	"github.com/condatools/feedtick/internal/common/logger"
	"github.com/condatools/feedtick/internal/forge"
	"github.com/condatools/feedtick/internal/patch"
)

// writtenUpdate pairs a candidate with the fork its patch landed on.
type writtenUpdate struct {
	candidate batch.Candidate
	fork      *forge.Repo
}

// Run executes the full pipeline: scan, select the independent candidates,
// patch each one's fork, regenerate and open pull requests. Per-candidate
// failures land in the report; only a failure that invalidates the whole run
// (credential, team enumeration) returns an error.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	log := logger.Component("tick")

	scan, err := r.Scan(ctx)
	if err != nil {
		return nil, err
	}
	report := newReport(scan, r.dryRun)

	independent := batch.Independent(scan.Candidates)
	report.Independent = len(independent)

	selected := independent
	if r.limit > 0 && len(selected) > r.limit {
		log.Info().Int("limit", r.limit).Int("independent", len(independent)).Msg("capping candidates")
		selected = selected[:r.limit]
	}

	var written []writtenUpdate
	for _, cand := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if update, ok := r.updateCandidate(ctx, cand, report); ok {
			written = append(written, update)
		}
	}

	r.regenerateAll(ctx, written, report)
	r.submitPulls(ctx, written, report)

	return report, nil
}

// updateCandidate runs one candidate through checksum resolution, patch
// computation, the dry-run gate, fork evening and the conditional write.
// Any failure records itself and halts that candidate.
func (r *Runner) updateCandidate(ctx context.Context, cand batch.Candidate, report *Report) (writtenUpdate, bool) {
	log := logger.Component("tick")

	sum, err := r.index.ReleaseChecksum(ctx, cand.SourcePackage, cand.Latest, cand.Suffix, cand.Kind)
	if err != nil {
		log.Debug().Err(err).Str("feedstock", cand.Feedstock).Msg("checksum unavailable")
		report.patchFailure("couldn't get checksum from PyPI", cand.Feedstock)
		return writtenUpdate{}, false
	}

	p, err := patch.Build(patch.Request{
		Path:    config.DefaultRecipePath,
		Message: fmt.Sprintf("Tick version to %s", cand.Latest),
		BlobSHA: cand.BlobSHA,
		Raw:     cand.RawText,
		Fields: map[string]patch.Field{
			"version":         {Old: cand.Version, New: cand.Latest},
			string(cand.Kind): {Old: cand.Checksum, New: sum},
		},
	})
	if err != nil {
		log.Debug().Err(err).Str("feedstock", cand.Feedstock).Msg("patch rejected")
		report.patchFailure(err.Error(), cand.Feedstock)
		return writtenUpdate{}, false
	}
	report.Patched++

	if r.dryRun {
		log.Info().Str("feedstock", cand.Feedstock).
			Str("current", cand.Version).Str("latest", cand.Latest).
			Msg("dry run, stopping before any side effect")
		return writtenUpdate{}, false
	}

	if open, err := r.hasOpenPull(ctx, cand.Feedstock); err != nil {
		log.Warn().Err(err).Str("feedstock", cand.Feedstock).Msg("open-pull check failed, continuing")
	} else if open {
		log.Info().Str("feedstock", cand.Feedstock).Msg("pull already open, skipping")
		report.OpenPulls = append(report.OpenPulls, cand.Feedstock)
		return writtenUpdate{}, false
	}

	fork, err := r.evenFork(ctx, cand.Feedstock)
	if err != nil {
		log.Warn().Err(err).Str("feedstock", cand.Feedstock).Msg("no usable fork")
		report.ForkFailures = append(report.ForkFailures, cand.Feedstock)
		return writtenUpdate{}, false
	}

	err = r.forge.UpdateFile(ctx, r.user, fork.Name, p.Path, r.cfg.GitHub.Branch, p.Message, p.Content, p.BlobSHA)
	if err != nil {
		log.Warn().Err(err).Str("feedstock", cand.Feedstock).Msg("write rejected")
		report.WriteFailures = append(report.WriteFailures, cand.Feedstock)
		return writtenUpdate{}, false
	}

	log.Info().Str("feedstock", cand.Feedstock).Str("version", cand.Latest).Msg("fork patched")
	return writtenUpdate{candidate: cand, fork: fork}, true
}

// hasOpenPull reports whether the acting user already has an open pull
// against the feedstock from the fork branch this run would use.
func (r *Runner) hasOpenPull(ctx context.Context, feedstock string) (bool, error) {
	pulls, err := r.forge.ListPulls(ctx, r.cfg.GitHub.Org, feedstock, "open")
	if err != nil {
		return false, err
	}

	label := r.user + ":" + r.cfg.GitHub.Branch
	for _, p := range pulls {
		if p.Head.Label == label {
			return true, nil
		}
	}
	return false, nil
}

// evenFork returns a fork of the feedstock whose default branch is even with
// upstream. A fork carrying its own commits is refused; a fork upstream has
// moved past is deleted and recreated.
func (r *Runner) evenFork(ctx context.Context, feedstock string) (*forge.Repo, error) {
	org := r.cfg.GitHub.Org

	fork, err := r.findFork(ctx, feedstock)
	if err != nil {
		return nil, err
	}
	if fork == nil {
		fork, err = r.forge.CreateFork(ctx, org, feedstock)
		if err != nil {
			return nil, err
		}
	}

	base := r.user + ":" + r.cfg.GitHub.Branch
	head := org + ":" + r.cfg.GitHub.Branch
	cmp, err := r.forge.CompareBranches(ctx, r.user, fork.Name, base, head)
	if err != nil {
		return nil, err
	}

	if cmp.BehindBy > 0 {
		// Upstream is behind the fork: the fork has commits of its own
		return nil, fmt.Errorf("fork %s/%s is ahead of %s", r.user, fork.Name, org)
	}

	if cmp.AheadBy > 0 {
		// Upstream moved on; start over from a fresh fork
		if err := r.forge.DeleteRepo(ctx, r.user, fork.Name); err != nil {
			return nil, fmt.Errorf("stale fork not deleted: %w", err)
		}
		fork, err = r.forge.CreateFork(ctx, org, feedstock)
		if err != nil {
			return nil, err
		}
	}

	return fork, nil
}

// findFork returns the acting user's fork of the feedstock, or nil.
func (r *Runner) findFork(ctx context.Context, feedstock string) (*forge.Repo, error) {
	forks, err := r.forge.ListForks(ctx, r.cfg.GitHub.Org, feedstock)
	if err != nil {
		return nil, err
	}

	for i := range forks {
		if forks[i].Owner.Login == r.user {
			return &forks[i], nil
		}
	}
	return nil, nil
}

// regenerateAll runs the regeneration cycle on every written fork. Failures
// are recorded and never block the pull requests.
func (r *Runner) regenerateAll(ctx context.Context, written []writtenUpdate, report *Report) {
	if len(written) == 0 {
		return
	}

	log := logger.Component("tick")
	if r.noRegen {
		log.Info().Msg("skipping feedstock regeneration")
		return
	}

	reg, err := r.regenerator()
	if err != nil {
		log.Warn().Err(err).Msg("regenerator unavailable")
		for _, w := range written {
			report.RegenFailures = append(report.RegenFailures, w.candidate.Feedstock)
		}
		return
	}

	for _, w := range written {
		if ctx.Err() != nil {
			return
		}
		if err := reg.Regenerate(ctx, w.fork.CloneURL); err != nil {
			log.Warn().Err(err).Str("feedstock", w.candidate.Feedstock).Msg("regeneration failed")
			report.RegenFailures = append(report.RegenFailures, w.candidate.Feedstock)
		}
	}
}

// submitPulls opens one pull request per written candidate.
func (r *Runner) submitPulls(ctx context.Context, written []writtenUpdate, report *Report) {
	log := logger.Component("tick")
	head := r.user + ":" + r.cfg.GitHub.Branch

	for _, w := range written {
		if ctx.Err() != nil {
			return
		}

		pull, err := r.forge.CreatePull(ctx, r.cfg.GitHub.Org, w.candidate.Feedstock, forge.NewPull{
			Title: pullTitle,
			Body:  pullBody,
			Head:  head,
			Base:  r.cfg.GitHub.Branch,
		})
		if err != nil {
			log.Warn().Err(err).Str("feedstock", w.candidate.Feedstock).Msg("pull request failed")
			report.PullFailures = append(report.PullFailures, w.candidate.Feedstock)
			continue
		}

		log.Info().Str("feedstock", w.candidate.Feedstock).Str("url", pull.HTMLURL).Msg("pull request opened")
		report.Pulls++
	}
}
