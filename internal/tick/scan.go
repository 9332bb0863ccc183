package tick

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/condatools/feedtick/internal/batch"
	"github.com/condatools/feedtick/internal/common/config"
	"github.com/condatools/feedtick/internal/common/logger"
	"github.com/condatools/feedtick/internal/forge"
	"github.com/condatools/feedtick/internal/pypi"
	"github.com/condatools/feedtick/internal/recipe"
)

// ScanResult aggregates one scan pass: how many feedstocks were looked at,
// which need an update and why the rest could not be checked.
type ScanResult struct {
	// User is the acting login the scan resolved.
	User string
	// Checked counts every feedstock found for the user.
	Checked int
	// UpToDate counts recipes already at the latest version.
	UpToDate int
	// Skipped lists skip-listed feedstocks, never checked.
	Skipped []string
	// Candidates holds the out-of-date recipes, in scan order.
	Candidates []batch.Candidate
	// StatusFailures maps a failure reason to the feedstocks it hit.
	StatusFailures map[string][]string
}

func (s *ScanResult) record(reason, feedstock string) {
	s.StatusFailures[reason] = append(s.StatusFailures[reason], feedstock)
}

// Scan enumerates the user's feedstocks and checks each against the package
// index. It only reads; candidates carry everything the update phase needs,
// including the blob SHA for the later conditional write.
func (r *Runner) Scan(ctx context.Context) (*ScanResult, error) {
	log := logger.Component("scan")

	if r.user == "" {
		login, err := r.forge.User(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve acting user: %w", err)
		}
		r.user = login
	}

	result := &ScanResult{
		User:           r.user,
		StatusFailures: make(map[string][]string),
	}

	teams, err := r.forge.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot list teams: %w", err)
	}

	prefix := r.cfg.GitHub.Org + "/"
	var feedstocks []forge.Repo
	for _, team := range teams {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Each conda-forge team manages exactly one feedstock. Teams
		// with more repos are infrastructure teams.
		if team.ReposCount != 1 {
			continue
		}

		repos, err := r.forge.TeamRepos(ctx, team.ID)
		if err != nil {
			log.Debug().Err(err).Str("team", team.Name).Msg("team listing failed")
			result.record("couldn't list team repositories", team.Name)
			continue
		}
		if len(repos) == 0 {
			continue
		}

		repo := repos[0]
		if strings.HasPrefix(repo.FullName, prefix) && strings.HasSuffix(repo.FullName, "-feedstock") {
			feedstocks = append(feedstocks, repo)
		}
	}

	result.Checked = len(feedstocks)
	log.Info().Int("feedstocks", len(feedstocks)).Str("user", r.user).Msg("scanning feedstocks")

	for _, fs := range feedstocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pkg := strings.TrimSuffix(fs.Name, "-feedstock")
		if r.overrides.Skipped(pkg) {
			log.Debug().Str("feedstock", fs.Name).Msg("skip-listed")
			result.Skipped = append(result.Skipped, fs.Name)
			continue
		}

		cand, reason := r.checkFeedstock(ctx, fs, pkg)
		switch {
		case reason != "":
			result.record(reason, fs.Name)
		case cand.NeedsUpdate:
			log.Info().Str("feedstock", fs.Name).
				Str("current", cand.Version).Str("latest", cand.Latest).
				Msg("needs update")
			result.Candidates = append(result.Candidates, *cand)
		default:
			result.UpToDate++
		}
	}

	return result, nil
}

// checkFeedstock reads one recipe and compares it against the index. The
// returned reason is empty on success and a report key otherwise.
func (r *Runner) checkFeedstock(ctx context.Context, fs forge.Repo, pkg string) (*batch.Candidate, string) {
	log := logger.Component("scan")

	file, err := r.forge.GetFile(ctx, r.cfg.GitHub.Org, fs.Name, config.DefaultRecipePath)
	if err != nil {
		log.Debug().Err(err).Str("feedstock", fs.Name).Msg("recipe read failed")
		return nil, "couldn't read " + config.DefaultRecipePath
	}

	meta, err := recipe.Parse(file.Content)
	if err != nil {
		log.Debug().Err(err).Str("feedstock", fs.Name).Msg("recipe parse failed")
		return nil, parseReason(err)
	}

	// The index lookup uses the feedstock-derived name; checksum lookups
	// later use the case-preserving name from the archive filename.
	latest, err := r.index.LatestVersion(ctx, pkg)
	if err != nil {
		log.Debug().Err(err).Str("package", pkg).Msg("index lookup failed")
		return nil, "couldn't find package on PyPI"
	}

	if pin, ok := r.overrides.PinFor(pkg); ok && pypi.CompareVersions(pin, latest) < 0 {
		log.Debug().Str("package", pkg).Str("pin", pin).Str("latest", latest).Msg("target capped at pin")
		latest = pin
	}

	return &batch.Candidate{
		Feedstock:     fs.Name,
		Package:       pkg,
		SourcePackage: meta.PackageName(),
		NeedsUpdate:   pypi.CompareVersions(meta.Version(), latest) < 0,
		Version:       meta.Version(),
		Latest:        latest,
		RawText:       meta.RawText(),
		Checksum:      meta.Checksum(),
		Kind:          meta.ChecksumKind(),
		Suffix:        meta.ArchiveSuffix(),
		BlobSHA:       file.SHA,
		Deps:          meta.Dependencies(),
	}, ""
}

// parseReason maps a recipe parse error to a stable report key. Structured
// errors keep their message so recipes broken the same way group together.
func parseReason(err error) string {
	var missing *recipe.MissingKeyError
	switch {
	case errors.As(err, &missing):
		return missing.Error()
	case errors.Is(err, recipe.ErrNoChecksum):
		return recipe.ErrNoChecksum.Error()
	case errors.Is(err, recipe.ErrArchiveName):
		return recipe.ErrArchiveName.Error()
	default:
		return "couldn't parse " + config.DefaultRecipePath
	}
}
