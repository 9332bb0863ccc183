// Package batch selects which update candidates are safe to process in the
// same pass. A candidate that depends on a package that is itself in the
// batch must wait for a later run, after its dependency's update has landed.
package batch

import (
	"github.com/condatools/feedtick/internal/recipe"
)

// Candidate is one feedstock's scan result: identity, parsed recipe fields
// and update status. Built once during the scan and read-only afterwards.
// Package is the name the dependency graph speaks (feedstock name minus the
// "-feedstock" suffix); SourcePackage is the case-preserving name from the
// source archive filename, which is what the package index knows.
type Candidate struct {
	Feedstock     string
	Package       string
	SourcePackage string
	NeedsUpdate   bool
	Version       string
	Latest        string
	RawText       string
	Checksum      string
	Kind          recipe.Kind
	Suffix        string
	BlobSHA       string
	Deps          map[string]struct{}
}

// Independent returns the candidates whose dependency sets share no name
// with any candidate in the input, preserving input order. The check is one
// hop deep and scoped to the batch: dependencies outside it are assumed
// settled. A candidate naming itself as a dependency is excluded like any
// other intersection.
func Independent(candidates []Candidate) []Candidate {
	names := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		names[c.Package] = struct{}{}
	}

	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if intersects(c.Deps, names) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func intersects(deps, names map[string]struct{}) bool {
	for d := range deps {
		if _, ok := names[d]; ok {
			return true
		}
	}
	return false
}
