package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/git-lfs/go-netrc/netrc"
)

var ErrNoCredential = errors.New("no GitHub credential: pass --token, set GH_TOKEN, or add api.github.com to ~/.netrc")

// TokenEnvVar is the environment variable consulted when no token flag is given.
const TokenEnvVar = "GH_TOKEN"

// ResolveToken returns the first available GitHub credential: the explicit
// value, the GH_TOKEN environment variable, then the api.github.com machine
// in the user's netrc file.
func ResolveToken(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if tok := os.Getenv(TokenEnvVar); tok != "" {
		return tok, nil
	}
	if tok := netrcToken(netrcPath(), "api.github.com"); tok != "" {
		return tok, nil
	}
	return "", ErrNoCredential
}

// netrcPath honors the NETRC environment variable the way cmd/go does,
// falling back to ~/.netrc.
func netrcPath() string {
	if p := os.Getenv("NETRC"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".netrc")
}

// netrcToken reads the credential for machine from a netrc file. Tokens are
// conventionally stored in the password field; the login field is the
// fallback for entries that only carry one value.
func netrcToken(path, machine string) string {
	if path == "" {
		return ""
	}
	n, err := netrc.ParseFile(path)
	if err != nil {
		return ""
	}
	m := n.FindMachine(machine, "")
	if m == nil {
		return ""
	}
	if m.Password != "" {
		return m.Password
	}
	return m.Login
}
