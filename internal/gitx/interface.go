// Package gitx runs the git operations the regeneration cycle needs on a
// throwaway fork checkout.
package gitx

import "context"

// Runner defines the interface for git operations.
// This interface allows for mocking git operations in tests.
type Runner interface {
	// Clone clones a repository URL into the working directory
	Clone(ctx context.Context, url string) error

	// Status returns the current git status as a list of StatusEntry
	Status(ctx context.Context) ([]StatusEntry, error)

	// AddAll stages every change in the working tree
	AddAll(ctx context.Context) error

	// Commit creates a git commit with the specified message and author
	Commit(ctx context.Context, message, user, email string) error

	// Push pushes commits to the remote repository
	Push(ctx context.Context) error

	// WorkDir returns the working directory of the git repository
	WorkDir() string
}
