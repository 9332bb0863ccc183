package gitx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// ErrGitCommand is returned when a git invocation exits nonzero
var ErrGitCommand = errors.New("git command failed")

// ExecRunner executes git commands in a specific working directory.
type ExecRunner struct {
	workDir string
}

// NewRunner creates an ExecRunner rooted at workDir. The directory is the
// clone destination; it must not exist yet when Clone is called.
func NewRunner(workDir string) *ExecRunner {
	return &ExecRunner{
		workDir: workDir,
	}
}

// WorkDir returns the working directory of the runner
func (g *ExecRunner) WorkDir() string {
	return g.workDir
}

// runCommand executes a git command and returns stdout, stderr, and any error
func (g *ExecRunner) runCommand(ctx context.Context, dir string, args ...string) (stdout, stderr string, err error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if stderr != "" {
			err = errors.Join(ErrGitCommand, errors.New(strings.TrimSpace(stderr)))
		}
	}

	return stdout, stderr, err
}

// Clone clones url into the working directory. It runs without a directory
// context since the destination does not exist yet.
func (g *ExecRunner) Clone(ctx context.Context, url string) error {
	_, _, err := g.runCommand(ctx, "", "clone", url, g.workDir)
	return err
}

// StatusEntry represents a single entry from git status --porcelain
type StatusEntry struct {
	Status   string // A, M, D, R, ??
	FilePath string
}

// Status returns the current git status as a list of StatusEntry
func (g *ExecRunner) Status(ctx context.Context) ([]StatusEntry, error) {
	stdout, _, err := g.runCommand(ctx, g.workDir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}

	return ParseStatusOutput(stdout), nil
}

// ParseStatusOutput parses git status --porcelain output into StatusEntry slice
func ParseStatusOutput(output string) []StatusEntry {
	var entries []StatusEntry

	for _, line := range strings.Split(output, "\n") {
		if len(line) < 3 {
			continue
		}

		// Porcelain format: XY filename
		status := strings.TrimSpace(line[:2])
		filePath := line[3:]

		// Renamed files: R  old -> new
		if strings.HasPrefix(status, "R") {
			parts := strings.Split(filePath, " -> ")
			if len(parts) == 2 {
				filePath = parts[1]
			}
		}

		entries = append(entries, StatusEntry{
			Status:   status,
			FilePath: filePath,
		})
	}

	return entries
}

// AddAll stages every change in the working tree
func (g *ExecRunner) AddAll(ctx context.Context) error {
	_, _, err := g.runCommand(ctx, g.workDir, "add", "-A")
	return err
}

// Commit creates a git commit with the specified message and author
func (g *ExecRunner) Commit(ctx context.Context, message, user, email string) error {
	args := []string{"commit", "-m", message}

	if user != "" && email != "" {
		author := user + " <" + email + ">"
		args = append(args, "--author", author)
	}

	_, _, err := g.runCommand(ctx, g.workDir, args...)
	return err
}

// Push pushes commits to the remote repository
func (g *ExecRunner) Push(ctx context.Context) error {
	_, _, err := g.runCommand(ctx, g.workDir, "push")
	return err
}

// Ensure ExecRunner implements Runner interface
var _ Runner = (*ExecRunner)(nil)
