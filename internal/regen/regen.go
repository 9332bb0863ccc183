// Package regen reruns the feedstock scaffolding tool against a fresh clone
// of a fork and pushes the result. The whole cycle is best effort: callers
// record a failure and move on, the version bump already landed.
package regen

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/condatools/feedtick/internal/common/logger"
	"github.com/condatools/feedtick/internal/gitx"
)

// Regenerator reruns the scaffolding tool on a fork.
type Regenerator interface {
	// Regenerate clones cloneURL into a scratch directory, runs the tool
	// there and pushes a commit when the tool changed anything.
	Regenerate(ctx context.Context, cloneURL string) error
}

// ToolRegenerator runs an external regeneration command (conda-smithy by
// default) inside a temporary clone.
type ToolRegenerator struct {
	Command  string
	Args     []string
	GitUser  string
	GitEmail string

	// NewRunner builds the git runner for a checkout directory. Defaults
	// to gitx.NewRunner.
	NewRunner func(workDir string) gitx.Runner

	// RunTool executes the regeneration command in dir. Defaults to an
	// os/exec invocation of Command with Args.
	RunTool func(ctx context.Context, dir string) error
}

// NewToolRegenerator creates a regenerator for the given command, committing
// as the given git author.
func NewToolRegenerator(command string, args []string, gitUser, gitEmail string) *ToolRegenerator {
	return &ToolRegenerator{
		Command:  command,
		Args:     args,
		GitUser:  gitUser,
		GitEmail: gitEmail,
	}
}

// Regenerate clones the fork, runs the regeneration command and pushes a
// commit if the working tree is dirty afterwards. A clean tree after the
// tool run means the scaffolding was already current; that is success.
func (r *ToolRegenerator) Regenerate(ctx context.Context, cloneURL string) error {
	log := logger.Component("regen")

	tmpDir, err := os.MkdirTemp("", "feedtick-regen-")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	workDir := filepath.Join(tmpDir, "feedstock")
	runner := r.newRunner(workDir)

	if err := runner.Clone(ctx, cloneURL); err != nil {
		return fmt.Errorf("clone failed: %w", err)
	}

	if err := r.runTool(ctx, workDir); err != nil {
		return err
	}

	entries, err := runner.Status(ctx)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}
	if len(entries) == 0 {
		log.Debug().Str("url", cloneURL).Msg("scaffolding already current")
		return nil
	}

	if err := runner.AddAll(ctx); err != nil {
		return fmt.Errorf("add failed: %w", err)
	}

	message := fmt.Sprintf("MNT: Re-rendered with %s.", r.Command)
	if err := runner.Commit(ctx, message, r.GitUser, r.GitEmail); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	if err := runner.Push(ctx); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	log.Debug().Str("url", cloneURL).Int("files", len(entries)).Msg("pushed regenerated scaffolding")
	return nil
}

func (r *ToolRegenerator) newRunner(workDir string) gitx.Runner {
	if r.NewRunner != nil {
		return r.NewRunner(workDir)
	}
	return gitx.NewRunner(workDir)
}

func (r *ToolRegenerator) runTool(ctx context.Context, dir string) error {
	if r.RunTool != nil {
		return r.RunTool(ctx, dir)
	}

	if _, err := exec.LookPath(r.Command); err != nil {
		return fmt.Errorf("%s not found in PATH: %w", r.Command, err)
	}

	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", r.Command, err, output)
	}
	return nil
}

var _ Regenerator = (*ToolRegenerator)(nil)
