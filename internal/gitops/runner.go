// Package gitops runs real git against throwaway working trees.
//
// Two surfaces share the plumbing here. The Engine materializes a
// repository's database rows into a temporary directory, replays them
// through git, and answers status/commit/log style questions from that
// snapshot. Local operates on caller-supplied filesystem paths for
// workflows that manage repositories directly on disk.
package gitops

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes git subcommands in a fixed working directory per call.
// It shells out to the system git binary rather than reimplementing the
// object model; the binary name is configurable for tests and exotic PATHs.
type Runner struct {
	binary string
}

// NewRunner creates a Runner for the given git binary name or path.
func NewRunner(binary string) *Runner {
	if binary == "" {
		binary = "git"
	}
	return &Runner{binary: binary}
}

// Available reports whether the configured git binary can be found.
// Callers check this once at startup instead of failing on first use.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

// Run executes one git subcommand in dir and returns trimmed stdout.
// Stderr is folded into the returned error so callers see git's own
// explanation ("nothing to commit", "branch not found") instead of a bare
// exit status.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg != "" {
			return "", fmt.Errorf("gitops: git %s: %s: %w", args[0], msg, err)
		}
		return "", fmt.Errorf("gitops: git %s: %w", args[0], err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
