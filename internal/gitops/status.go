package gitops

import (
	"context"
	"fmt"
	"strings"
)

// Status describes a working tree the way clients expect it: the current
// branch, tracking info, and file names grouped by state.
type Status struct {
	Current  string      `json:"current"`
	Tracking string      `json:"tracking"`
	Ahead    int         `json:"ahead"`
	Behind   int         `json:"behind"`
	Files    StatusFiles `json:"files"`
}

// StatusFiles groups changed paths by state. Slices are always non-nil so
// the JSON shows empty arrays rather than null.
type StatusFiles struct {
	Modified  []string `json:"modified"`
	Staged    []string `json:"staged"`
	Untracked []string `json:"untracked"`
	Deleted   []string `json:"deleted"`
}

// Clean reports whether the status carries no changes at all.
func (s *Status) Clean() bool {
	f := s.Files
	return len(f.Modified)+len(f.Staged)+len(f.Untracked)+len(f.Deleted) == 0
}

// readStatus runs porcelain status in dir and parses it into a Status.
func readStatus(ctx context.Context, runner *Runner, dir string) (*Status, error) {
	out, err := runner.Run(ctx, dir, "status", "--porcelain=v1", "--branch")
	if err != nil {
		return nil, err
	}
	return parsePorcelain(out), nil
}

// parsePorcelain interprets `git status --porcelain=v1 --branch` output.
// The first line is the branch header (`## main...origin/main [ahead 1]`);
// each following line is a two-letter XY code and a path. X is the index
// state, Y the working tree state, `??` is untracked.
func parsePorcelain(out string) *Status {
	status := &Status{
		Files: StatusFiles{
			Modified:  []string{},
			Staged:    []string{},
			Untracked: []string{},
			Deleted:   []string{},
		},
	}

	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "## ") {
			parseBranchHeader(line[3:], status)
			continue
		}
		if len(line) < 4 {
			continue
		}

		x, y := line[0], line[1]
		path := strings.TrimSpace(line[3:])
		// Renames show as "old -> new"; report the new name.
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}

		switch {
		case x == '?' && y == '?':
			status.Files.Untracked = append(status.Files.Untracked, path)
		default:
			if x != ' ' && x != '?' {
				status.Files.Staged = append(status.Files.Staged, path)
			}
			if y == 'M' {
				status.Files.Modified = append(status.Files.Modified, path)
			}
			if x == 'D' || y == 'D' {
				status.Files.Deleted = append(status.Files.Deleted, path)
			}
		}
	}
	return status
}

func parseBranchHeader(header string, status *Status) {
	// Forms: "main", "main...origin/main", "main...origin/main [ahead 2, behind 1]",
	// "No commits yet on main".
	if rest, ok := strings.CutPrefix(header, "No commits yet on "); ok {
		status.Current = rest
		return
	}

	if i := strings.Index(header, " ["); i >= 0 {
		for _, part := range strings.Split(strings.Trim(header[i+2:], "[]"), ", ") {
			var n int
			if _, err := fmt.Sscanf(part, "ahead %d", &n); err == nil {
				status.Ahead = n
			} else if _, err := fmt.Sscanf(part, "behind %d", &n); err == nil {
				status.Behind = n
			}
		}
		header = header[:i]
	}

	if i := strings.Index(header, "..."); i >= 0 {
		status.Current = header[:i]
		status.Tracking = header[i+3:]
	} else {
		status.Current = header
	}
}
