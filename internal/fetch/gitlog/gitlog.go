// Package gitlog extracts commit history from arbitrary git remotes by
// cloning into a scratch directory.
package gitlog

import (
	"context"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// maxCommits caps how much history one fetch returns.
const maxCommits = 50

// Commit is one parsed log entry.
type Commit struct {
	SHA     string
	Author  string
	Date    time.Time
	Message string
}

// Commits clones the remote into a fresh scratch directory, extracts the
// log and removes the directory again, whatever happened in between.
// Clone or parse failures yield an empty slice; they are logged, never
// returned, since a user-triggered re-fetch is the retry mechanism.
func Commits(ctx context.Context, gitURL string) []Commit {
	dir, err := os.MkdirTemp("", "hackboard-clone-")
	if err != nil {
		log.Printf("gitlog: scratch dir: %v", err)
		return nil
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("gitlog: remove scratch dir %s: %v", dir, err)
		}
	}()

	// A bare clone is enough: only the history is wanted.
	clone := exec.CommandContext(ctx, "git", "clone", "--quiet", "--bare", gitURL, dir)
	if out, err := clone.CombinedOutput(); err != nil {
		log.Printf("gitlog: clone %s: %s", gitURL, strings.TrimSpace(string(out)))
		return nil
	}

	logCmd := exec.CommandContext(ctx, "git", "log",
		"--date=iso-strict",
		"-n", strconv.Itoa(maxCommits),
		"--pretty=format:%H%n%an%n%ad%n%s%n@@",
	)
	logCmd.Dir = dir
	out, err := logCmd.Output()
	if err != nil {
		log.Printf("gitlog: log %s: %v", gitURL, err)
		return nil
	}
	return parseLog(string(out))
}

// parseLog reads the four-line records produced by the pretty format
// above: sha, author, date, subject, terminated by an @@ line. Records
// that do not parse cleanly are skipped.
func parseLog(out string) []Commit {
	var commits []Commit
	for _, record := range strings.Split(out, "\n@@") {
		lines := strings.SplitN(strings.TrimLeft(record, "\n"), "\n", 4)
		if len(lines) < 4 {
			continue
		}
		date, err := time.Parse(time.RFC3339, strings.TrimSpace(lines[2]))
		if err != nil {
			continue
		}
		commits = append(commits, Commit{
			SHA:     strings.TrimSpace(lines[0]),
			Author:  strings.TrimSpace(lines[1]),
			Date:    date,
			Message: strings.TrimSpace(lines[3]),
		})
		if len(commits) == maxCommits {
			break
		}
	}
	return commits
}
