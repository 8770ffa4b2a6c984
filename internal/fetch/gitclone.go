package fetch

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/hackboard/hackboard/internal/fetch/gitlog"
)

// gitCloneAdapter handles plain .git URLs on any host by cloning into a
// scratch directory and reading the log.
type gitCloneAdapter struct{}

func (a *gitCloneAdapter) Name() string { return "Git" }

func (a *gitCloneAdapter) Detect(u *url.URL) bool {
	return strings.HasSuffix(u.Path, ".git")
}

func (a *gitCloneAdapter) Fetch(ctx context.Context, u *url.URL) (*ExternalMetadata, error) {
	history := gitlog.Commits(ctx, u.String())
	if len(history) == 0 {
		return &ExternalMetadata{}, nil
	}

	meta := &ExternalMetadata{
		Type:      "Git",
		Name:      strings.TrimSuffix(path.Base(u.Path), ".git"),
		SourceURL: u.String(),
	}
	for _, c := range history {
		meta.Commits = append(meta.Commits, Commit{
			SHA:     c.SHA,
			Author:  c.Author,
			Date:    c.Date,
			Message: c.Message,
		})
	}
	return meta, nil
}
