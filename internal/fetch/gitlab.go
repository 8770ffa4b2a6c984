package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// gitlabAdapter resolves gitlab.com (and self-hosted gitlab.*) projects
// through the GitLab v4 REST API.
type gitlabAdapter struct {
	hc   *http.Client
	base string
}

func newGitLabAdapter(hc *http.Client, baseURL string) *gitlabAdapter {
	if baseURL == "" {
		baseURL = "https://gitlab.com"
	}
	return &gitlabAdapter{hc: hc, base: strings.TrimSuffix(baseURL, "/")}
}

func (g *gitlabAdapter) Name() string { return "GitLab" }

func (g *gitlabAdapter) Detect(u *url.URL) bool {
	host := u.Hostname()
	return host == "gitlab.com" || strings.HasPrefix(host, "gitlab.")
}

type gitlabProject struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	WebURL            string `json:"web_url"`
	AvatarURL         string `json:"avatar_url"`
	ReadmeURL         string `json:"readme_url"`
	DefaultBranch     string `json:"default_branch"`
	PathWithNamespace string `json:"path_with_namespace"`
}

type gitlabCommit struct {
	ID         string    `json:"id"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
	Title      string    `json:"title"`
}

func (g *gitlabAdapter) Fetch(ctx context.Context, u *url.URL) (*ExternalMetadata, error) {
	project := strings.Trim(u.Path, "/")
	if project == "" {
		return nil, fmt.Errorf("gitlab: not a project path: %s", u.Path)
	}
	api := g.base + "/api/v4/projects/" + url.PathEscape(project)

	var p gitlabProject
	if err := getJSON(ctx, g.hc, api, &p); err != nil {
		return nil, fmt.Errorf("gitlab: project %s: %w", project, err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("gitlab: project %s: missing name", project)
	}

	meta := &ExternalMetadata{
		Type:       "GitLab",
		Name:       p.Name,
		Summary:    p.Description,
		SourceURL:  p.WebURL,
		ImageURL:   p.AvatarURL,
		ContactURL: p.WebURL + "/-/issues",
	}

	// The README is served as a blob page; the raw variant has the text.
	if p.ReadmeURL != "" {
		raw := strings.Replace(p.ReadmeURL, "/-/blob/", "/-/raw/", 1)
		if body, err := getBody(ctx, g.hc, raw); err == nil {
			meta.Description = string(body)
		}
	}

	var commits []gitlabCommit
	if err := getJSON(ctx, g.hc, api+"/repository/commits", &commits); err == nil {
		for _, c := range commits {
			meta.Commits = append(meta.Commits, Commit{
				SHA:     c.ID,
				Author:  c.AuthorName,
				Date:    c.CreatedAt,
				Message: c.Title,
			})
		}
	}
	return meta, nil
}
