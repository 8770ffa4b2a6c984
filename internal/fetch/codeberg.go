package fetch

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// codebergAdapter resolves codeberg.org repositories through the Gitea
// REST API.
type codebergAdapter struct {
	hc   *http.Client
	base string
}

func newCodebergAdapter(hc *http.Client, baseURL string) *codebergAdapter {
	if baseURL == "" {
		baseURL = "https://codeberg.org"
	}
	return &codebergAdapter{hc: hc, base: strings.TrimSuffix(baseURL, "/")}
}

func (c *codebergAdapter) Name() string { return "Codeberg" }

func (c *codebergAdapter) Detect(u *url.URL) bool {
	return u.Hostname() == "codeberg.org"
}

type giteaRepo struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	HTMLURL       string `json:"html_url"`
	Website       string `json:"website"`
	AvatarURL     string `json:"avatar_url"`
	DefaultBranch string `json:"default_branch"`
	Owner         struct {
		AvatarURL string `json:"avatar_url"`
	} `json:"owner"`
}

type giteaContent struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type giteaCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

func (c *codebergAdapter) Fetch(ctx context.Context, u *url.URL) (*ExternalMetadata, error) {
	segs := splitPath(u.Path)
	if len(segs) < 2 {
		return nil, fmt.Errorf("codeberg: not a repository path: %s", u.Path)
	}
	api := fmt.Sprintf("%s/api/v1/repos/%s/%s", c.base, segs[0], segs[1])

	var repo giteaRepo
	if err := getJSON(ctx, c.hc, api, &repo); err != nil {
		return nil, fmt.Errorf("codeberg: repo: %w", err)
	}
	if repo.Name == "" {
		return nil, fmt.Errorf("codeberg: repo %s/%s: missing name", segs[0], segs[1])
	}

	image := repo.AvatarURL
	if image == "" {
		image = repo.Owner.AvatarURL
	}
	meta := &ExternalMetadata{
		Type:        "Codeberg",
		Name:        repo.Name,
		Summary:     repo.Description,
		HomepageURL: repo.Website,
		SourceURL:   repo.HTMLURL,
		ImageURL:    image,
		ContactURL:  repo.HTMLURL + "/issues",
		DownloadURL: repo.HTMLURL + "/releases",
	}

	var readme giteaContent
	if err := getJSON(ctx, c.hc, api+"/contents/README.md", &readme); err == nil {
		if readme.Encoding == "base64" {
			if text, err := base64.StdEncoding.DecodeString(readme.Content); err == nil {
				meta.Description = string(text)
			}
		} else {
			meta.Description = readme.Content
		}
	}

	var commits []giteaCommit
	if err := getJSON(ctx, c.hc, api+"/commits", &commits); err == nil {
		for _, gc := range commits {
			meta.Commits = append(meta.Commits, Commit{
				SHA:     gc.SHA,
				Author:  gc.Commit.Author.Name,
				Date:    gc.Commit.Author.Date,
				Message: gc.Commit.Message,
			})
		}
	}
	return meta, nil
}
