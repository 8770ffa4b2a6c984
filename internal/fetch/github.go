package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

const githubRawBase = "https://raw.githubusercontent.com"

// githubAdapter resolves github.com repositories, gists, issue references
// and direct Markdown blobs through the GitHub REST API.
type githubAdapter struct {
	client  *github.Client
	hc      *http.Client
	rawBase string
}

func newGitHubAdapter(hc *http.Client, token, baseURL string) *githubAdapter {
	apiClient := hc
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		apiClient = oauth2.NewClient(context.Background(), src)
		apiClient.Timeout = hc.Timeout
	}
	client := github.NewClient(apiClient)
	rawBase := githubRawBase
	if baseURL != "" {
		if bu, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/"); err == nil {
			client.BaseURL = bu
		}
		rawBase = strings.TrimSuffix(baseURL, "/")
	}
	return &githubAdapter{client: client, hc: hc, rawBase: rawBase}
}

func (g *githubAdapter) Name() string { return "GitHub" }

func (g *githubAdapter) Detect(u *url.URL) bool {
	host := strings.TrimPrefix(u.Hostname(), "www.")
	return host == "github.com" || host == "gist.github.com"
}

func (g *githubAdapter) Fetch(ctx context.Context, u *url.URL) (*ExternalMetadata, error) {
	if strings.TrimPrefix(u.Hostname(), "www.") == "gist.github.com" {
		return g.fetchGist(ctx, u)
	}

	segs := splitPath(u.Path)
	if len(segs) < 2 {
		return nil, fmt.Errorf("github: not a repository path: %s", u.Path)
	}
	owner, repo := segs[0], segs[1]

	// A blob link to one Markdown file only needs the raw contents.
	if len(segs) >= 5 && segs[2] == "blob" && strings.HasSuffix(strings.ToLower(u.Path), ".md") {
		return g.fetchMarkdown(ctx, owner, repo, segs[3], segs[4:])
	}

	// An issue reference is a challenge proposal, not repository metadata.
	if len(segs) >= 4 && segs[2] == "issues" {
		if number, err := strconv.Atoi(segs[3]); err == nil {
			return g.fetchIssue(ctx, owner, repo, number)
		}
	}

	return g.fetchRepo(ctx, owner, repo)
}

func (g *githubAdapter) fetchRepo(ctx context.Context, owner, repo string) (*ExternalMetadata, error) {
	r, _, err := g.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("github: repo %s/%s: %w", owner, repo, err)
	}

	meta := &ExternalMetadata{
		Type:        "GitHub",
		Name:        r.GetName(),
		Summary:     r.GetDescription(),
		HomepageURL: r.GetHomepage(),
		SourceURL:   r.GetHTMLURL(),
		ImageURL:    r.GetOwner().GetAvatarURL(),
		ContactURL:  r.GetHTMLURL() + "/issues",
		DownloadURL: r.GetHTMLURL() + "/releases",
	}

	readme, _, err := g.client.Repositories.GetReadme(ctx, owner, repo, nil)
	if err == nil {
		if content, err := readme.GetContent(); err == nil {
			meta.Description = g.absolutizeImages(content, owner, repo, r.GetDefaultBranch())
		}
	}

	commits, _, err := g.client.Repositories.ListCommits(ctx, owner, repo,
		&github.CommitsListOptions{ListOptions: github.ListOptions{PerPage: 50}})
	if err == nil {
		for _, c := range commits {
			meta.Commits = append(meta.Commits, Commit{
				SHA:     c.GetSHA(),
				Author:  c.GetCommit().GetAuthor().GetName(),
				Date:    c.GetCommit().GetAuthor().GetDate().Time,
				Message: c.GetCommit().GetMessage(),
			})
		}
	}
	return meta, nil
}

func (g *githubAdapter) fetchMarkdown(ctx context.Context, owner, repo, ref string, file []string) (*ExternalMetadata, error) {
	rawURL := strings.Join(append([]string{g.rawBase, owner, repo, ref}, file...), "/")
	body, err := getBody(ctx, g.hc, rawURL)
	if err != nil {
		return nil, fmt.Errorf("github: markdown: %w", err)
	}
	return &ExternalMetadata{
		Type:        "Markdown",
		Name:        strings.TrimSuffix(path.Base(file[len(file)-1]), path.Ext(file[len(file)-1])),
		Description: g.absolutizeImages(string(body), owner, repo, ref),
		SourceURL:   fmt.Sprintf("https://github.com/%s/%s", owner, repo),
	}, nil
}

func (g *githubAdapter) fetchIssue(ctx context.Context, owner, repo string, number int) (*ExternalMetadata, error) {
	issue, _, err := g.client.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("github: issue %s/%s#%d: %w", owner, repo, number, err)
	}
	return &ExternalMetadata{
		Type:        "Challenge",
		Name:        issue.GetTitle(),
		Description: issue.GetBody(),
		SourceURL:   fmt.Sprintf("https://github.com/%s/%s", owner, repo),
		ContactURL:  issue.GetHTMLURL(),
	}, nil
}

func (g *githubAdapter) fetchGist(ctx context.Context, u *url.URL) (*ExternalMetadata, error) {
	segs := splitPath(u.Path)
	if len(segs) == 0 {
		return nil, fmt.Errorf("github: not a gist path: %s", u.Path)
	}
	gist, _, err := g.client.Gists.Get(ctx, segs[len(segs)-1])
	if err != nil {
		return nil, fmt.Errorf("github: gist %s: %w", segs[len(segs)-1], err)
	}

	meta := &ExternalMetadata{
		Type:       "Gist",
		Name:       gist.GetDescription(),
		SourceURL:  gist.GetHTMLURL(),
		ContactURL: gist.GetHTMLURL(),
		ImageURL:   gist.GetOwner().GetAvatarURL(),
	}
	for _, file := range gist.Files {
		if meta.Name == "" {
			meta.Name = file.GetFilename()
		}
		meta.Description += file.GetContent()
	}
	return meta, nil
}

var (
	htmlImgRe = regexp.MustCompile(`(?i)(<img[^>]+src=["'])([^"']+)(["'])`)
	mdImgRe   = regexp.MustCompile(`(!\[[^\]]*\]\()([^)\s]+)(\))`)
)

// absolutizeImages rewrites relative image references in a README so the
// rendered description never shows broken images.
func (g *githubAdapter) absolutizeImages(markdown, owner, repo, branch string) string {
	if branch == "" {
		branch = "main"
	}
	base := fmt.Sprintf("%s/%s/%s/%s/", g.rawBase, owner, repo, branch)
	rewrite := func(prefix, src, suffix string) string {
		lower := strings.ToLower(src)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") ||
			strings.HasPrefix(lower, "//") || strings.HasPrefix(lower, "data:") {
			return prefix + src + suffix
		}
		src = strings.TrimPrefix(strings.TrimPrefix(src, "./"), "/")
		return prefix + base + src + suffix
	}

	markdown = htmlImgRe.ReplaceAllStringFunc(markdown, func(m string) string {
		parts := htmlImgRe.FindStringSubmatch(m)
		return rewrite(parts[1], parts[2], parts[3])
	})
	return mdImgRe.ReplaceAllStringFunc(markdown, func(m string) string {
		parts := mdImgRe.FindStringSubmatch(m)
		return rewrite(parts[1], parts[2], parts[3])
	})
}

// splitPath breaks a URL path into its non-empty segments.
func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
