// Package fetch retrieves normalized project metadata from external
// hosting platforms.
//
// A Fetcher holds an ordered list of platform adapters. Dispatch walks the
// list and returns the first non-empty result, so a generic adapter placed
// later can pick up URLs a specific adapter declined. Remote failures of
// any kind degrade to an empty result; nothing past the fetch boundary
// ever sees a network error.
package fetch

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ExternalMetadata is the canonical shape every adapter produces. Not all
// fields are populated for every platform.
type ExternalMetadata struct {
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	HomepageURL string   `json:"homepage_url"`
	SourceURL   string   `json:"source_url"`
	ImageURL    string   `json:"image_url"`
	ContactURL  string   `json:"contact_url"`
	DownloadURL string   `json:"download_url"`
	Commits     []Commit `json:"commits,omitempty"`
}

// Commit is one entry of a repository's history.
type Commit struct {
	SHA     string    `json:"sha"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
}

// IsEmpty reports whether the fetch produced nothing usable.
func (m *ExternalMetadata) IsEmpty() bool {
	return m == nil || (m.Name == "" && m.Summary == "" && m.Description == "")
}

// Adapter is one platform handler: Detect decides whether the URL belongs
// to the platform, Fetch retrieves and normalizes its metadata.
type Adapter interface {
	Name() string
	Detect(u *url.URL) bool
	Fetch(ctx context.Context, u *url.URL) (*ExternalMetadata, error)
}

// Options configures a Fetcher. The base URL overrides exist for tests
// against local stand-ins of the platform APIs.
type Options struct {
	Timeout            time.Duration
	HTTPClient         *http.Client
	GitHubToken        string
	GitHubBaseURL      string
	GitLabBaseURL      string
	CodebergBaseURL    string
	HuggingFaceBaseURL string
}

// Fetcher dispatches URLs to platform adapters in registration order.
type Fetcher struct {
	adapters []Adapter
	timeout  time.Duration
}

// New builds a Fetcher with the default adapter order: specific forges
// first, generic handlers last.
func New(opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Fetcher{
		timeout: timeout,
		adapters: []Adapter{
			newGitHubAdapter(hc, opts.GitHubToken, opts.GitHubBaseURL),
			newGitLabAdapter(hc, opts.GitLabBaseURL),
			newCodebergAdapter(hc, opts.CodebergBaseURL),
			newHuggingFaceAdapter(hc, opts.HuggingFaceBaseURL),
			&gitCloneAdapter{},
			&dataPackageAdapter{hc: hc},
			&instanceAdapter{hc: hc},
			&webDocAdapter{hc: hc},
		},
	}
}

// Register appends a custom adapter; it is consulted after the defaults.
func (f *Fetcher) Register(a Adapter) {
	f.adapters = append(f.adapters, a)
}

// Fetch resolves a URL to metadata. It never returns nil and never fails:
// malformed input, unreachable hosts, timeouts and unrecognized platforms
// all yield an empty result. A per-call deadline bounds the total time
// spent on remote requests.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) *ExternalMetadata {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ExternalMetadata{}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	for _, a := range f.adapters {
		if !a.Detect(u) {
			continue
		}
		meta, err := a.Fetch(ctx, u)
		if err != nil {
			log.Printf("fetch: %s: %s: %v", a.Name(), u.Host, err)
			continue
		}
		if !meta.IsEmpty() {
			return meta
		}
	}
	return &ExternalMetadata{}
}
