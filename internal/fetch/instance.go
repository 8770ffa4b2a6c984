package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// instanceAdapter treats the target as another Hackboard-compatible
// installation and reads its public project JSON API. An empty answer
// falls through to the generic adapters.
type instanceAdapter struct {
	hc *http.Client
}

func (a *instanceAdapter) Name() string { return "Hackboard" }

func (a *instanceAdapter) Detect(u *url.URL) bool {
	return strings.Contains(u.Path, "/project/")
}

type instanceInfo struct {
	Project struct {
		Name        string `json:"name"`
		Summary     string `json:"summary"`
		Description string `json:"description"`
		WebpageURL  string `json:"webpage_url"`
		SourceURL   string `json:"source_url"`
		ImageURL    string `json:"image_url"`
		ContactURL  string `json:"contact_url"`
		DownloadURL string `json:"download_url"`
	} `json:"project"`
}

func (a *instanceAdapter) Fetch(ctx context.Context, u *url.URL) (*ExternalMetadata, error) {
	segs := splitPath(u.Path)
	var id string
	for i, s := range segs {
		if s == "project" && i+1 < len(segs) {
			id = segs[i+1]
			break
		}
	}
	if id == "" {
		return &ExternalMetadata{}, nil
	}

	api := fmt.Sprintf("%s://%s/api/project/%s/info.json", u.Scheme, u.Host, id)
	var info instanceInfo
	if err := getJSON(ctx, a.hc, api, &info); err != nil {
		// Not an instance of this system; let the generic adapters try.
		return &ExternalMetadata{}, nil
	}
	if info.Project.Name == "" {
		return &ExternalMetadata{}, nil
	}

	return &ExternalMetadata{
		Type:        "Hackboard",
		Name:        info.Project.Name,
		Summary:     info.Project.Summary,
		Description: info.Project.Description,
		HomepageURL: info.Project.WebpageURL,
		SourceURL:   info.Project.SourceURL,
		ImageURL:    info.Project.ImageURL,
		ContactURL:  info.Project.ContactURL,
		DownloadURL: info.Project.DownloadURL,
	}, nil
}
