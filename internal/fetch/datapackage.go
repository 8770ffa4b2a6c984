package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// dataPackageAdapter parses frictionless-data Data Package manifests.
type dataPackageAdapter struct {
	hc *http.Client
}

func (a *dataPackageAdapter) Name() string { return "Data Package" }

func (a *dataPackageAdapter) Detect(u *url.URL) bool {
	// npm manifests also end in package.json; they are not Data Packages.
	return strings.Contains(u.Path, ".json") && path.Base(u.Path) != "package.json"
}

type dataPackage struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Homepage    string `json:"homepage"`
	Image       string `json:"image"`
	Resources   []struct {
		Name string `json:"name"`
		Path string `json:"path"`
	} `json:"resources"`
	Sources []struct {
		Title string `json:"title"`
		Path  string `json:"path"`
	} `json:"sources"`
}

func (a *dataPackageAdapter) Fetch(ctx context.Context, u *url.URL) (*ExternalMetadata, error) {
	var dp dataPackage
	if err := getJSON(ctx, a.hc, u.String(), &dp); err != nil {
		return nil, fmt.Errorf("datapackage: %w", err)
	}
	// Both keys are mandatory in the Data Package convention; anything
	// else is some unrelated JSON document.
	if dp.Name == "" || dp.Title == "" {
		return nil, fmt.Errorf("datapackage: %s: name and title are required", u)
	}

	var description strings.Builder
	if dp.Description != "" {
		description.WriteString(dp.Description)
		description.WriteString("\n")
	}
	if len(dp.Resources) > 0 {
		description.WriteString("\nResources:\n")
		for _, r := range dp.Resources {
			fmt.Fprintf(&description, "- %s %s\n", r.Name, r.Path)
		}
	}
	if len(dp.Sources) > 0 {
		description.WriteString("\nSources:\n")
		for _, s := range dp.Sources {
			fmt.Fprintf(&description, "- %s %s\n", s.Title, s.Path)
		}
	}

	return &ExternalMetadata{
		Type:        "Data Package",
		Name:        dp.Title,
		Summary:     firstLine(dp.Description),
		Description: description.String(),
		HomepageURL: dp.Homepage,
		ImageURL:    dp.Image,
		SourceURL:   u.String(),
		DownloadURL: u.String(),
	}, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 140 {
		s = s[:140]
	}
	return strings.TrimSpace(s)
}
