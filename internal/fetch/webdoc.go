package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// webDocAdapter is the catch-all: it retrieves the page and sniffs for
// known document platforms. Unknown pages yield an empty result.
type webDocAdapter struct {
	hc *http.Client
}

func (a *webDocAdapter) Name() string { return "Web" }

func (a *webDocAdapter) Detect(u *url.URL) bool { return true }

func (a *webDocAdapter) Fetch(ctx context.Context, u *url.URL) (*ExternalMetadata, error) {
	body, err := getBody(ctx, a.hc, u.String())
	if err != nil {
		return nil, fmt.Errorf("webdoc: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("webdoc: parse %s: %w", u, err)
	}

	// Sniff order matters: the first matching platform handler wins.
	for _, sniff := range []func(*url.URL, *goquery.Document) *ExternalMetadata{
		sniffGoogleDocs,
		sniffCodiMD,
		sniffDokuWiki,
		sniffEtherpad,
		sniffInstructables,
	} {
		if meta := sniff(u, doc); meta != nil {
			if meta.SourceURL == "" {
				meta.SourceURL = u.String()
			}
			if meta.ImageURL == "" {
				meta.ImageURL, _ = doc.Find(`meta[property="og:image"]`).Attr("content")
			}
			return meta, nil
		}
	}
	return &ExternalMetadata{}, nil
}

func pageTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// sanitizedHTML extracts the selection's inner HTML reduced to the tag
// allow-list, so scripts and event handlers never reach stored
// descriptions.
func sanitizedHTML(sel *goquery.Selection) string {
	html, err := sel.Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(sanitizeHTML(html))
}

func sniffGoogleDocs(u *url.URL, doc *goquery.Document) *ExternalMetadata {
	if u.Hostname() != "docs.google.com" {
		return nil
	}
	content := doc.Find("#contents")
	if content.Length() == 0 {
		return nil
	}
	return &ExternalMetadata{
		Type:        "Google Docs",
		Name:        strings.TrimSuffix(pageTitle(doc), " - Google Docs"),
		Description: sanitizedHTML(content),
	}
}

func sniffCodiMD(u *url.URL, doc *goquery.Document) *ExternalMetadata {
	// CodiMD and HackMD publish the markdown source inside div#doc.
	content := doc.Find("div#doc")
	if content.Length() == 0 {
		return nil
	}
	return &ExternalMetadata{
		Type:        "Markdown",
		Name:        pageTitle(doc),
		Description: strings.TrimSpace(content.Text()),
	}
}

func sniffDokuWiki(u *url.URL, doc *goquery.Document) *ExternalMetadata {
	generator, _ := doc.Find(`meta[name="generator"]`).Attr("content")
	if !strings.Contains(generator, "DokuWiki") {
		return nil
	}
	content := doc.Find("div.dokuwiki")
	if content.Length() == 0 {
		content = doc.Find("#dokuwiki__content")
	}
	if content.Length() == 0 {
		return nil
	}
	return &ExternalMetadata{
		Type:        "DokuWiki",
		Name:        pageTitle(doc),
		Description: sanitizedHTML(content.First()),
	}
}

func sniffEtherpad(u *url.URL, doc *goquery.Document) *ExternalMetadata {
	// Pads reference the import/export plumbing script.
	marker := doc.Find(`script[src*="pad.importExport"], script[src*="/javascripts/lib/ep_"]`)
	if marker.Length() == 0 {
		return nil
	}
	return &ExternalMetadata{
		Type:        "Etherpad",
		Name:        strings.TrimSuffix(pageTitle(doc), " | Etherpad"),
		Description: sanitizedHTML(doc.Find("#editorcontainer")),
	}
}

func sniffInstructables(u *url.URL, doc *goquery.Document) *ExternalMetadata {
	if !strings.HasSuffix(u.Hostname(), "instructables.com") {
		return nil
	}
	var parts []string
	doc.Find("div.step-body").Each(func(_ int, s *goquery.Selection) {
		if html := sanitizedHTML(s); html != "" {
			parts = append(parts, html)
		}
	})
	if len(parts) == 0 {
		return nil
	}
	return &ExternalMetadata{
		Type:        "Instructables",
		Name:        pageTitle(doc),
		Description: strings.Join(parts, "\n"),
	}
}
