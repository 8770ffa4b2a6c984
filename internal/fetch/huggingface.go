package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// huggingFaceAdapter resolves Hugging Face models and datasets through the
// hub API.
type huggingFaceAdapter struct {
	hc   *http.Client
	base string
}

func newHuggingFaceAdapter(hc *http.Client, baseURL string) *huggingFaceAdapter {
	if baseURL == "" {
		baseURL = "https://huggingface.co"
	}
	return &huggingFaceAdapter{hc: hc, base: strings.TrimSuffix(baseURL, "/")}
}

func (h *huggingFaceAdapter) Name() string { return "Hugging Face" }

func (h *huggingFaceAdapter) Detect(u *url.URL) bool {
	host := u.Hostname()
	return host == "huggingface.co" || host == "hf.co"
}

type huggingFaceCard struct {
	ID       string `json:"id"`
	Author   string `json:"author"`
	CardData struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
		License string `json:"license"`
	} `json:"cardData"`
}

func (h *huggingFaceAdapter) Fetch(ctx context.Context, u *url.URL) (*ExternalMetadata, error) {
	segs := splitPath(u.Path)
	if len(segs) == 0 {
		return nil, fmt.Errorf("huggingface: empty path")
	}

	kind := "models"
	if segs[0] == "datasets" || segs[0] == "spaces" {
		kind = segs[0]
		segs = segs[1:]
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("huggingface: not a repository path: %s", u.Path)
	}
	id := strings.Join(segs, "/")

	var card huggingFaceCard
	if err := getJSON(ctx, h.hc, fmt.Sprintf("%s/api/%s/%s", h.base, kind, id), &card); err != nil {
		return nil, fmt.Errorf("huggingface: %s %s: %w", kind, id, err)
	}
	if card.ID == "" {
		return nil, fmt.Errorf("huggingface: %s %s: missing id", kind, id)
	}

	name := card.CardData.Title
	if name == "" {
		parts := strings.Split(card.ID, "/")
		name = parts[len(parts)-1]
	}
	meta := &ExternalMetadata{
		Type:       "Hugging Face",
		Name:       name,
		Summary:    card.CardData.Summary,
		SourceURL:  h.base + "/" + card.ID,
		ContactURL: h.base + "/" + card.ID + "/discussions",
	}

	// The README card renders the project page; use its raw text.
	rawPrefix := card.ID
	if kind != "models" {
		rawPrefix = kind + "/" + card.ID
	}
	if body, err := getBody(ctx, h.hc, fmt.Sprintf("%s/%s/raw/main/README.md", h.base, rawPrefix)); err == nil {
		meta.Description = stripFrontMatter(string(body))
	}
	return meta, nil
}

// stripFrontMatter drops the leading YAML block Hugging Face cards carry.
func stripFrontMatter(text string) string {
	if !strings.HasPrefix(text, "---") {
		return text
	}
	rest := text[3:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return text
	}
	after := rest[end+4:]
	return strings.TrimLeft(after, "-\r\n")
}
