package fetch

import "github.com/microcosm-cc/bluemonday"

// htmlPolicy is the allow-list for externally fetched document content:
// user-generated-content formatting plus images, nothing executable.
var htmlPolicy = bluemonday.UGCPolicy()

// sanitizeHTML reduces fetched HTML to the allow-list.
func sanitizeHTML(html string) string {
	return htmlPolicy.Sanitize(html)
}
