// Package progress implements the project stage state machine and the
// derived score.
package progress

import (
	"net/url"
	"strings"

	"github.com/hackboard/hackboard/internal/config"
	"github.com/hackboard/hackboard/internal/models"
)

// ChallengePhase labels projects that are not yet approved into the stage
// sequence.
const ChallengePhase = "Challenge"

// Stage is one entry of the ordered stage table.
type Stage struct {
	ID          int
	Phase       string
	Description string
	Conditions  []Condition
}

// Condition is a completion predicate over one project field. Zero-valued
// parts are skipped: Min/Max check trimmed length, URL requires an
// absolute http(s) URL.
type Condition struct {
	Field string
	Min   int
	Max   int
	URL   bool
}

// Stages is the immutable, ordered stage table. It is built once at
// startup and shared read-only between requests.
type Stages []Stage

// FromConfig converts the configured stage table. Config validation has
// already guaranteed ascending, non-negative IDs.
func FromConfig(cfgs []config.StageConfig) Stages {
	stages := make(Stages, len(cfgs))
	for i, sc := range cfgs {
		conds := make([]Condition, len(sc.Conditions))
		for j, cc := range sc.Conditions {
			conds[j] = Condition{Field: cc.Field, Min: cc.Min, Max: cc.Max, URL: cc.URL}
		}
		stages[i] = Stage{ID: sc.ID, Phase: sc.Phase, Description: sc.Description, Conditions: conds}
	}
	return stages
}

// First returns the entry stage of the sequence.
func (s Stages) First() (Stage, bool) {
	if len(s) == 0 {
		return Stage{}, false
	}
	return s[0], true
}

// ByID returns the stage with the given progress value.
func (s Stages) ByID(id int) (Stage, bool) {
	for _, st := range s {
		if st.ID == id {
			return st, true
		}
	}
	return Stage{}, false
}

// Next returns the stage after the given progress value.
func (s Stages) Next(id int) (Stage, bool) {
	for i, st := range s {
		if st.ID == id {
			if i+1 < len(s) {
				return s[i+1], true
			}
			return Stage{}, false
		}
	}
	return Stage{}, false
}

// At returns the stage a progress value sits in: the highest stage whose
// ID does not exceed it. Values between stage IDs, such as those written
// by a push levelup nudge, snap down to the stage they last passed.
func (s Stages) At(progress int) (Stage, bool) {
	var found Stage
	ok := false
	for _, st := range s {
		if st.ID > progress {
			break
		}
		found = st
		ok = true
	}
	return found, ok
}

// IsTerminal reports whether the given progress value is the last stage.
func (s Stages) IsTerminal(id int) bool {
	return len(s) > 0 && s[len(s)-1].ID == id
}

// Phase returns the human label for a progress value. Unstaged and
// negative values are challenges; values between stage IDs take the label
// of the stage they last passed.
func (s Stages) Phase(progress *int) string {
	if progress == nil || *progress < 0 {
		return ChallengePhase
	}
	if st, ok := s.At(*progress); ok {
		return st.Phase
	}
	return ""
}

// Evaluate checks every condition of the stage against the project's
// current field values and returns descriptions of the unmet ones.
func (st Stage) Evaluate(p *models.Project) []string {
	var unmet []string
	for _, c := range st.Conditions {
		if msg := c.check(p); msg != "" {
			unmet = append(unmet, msg)
		}
	}
	return unmet
}

func (c Condition) check(p *models.Project) string {
	value := strings.TrimSpace(fieldValue(p, c.Field))
	if c.URL && !isAbsoluteURL(value) {
		return c.Field + " must be a link"
	}
	if c.Min > 0 && len(value) < c.Min {
		return c.Field + " is too short"
	}
	if c.Max > 0 && len(value) > c.Max {
		return c.Field + " is too long"
	}
	return ""
}

// fieldValue maps a condition field name onto the project record.
func fieldValue(p *models.Project, field string) string {
	switch field {
	case "name":
		return p.Name
	case "summary":
		return p.Summary
	case "hashtag":
		return p.Hashtag
	case "longtext":
		return p.Longtext
	case "autotext":
		return p.Autotext
	case "webpage_url":
		return p.WebpageURL
	case "source_url":
		return p.SourceURL
	case "contact_url":
		return p.ContactURL
	case "download_url":
		return p.DownloadURL
	case "image_url":
		return p.ImageURL
	case "logo_color":
		return p.LogoColor
	case "logo_icon":
		return p.LogoIcon
	}
	return ""
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
