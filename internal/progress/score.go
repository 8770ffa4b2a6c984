package progress

import (
	"strings"

	"github.com/hackboard/hackboard/internal/models"
)

// CompletenessBonus returns the field-completeness part of the project
// score. It is recomputed on every read and never written to the ledger,
// so it can never be double-counted against the ledger-derived part.
func CompletenessBonus(p *models.Project) int {
	bonus := 0
	if len(strings.TrimSpace(p.Summary)) >= 3 {
		bonus += 3
	}
	if len(strings.TrimSpace(p.ImageURL)) >= 3 {
		bonus += 3
	}
	if p.SourceURL != "" {
		bonus += 10
	}
	if p.WebpageURL != "" {
		bonus += 10
	}
	if p.LogoColor != "" {
		bonus++
	}
	if p.LogoIcon != "" {
		bonus++
	}
	if longtext := strings.TrimSpace(p.Longtext); longtext != "" {
		bonus++
		if len(longtext) > 100 {
			bonus += 4
		}
		if len(longtext) > 500 {
			bonus += 10
		}
	}
	return bonus
}

// TotalScore combines the cached ledger score with the completeness bonus.
func TotalScore(p *models.Project) int {
	return p.Score + CompletenessBonus(p)
}

// ClampNudge applies a machine-push "levelup" nudge of levelup*10 to the
// current progress value, clamped so the result stays within 0-49.
func ClampNudge(current, levelup int) int {
	next := current + levelup*10
	if next < 0 {
		next = 0
	}
	if next > 49 {
		next = 49
	}
	return next
}
