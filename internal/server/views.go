package server

import (
	"time"

	"gorm.io/gorm"

	"github.com/hackboard/hackboard/internal/activity"
	"github.com/hackboard/hackboard/internal/models"
	"github.com/hackboard/hackboard/internal/progress"
)

// projectView is the public JSON representation of a project. The
// description field carries the user-authored text when present, the
// fetched text otherwise. Score and team are derived on read.
type projectView struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Summary     string    `json:"summary"`
	Hashtag     string    `json:"hashtag,omitempty"`
	Description string    `json:"description"`
	AutotextURL string    `json:"autotext_url,omitempty"`
	WebpageURL  string    `json:"webpage_url"`
	SourceURL   string    `json:"source_url"`
	ImageURL    string    `json:"image_url"`
	ContactURL  string    `json:"contact_url"`
	DownloadURL string    `json:"download_url"`
	LogoColor   string    `json:"logo_color,omitempty"`
	LogoIcon    string    `json:"logo_icon,omitempty"`
	Phase       string    `json:"phase"`
	Progress    *int      `json:"progress"`
	Score       int       `json:"score"`
	Team        []string  `json:"team"`
	EventID     uint      `json:"event_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// buildProjectView assembles the public representation, including the
// read-derived score and team roster.
func (s *Server) buildProjectView(db *gorm.DB, p *models.Project) (*projectView, error) {
	team, err := activity.Team(db, p.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(team))
	for _, u := range team {
		names = append(names, u.Username)
	}

	description := p.Longtext
	if description == "" {
		description = p.Autotext
	}

	return &projectView{
		ID:          p.ID,
		Name:        p.Name,
		Summary:     p.Summary,
		Hashtag:     p.Hashtag,
		Description: description,
		AutotextURL: p.AutotextURL,
		WebpageURL:  p.WebpageURL,
		SourceURL:   p.SourceURL,
		ImageURL:    p.ImageURL,
		ContactURL:  p.ContactURL,
		DownloadURL: p.DownloadURL,
		LogoColor:   p.LogoColor,
		LogoIcon:    p.LogoIcon,
		Phase:       s.engine.Phase(p),
		Progress:    p.Progress,
		Score:       progress.TotalScore(p),
		Team:        names,
		EventID:     p.EventID,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

// activityView is one dribs feed entry.
type activityView struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Action    string    `json:"action,omitempty"`
	Content   string    `json:"content,omitempty"`
	Username  string    `json:"username,omitempty"`
	ProjectID uint      `json:"project_id"`
	Project   string    `json:"project_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func buildActivityView(a *models.Activity) activityView {
	v := activityView{
		ID:        a.ID,
		Name:      a.Name,
		Action:    a.Action,
		Content:   a.Content,
		ProjectID: a.ProjectID,
		Project:   a.Project.Name,
		CreatedAt: a.CreatedAt,
	}
	if a.User != nil {
		v.Username = a.User.Username
	}
	return v
}
