package syncer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hackboard/hackboard/internal/activity"
	"github.com/hackboard/hackboard/internal/fetch"
	"github.com/hackboard/hackboard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB creates an in-memory SQLite database with all required tables.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Event{}, &models.Project{}, &models.Activity{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func fixture(t *testing.T, db *gorm.DB) (*models.Project, *models.User) {
	t.Helper()
	event := models.Event{Name: "demo-camp", IsCurrent: true}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
	project := models.Project{Name: "widget", EventID: event.ID, IsAutoupdate: true}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	user := models.User{Username: "ada"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &project, &user
}

func TestMergeIsAdditive(t *testing.T) {
	p := &models.Project{
		Name:       "old-name",
		Summary:    "Old summary",
		Longtext:   "Handwritten description.",
		WebpageURL: "https://old.example.org",
	}
	data := &fetch.ExternalMetadata{
		Name:        "new-name",
		Description: "Fetched readme.",
		SourceURL:   "https://example.org/repo",
	}

	Merge(p, data)

	if p.Name != "new-name" {
		t.Errorf("name = %q, want new-name", p.Name)
	}
	if p.Summary != "Old summary" {
		t.Errorf("empty incoming summary must not blank the field, got %q", p.Summary)
	}
	if p.WebpageURL != "https://old.example.org" {
		t.Errorf("empty incoming homepage must not blank the field, got %q", p.WebpageURL)
	}
	if p.Autotext != "Fetched readme." {
		t.Errorf("autotext = %q", p.Autotext)
	}
	if p.Longtext != "Handwritten description." {
		t.Errorf("user-authored longtext must never be overwritten, got %q", p.Longtext)
	}
	if p.SourceURL != "https://example.org/repo" {
		t.Errorf("source = %q", p.SourceURL)
	}
}

func TestMergeSeedsEmptyLongtext(t *testing.T) {
	p := &models.Project{}
	Merge(p, &fetch.ExternalMetadata{Name: "x", Description: "Fetched readme."})
	if p.Longtext != "Fetched readme." {
		t.Errorf("empty longtext should be seeded, got %q", p.Longtext)
	}
}

func TestApplyRejectsNamelessData(t *testing.T) {
	db := testDB(t)
	project, user := fixture(t, db)
	c := New(db, nil)

	err := c.Apply(project, user, &fetch.ExternalMetadata{Description: "text"})
	if !errors.Is(err, ErrNoRemoteName) {
		t.Fatalf("err = %v, want ErrNoRemoteName", err)
	}

	// No merge and no ledger entry.
	var count int64
	db.Model(&models.Activity{}).Where("project_id = ?", project.ID).Count(&count)
	if count != 0 {
		t.Errorf("activities = %d, want 0", count)
	}
	var fresh models.Project
	db.First(&fresh, project.ID)
	if fresh.Autotext != "" || fresh.Version != 0 {
		t.Errorf("project must be untouched, got %+v", fresh)
	}
}

func TestApplyMergesAndLogsAudit(t *testing.T) {
	db := testDB(t)
	project, user := fixture(t, db)
	if _, err := activity.Record(db, project, models.ActivityStar, user, activity.RecordOpts{}); err != nil {
		t.Fatalf("star: %v", err)
	}
	c := New(db, nil)

	data := &fetch.ExternalMetadata{Type: "GitHub", Name: "widget", Description: "Readme text"}
	if err := c.Apply(project, user, data); err != nil {
		t.Fatalf("apply: %v", err)
	}

	var fresh models.Project
	db.First(&fresh, project.ID)
	if fresh.Autotext != "Readme text" {
		t.Errorf("autotext = %q", fresh.Autotext)
	}
	if fresh.Version != 1 {
		t.Errorf("version = %d, want 1", fresh.Version)
	}

	var entry models.Activity
	if err := db.Where("project_id = ? AND action = ?", project.ID, models.ActionSync).
		First(&entry).Error; err != nil {
		t.Fatalf("sync entry missing: %v", err)
	}
	if !strings.Contains(entry.Content, "bytes from GitHub") {
		t.Errorf("audit content = %q", entry.Content)
	}
	if entry.ProjectVersion == nil || *entry.ProjectVersion != 1 {
		t.Errorf("audit version = %v, want 1", entry.ProjectVersion)
	}
}

func TestCanSyncGuards(t *testing.T) {
	db := testDB(t)
	project, user := fixture(t, db)
	admin := models.User{Username: "root", IsAdmin: true}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	c := New(db, nil)

	// Non-member is rejected; admins and the system pass.
	if err := c.CanSync(project, user); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("non-member: err = %v, want ErrNotAllowed", err)
	}
	if err := c.CanSync(project, &admin); err != nil {
		t.Errorf("admin: %v", err)
	}
	if err := c.CanSync(project, nil); err != nil {
		t.Errorf("system: %v", err)
	}

	// Members pass once starred.
	if _, err := activity.Record(db, project, models.ActivityStar, user, activity.RecordOpts{}); err != nil {
		t.Fatalf("star: %v", err)
	}
	if err := c.CanSync(project, user); err != nil {
		t.Errorf("member: %v", err)
	}

	project.IsHidden = true
	if err := c.CanSync(project, &admin); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("hidden: err = %v, want ErrNotAllowed", err)
	}
	project.IsHidden = false
	project.IsAutoupdate = false
	if err := c.CanSync(project, &admin); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("autoupdate off: err = %v, want ErrNotAllowed", err)
	}
}

func TestSyncEndToEnd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"widget-data","title":"Widget Data","description":"Numbers."}`))
	}))
	defer ts.Close()

	db := testDB(t)
	project, user := fixture(t, db)
	if _, err := activity.Record(db, project, models.ActivityStar, user, activity.RecordOpts{}); err != nil {
		t.Fatalf("star: %v", err)
	}
	project.AutotextURL = ts.URL + "/datapackage.json"
	if err := db.Save(project).Error; err != nil {
		t.Fatalf("save project: %v", err)
	}

	fetcher := fetch.New(fetch.Options{Timeout: 2 * time.Second, HTTPClient: ts.Client()})
	c := New(db, fetcher)

	data, err := c.Sync(context.Background(), project, user)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if data.Type != "Data Package" {
		t.Errorf("type = %q", data.Type)
	}

	var fresh models.Project
	db.First(&fresh, project.ID)
	if fresh.Name != "Widget Data" {
		t.Errorf("name = %q", fresh.Name)
	}
}

func TestSyncFailedFetchRecordsNothing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer ts.Close()

	db := testDB(t)
	project, _ := fixture(t, db)
	project.AutotextURL = ts.URL + "/datapackage.json"
	if err := db.Save(project).Error; err != nil {
		t.Fatalf("save project: %v", err)
	}

	fetcher := fetch.New(fetch.Options{Timeout: time.Second, HTTPClient: ts.Client()})
	c := New(db, fetcher)

	if _, err := c.Sync(context.Background(), project, nil); !errors.Is(err, ErrNoRemoteName) {
		t.Fatalf("err = %v, want ErrNoRemoteName", err)
	}
	var count int64
	db.Model(&models.Activity{}).Where("project_id = ?", project.ID).Count(&count)
	if count != 0 {
		t.Errorf("activities = %d, want 0", count)
	}
}

func TestSyncAllSweepsAutoUpdateProjects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"d","title":"Fetched","description":"Numbers."}`))
	}))
	defer ts.Close()

	db := testDB(t)
	project, _ := fixture(t, db)
	project.AutotextURL = ts.URL + "/datapackage.json"
	if err := db.Save(project).Error; err != nil {
		t.Fatalf("save project: %v", err)
	}
	skipped := models.Project{Name: "manual", EventID: project.EventID, IsAutoupdate: false,
		AutotextURL: ts.URL + "/datapackage.json"}
	if err := db.Create(&skipped).Error; err != nil {
		t.Fatalf("create manual project: %v", err)
	}

	fetcher := fetch.New(fetch.Options{Timeout: 2 * time.Second, HTTPClient: ts.Client()})
	c := New(db, fetcher)

	if err := c.SyncAll(context.Background()); err != nil {
		t.Fatalf("sync all: %v", err)
	}

	var fresh models.Project
	db.First(&fresh, project.ID)
	if fresh.Name != "Fetched" {
		t.Errorf("auto-update project not synced: %q", fresh.Name)
	}
	db.First(&fresh, skipped.ID)
	if fresh.Name != "manual" {
		t.Errorf("manual project must be left alone: %q", fresh.Name)
	}
}
