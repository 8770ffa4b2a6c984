package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hackboard/hackboard/internal/activity"
	"github.com/hackboard/hackboard/internal/config"
	"github.com/hackboard/hackboard/internal/fetch"
	"github.com/hackboard/hackboard/internal/models"
	"github.com/hackboard/hackboard/internal/notify"
	"github.com/hackboard/hackboard/internal/progress"
	"github.com/hackboard/hackboard/internal/syncer"
)

const testSecret = "push-me"

// testDB creates an in-memory SQLite database with all required tables.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Event{}, &models.Category{},
		&models.Project{}, &models.Activity{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// testServer wires a full server over an in-memory database.
func testServer(t *testing.T, db *gorm.DB, opts fetch.Options) (*gin.Engine, *notify.Mock) {
	t.Helper()
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}
	fetcher := fetch.New(opts)
	mock := &notify.Mock{}
	s, err := New(Opts{
		DB:       db,
		Engine:   progress.New(progress.FromConfig(config.DefaultStages())),
		Fetcher:  fetcher,
		Syncer:   syncer.New(db, fetcher),
		Notifier: mock,
		Secret:   testSecret,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s.Router(), mock
}

func seedEvent(t *testing.T, db *gorm.DB) *models.Event {
	t.Helper()
	event := models.Event{Name: "demo-camp", IsCurrent: true}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
	return &event
}

func seedUser(t *testing.T, db *gorm.DB, username, key string, admin bool) *models.User {
	t.Helper()
	user := models.User{Username: username, APIKey: key, IsAdmin: admin}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return &user
}

// request performs an HTTP call against the router and decodes the JSON
// response body.
func request(t *testing.T, router *gin.Engine, method, path, body, bearer string) (int, map[string]json.RawMessage) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	decoded := map[string]json.RawMessage{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, decoded
}

func decodeProject(t *testing.T, raw json.RawMessage) projectView {
	t.Helper()
	var view projectView
	if err := json.Unmarshal(raw, &view); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	return view
}

func TestPushCreatesThenUpdates(t *testing.T) {
	db := testDB(t)
	seedEvent(t, db)
	router, _ := testServer(t, db, fetch.Options{})

	code, body := request(t, router, http.MethodPost,
		"/api/project/push.json?key="+testSecret,
		`{"hashtag":"acme-1","name":"Acme"}`, "")
	if code != http.StatusOK {
		t.Fatalf("create push: status %d, body %v", code, body)
	}
	created := decodeProject(t, body["project"])
	if created.Name != "Acme" {
		t.Errorf("name = %q, want Acme", created.Name)
	}
	if created.Progress == nil || *created.Progress != 0 {
		t.Errorf("progress = %v, want 0", created.Progress)
	}

	code, body = request(t, router, http.MethodPost,
		"/api/project/push.json?key="+testSecret,
		`{"hashtag":"acme-1","summary":"Now with lasers"}`, "")
	if code != http.StatusOK {
		t.Fatalf("update push: status %d, body %v", code, body)
	}
	updated := decodeProject(t, body["project"])
	if updated.ID != created.ID {
		t.Fatalf("second push created a new project: %d != %d", updated.ID, created.ID)
	}
	if updated.Name != "Acme" {
		t.Errorf("name changed on update push: %q", updated.Name)
	}
	if updated.Summary != "Now with lasers" {
		t.Errorf("summary = %q", updated.Summary)
	}

	// The new project belongs to the system account with auto-update on.
	var fresh models.Project
	db.Preload("Owner").First(&fresh, created.ID)
	if fresh.Owner == nil || !fresh.Owner.IsSystem() {
		t.Errorf("pushed project must be system-owned, got %+v", fresh.Owner)
	}
	if !fresh.IsAutoupdate {
		t.Error("pushed project must have auto-update enabled")
	}
}

func TestPushRequiresSecret(t *testing.T) {
	db := testDB(t)
	seedEvent(t, db)
	router, _ := testServer(t, db, fetch.Options{})

	code, _ := request(t, router, http.MethodPost, "/api/project/push.json",
		`{"hashtag":"acme-1"}`, "")
	if code != http.StatusUnauthorized {
		t.Errorf("no secret: status %d, want 401", code)
	}
	code, _ = request(t, router, http.MethodPost, "/api/project/push.json?key=wrong",
		`{"hashtag":"acme-1"}`, "")
	if code != http.StatusUnauthorized {
		t.Errorf("bad secret: status %d, want 401", code)
	}

	// No project may appear from a rejected push.
	var count int64
	db.Model(&models.Project{}).Count(&count)
	if count != 0 {
		t.Errorf("projects = %d, want 0", count)
	}
}

func TestPushRejectsProtectedProjects(t *testing.T) {
	db := testDB(t)
	event := seedEvent(t, db)
	owner := seedUser(t, db, "ada", "", false)
	router, _ := testServer(t, db, fetch.Options{})

	owned := models.Project{Name: "Owned", Hashtag: "owned", EventID: event.ID, UserID: &owner.ID}
	hidden := models.Project{Name: "Hidden", Hashtag: "hidden", EventID: event.ID, IsHidden: true}
	if err := db.Create(&owned).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&hidden).Error; err != nil {
		t.Fatal(err)
	}

	code, _ := request(t, router, http.MethodPost,
		"/api/project/push.json?key="+testSecret, `{"hashtag":"owned","summary":"x"}`, "")
	if code != http.StatusForbidden {
		t.Errorf("user-owned: status %d, want 403", code)
	}
	code, _ = request(t, router, http.MethodPost,
		"/api/project/push.json?key="+testSecret, `{"hashtag":"hidden","summary":"x"}`, "")
	if code != http.StatusForbidden {
		t.Errorf("hidden: status %d, want 403", code)
	}

	var fresh models.Project
	db.First(&fresh, owned.ID)
	if fresh.Summary != "" {
		t.Errorf("rejected push must not mutate, summary = %q", fresh.Summary)
	}
}

func TestPushLevelupIsClamped(t *testing.T) {
	db := testDB(t)
	seedEvent(t, db)
	router, _ := testServer(t, db, fetch.Options{})

	code, body := request(t, router, http.MethodPost,
		"/api/project/push.json?key="+testSecret,
		`{"hashtag":"acme-1","name":"Acme","levelup":9}`, "")
	if code != http.StatusOK {
		t.Fatalf("push: status %d", code)
	}
	view := decodeProject(t, body["project"])
	if view.Progress == nil || *view.Progress != 49 {
		t.Errorf("progress = %v, want clamped 49", view.Progress)
	}
	// 49 sits between stage IDs; it labels as the stage last passed.
	if view.Phase != "Promoted" {
		t.Errorf("phase = %q, want Promoted", view.Phase)
	}
}

func TestAutofillPreviewsWithoutPersisting(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"widget-data","title":"Widget Data","description":"Numbers."}`))
	}))
	defer ts.Close()

	db := testDB(t)
	router, _ := testServer(t, db, fetch.Options{HTTPClient: ts.Client()})

	code, body := request(t, router, http.MethodGet,
		"/api/autofill?url="+ts.URL+"/datapackage.json", "", "")
	if code != http.StatusOK {
		t.Fatalf("autofill: status %d", code)
	}
	if string(body["name"]) != `"Widget Data"` {
		t.Errorf("name = %s", body["name"])
	}

	var count int64
	db.Model(&models.Project{}).Count(&count)
	if count != 0 {
		t.Errorf("autofill persisted %d projects", count)
	}

	code, _ = request(t, router, http.MethodGet, "/api/autofill", "", "")
	if code != http.StatusBadRequest {
		t.Errorf("missing url: status %d, want 400", code)
	}
}

func TestProjectInfo(t *testing.T) {
	db := testDB(t)
	event := seedEvent(t, db)
	user := seedUser(t, db, "ada", "k-ada", false)
	router, _ := testServer(t, db, fetch.Options{})

	stage := 5
	project := models.Project{
		Name: "widget", Summary: "Counts things", Longtext: "Handwritten.",
		SourceURL: "https://example.org/widget", Progress: &stage, EventID: event.ID,
	}
	if err := db.Create(&project).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := activity.Record(db, &project, models.ActivityStar, user, activity.RecordOpts{}); err != nil {
		t.Fatal(err)
	}

	code, body := request(t, router, http.MethodGet, "/api/project/1/info.json", "", "")
	if code != http.StatusOK {
		t.Fatalf("info: status %d", code)
	}
	view := decodeProject(t, body["project"])
	if view.Phase != "Researched" {
		t.Errorf("phase = %q, want Researched", view.Phase)
	}
	if view.Description != "Handwritten." {
		t.Errorf("description = %q", view.Description)
	}
	if len(view.Team) != 1 || view.Team[0] != "ada" {
		t.Errorf("team = %v, want [ada]", view.Team)
	}
	// Ledger star (+2) plus completeness: summary +3, source +10, longtext +1.
	if view.Score != 16 {
		t.Errorf("score = %d, want 16", view.Score)
	}

	hidden := models.Project{Name: "secret", EventID: event.ID, IsHidden: true}
	if err := db.Create(&hidden).Error; err != nil {
		t.Fatal(err)
	}
	code, _ = request(t, router, http.MethodGet, "/api/project/2/info.json", "", "")
	if code != http.StatusNotFound {
		t.Errorf("hidden project: status %d, want 404", code)
	}
}

func TestStarUnstarActions(t *testing.T) {
	db := testDB(t)
	event := seedEvent(t, db)
	seedUser(t, db, "ada", "k-ada", false)
	router, mock := testServer(t, db, fetch.Options{})

	project := models.Project{Name: "widget", EventID: event.ID}
	if err := db.Create(&project).Error; err != nil {
		t.Fatal(err)
	}

	code, _ := request(t, router, http.MethodPost, "/project/1/star", "", "")
	if code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated star: status %d, want 401", code)
	}

	code, body := request(t, router, http.MethodPost, "/project/1/star", "", "k-ada")
	if code != http.StatusOK || string(body["status"]) != `"ok"` {
		t.Fatalf("star: status %d body %v", code, body)
	}
	if mock.Count() != 1 {
		t.Errorf("star announcements = %d, want 1", mock.Count())
	}

	// Double-star is absorbed as a no-op.
	code, body = request(t, router, http.MethodPost, "/project/1/star", "", "k-ada")
	if code != http.StatusOK || string(body["status"]) != `"noop"` {
		t.Fatalf("re-star: status %d body %v", code, body)
	}

	code, body = request(t, router, http.MethodPost, "/project/1/unstar", "", "k-ada")
	if code != http.StatusOK || string(body["status"]) != `"ok"` {
		t.Fatalf("unstar: status %d body %v", code, body)
	}

	var fresh models.Project
	db.First(&fresh, project.ID)
	if fresh.Score != 0 {
		t.Errorf("score after star/unstar = %d, want 0", fresh.Score)
	}
}

func TestApproveAndPromote(t *testing.T) {
	db := testDB(t)
	event := seedEvent(t, db)
	seedUser(t, db, "ada", "k-ada", false)
	seedUser(t, db, "root", "k-root", true)
	router, _ := testServer(t, db, fetch.Options{})

	challenge := models.ChallengeProgress
	project := models.Project{Name: "widget", Progress: &challenge, EventID: event.ID}
	if err := db.Create(&project).Error; err != nil {
		t.Fatal(err)
	}

	// Promoting before approval is absorbed as an informational no-op.
	code, body := request(t, router, http.MethodPost, "/project/1/promote", "", "k-ada")
	if code != http.StatusOK || string(body["status"]) != `"noop"` {
		t.Fatalf("unapproved promote: status %d body %v, want noop", code, body)
	}

	code, _ = request(t, router, http.MethodPost, "/project/1/approve", "", "k-ada")
	if code != http.StatusForbidden {
		t.Fatalf("non-admin approve: status %d, want 403", code)
	}

	code, body = request(t, router, http.MethodPost, "/project/1/approve", "", "k-root")
	if code != http.StatusOK || string(body["status"]) != `"ok"` {
		t.Fatalf("approve: status %d body %v", code, body)
	}
	var fresh models.Project
	db.First(&fresh, project.ID)
	if fresh.Progress == nil || *fresh.Progress != 0 {
		t.Fatalf("progress after approve = %v, want 0", fresh.Progress)
	}

	// Stage New has no conditions, so promotion advances to Researched.
	code, body = request(t, router, http.MethodPost, "/project/1/promote", "", "k-ada")
	if code != http.StatusOK || string(body["status"]) != `"ok"` {
		t.Fatalf("promote: status %d body %v", code, body)
	}
	db.First(&fresh, project.ID)
	if fresh.Progress == nil || *fresh.Progress != 5 {
		t.Fatalf("progress after promote = %v, want 5", fresh.Progress)
	}

	// Researched requires a summary; without one the promotion reports
	// what is missing and changes nothing.
	code, body = request(t, router, http.MethodPost, "/project/1/promote", "", "k-ada")
	if code != http.StatusOK || string(body["status"]) != `"unmet"` {
		t.Fatalf("unmet promote: status %d body %v", code, body)
	}
	db.First(&fresh, project.ID)
	if *fresh.Progress != 5 {
		t.Errorf("unmet promotion must not advance, progress = %d", *fresh.Progress)
	}
}

func TestPostAndBoostFeedTheEventWall(t *testing.T) {
	db := testDB(t)
	event := seedEvent(t, db)
	seedUser(t, db, "ada", "k-ada", false)
	seedUser(t, db, "root", "k-root", true)
	router, mock := testServer(t, db, fetch.Options{})

	project := models.Project{Name: "widget", EventID: event.ID}
	if err := db.Create(&project).Error; err != nil {
		t.Fatal(err)
	}

	// Non-members may not post.
	code, _ := request(t, router, http.MethodPost, "/project/1/post",
		`{"text":"first!"}`, "k-ada")
	if code != http.StatusForbidden {
		t.Fatalf("non-member post: status %d, want 403", code)
	}

	if code, _ := request(t, router, http.MethodPost, "/project/1/star", "", "k-ada"); code != http.StatusOK {
		t.Fatal("star failed")
	}
	code, _ = request(t, router, http.MethodPost, "/project/1/post",
		`{"text":"shipped the parser"}`, "k-ada")
	if code != http.StatusOK {
		t.Fatalf("member post: status %d", code)
	}

	// Boost is admin-only and worth a fixed bonus.
	code, _ = request(t, router, http.MethodPost, "/project/1/boost", `{"text":"nice"}`, "k-ada")
	if code != http.StatusForbidden {
		t.Fatalf("non-admin boost: status %d, want 403", code)
	}
	code, _ = request(t, router, http.MethodPost, "/project/1/boost", `{"text":"nice"}`, "k-root")
	if code != http.StatusOK {
		t.Fatalf("boost: status %d", code)
	}
	var fresh models.Project
	db.First(&fresh, project.ID)
	if fresh.Score != activity.StarScore+activity.BoostScore {
		t.Errorf("score = %d, want %d", fresh.Score, activity.StarScore+activity.BoostScore)
	}

	code, body := request(t, router, http.MethodGet, "/api/event/1/activity.json", "", "")
	if code != http.StatusOK {
		t.Fatalf("activity feed: status %d", code)
	}
	var feed []activityView
	if err := json.Unmarshal(body["activities"], &feed); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("feed entries = %d, want 2 (post and boost)", len(feed))
	}
	if feed[0].Name != models.ActivityBoost || feed[1].Content != "shipped the parser" {
		t.Errorf("feed = %+v", feed)
	}

	if mock.Count() == 0 {
		t.Error("expected announcements for star, post and boost")
	}
}

func TestEventProjectsListing(t *testing.T) {
	db := testDB(t)
	event := seedEvent(t, db)
	router, _ := testServer(t, db, fetch.Options{})

	low := models.Project{Name: "low", EventID: event.ID, Score: 1}
	high := models.Project{Name: "high", EventID: event.ID, Score: 20}
	hidden := models.Project{Name: "hidden", EventID: event.ID, IsHidden: true}
	for _, p := range []*models.Project{&low, &high, &hidden} {
		if err := db.Create(p).Error; err != nil {
			t.Fatal(err)
		}
	}

	code, body := request(t, router, http.MethodGet, "/api/event/1/projects.json", "", "")
	if code != http.StatusOK {
		t.Fatalf("listing: status %d", code)
	}
	var views []projectView
	if err := json.Unmarshal(body["projects"], &views); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("listed %d projects, want 2", len(views))
	}
	if views[0].Name != "high" || views[1].Name != "low" {
		t.Errorf("order = %s, %s; want high, low", views[0].Name, views[1].Name)
	}
}

func TestResyncWarnsOnUnusableRemote(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"X"}`))
	}))
	defer ts.Close()

	db := testDB(t)
	event := seedEvent(t, db)
	user := seedUser(t, db, "ada", "k-ada", false)
	router, _ := testServer(t, db, fetch.Options{HTTPClient: ts.Client()})

	project := models.Project{Name: "widget", EventID: event.ID, IsAutoupdate: true,
		AutotextURL: ts.URL + "/datapackage.json"}
	if err := db.Create(&project).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := activity.Record(db, &project, models.ActivityStar, user, activity.RecordOpts{}); err != nil {
		t.Fatal(err)
	}

	code, body := request(t, router, http.MethodPost, "/project/1/render", "", "k-ada")
	if code != http.StatusOK || string(body["status"]) != `"warning"` {
		t.Fatalf("resync: status %d body %v", code, body)
	}
}

func TestResyncChecksACL(t *testing.T) {
	db := testDB(t)
	event := seedEvent(t, db)
	seedUser(t, db, "ada", "k-ada", false)
	router, _ := testServer(t, db, fetch.Options{})

	project := models.Project{Name: "widget", EventID: event.ID, IsAutoupdate: true,
		AutotextURL: "https://example.org/repo.git"}
	if err := db.Create(&project).Error; err != nil {
		t.Fatal(err)
	}

	code, _ := request(t, router, http.MethodPost, "/project/1/render", "", "k-ada")
	if code != http.StatusForbidden {
		t.Fatalf("non-member resync: status %d, want 403", code)
	}
}
