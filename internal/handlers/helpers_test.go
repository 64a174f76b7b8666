package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/config"
	"github.com/localnerve/gamestore/internal/handlers"
	"github.com/localnerve/gamestore/internal/middleware"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/mq"
	"github.com/localnerve/gamestore/internal/objstore"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/testutil"
)

type server struct {
	app   *fiber.App
	db    *gorm.DB
	store *objstore.Store

	admin, dev, dev2, player *models.User
	tokens                   map[uint64]string
}

func testConfig() *config.Config {
	return &config.Config{
		DBType:            "sqlite",
		DBDatabase:        ":memory:",
		PublicPrefix:      "/media/",
		MaxUploadMB:       8,
		JWTSecret:         "handler-test-secret",
		JWTTTL:            time.Hour,
		StorageDriver:     "mem",
		MQType:            "noop",
		RateLimitRegister: 100,
		RateLimitLogin:    100,
	}
}

func newServer(t *testing.T, cfg *config.Config) *server {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}

	db := testutil.NewTestDB(t)
	store := objstore.NewMemory()
	t.Cleanup(func() { _ = store.Close() })

	deps := &handlers.Deps{
		Config: cfg,
		DB:     db,
		Authz:  authz.MustNewEngine(),
		Store:  store,
		Queue:  mq.NewNoop(),
		Tokens: services.NewTokenIssuer(cfg),
		Now:    func() time.Time { return testutil.Epoch },
	}

	app := fiber.New(handlers.FiberConfig(cfg))
	app.Use(middleware.RequestID())
	handlers.SetupRoutes(app, deps)

	s := &server{
		app:    app,
		db:     db,
		store:  store,
		admin:  testutil.CreateUser(t, db, "admin", models.RoleAdmin),
		dev:    testutil.CreateUser(t, db, "dev", models.RoleDeveloper),
		dev2:   testutil.CreateUser(t, db, "dev2", models.RoleDeveloper),
		player: testutil.CreateUser(t, db, "player", models.RolePlayer),
		tokens: map[uint64]string{},
	}
	for _, u := range []*models.User{s.admin, s.dev, s.dev2, s.player} {
		token, err := deps.Tokens.Issue(db, u)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		s.tokens[u.ID] = token
	}
	return s
}

func (s *server) token(u *models.User) string {
	if u == nil {
		return ""
	}
	return s.tokens[u.ID]
}

// request is one call against the app.
type request struct {
	method      string
	path        string
	as          *models.User
	body        io.Reader
	contentType string
	header      map[string]string
}

func (s *server) do(t *testing.T, r request) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(r.method, r.path, r.body)
	if r.contentType != "" {
		req.Header.Set(fiber.HeaderContentType, r.contentType)
	}
	if token := s.token(r.as); token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for k, v := range r.header {
		req.Header.Set(k, v)
	}

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", r.method, r.path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Reading %s %s failed: %v", r.method, r.path, err)
	}
	return resp, body
}

func (s *server) get(t *testing.T, path string, as *models.User) (*http.Response, []byte) {
	t.Helper()
	return s.do(t, request{method: http.MethodGet, path: path, as: as})
}

func (s *server) sendJSON(t *testing.T, method, path string, as *models.User, v any) (*http.Response, []byte) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return s.do(t, request{method: method, path: path, as: as, body: bytes.NewReader(b), contentType: fiber.MIMEApplicationJSON})
}

type formFile struct {
	field, name, content string
}

func (s *server) sendForm(t *testing.T, method, path string, as *models.User, fields map[string][]string, files ...formFile) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, values := range fields {
		for _, v := range values {
			if err := w.WriteField(k, v); err != nil {
				t.Fatalf("WriteField failed: %v", err)
			}
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		if _, err := io.Copy(part, strings.NewReader(f.content)); err != nil {
			t.Fatalf("Copy failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return s.do(t, request{method: method, path: path, as: as, body: &buf, contentType: w.FormDataContentType()})
}

func expectStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("Expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("Unmarshal failed: %v (%s)", err, body)
	}
	return v
}

// errorBody is the error response shape.
type errorBody struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Ok      bool              `json:"ok"`
	Type    string            `json:"type"`
	URL     string            `json:"url"`
	Errors  map[string]string `json:"errors"`
}

type gamePage struct {
	Count   int64               `json:"count"`
	Results []handlers.GameView `json:"results"`
}

// submitGame creates a game through the API as dev.
func (s *server) submitGame(t *testing.T, as *models.User, title string) handlers.GameView {
	t.Helper()
	resp, body := s.sendForm(t, http.MethodPost, "/api/games", as,
		map[string][]string{"title": {title}, "description": {title + " description"}},
		formFile{field: "file", name: title + ".zip", content: "binary of " + title})
	expectStatus(t, resp, body, fiber.StatusCreated)
	return decode[handlers.GameView](t, body)
}

func (s *server) approve(t *testing.T, id uint64) {
	t.Helper()
	resp, body := s.do(t, request{method: http.MethodPost, path: "/api/games/" + testutil.FormatID(id) + "/approve", as: s.admin})
	expectStatus(t, resp, body, fiber.StatusOK)
}
