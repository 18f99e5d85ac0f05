package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jon4hz/loaderdesk/internal/api/auth"
	"github.com/jon4hz/loaderdesk/internal/config"
	"github.com/jon4hz/loaderdesk/internal/docstore"
	"github.com/jon4hz/loaderdesk/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func testConfig(t *testing.T, remote config.RemoteType) *config.Config {
	t.Helper()
	return &config.Config{
		Listen:        "127.0.0.1:0",
		SessionKey:    "secret",
		SessionMaxAge: 3600,
		Admin:         &config.AdminConfig{DiscordID: "561293567780192273", Key: "admin-key"},
		Database:      &config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "loaderdesk.db")},
		Cache:         &config.CacheConfig{Type: config.CacheTypeMemory},
		Remote: &config.RemoteConfig{
			Type:          remote,
			UserID:        "561293567780192273",
			ProbeInterval: 5 * time.Millisecond,
			ProbeAttempts: 200,
		},
		Mirror:   &config.MirrorConfig{Type: config.MirrorTypeNone, GitHub: &config.GitHubConfig{URL: "https://api.github.com"}},
		AutoSave: &config.AutoSaveConfig{Schedule: "*/30 * * * *"},
		Profile:  &config.ProfileConfig{DefaultUsername: "4253"},
	}
}

func newTestServer(t *testing.T, remote config.RemoteType) *Server {
	t.Helper()
	ctx := context.Background()
	cfg := testConfig(t, remote)

	e, err := engine.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	require.NoError(t, e.Initialize(ctx))

	s, err := New(ctx, cfg, e, false)
	require.NoError(t, err)
	return s
}

type APITestSuite struct {
	suite.Suite
	server *Server
}

func (s *APITestSuite) SetupTest() {
	s.server = newTestServer(s.T(), config.RemoteTypeMemory)
}

func (s *APITestSuite) do(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set(auth.APIKeyHeader, "admin-key")

	w := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(w, req)

	var resp map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (s *APITestSuite) TestHealth() {
	w, resp := s.do(http.MethodGet, "/health", "")
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "ok", resp["status"])
}

func (s *APITestSuite) TestRequiresAuth() {
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	w := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(w, req)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestUserLifecycle() {
	w, resp := s.do(http.MethodPost, "/api/users", `{"days":30,"note":" vip "}`)
	require.Equal(s.T(), http.StatusCreated, w.Code)
	user := resp["user"].(map[string]any)
	key := user["key"].(string)
	assert.Len(s.T(), key, 32)
	assert.Equal(s.T(), "Active", user["status"])
	assert.Equal(s.T(), "vip", user["note"])

	w, resp = s.do(http.MethodPost, "/api/users/"+key+"/ban", `{"reason":"chargeback"}`)
	require.Equal(s.T(), http.StatusOK, w.Code)
	user = resp["user"].(map[string]any)
	assert.Equal(s.T(), "Banned", user["status"])
	assert.Equal(s.T(), "chargeback", user["banReason"])

	w, resp = s.do(http.MethodPost, "/api/users/"+key+"/unban", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "Active", resp["user"].(map[string]any)["status"])

	w, resp = s.do(http.MethodPut, "/api/users/"+key+"/days", `{"days":null}`)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Nil(s.T(), resp["user"].(map[string]any)["days"])

	w, _ = s.do(http.MethodPut, "/api/users/"+key+"/status", `{"status":"Deleted"}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w, resp = s.do(http.MethodGet, "/api/users", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Len(s.T(), resp["users"], 1)

	w, _ = s.do(http.MethodGet, "/api/users/missing", "")
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestAddUser_NegativeDays() {
	w, resp := s.do(http.MethodPost, "/api/users", `{"days":-1}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), false, resp["success"])
}

func (s *APITestSuite) TestProjectLifecycle() {
	w, _ := s.do(http.MethodPost, "/api/projects", `{"name":"  "}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w, resp := s.do(http.MethodPost, "/api/projects", `{"name":"Arsenal"}`)
	require.Equal(s.T(), http.StatusCreated, w.Code)
	project := resp["project"].(map[string]any)
	id := project["id"].(string)
	assert.NotEmpty(s.T(), project["loaderId"])
	assert.Empty(s.T(), project["files"])

	w, resp = s.do(http.MethodPost, "/api/projects/"+id+"/files", `{"name":"main.lua","content":"print(1)"}`)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Len(s.T(), resp["project"].(map[string]any)["files"], 1)

	w, _ = s.do(http.MethodPut, "/api/projects/"+id+"/files/3", `{"name":"main.lua","content":"print(2)"}`)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodPut, "/api/projects/"+id+"/files/abc", `{"name":"main.lua"}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w, resp = s.do(http.MethodPatch, "/api/projects/"+id+"/settings", `{"cooldown":30}`)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.EqualValues(s.T(), 30, resp["project"].(map[string]any)["cooldown"])

	w, resp = s.do(http.MethodGet, "/api/autosave", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.EqualValues(s.T(), 1, resp["autoSave"].(map[string]any)["filesSavedCount"])

	w, _ = s.do(http.MethodDelete, "/api/projects/"+id, "")
	assert.Equal(s.T(), http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/api/projects/"+id, "")
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestBackupAndRestore() {
	w, _ := s.do(http.MethodPost, "/api/projects", `{"name":"Arsenal"}`)
	require.Equal(s.T(), http.StatusCreated, w.Code)

	w, resp := s.do(http.MethodPost, "/api/backups", "")
	require.Equal(s.T(), http.StatusCreated, w.Code)
	backupID := resp["backup"].(map[string]any)["id"].(string)

	w, resp = s.do(http.MethodGet, "/api/projects", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	id := resp["projects"].([]any)[0].(map[string]any)["id"].(string)
	w, _ = s.do(http.MethodDelete, "/api/projects/"+id, "")
	require.Equal(s.T(), http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPost, "/api/backups/"+backupID+"/restore", "")
	require.Equal(s.T(), http.StatusOK, w.Code)

	w, resp = s.do(http.MethodGet, "/api/projects", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Len(s.T(), resp["projects"], 1)

	w, _ = s.do(http.MethodDelete, "/api/backups/unknown", "")
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestExportImport() {
	w, _ := s.do(http.MethodPost, "/api/users", `{"note":"exported"}`)
	require.Equal(s.T(), http.StatusCreated, w.Code)

	w, _ = s.do(http.MethodGet, "/api/export?format=xml", "")
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/export?format=yaml", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Header().Get("Content-Disposition"), ".yaml")
	exported := w.Body.String()
	assert.Contains(s.T(), exported, "note: exported")

	w, _ = s.do(http.MethodPost, "/api/import?format=yaml", exported)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w, resp := s.do(http.MethodPost, "/api/import?format=yaml&confirm=true", exported)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.EqualValues(s.T(), 1, resp["users"])

	w, _ = s.do(http.MethodPost, "/api/import?confirm=true", `{"projects":[]}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *APITestSuite) TestSyncNow() {
	w, resp := s.do(http.MethodPost, "/api/sync", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	report := resp["report"].(map[string]any)
	assert.Equal(s.T(), true, report["cloudSyncEnabled"])
	assert.Equal(s.T(), true, report["pushed"])

	w, resp = s.do(http.MethodGet, "/api/sync", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	views := resp["views"].(map[string]any)
	assert.Equal(s.T(), true, views["cloudSyncEnabled"])
	assert.NotNil(s.T(), views["lastSync"])

	w, _ = s.do(http.MethodGet, "/api/sync/tasks?failed=true", "")
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *APITestSuite) TestRetrySync_KeepsSubscriptionAfterRequest() {
	reqCtx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/sync/retry", nil).WithContext(reqCtx)
	req.Header.Set(auth.APIKeyHeader, "admin-key")
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	cancel()

	// give a cancelled watcher time to detach before the remote write
	time.Sleep(20 * time.Millisecond)

	err := s.server.engine.Docstore().Write(context.Background(), docstore.CollectionUsers, "561293567780192273", docstore.Document{
		"users": []any{map[string]any{"key": "remote-key", "status": "Active"}},
	}, docstore.Merge())
	require.NoError(s.T(), err)

	w, resp := s.do(http.MethodGet, "/api/users/remote-key", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "Active", resp["user"].(map[string]any)["status"])

	w, resp = s.do(http.MethodGet, "/api/sync", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), true, resp["views"].(map[string]any)["cloudSyncEnabled"])
}

func (s *APITestSuite) TestProfile() {
	w, _ := s.do(http.MethodPut, "/api/profile", `{"username":""}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w, resp := s.do(http.MethodPut, "/api/profile", `{"username":"4253","bio":"scripts","location":"CH"}`)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "scripts", resp["profile"].(map[string]any)["bio"])

	w, _ = s.do(http.MethodPost, "/api/profile/social-links", `{"platform":"GitHub","url":"https://github.com/4253"}`)
	require.Equal(s.T(), http.StatusOK, w.Code)

	w, _ = s.do(http.MethodDelete, "/api/profile/social-links/5", "")
	assert.Equal(s.T(), http.StatusNotFound, w.Code)

	// the view counter is public
	req := httptest.NewRequest(http.MethodPost, "/api/profile/views", nil)
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	w, resp = s.do(http.MethodGet, "/api/analytics", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	views := resp["views"].(map[string]any)
	assert.EqualValues(s.T(), 1, views["total"])
	assert.EqualValues(s.T(), 1, views["today"])
}

func (s *APITestSuite) TestSettings() {
	w, _ := s.do(http.MethodPut, "/api/settings/urls", `{"loaderServerUrl":"https://loader.example.com/","apiBaseUrl":"https://api.example.com"}`)
	require.Equal(s.T(), http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPut, "/api/settings/discord-bot-files", `{"files":[{"name":"a/b.js"}]}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPut, "/api/settings/mirror", `{"token":"ghp_x","owner":"jon4hz","repo":"scripts"}`)
	require.Equal(s.T(), http.StatusOK, w.Code)

	w, resp := s.do(http.MethodGet, "/api/settings", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "https://loader.example.com", resp["loaderServerUrl"])
	assert.Equal(s.T(), "https://api.example.com", resp["apiBaseUrl"])
	mirror := resp["mirror"].(map[string]any)
	assert.Equal(s.T(), true, mirror["configured"])
	assert.NotContains(s.T(), w.Body.String(), "ghp_x")
}

func (s *APITestSuite) TestJobs() {
	w, resp := s.do(http.MethodGet, "/api/jobs", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Len(s.T(), resp["jobs"], 3)

	w, _ = s.do(http.MethodPost, "/api/jobs/unknown/run", "")
	assert.Equal(s.T(), http.StatusNotFound, w.Code)

	w, resp = s.do(http.MethodPut, "/api/jobs/expire-keys", `{"enabled":false}`)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), false, resp["job"].(map[string]any)["enabled"])
}

func (s *APITestSuite) TestStatus() {
	w, resp := s.do(http.MethodGet, "/api/status", "")
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "memory", resp["remote"])
	assert.Contains(s.T(), resp, "cache")
	assert.Contains(s.T(), resp, "views")
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func TestSync_LocalOnly(t *testing.T) {
	s := newTestServer(t, config.RemoteTypeNone)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	req.Header.Set(auth.APIKeyHeader, "admin-key")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set(auth.APIKeyHeader, "admin-key")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNew_RequiresEngine(t *testing.T) {
	_, err := New(context.Background(), testConfig(t, config.RemoteTypeNone), nil, false)
	assert.Error(t, err)
}
