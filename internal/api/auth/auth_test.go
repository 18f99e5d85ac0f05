package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/loaderdesk/internal/config"
	"github.com/jon4hz/loaderdesk/internal/localstore/mock"
	"github.com/jon4hz/loaderdesk/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AuthTestSuite struct {
	suite.Suite
	router *gin.Engine
	repos  *repository.Repositories
}

func (s *AuthTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	store := cookie.NewStore([]byte("test-secret"))
	s.router.Use(sessions.Sessions("testsession", store))

	s.repos = repository.New(mock.NewMockStore())
	provider := New(&config.AdminConfig{DiscordID: "561293567780192273", Key: "admin-key"}, s.repos.Settings)

	s.router.POST("/login", provider.Login)
	s.router.POST("/logout", provider.Logout)
	protected := s.router.Group("/api", provider.RequireAuth())
	protected.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString("user_id")})
	})
}

func (s *AuthTestSuite) login(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *AuthTestSuite) TestLogin_Errors() {
	tests := []struct {
		name    string
		body    string
		code    int
		message string
	}{
		{"empty", `{}`, http.StatusBadRequest, "Please enter both Discord ID and security key"},
		{"wrong id", `{"discordId":"1","key":"admin-key"}`, http.StatusUnauthorized, "Invalid Discord ID"},
		{"wrong key", `{"discordId":"561293567780192273","key":"nope"}`, http.StatusUnauthorized, "Invalid security key"},
		{"both wrong", `{"discordId":"1","key":"nope"}`, http.StatusUnauthorized, "Invalid Discord ID and security key"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.login(tt.body)
			assert.Equal(s.T(), tt.code, w.Code)
			assert.Contains(s.T(), w.Body.String(), `"error":"`+tt.message+`"`)
		})
	}

	authenticated, err := s.repos.Settings.Authenticated(context.Background())
	require.NoError(s.T(), err)
	assert.False(s.T(), authenticated)
}

func (s *AuthTestSuite) TestLogin_SessionGrantsAccess() {
	w := s.login(`{"discordId":"561293567780192273","key":"admin-key"}`)
	require.Equal(s.T(), http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(s.T(), cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Body.String(), "561293567780192273")

	authenticated, err := s.repos.Settings.Authenticated(context.Background())
	require.NoError(s.T(), err)
	assert.True(s.T(), authenticated)
}

func (s *AuthTestSuite) TestRequireAuth_WithoutSession() {
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *AuthTestSuite) TestRequireAuth_APIKey() {
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set(APIKeyHeader, "admin-key")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set(APIKeyHeader, "wrong")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	assert.Contains(s.T(), w.Body.String(), "Invalid API key")
}

func (s *AuthTestSuite) TestLogout() {
	w := s.login(`{"discordId":"561293567780192273","key":"admin-key"}`)
	require.Equal(s.T(), http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	authenticated, err := s.repos.Settings.Authenticated(context.Background())
	require.NoError(s.T(), err)
	assert.False(s.T(), authenticated)
}

func TestAuthTestSuite(t *testing.T) {
	suite.Run(t, new(AuthTestSuite))
}
