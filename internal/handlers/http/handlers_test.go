package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"roomchat/internal/core/services"
	"roomchat/internal/infrastructure/middleware"
	"roomchat/internal/infrastructure/monitoring"
	"roomchat/internal/infrastructure/repositories/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopTransport struct{}

func (nopTransport) Send(context.Context, []byte) error { return nil }
func (nopTransport) Close(int, string) error            { return nil }

type testServer struct {
	router      *gin.Engine
	auth        services.AuthService
	registry    *services.RoomRegistry
	checker     *monitoring.HealthChecker
	viewOnceDir string
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()

	accounts := memory.NewMemoryAccountRepository()
	auth := services.NewAuthService("secret", time.Minute, accounts)
	accountService := services.NewAccountService(accounts, auth, 8)
	registry := services.NewRoomRegistry(time.Second, nil, log)
	viewOnce, err := services.NewViewOnceStore(memory.NewMemoryViewOnceRepository(), nil, log)
	require.NoError(t, err)

	uploadDir := t.TempDir()
	viewOnceDir := t.TempDir()
	media, err := NewMediaHandler(viewOnce, uploadDir, viewOnceDir, maxUpload, log)
	require.NoError(t, err)

	checker := monitoring.NewHealthChecker()

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(log))
	NewAuthHandler(accountService, log).SetupRoutes(router)
	media.SetupRoutes(router)
	NewHealthHandler(checker, registry, accounts).SetupRoutes(router)
	api := router.Group("/api/v1", middleware.AuthMiddleware(auth))
	NewRoomsHandler(registry).SetupRoutes(api)

	return &testServer{router: router, auth: auth, registry: registry, checker: checker, viewOnceDir: viewOnceDir}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *testServer) upload(filename, content string, viewOnce bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, _ := mw.CreateFormFile("file", filename)
		_, _ = fw.Write([]byte(content))
	}
	if viewOnce {
		_ = mw.WriteField("view_once", "true")
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthHandler_RegisterAndLogin(t *testing.T) {
	s := newTestServer(t, 1024)

	w := s.postJSON("/register", gin.H{"username": "alice", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode(t, w)["username"])

	w = s.postJSON("/register", gin.H{"username": "alice", "password": "password123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.postJSON("/login", gin.H{"username": "alice", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "bearer", body["token_type"])
	subject, err := s.auth.Verify(context.Background(), body["access_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	form := url.Values{"username": {"alice"}, "password": {"password123"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = s.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["access_token"])
}

func TestAuthHandler_Failures(t *testing.T) {
	s := newTestServer(t, 1024)
	require.Equal(t, http.StatusOK, s.postJSON("/register", gin.H{"username": "alice", "password": "password123"}).Code)

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"short password", "/register", gin.H{"username": "bob", "password": "short"}, http.StatusBadRequest},
		{"bad username", "/register", gin.H{"username": "b b", "password": "password123"}, http.StatusBadRequest},
		{"missing fields", "/register", gin.H{"username": "bob"}, http.StatusBadRequest},
		{"wrong password", "/login", gin.H{"username": "alice", "password": "nope-nope"}, http.StatusUnauthorized},
		{"unknown user", "/login", gin.H{"username": "carol", "password": "password123"}, http.StatusUnauthorized},
		{"empty login", "/login", gin.H{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, s.postJSON(tt.path, tt.body).Code)
		})
	}
}

func TestMediaHandler_PlainUpload(t *testing.T) {
	s := newTestServer(t, 1024)

	w := s.upload("../../notes.txt", "hello", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/uploads/notes.txt", decode(t, w)["url"])

	w = s.do(httptest.NewRequest(http.MethodGet, "/uploads/notes.txt", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
}

func TestMediaHandler_ViewOnce(t *testing.T) {
	s := newTestServer(t, 1024)

	w := s.upload("secret.png", "pixels", true)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	token := body["token"].(string)
	assert.Equal(t, "/view/"+token, body["url"])

	entries, err := os.ReadDir(s.viewOnceDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".png"))

	w = s.do(httptest.NewRequest(http.MethodGet, "/view/"+token, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pixels", w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	entries, err = os.ReadDir(s.viewOnceDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	w = s.do(httptest.NewRequest(http.MethodGet, "/view/"+token, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMediaHandler_ViewOnceIgnoresRangeAndConditionals(t *testing.T) {
	s := newTestServer(t, 1024)

	cases := []struct {
		header string
		value  string
	}{
		{"Range", "bytes=0-0"},
		{"If-Modified-Since", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)},
	}
	for _, tc := range cases {
		t.Run(tc.header, func(t *testing.T) {
			token := decode(t, s.upload("note.txt", "the whole secret", true))["token"].(string)

			req := httptest.NewRequest(http.MethodGet, "/view/"+token, nil)
			req.Header.Set(tc.header, tc.value)
			w := s.do(req)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "the whole secret", w.Body.String())
			assert.Equal(t, "16", w.Header().Get("Content-Length"))
			assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))

			assert.Equal(t, http.StatusNotFound, s.do(httptest.NewRequest(http.MethodGet, "/view/"+token, nil)).Code)
		})
	}
}

func TestMediaHandler_ViewOnceFileDeletedOutOfBand(t *testing.T) {
	s := newTestServer(t, 1024)

	token := decode(t, s.upload("a.txt", "x", true))["token"].(string)
	entries, _ := os.ReadDir(s.viewOnceDir)
	require.Len(t, entries, 1)
	require.NoError(t, os.Remove(s.viewOnceDir+"/"+entries[0].Name()))

	w := s.do(httptest.NewRequest(http.MethodGet, "/view/"+token, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMediaHandler_UploadErrors(t *testing.T) {
	s := newTestServer(t, 10)

	assert.Equal(t, http.StatusRequestEntityTooLarge, s.upload("big.bin", strings.Repeat("x", 100), false).Code)
	assert.Equal(t, http.StatusBadRequest, s.upload("", "", false).Code)
	assert.Equal(t, http.StatusNotFound, s.do(httptest.NewRequest(http.MethodGet, "/view/unknown", nil)).Code)
}

func TestRoomsHandler_Online(t *testing.T) {
	s := newTestServer(t, 1024)
	require.Equal(t, http.StatusOK, s.postJSON("/register", gin.H{"username": "alice", "password": "password123"}).Code)
	token, err := s.auth.GenerateToken("alice")
	require.NoError(t, err)

	s.registry.Connect(context.Background(), "lobby", "alice", nopTransport{})
	s.registry.Connect(context.Background(), "lobby", "bob", nopTransport{})

	get := func(path, bearer string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		return s.do(req)
	}

	w := get("/api/v1/rooms/lobby/online", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"alice", "bob"}, decode(t, w)["online"])

	w = get("/api/v1/rooms/empty/online", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decode(t, w)["online"])

	assert.Equal(t, http.StatusUnauthorized, get("/api/v1/rooms/lobby/online", "").Code)
	assert.Equal(t, http.StatusBadRequest, get("/api/v1/rooms/bad%20room/online", token).Code)
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, 1024)
	s.registry.Connect(context.Background(), "lobby", "alice", nopTransport{})

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(1), body["rooms"])
	assert.Equal(t, float64(1), body["connections"])
	assert.Equal(t, float64(0), body["accounts"])

	assert.Equal(t, http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, "/ready", nil)).Code)

	s.checker.AddCheck("redis", func(context.Context) error { return errors.New("down") }, time.Second)
	w = s.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", decode(t, w)["status"])
}
