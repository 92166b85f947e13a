package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"student-portal/internal/crypto"
	"student-portal/internal/domain"
	"student-portal/internal/repository"
	"student-portal/internal/repository/memory"
	"student-portal/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// brokenRepo fails every store call.
type brokenRepo struct {
	repository.UserRepository
}

var errBroken = errors.New("connection refused: db.internal:5432")

func (brokenRepo) FindByIdentifier(context.Context, string) (*domain.User, error) {
	return nil, errBroken
}

func (brokenRepo) ExistsByUsernameOrEmail(context.Context, string, string) (repository.Match, error) {
	return repository.Match{}, errBroken
}

func (brokenRepo) ExistsByUsername(context.Context, string) (bool, error) { return false, errBroken }

func (brokenRepo) ExistsByEmail(context.Context, string) (bool, error) { return false, errBroken }

type testServer struct {
	router *gin.Engine
	logs   *test.Hook
}

func newTestServer(t *testing.T, repo repository.UserRepository, staticDir string) *testServer {
	t.Helper()
	hasher, err := crypto.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	router := gin.New()
	NewHandler(service.NewUserService(repo, hasher), logger, staticDir).RegisterRoutes(router)
	return &testServer{router: router, logs: hook}
}

func (s *testServer) post(t *testing.T, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return rec.Code, out
}

const bobRegistration = `{"username":"bob","email":"bob@x.com","password":"secret1","fullName":"Bob B","role":"student"}`

func TestRegisterThenDuplicateEmail(t *testing.T) {
	srv := newTestServer(t, memory.NewUserRepository(), "")

	code, body := srv.post(t, "/api/register", bobRegistration)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Registration successful", body["message"])

	user := body["user"].(map[string]any)
	assert.NotEmpty(t, user["id"])
	assert.Equal(t, "bob", user["username"])
	assert.Equal(t, "bob@x.com", user["email"])
	assert.Equal(t, "Bob B", user["fullName"])
	assert.Equal(t, "student", user["role"])
	assert.Len(t, user, 5, "projection must not carry password material")

	code, body = srv.post(t, "/api/register",
		`{"username":"bob2","email":"bob@x.com","password":"secret1","fullName":"Bob B","role":"student"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, map[string]any{"success": false, "message": "Email already registered"}, body)

	code, body = srv.post(t, "/api/register",
		`{"username":"bob","email":"bob2@x.com","password":"secret1","fullName":"Bob B","role":"teacher"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Username already taken", body["message"])

	code, body = srv.post(t, "/api/register", bobRegistration)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Email already registered", body["message"])
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t, memory.NewUserRepository(), "")

	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty object", `{}`, "Username is required"},
		{"username before role", `{"username":" ","email":"a@x.com","password":"secret1","fullName":"A","role":"admin"}`, "Username is required"},
		{"bad email", `{"username":"a","email":"a.x.com","password":"secret1","fullName":"A","role":"student"}`, "Valid email is required"},
		{"short password", `{"username":"a","email":"a@x.com","password":"12345","fullName":"A","role":"student"}`, "Password must be at least 6 characters long"},
		{"missing full name", `{"username":"a","email":"a@x.com","password":"secret1","role":"student"}`, "Full name is required"},
		{"bad role", `{"username":"a","email":"a@x.com","password":"secret1","fullName":"A","role":"admin"}`, "Invalid role selected"},
		{"empty body", ``, "No data provided"},
		{"wrong type", `{"username":42}`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := srv.post(t, "/api/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.want, body["message"])
		})
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t, memory.NewUserRepository(), "")
	code, _ := srv.post(t, "/api/register", bobRegistration)
	require.Equal(t, http.StatusOK, code)

	for _, identifier := range []string{"bob", "bob@x.com"} {
		code, body := srv.post(t, "/api/login", `{"identifier":"`+identifier+`","password":"secret1"}`)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Login successful", body["message"])
		user := body["user"].(map[string]any)
		assert.Equal(t, "bob", user["username"])
		assert.NotContains(t, user, "passwordHash")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	srv := newTestServer(t, memory.NewUserRepository(), "")
	code, _ := srv.post(t, "/api/register", bobRegistration)
	require.Equal(t, http.StatusOK, code)

	unknownCode, unknownBody := srv.post(t, "/api/login", `{"identifier":"nobody","password":"secret1"}`)
	wrongCode, wrongBody := srv.post(t, "/api/login", `{"identifier":"bob","password":"secret2"}`)

	assert.Equal(t, http.StatusUnauthorized, unknownCode)
	assert.Equal(t, unknownCode, wrongCode)
	assert.Equal(t, map[string]any{"success": false, "message": "Invalid credentials"}, unknownBody)
	assert.Equal(t, unknownBody, wrongBody)
}

func TestLoginValidation(t *testing.T) {
	srv := newTestServer(t, memory.NewUserRepository(), "")

	for _, body := range []string{`{}`, `{"identifier":"bob"}`, `{"password":"secret1"}`, `{"identifier":"","password":""}`} {
		code, out := srv.post(t, "/api/login", body)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, map[string]any{"success": false, "message": "Email/username and password are required"}, out)
	}

	code, out := srv.post(t, "/api/login", ``)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No data provided", out["message"])
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	srv := newTestServer(t, brokenRepo{}, "")

	code, body := srv.post(t, "/api/login", `{"identifier":"bob","password":"secret1"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, map[string]any{"success": false, "message": "An error occurred during login"}, body)

	code, body = srv.post(t, "/api/register", bobRegistration)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, map[string]any{"success": false, "message": "An error occurred during registration"}, body)

	var logged []string
	for _, entry := range srv.logs.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			logged = append(logged, entry.Data[logrus.ErrorKey].(error).Error())
		}
	}
	require.Len(t, logged, 2)
	for _, msg := range logged {
		assert.Contains(t, msg, errBroken.Error())
	}
}

func TestCheckAvailability(t *testing.T) {
	srv := newTestServer(t, memory.NewUserRepository(), "")

	code, body := srv.post(t, "/api/check-availability", `{"field":"username","value":"alice"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"available": true}, body)

	code, _ = srv.post(t, "/api/register",
		`{"username":"alice","email":"alice@x.com","password":"secret1","fullName":"Alice A","role":"teacher"}`)
	require.Equal(t, http.StatusOK, code)

	tests := []struct {
		name string
		body string
		want bool
	}{
		{"taken username", `{"field":"username","value":"alice"}`, false},
		{"taken email any case", `{"field":"email","value":" Alice@X.com "}`, false},
		{"free email", `{"field":"email","value":"bob@x.com"}`, true},
		{"unknown field", `{"field":"phone","value":"123"}`, false},
		{"missing value", `{"field":"username"}`, false},
		{"missing field", `{"value":"alice"}`, false},
		{"empty body", ``, false},
		{"not json", `field=username`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := srv.post(t, "/api/check-availability", tt.body)
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, map[string]any{"available": tt.want}, body)
		})
	}
}

func TestCheckAvailabilityFailsSafe(t *testing.T) {
	srv := newTestServer(t, brokenRepo{}, "")

	code, body := srv.post(t, "/api/check-availability", `{"field":"email","value":"a@x.com"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"available": false}, body)
	require.NotNil(t, srv.logs.LastEntry())
}

func TestHealthAndCORS(t *testing.T) {
	srv := newTestServer(t, memory.NewUserRepository(), "")

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/login", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>portal</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	srv := newTestServer(t, memory.NewUserRepository(), dir)

	get := func(path string) (int, string) {
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		b, _ := io.ReadAll(rec.Body)
		return rec.Code, string(b)
	}

	code, body := get("/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "portal")

	code, body = get("/app.js")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "console.log(1)", body)

	code, _ = get("/api/unknown")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = get("/missing.css")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUnknownRouteWithoutStaticDir(t *testing.T) {
	srv := newTestServer(t, memory.NewUserRepository(), "")

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/index.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
