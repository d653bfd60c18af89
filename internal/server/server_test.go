package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gitmap/internal/config"
	"github.com/sakif/gitmap/internal/server"
	"github.com/sakif/gitmap/internal/store"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	cfg := config.Config{
		Port:           0,
		JWTSecret:      "test-secret-0123456789abcdef",
		StorageBackend: config.BackendMemory,
		EngineMode:     config.EngineSnapshot,
		GitBinary:      "git",
		ScanMaxDepth:   3,
		GitURLHost:     "localhost:3001",
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := server.New(cfg, store.NewMemory(), logger)
	require.NoError(t, err)
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func signup(t *testing.T, h http.Handler, username, email string) string {
	t.Helper()
	rr := doJSON(t, h, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"username": username,
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestSignupLoginVerifyFlow(t *testing.T) {
	h := newTestServer(t)

	token := signup(t, h, "al", "al@example.com")

	rr := doJSON(t, h, http.MethodPost, "/api/auth/verify", "", map[string]any{"token": token})
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	user := body["user"].(map[string]any)
	assert.Equal(t, "al", user["username"])
	assert.NotContains(t, user, "password_hash")

	rr = doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "al@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "al@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRepositoryFlow(t *testing.T) {
	h := newTestServer(t)
	token := signup(t, h, "al", "al@example.com")

	t.Run("create synthesizes git url", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/repositories", token, map[string]any{
			"name": "demo",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		body := decodeBody(t, rr)
		repo := body["repository"].(map[string]any)
		assert.Equal(t, "git://localhost:3001/al/demo.git", repo["git_url"])
	})

	t.Run("duplicate name is 409", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/repositories", token, map[string]any{
			"name": "demo",
		})
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("list shows the repository", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/api/repositories", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var repos []map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&repos))
		require.Len(t, repos, 1)
		assert.Equal(t, "demo", repos[0]["name"])
	})

	t.Run("no token is 401", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/api/repositories", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("other user's repository is 404", func(t *testing.T) {
		otherToken := signup(t, h, "bo", "bo@example.com")
		rr := doJSON(t, h, http.MethodGet, "/api/repositories/1", otherToken, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("non-numeric id is 400", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/api/repositories/abc", token, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestFileFlow(t *testing.T) {
	h := newTestServer(t)
	token := signup(t, h, "al", "al@example.com")

	rr := doJSON(t, h, http.MethodPost, "/api/repositories", token, map[string]any{"name": "demo"})
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("create file", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/repositories/1/files", token, map[string]any{
			"filePath":    "/",
			"fileName":    "main.go",
			"fileContent": "package main",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		body := decodeBody(t, rr)
		file := body["file"].(map[string]any)
		assert.Equal(t, float64(len("package main")), file["file_size"])
	})

	t.Run("duplicate file is 409", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/repositories/1/files", token, map[string]any{
			"filePath": "/",
			"fileName": "main.go",
		})
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("missing file name is 400", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/repositories/1/files", token, map[string]any{
			"filePath": "/",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("multipart upload infers type from extension", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "script.py")
		require.NoError(t, err)
		_, err = part.Write([]byte("print('hi')\n"))
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("filePath", "/scripts"))
		require.NoError(t, mw.Close())

		r := httptest.NewRequest(http.MethodPost, "/api/repositories/1/files/upload", &buf)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		r.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, r)

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		body := decodeBody(t, rr)
		file := body["file"].(map[string]any)
		assert.Equal(t, "text/x-python", file["file_type"])
		assert.Equal(t, "/scripts", file["file_path"])
	})

	t.Run("list and delete", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/api/repositories/1/files", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var files []map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&files))
		require.Len(t, files, 2)

		fileID := int64(files[0]["id"].(float64))
		rr = doJSON(t, h, http.MethodDelete,
			"/api/repositories/1/files/"+strconv.FormatInt(fileID, 10), token, nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = doJSON(t, h, http.MethodGet, "/api/repositories/1/files", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		files = nil
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&files))
		assert.Len(t, files, 1)
	})
}

func TestGitServerFramingThroughRouter(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h, http.MethodGet, "/api/git-server/al/demo.git/info/refs", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/x-git-upload-pack-advertisement", rr.Header().Get("Content-Type"))
	assert.Equal(t, "# service=git-upload-pack\n0000", rr.Body.String())

	rr = doJSON(t, h, http.MethodGet, "/api/git-server/bad-path", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGitOperationsRequireAuth(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h, http.MethodPost, "/api/git-operations", "", map[string]any{
		"action":       "status",
		"repositoryId": 1,
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGitUnknownActionIs400(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h, http.MethodPost, "/api/git", "", map[string]any{
		"action": "rebase",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
