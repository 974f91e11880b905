package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"playx/internal/config"
	"playx/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "playx.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	cfg := config.Default()
	cfg.PublicDir = t.TempDir()
	srv := New(conn, cfg)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func doRequest(t *testing.T, client *http.Client, method, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func dataField(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", body)
	}
	return data
}

func messageField(t *testing.T, body map[string]any) string {
	t.Helper()
	message, ok := body["message"].(string)
	if !ok {
		t.Fatalf("expected message, got %v", body)
	}
	return message
}

// signUp registers an account through the API and leaves its session
// cookie in the client's jar.
func signUp(t *testing.T, client *http.Client, ts *httptest.Server, name, email, role string) {
	t.Helper()
	resp := postJSON(t, client, ts.URL+"/api/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": "secret-pw",
		"role":     role,
	})
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("register %s: status %d body %s", email, resp.StatusCode, body)
	}
	resp.Body.Close()
}

// makeAdmin rewrites a user's role directly; the API never grants admin
// on sign-up.
func makeAdmin(t *testing.T, srv *Server, email string) {
	t.Helper()
	err := srv.db.Model(&db.User{}).Where("email = ?", email).
		Update("role", RoleAdmin.String()).Error
	if err != nil {
		t.Fatalf("promote %s to admin: %v", email, err)
	}
}

func createGame(t *testing.T, client *http.Client, ts *httptest.Server, title string) string {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("title", title); err != nil {
		t.Fatalf("write title field: %v", err)
	}
	if err := writer.WriteField("description", "a test game"); err != nil {
		t.Fatalf("write description field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	resp, err := client.Post(ts.URL+"/api/games", writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("create game %q: status %d body %s", title, resp.StatusCode, body)
	}
	data := dataField(t, decodeBody(t, resp))
	slug, ok := data["slug"].(string)
	if !ok || slug == "" {
		t.Fatalf("expected slug in create response, got %v", data)
	}
	return slug
}

func postForm(t *testing.T, client *http.Client, rawURL string, values url.Values) *http.Response {
	t.Helper()
	return postFormMethod(t, client, http.MethodPost, rawURL, values)
}

func postFormMethod(t *testing.T, client *http.Client, method, rawURL string, values url.Values) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, vals := range values {
		for _, val := range vals {
			if err := writer.WriteField(key, val); err != nil {
				t.Fatalf("write field %s: %v", key, err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req, err := http.NewRequest(method, rawURL, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, rawURL, err)
	}
	return resp
}

// uploadVersionID publishes a minimal playable build and returns the new
// version's id as it appears on the wire.
func uploadVersionID(t *testing.T, client *http.Client, ts *httptest.Server, slug string) float64 {
	t.Helper()
	archive := makeZip(t, map[string]string{"index.html": "<html><body>play</body></html>"})
	resp := uploadZip(t, client, ts, slug, "build.zip", archive)
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("upload version for %s: status %d body %s", slug, resp.StatusCode, body)
	}
	data := dataField(t, decodeBody(t, resp))
	id, ok := data["id"].(float64)
	if !ok {
		t.Fatalf("expected version id, got %v", data)
	}
	return id
}

func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range files {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("zip entry %s: %v", name, err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func uploadZip(t *testing.T, client *http.Client, ts *httptest.Server, slug, fileName string, archive []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(archive); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	resp, err := client.Post(ts.URL+"/api/games/"+slug, writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload version: %v", err)
	}
	return resp
}

func submitScore(t *testing.T, client *http.Client, ts *httptest.Server, slug string, versionID float64, value int) *http.Response {
	t.Helper()
	return postJSON(t, client, ts.URL+fmt.Sprintf("/api/games/%s/scores", slug), map[string]any{
		"gameVersionId": versionID,
		"score":         value,
	})
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected status %d, got %d body %s", want, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
