package server

import (
	"net/http"
	"testing"

	"playx/internal/db"
)

func userID(t *testing.T, srv *Server, email string) string {
	t.Helper()
	var user db.User
	if err := srv.db.Where("email = ?", email).First(&user).Error; err != nil {
		t.Fatalf("load user %s: %v", email, err)
	}
	return user.ID
}

func TestListUsersRequiresAdmin(t *testing.T) {
	srv, ts := newTestServer(t)
	client := newClient(t)
	signUp(t, client, ts, "alice", "alice@example.com", "")

	resp := doRequest(t, client, http.MethodGet, ts.URL+"/api/users")
	assertStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	makeAdmin(t, srv, "alice@example.com")
	resp = doRequest(t, client, http.MethodGet, ts.URL+"/api/users")
	assertStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	users, ok := body["data"].([]any)
	if !ok || len(users) != 1 {
		t.Fatalf("expected one user, got %v", body["data"])
	}
}

func TestGetUserSelfOrAdmin(t *testing.T) {
	srv, ts := newTestServer(t)
	alice := newClient(t)
	signUp(t, alice, ts, "alice", "alice@example.com", "")
	bob := newClient(t)
	signUp(t, bob, ts, "bob", "bob@example.com", "")

	aliceID := userID(t, srv, "alice@example.com")

	resp := doRequest(t, alice, http.MethodGet, ts.URL+"/api/users/"+aliceID)
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = doRequest(t, bob, http.MethodGet, ts.URL+"/api/users/"+aliceID)
	assertStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	makeAdmin(t, srv, "bob@example.com")
	resp = doRequest(t, bob, http.MethodGet, ts.URL+"/api/users/"+aliceID)
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestCreateUserAsAdmin(t *testing.T) {
	srv, ts := newTestServer(t)
	admin := newClient(t)
	signUp(t, admin, ts, "root", "root@example.com", "")
	makeAdmin(t, srv, "root@example.com")

	resp := postJSON(t, admin, ts.URL+"/api/users", map[string]string{
		"name":     "carol",
		"email":    "carol@example.com",
		"password": "secret-pw",
		"role":     "admin",
	})
	assertStatus(t, resp, http.StatusCreated)
	data := dataField(t, decodeBody(t, resp))
	if data["role"] != "admin" {
		t.Fatalf("expected admin role, got %v", data["role"])
	}

	// The created credentials work for login.
	resp = postJSON(t, newClient(t), ts.URL+"/api/auth/login", map[string]string{
		"email":    "carol@example.com",
		"password": "secret-pw",
	})
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestBanRevokesSessionsAndBlocksLogin(t *testing.T) {
	srv, ts := newTestServer(t)
	admin := newClient(t)
	signUp(t, admin, ts, "root", "root@example.com", "")
	makeAdmin(t, srv, "root@example.com")

	target := newClient(t)
	signUp(t, target, ts, "mallory", "mallory@example.com", "")
	malloryID := userID(t, srv, "mallory@example.com")

	resp := postJSON(t, admin, ts.URL+"/api/users/"+malloryID+"/ban", map[string]string{
		"reason": "score manipulation",
	})
	assertStatus(t, resp, http.StatusOK)
	data := dataField(t, decodeBody(t, resp))
	if data["banned"] != true {
		t.Fatalf("expected banned user payload, got %v", data)
	}

	// The live session died with the ban.
	resp = doRequest(t, target, http.MethodGet, ts.URL+"/api/auth/session")
	assertStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if body["data"] != nil {
		t.Fatalf("expected revoked session, got %v", body["data"])
	}

	resp = postJSON(t, newClient(t), ts.URL+"/api/auth/login", map[string]string{
		"email":    "mallory@example.com",
		"password": "secret-pw",
	})
	assertStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	// Unban restores access.
	resp = postJSON(t, admin, ts.URL+"/api/users/"+malloryID+"/unban", nil)
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	resp = postJSON(t, newClient(t), ts.URL+"/api/auth/login", map[string]string{
		"email":    "mallory@example.com",
		"password": "secret-pw",
	})
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestBanSelfRejected(t *testing.T) {
	srv, ts := newTestServer(t)
	admin := newClient(t)
	signUp(t, admin, ts, "root", "root@example.com", "")
	makeAdmin(t, srv, "root@example.com")
	rootID := userID(t, srv, "root@example.com")

	resp := postJSON(t, admin, ts.URL+"/api/users/"+rootID+"/ban", map[string]string{
		"reason": "oops",
	})
	assertStatus(t, resp, http.StatusBadRequest)
	if msg := messageField(t, decodeBody(t, resp)); msg != "you cannot ban yourself" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestDeleteUserCascadesGames(t *testing.T) {
	srv, ts := newTestServer(t)
	admin := newClient(t)
	signUp(t, admin, ts, "root", "root@example.com", "")
	makeAdmin(t, srv, "root@example.com")

	dev := newClient(t)
	signUp(t, dev, ts, "dev", "dev@example.com", "developer")
	slug := createGame(t, dev, ts, "Orphaned")
	uploadVersionID(t, dev, ts, slug)
	devID := userID(t, srv, "dev@example.com")

	resp := doRequest(t, admin, http.MethodDelete, ts.URL+"/api/users/"+devID)
	assertStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	var gameCount, versionCount int64
	if err := srv.db.Model(&db.Game{}).Count(&gameCount).Error; err != nil {
		t.Fatalf("count games: %v", err)
	}
	if err := srv.db.Model(&db.GameVersion{}).Count(&versionCount).Error; err != nil {
		t.Fatalf("count versions: %v", err)
	}
	if gameCount != 0 || versionCount != 0 {
		t.Fatalf("expected cascade delete, games=%d versions=%d", gameCount, versionCount)
	}
}

func TestPatchUserRoleChangeAdminOnly(t *testing.T) {
	srv, ts := newTestServer(t)
	alice := newClient(t)
	signUp(t, alice, ts, "alice", "alice@example.com", "")
	aliceID := userID(t, srv, "alice@example.com")

	resp := postFormMethod(t, alice, http.MethodPatch, ts.URL+"/api/users/"+aliceID, map[string][]string{
		"role": {"admin"},
	})
	assertStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = postFormMethod(t, alice, http.MethodPatch, ts.URL+"/api/users/"+aliceID, map[string][]string{
		"name": {"alice2"},
	})
	assertStatus(t, resp, http.StatusOK)
	data := dataField(t, decodeBody(t, resp))
	if data["name"] != "alice2" {
		t.Fatalf("expected renamed user, got %v", data["name"])
	}
}

func TestUserStats(t *testing.T) {
	srv, ts := newTestServer(t)
	admin := newClient(t)
	signUp(t, admin, ts, "root", "root@example.com", "")
	makeAdmin(t, srv, "root@example.com")
	dev := newClient(t)
	signUp(t, dev, ts, "dev", "dev@example.com", "developer")
	createGame(t, dev, ts, "Counted")

	resp := doRequest(t, admin, http.MethodGet, ts.URL+"/api/users/stats")
	assertStatus(t, resp, http.StatusOK)
	data := dataField(t, decodeBody(t, resp))
	if data["totalUsers"].(float64) != 2 {
		t.Fatalf("expected 2 users, got %v", data["totalUsers"])
	}
	if data["totalGames"].(float64) != 1 {
		t.Fatalf("expected 1 game, got %v", data["totalGames"])
	}
}
