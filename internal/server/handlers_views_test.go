package server

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestHomePage(t *testing.T) {
	_, ts := newTestServer(t)
	dev := newClient(t)
	signUp(t, dev, ts, "dev", "dev@example.com", "developer")
	slug := createGame(t, dev, ts, "Front Page Game")
	uploadVersionID(t, dev, ts, slug)

	resp := doRequest(t, newClient(t), http.MethodGet, ts.URL+"/")
	assertStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "Front Page Game") {
		t.Fatal("expected the published game on the home page")
	}
}

func TestPlayViewRedirectsWithoutVersion(t *testing.T) {
	_, ts := newTestServer(t)
	dev := newClient(t)
	signUp(t, dev, ts, "dev", "dev@example.com", "developer")
	slug := createGame(t, dev, ts, "Not Playable Yet")

	resp := doRequest(t, newClient(t), http.MethodGet, ts.URL+"/play/"+slug)
	assertStatus(t, resp, http.StatusFound)
	resp.Body.Close()
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}
}

func TestPlayViewServesGame(t *testing.T) {
	_, ts := newTestServer(t)
	dev := newClient(t)
	signUp(t, dev, ts, "dev", "dev@example.com", "developer")
	slug := createGame(t, dev, ts, "Playable")
	uploadVersionID(t, dev, ts, slug)

	resp := doRequest(t, newClient(t), http.MethodGet, ts.URL+"/play/"+slug)
	assertStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "/games/"+slug+"/1/index.html") {
		t.Fatal("expected the iframe to point at the latest build")
	}

	resp = doRequest(t, newClient(t), http.MethodGet, ts.URL+"/games/"+slug+"/1/index.html")
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestDeveloperViewGated(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, newClient(t), http.MethodGet, ts.URL+"/developer")
	assertStatus(t, resp, http.StatusFound)
	resp.Body.Close()
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}

	player := newClient(t)
	signUp(t, player, ts, "alice", "alice@example.com", "")
	resp = doRequest(t, player, http.MethodGet, ts.URL+"/developer")
	assertStatus(t, resp, http.StatusFound)
	resp.Body.Close()

	dev := newClient(t)
	signUp(t, dev, ts, "dev", "dev@example.com", "developer")
	resp = doRequest(t, dev, http.MethodGet, ts.URL+"/developer")
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}
