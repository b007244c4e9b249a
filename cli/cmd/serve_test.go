package cmd

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raumaankidwai/nim/lang"
)

func testSite(t *testing.T, files map[string]string) *site {
	t.Helper()

	dir := t.TempDir()
	writeFiles(t, dir, files)

	s, err := newSite(dir, "index.nim", lang.New())
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { _ = s.Close() })

	return s
}

var siteFiles = map[string]string{
	"index.nim":      `<h1><!--{ print("home"); }--></h1>`,
	"about.nim":      `<!--{ $n = 6 * 7; print($n); }-->`,
	"style.css":      "body{}",
	"docs/index.nim": "docs",
	"page.nim":       "template",
	"page.html":      "static",
	"empty/x.txt":    "x",
	"broken.nim":     "<p>\n<!--{ nope(); }-->",
}

func TestSite_ServeHTTP(t *testing.T) {
	t.Parallel()

	s := testSite(t, siteFiles)

	tests := []struct {
		method string
		path   string
		status int
		body   string
		ctype  string
	}{
		{http.MethodGet, "/", http.StatusOK, "<h1>home</h1>", "text/html"},
		{http.MethodGet, "/index.nim", http.StatusOK, "<h1>home</h1>", "text/html"},
		{http.MethodGet, "/about", http.StatusOK, "42", "text/html"},
		{http.MethodGet, "/about.nim", http.StatusOK, "42", "text/html"},
		{http.MethodGet, "/docs", http.StatusOK, "docs", "text/html"},
		{http.MethodGet, "/docs/", http.StatusOK, "docs", "text/html"},
		{http.MethodGet, "/style.css", http.StatusOK, "body{}", "text/css"},
		{http.MethodGet, "/page.html", http.StatusOK, "static", "text/html"},
		{http.MethodGet, "/page", http.StatusMultipleChoices, "/page.nim\n/page.html\n", "text/plain"},
		{http.MethodGet, "/missing", http.StatusNotFound, "", ""},
		{http.MethodGet, "/missing.nim", http.StatusNotFound, "", ""},
		{http.MethodGet, "/empty/", http.StatusNotFound, "", ""},
		{http.MethodGet, "/../../etc/passwd", http.StatusNotFound, "", ""},
		{http.MethodGet, "/broken", http.StatusInternalServerError, "broken.nim:2:7: reference error: undefined function nope", "text/plain"},
		{http.MethodHead, "/about", http.StatusOK, "", "text/html"},
		{http.MethodPost, "/about", http.StatusMethodNotAllowed, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequestWithContext(t.Context(), tt.method, tt.path, nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d\n%s", rec.Code, tt.status, rec.Body)
			}

			if tt.body != "" && !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("body = %q, want %q", rec.Body, tt.body)
			}

			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.ctype) {
				t.Errorf("Content-Type = %q, want %q", ct, tt.ctype)
			}
		})
	}
}

func TestSite_Resolve(t *testing.T) {
	t.Parallel()

	s := testSite(t, siteFiles)

	tests := []struct {
		path   string
		name   string
		status int
	}{
		{"/", "index.nim", http.StatusOK},
		{"", "index.nim", http.StatusOK},
		{"/docs", "docs/index.nim", http.StatusOK},
		{"/a/../about", "about.nim", http.StatusOK},
		{"/about.nim", "about.nim", http.StatusOK},
		{"/page", "", http.StatusMultipleChoices},
		{"/nothing", "", http.StatusNotFound},
		{"/empty", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		name, status, _ := s.resolve(tt.path)
		if name != tt.name || status != tt.status {
			t.Errorf("resolve(%q) = %q, %d; want %q, %d",
				tt.path, name, status, tt.name, tt.status)
		}
	}
}

func TestSite_Check(t *testing.T) {
	t.Parallel()

	good := testSite(t, map[string]string{
		"index.nim":   "ok",
		"a/b/c.nim":   `<!--{ print(1); }-->`,
		"ignored.txt": "<!--{ nope(); }-->",
	})

	if err := good.check(t.Context()); err != nil {
		t.Errorf("check(good) = %v", err)
	}

	bad := testSite(t, siteFiles)

	err := bad.check(t.Context())
	if !errors.Is(err, ErrServeCheck) || !errors.Is(err, lang.ErrReference) {
		t.Errorf("check(bad) = %v, want %v", err, ErrServeCheck)
	}
}

func TestNewSite_Missing(t *testing.T) {
	t.Parallel()

	_, err := newSite(filepath.Join(t.TempDir(), "none"), "index.nim", lang.New())
	if !errors.Is(err, ErrServeRoot) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("newSite = %v, want %v", err, ErrServeRoot)
	}
}

func TestServe_serve(t *testing.T) {
	t.Parallel()

	s := testSite(t, siteFiles)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)

	go func() {
		done <- (&Serve{Timeout: time.Second}).serve(ctx, ln, s)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/about")
	if err != nil {
		cancel()
		t.Fatal(err)
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || string(body) != "42" {
		t.Errorf("GET /about = %d %q", resp.StatusCode, body)
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_Run(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, siteFiles)

	ctx, cancel := context.WithCancel(WithEngine(t.Context(), lang.New()))
	cancel()

	cmd := Serve{Addr: "127.0.0.1:0", Root: dir, Index: "index.nim", Timeout: time.Second}

	if err := cmd.Run(ctx); err != nil {
		t.Errorf("Run(cancelled) = %v", err)
	}

	cmd.Check = true

	if err := cmd.Run(ctx); !errors.Is(err, ErrServeCheck) {
		t.Errorf("Run(check) = %v, want %v", err, ErrServeCheck)
	}

	cmd.Root = filepath.Join(dir, "missing")

	if err := cmd.Run(ctx); !errors.Is(err, ErrServeRoot) {
		t.Errorf("Run(missing root) = %v, want %v", err, ErrServeRoot)
	}
}
