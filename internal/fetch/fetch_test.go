package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/luadist/dist/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.TempDir = t.TempDir()
	cfg.CacheTTL = 0
	return cfg
}

func TestLocalPath(t *testing.T) {
	for _, tt := range []struct {
		in    string
		local string
		ok    bool
	}{
		{in: "/srv/repo", local: "/srv/repo", ok: true},
		{in: "file:///srv/repo", local: "/srv/repo", ok: true},
		{in: "http://repo.luadist.org/", ok: false},
		{in: "https://repo.luadist.org/", ok: false},
	} {
		local, ok := LocalPath(tt.in)
		if ok != tt.ok || local != tt.local {
			t.Errorf("LocalPath(%q) = (%q, %v), want (%q, %v)", tt.in, local, ok, tt.local, tt.ok)
		}
	}
}

func TestGetLocalPassthrough(t *testing.T) {
	f := New(testConfig(t))
	fn := filepath.Join(t.TempDir(), "dist.manifest")
	if err := os.WriteFile(fn, []byte("return {}true"), 0644); err != nil {
		t.Fatal(err)
	}
	b, err := f.Get(context.Background(), fn)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "return {}true" {
		t.Fatalf("Get = %q", b)
	}
}

func TestDownloadLocalPassthrough(t *testing.T) {
	f := New(testConfig(t))
	fn := filepath.Join(t.TempDir(), "a-1.0.dist")
	if err := os.WriteFile(fn, []byte("zip"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := f.Download(context.Background(), fn, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if got != fn {
		t.Fatalf("Download = %q, want the path passed through untouched", got)
	}
}

func TestGetRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got, want := r.Header.Get("User-Agent"), "LuaDist"; got != want {
			t.Errorf("User-Agent = %q, want %q", got, want)
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f := New(testConfig(t))
	b, err := f.Get(context.Background(), srv.URL+"/file")
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "payload" {
		t.Fatalf("Get = %q", b)
	}
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	f := New(testConfig(t))
	_, err := f.Get(context.Background(), srv.URL+"/missing")
	if _, ok := err.(*ErrNotFound); !ok {
		t.Fatalf("err = %v, want *ErrNotFound", err)
	}
}

func TestDownloadRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("archive-bytes"))
	}))
	defer srv.Close()

	f := New(testConfig(t))
	dest := t.TempDir()
	got, err := f.Download(context.Background(), srv.URL+"/a-1.0.dist", dest)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(got) != dest || filepath.Base(got) != "a-1.0.dist" {
		t.Fatalf("Download = %q", got)
	}
	b, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "archive-bytes" {
		t.Fatalf("downloaded %q", b)
	}
	// no .part residue
	matches, _ := filepath.Glob(filepath.Join(dest, "*.part*"))
	if len(matches) != 0 {
		t.Errorf("leftover partial files: %v", matches)
	}
}

func TestCacheServesSecondRequest(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("cached"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.CacheTTL = int((24 * time.Hour).Seconds())
	f := New(cfg)
	url := srv.URL + "/cache-test-" + filepath.Base(t.TempDir())
	defer os.Remove(cacheFile(url))

	for i := 0; i < 2; i++ {
		b, err := f.Get(context.Background(), url)
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != "cached" {
			t.Fatalf("Get = %q", b)
		}
	}
	if hits != 1 {
		t.Errorf("server saw %d hits, want 1 (second from cache)", hits)
	}
}
