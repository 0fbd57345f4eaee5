// Package fetch turns repository URLs into bytes or local files. file:// URLs
// and bare local paths short-circuit to the filesystem; everything else goes
// through HTTP(S) with an optional proxy and a URL-keyed cache under the
// system temp directory.
package fetch

import (
	"context"
	"crypto/md5"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio"
	"github.com/klauspost/pgzip"
	"golang.org/x/net/http/httpproxy"
	"golang.org/x/xerrors"

	"github.com/luadist/dist/internal/config"
	"github.com/luadist/dist/internal/sysfs"
)

const userAgent = "LuaDist"

// ErrNotFound is returned when the server answers 404 for a requested URL.
type ErrNotFound struct {
	URL string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%v: HTTP status 404", e.URL)
}

// Fetcher performs downloads for one configuration.
type Fetcher struct {
	cfg    *config.Config
	client *http.Client
}

// New constructs a Fetcher honoring the configuration's timeout, proxy and
// TLS verification switch.
func New(cfg *config.Config) *Fetcher {
	proxy := httpproxy.FromEnvironment()
	if cfg.Proxy != "" {
		proxy = &httpproxy.Config{HTTPProxy: cfg.Proxy, HTTPSProxy: cfg.Proxy}
	}
	proxyFunc := proxy.ProxyFunc()
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			return proxyFunc(req.URL)
		},
		MaxIdleConnsPerHost: 10,
		DisableCompression:  true,
		TLSClientConfig: &tls.Config{
			// Off only via the tls_verify escape hatch for repositories
			// published before verification became the default.
			InsecureSkipVerify: !cfg.TLSVerify,
		},
	}
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// IsRemote reports whether locator must be fetched over the network.
func IsRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// LocalPath strips a file:// prefix. The boolean is false for remote
// locators.
func LocalPath(locator string) (string, bool) {
	if IsRemote(locator) {
		return "", false
	}
	return strings.TrimPrefix(locator, "file://"), true
}

func cacheDir() string {
	return filepath.Join(os.TempDir(), "luadist_cache")
}

func cacheFile(rawurl string) string {
	return filepath.Join(cacheDir(), fmt.Sprintf("%x", md5.Sum([]byte(rawurl))))
}

// cachedFresh returns the cache path for rawurl if a fresh entry exists.
func (f *Fetcher) cachedFresh(rawurl string) (string, bool) {
	if f.cfg.CacheTTL <= 0 {
		return "", false
	}
	fn := cacheFile(rawurl)
	st, err := os.Stat(fn)
	if err != nil {
		return "", false
	}
	if st.ModTime().Add(time.Duration(f.cfg.CacheTTL) * time.Second).Before(time.Now()) {
		return "", false
	}
	return fn, true
}

func (f *Fetcher) do(ctx context.Context, rawurl string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawurl, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, &ErrNotFound{URL: rawurl}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, xerrors.Errorf("%s: HTTP status %v", rawurl, resp.Status)
	}
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		zr, err := pgzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		return &gzipReadCloser{body: resp.Body, zr: zr}, nil
	}
	return resp.Body, nil
}

type gzipReadCloser struct {
	body io.ReadCloser
	zr   *pgzip.Reader
}

func (r *gzipReadCloser) Read(p []byte) (int, error) { return r.zr.Read(p) }

func (r *gzipReadCloser) Close() error {
	if err := r.zr.Close(); err != nil {
		r.body.Close()
		return err
	}
	return r.body.Close()
}

// Get returns the contents behind rawurl. Local paths are read directly;
// remote fetches go through the cache when a TTL is configured.
func (f *Fetcher) Get(ctx context.Context, rawurl string) ([]byte, error) {
	if local, ok := LocalPath(rawurl); ok {
		return os.ReadFile(local)
	}
	if fn, ok := f.cachedFresh(rawurl); ok {
		return os.ReadFile(fn)
	}
	body, err := f.do(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, xerrors.Errorf("fetching %s: %v", rawurl, err)
	}
	if f.cfg.CacheTTL > 0 {
		if err := os.MkdirAll(cacheDir(), 0755); err == nil {
			// Cache write failure is not a fetch failure.
			renameio.WriteFile(cacheFile(rawurl), b, 0644)
		}
	}
	return b, nil
}

// Download materializes rawurl as a file inside destDir and returns its path.
// A local path is passed through untouched, without copying.
func (f *Fetcher) Download(ctx context.Context, rawurl, destDir string) (string, error) {
	if local, ok := LocalPath(rawurl); ok {
		if !sysfs.Exists(local) {
			return "", xerrors.Errorf("%s: no such file or directory", local)
		}
		return local, nil
	}
	base := path.Base(rawurl)
	if base == "." || base == "/" {
		return "", xerrors.Errorf("cannot derive file name from %s", rawurl)
	}
	dest := filepath.Join(destDir, base)

	if fn, ok := f.cachedFresh(rawurl); ok {
		if err := sysfs.Copy(fn, dest); err != nil {
			return "", err
		}
		return dest, nil
	}

	body, err := f.do(ctx, rawurl)
	if err != nil {
		return "", err
	}
	defer body.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}
	// Write through a .part sibling so an interrupted download never leaves a
	// truncated file under the final name.
	out, err := renameio.TempFile(destDir, dest)
	if err != nil {
		return "", err
	}
	defer out.Cleanup()
	if _, err := io.Copy(out, body); err != nil {
		return "", xerrors.Errorf("downloading %s: %v", rawurl, err)
	}
	if err := out.CloseAtomicallyReplace(); err != nil {
		return "", err
	}

	if f.cfg.CacheTTL > 0 {
		if err := os.MkdirAll(cacheDir(), 0755); err == nil {
			cf, err := renameio.TempFile(cacheDir(), cacheFile(rawurl))
			if err == nil {
				in, err := os.Open(dest)
				if err == nil {
					if _, err := io.Copy(cf, in); err == nil {
						cf.CloseAtomicallyReplace()
					} else {
						cf.Cleanup()
					}
					in.Close()
				} else {
					cf.Cleanup()
				}
			}
		}
	}
	return dest, nil
}
