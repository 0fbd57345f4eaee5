// Package config holds the explicit configuration value threaded through
// every component.
package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"

	"github.com/luadist/dist"
)

// Config carries everything an operation needs to know about the host, the
// repositories and the deployment. There is no module-level state; callers
// construct one Config and pass it down.
type Config struct {
	// Root is the deployment directory dists are installed into.
	Root string `yaml:"root"`

	// Repos lists repository locators in priority order: the first
	// repository wins manifest ordering ties.
	Repos []string `yaml:"repos"`

	// Arch and Type identify the host platform. Empty values are filled in
	// by detection.
	Arch string `yaml:"arch"`
	Type string `yaml:"type"`

	// Binary and Source select which dist flavors are acceptable.
	Binary bool `yaml:"binary"`
	Source bool `yaml:"source"`

	// Link installs symlinks from the deployment root into the per-dist
	// directory instead of copies.
	Link bool `yaml:"link"`

	// TempDir is the scratch root for unpacking, building and packing. The
	// fetch cache does not live here; it sits under the system temp
	// directory.
	TempDir string `yaml:"temp_dir"`

	// CacheTTL is how long a cached download stays fresh, in seconds. Zero
	// disables the cache.
	CacheTTL int `yaml:"cache_ttl"`

	// Timeout bounds a single network fetch, in seconds.
	Timeout int `yaml:"timeout"`

	// Proxy is an optional proxy URL applied to HTTP and HTTPS fetches.
	Proxy string `yaml:"proxy"`

	// TLSVerify controls server certificate verification. Older repositories
	// require turning this off; leave it on unless one of them breaks.
	TLSVerify bool `yaml:"tls_verify"`

	// Debug preserves scratch directories and switches the build driver to
	// its debug variants.
	Debug bool `yaml:"debug"`

	// HostProvides lists name-version strings the host satisfies without any
	// dist being installed (e.g. a system Lua).
	HostProvides []string `yaml:"host_provides"`

	// Variables is the base variable map written into the build driver cache
	// file.
	Variables map[string]string `yaml:"variables"`

	// CMake and Make are the build driver and build tool command lines;
	// DebugCMake and DebugMake replace them in debug mode.
	CMake      string `yaml:"cmake"`
	Make       string `yaml:"make"`
	DebugCMake string `yaml:"debug_cmake"`
	DebugMake  string `yaml:"debug_make"`
}

// Default returns the built-in configuration for the detected platform.
func Default() *Config {
	plat := dist.DetectPlatform()
	return &Config{
		Root:       os.ExpandEnv("$HOME/.luadist"),
		Repos:      []string{"https://repo.luadist.org/"},
		Arch:       plat.Arch,
		Type:       plat.Type,
		Binary:     true,
		Source:     true,
		Link:       false,
		TempDir:    filepath.Join(os.TempDir(), "luadist"),
		CacheTTL:   int((3 * time.Hour).Seconds()),
		Timeout:    60,
		TLSVerify:  true,
		CMake:      "cmake",
		Make:       "make",
		DebugCMake: "cmake -DCMAKE_VERBOSE_MAKEFILE=true -DCMAKE_BUILD_TYPE=Debug",
		DebugMake:  "make VERBOSE=1",
	}
}

// Load reads path over the defaults and applies environment overrides
// (DIST_ROOT replaces the deployment directory). A missing file is not an
// error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, xerrors.Errorf("reading config %s: %v", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, xerrors.Errorf("parsing config %s: %v", path, err)
			}
		}
	}
	if env := os.Getenv("DIST_ROOT"); env != "" {
		cfg.Root = env
	}
	if cfg.Arch == "" || cfg.Type == "" {
		plat := dist.DetectPlatform()
		if cfg.Arch == "" {
			cfg.Arch = plat.Arch
		}
		if cfg.Type == "" {
			cfg.Type = plat.Type
		}
	}
	if cfg.Arch != dist.ArchUniversal && !dist.Architectures[cfg.Arch] {
		log.Printf("arch %q is not a known platform identifier; repositories are unlikely to carry binaries for it", cfg.Arch)
	}
	return cfg, nil
}

// Platform returns the host platform the configuration selects.
func (c *Config) Platform() dist.Platform {
	return dist.Platform{Arch: c.Arch, Type: c.Type}
}

// Repositories returns the configured repository locators in priority order.
func (c *Config) Repositories() []dist.Repo {
	repos := make([]dist.Repo, 0, len(c.Repos))
	for _, r := range c.Repos {
		repos = append(repos, dist.Repo{Path: r})
	}
	return repos
}

// DistsDir returns the bookkeeping directory of the deployment.
func (c *Config) DistsDir() string {
	return filepath.Join(c.Root, "dists")
}
