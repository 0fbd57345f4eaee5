// Package build drives the external build-configuration driver and build
// tool for source dists: it writes the variable cache, configures the build
// tree and runs the build, yielding a populated install prefix.
package build

import (
	"context"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/xerrors"

	"github.com/luadist/dist/internal/config"
	"github.com/luadist/dist/internal/sysfs"
)

// Ctx is a build context, containing configuration and state.
type Ctx struct {
	Cfg *config.Config
}

// cacheFileName is the variable cache handed to the build driver.
const cacheFileName = "cache.cmake"

// Variables returns the variable map for one build: the configuration's base
// variables shallow-merged with the caller's, then overridden with the
// install prefix and the deployment's include and library paths.
func (b *Ctx) Variables(installPrefix string, extra map[string]string) map[string]string {
	vars := make(map[string]string, len(b.Cfg.Variables)+len(extra)+3)
	for k, v := range b.Cfg.Variables {
		vars[k] = v
	}
	for k, v := range extra {
		vars[k] = v
	}
	vars["CMAKE_INSTALL_PREFIX"] = installPrefix
	vars["CMAKE_INCLUDE_PATH"] = filepath.Join(b.Cfg.Root, "include")
	vars["CMAKE_LIBRARY_PATH"] = filepath.Join(b.Cfg.Root, "lib") + ";" + filepath.Join(b.Cfg.Root, "bin")
	return vars
}

// WriteCache writes the build driver cache file into buildDir: one
// SET(<key> "<value>" CACHE STRING "" FORCE) line per variable, in sorted
// order so rebuilds see identical input.
func WriteCache(buildDir string, vars map[string]string) error {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString("SET(" + k + " \"" + strings.ReplaceAll(vars[k], `"`, `\"`) + "\" CACHE STRING \"\" FORCE)\n")
	}
	return os.WriteFile(filepath.Join(buildDir, cacheFileName), []byte(sb.String()), 0644)
}

func (b *Ctx) driverCommand() []string {
	if b.Cfg.Debug && b.Cfg.DebugCMake != "" {
		return strings.Fields(b.Cfg.DebugCMake)
	}
	return strings.Fields(b.Cfg.CMake)
}

func (b *Ctx) toolCommand() []string {
	if b.Cfg.Debug && b.Cfg.DebugMake != "" {
		return strings.Fields(b.Cfg.DebugMake)
	}
	return strings.Fields(b.Cfg.Make)
}

func run(ctx context.Context, dir string, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	log.Printf("running %s in %s", commandLine(argv), sysfs.Quote(dir))
	if err := cmd.Run(); err != nil {
		return xerrors.Errorf("%s: %w", commandLine(argv), err)
	}
	return nil
}

// commandLine renders argv the way a user could paste it into a shell.
func commandLine(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		if strings.ContainsAny(a, " \t\"'") {
			quoted[i] = sysfs.Quote(a)
		} else {
			quoted[i] = a
		}
	}
	return strings.Join(quoted, " ")
}

// Build configures and builds the source tree at srcDir and returns the
// install prefix the build populated. The build directory is removed on
// success unless debug mode keeps scratch state; the prefix is the caller's
// to consume and remove.
func (b *Ctx) Build(ctx context.Context, srcDir string, extra map[string]string) (string, error) {
	buildDir, err := sysfs.TempDir(b.Cfg.TempDir, "build-")
	if err != nil {
		return "", err
	}
	prefix, err := sysfs.TempDir(b.Cfg.TempDir, "prefix-")
	if err != nil {
		return "", err
	}
	if err := WriteCache(buildDir, b.Variables(prefix, extra)); err != nil {
		return "", err
	}
	absSrc, err := filepath.Abs(srcDir)
	if err != nil {
		return "", err
	}
	driver := append(b.driverCommand(), "-C", cacheFileName, absSrc)
	if err := run(ctx, buildDir, driver); err != nil {
		return "", xerrors.Errorf("configuring %s: %w", absSrc, err)
	}
	if err := run(ctx, buildDir, b.toolCommand()); err != nil {
		return "", xerrors.Errorf("building %s: %w", absSrc, err)
	}
	if !b.Cfg.Debug {
		sysfs.Delete(buildDir)
	}
	return prefix, nil
}
