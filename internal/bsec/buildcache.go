package bsec

import (
	"context"
	"crypto/md5" //nolint:gosec // Content fingerprint for rebuild detection, not authentication
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Artifact file names inside the working directory. The child binary
// hardcodes the config and state names, so they must stay in sync with the
// embedded glue source.
const (
	// ExecutableName is the built fusion binary.
	ExecutableName = "bsec-conduit"

	// sidecarSuffix is appended to the executable path for the hash sidecar.
	sidecarSuffix = ".md5"

	// ConfigFileName is the runtime configuration blob the child loads.
	ConfigFileName = "bsec-conduit.config"

	// StateFileName is the calibration-state blob the child owns.
	StateFileName = "bsec-conduit.state"
)

// sourceTreePrefix identifies the unpacked vendor distribution directory.
const sourceTreePrefix = "BSEC_"

// sourceDownloadURL is where operators obtain the vendor distribution.
const sourceDownloadURL = "https://www.bosch-sensortec.com/bst/products/all_products/bsec"

// glueFileMode is the permission mode for the generated glue source.
const glueFileMode = 0644

// CommandRunner executes an external command and returns its combined
// stdout/stderr. It exists so tests can observe and fake compiler
// invocations.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner is the production CommandRunner backed by os/exec.
type ExecRunner struct{}

// Run executes the command and captures combined output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// GlueSource supplies the C integration shim written into the vendor tree
// when absent. Wired to the embedded asset by the glue package.
var GlueSource []byte

// GlueFileName is the shim's file name inside the vendor source tree.
var GlueFileName = "bsec-conduit.c"

// FindSourceTree locates the unpacked vendor distribution under baseDir by
// its BSEC_ name prefix. Absence is fatal: the distribution is proprietary
// and must be downloaded by the operator.
func FindSourceTree(baseDir string) (string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return "", fmt.Errorf("reading base directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), sourceTreePrefix) {
			return filepath.Join(baseDir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("%w: expected a directory named %s* under %s; download and unzip the distribution from %s",
		ErrSourceTreeMissing, sourceTreePrefix, baseDir, sourceDownloadURL)
}

// BuildCache guarantees a correctly-linked fusion executable for one library
// variant, rebuilding only when the executable and its hash sidecar disagree.
type BuildCache struct {
	baseDir  string
	srcDir   string
	compiler string
	runner   CommandRunner
	logger   Logger
}

// NewBuildCache creates a build cache rooted at the working directory
// (baseDir) and the vendor source tree (srcDir).
func NewBuildCache(baseDir, srcDir string) *BuildCache {
	return &BuildCache{
		baseDir:  baseDir,
		srcDir:   srcDir,
		compiler: "cc",
		runner:   ExecRunner{},
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the build cache.
func (b *BuildCache) SetLogger(logger Logger) {
	b.logger = logger
}

// SetRunner replaces the compiler invoker. Used by tests.
func (b *BuildCache) SetRunner(runner CommandRunner) {
	b.runner = runner
}

// Ensure returns the path of a fusion executable matching the current
// vendor sources and the given variant, compiling one if the existing
// executable is missing or its sidecar hash is stale.
func (b *BuildCache) Ensure(ctx context.Context, variant Variant) (string, error) {
	execPath := filepath.Join(b.baseDir, ExecutableName)
	sidecarPath := execPath + sidecarSuffix

	if b.upToDate(execPath, sidecarPath) {
		b.logger.Info("found existing fusion executable, skipping build", "path", execPath)
		return execPath, nil
	}

	if err := b.ensureGlueSource(); err != nil {
		return "", err
	}

	b.logger.Info("building fusion executable",
		"variant", variant.Name,
		"compiler", b.compiler,
		"output", execPath,
	)

	args := b.buildArgs(variant, execPath)
	output, err := b.runner.Run(ctx, b.compiler, args...)
	if err != nil {
		b.logger.Error("compiler invocation failed",
			"compiler", b.compiler,
			"error", err,
			"output", string(output),
		)
		return "", fmt.Errorf("%w: %v\n%s", ErrBuildFailed, err, output)
	}

	hash, err := hashFile(execPath)
	if err != nil {
		return "", fmt.Errorf("hashing built executable: %w", err)
	}
	if err := os.WriteFile(sidecarPath, []byte(hash), glueFileMode); err != nil {
		return "", fmt.Errorf("writing hash sidecar: %w", err)
	}

	b.logger.Info("build complete", "path", execPath, "hash", hash)
	return execPath, nil
}

// upToDate reports whether the executable exists and matches its sidecar.
func (b *BuildCache) upToDate(execPath, sidecarPath string) bool {
	current, err := hashFile(execPath)
	if err != nil {
		b.logger.Warn("fusion executable not found, starting build", "path", execPath)
		return false
	}

	stored, err := os.ReadFile(sidecarPath)
	if err != nil {
		b.logger.Warn("hash sidecar not found, starting build", "path", sidecarPath)
		return false
	}

	if strings.TrimSpace(string(stored)) != current {
		b.logger.Warn("fusion executable and hash sidecar don't match, rebuilding",
			"stored", strings.TrimSpace(string(stored)),
			"current", current,
		)
		return false
	}

	return true
}

// ensureGlueSource writes the embedded integration shim into the vendor
// source tree if it is not already there.
func (b *BuildCache) ensureGlueSource() error {
	gluePath := filepath.Join(b.srcDir, GlueFileName)
	if _, err := os.Stat(gluePath); err == nil {
		return nil
	}

	b.logger.Warn("integration shim not found, writing file", "path", gluePath)
	if err := os.WriteFile(gluePath, GlueSource, glueFileMode); err != nil {
		return fmt.Errorf("writing integration shim: %w", err)
	}
	return nil
}

// buildArgs constructs the full compiler command line for one variant.
// The vendor algorithm library is linked statically together with the math
// and realtime system libraries.
func (b *BuildCache) buildArgs(variant Variant, execPath string) []string {
	libDir := filepath.Join(b.srcDir, variant.LibDir)
	return []string{
		"-Wall",
		"-Wno-unused-but-set-variable",
		"-Wno-unused-variable",
		"-static",
		"-iquote" + filepath.Join(b.srcDir, "API"),
		"-iquote" + libDir,
		"-iquote" + filepath.Join(b.srcDir, "examples"),
		filepath.Join(b.srcDir, "API", "bme680.c"),
		filepath.Join(b.srcDir, "examples", "bsec_integration.c"),
		filepath.Join(b.srcDir, GlueFileName),
		"-L" + libDir,
		"-lalgobsec",
		"-lm",
		"-lrt",
		"-o", execPath,
	}
}

// hashFile returns the lowercase hex MD5 digest of a file's contents.
func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data) //nolint:gosec // See field comment: fingerprint, not auth
	return hex.EncodeToString(sum[:]), nil
}
