package bsec

import (
	"context"
	"runtime"
)

// ResolveArtifacts prepares everything a supervisor session needs inside
// baseDir: it locates the vendor source tree, selects the library variant for
// the host, builds (or reuses) the fusion executable, installs (or reuses)
// the runtime configuration blob, and guarantees a calibration-state file
// exists. The returned paths feed straight into NewSupervisor.
//
// Resolution is idempotent: a second call against an unchanged directory
// performs no builds and no copies.
func ResolveArtifacts(ctx context.Context, device DeviceConfig, baseDir string, opts ...ResolveOption) (Artifacts, error) {
	cfg := resolveConfig{
		goos:         runtime.GOOS,
		machine:      HostMachine,
		revisionPath: BoardRevisionPath,
		runner:       ExecRunner{},
		logger:       noopLogger{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srcDir, err := FindSourceTree(baseDir)
	if err != nil {
		return Artifacts{}, err
	}

	machine, err := cfg.machine()
	if err != nil {
		return Artifacts{}, err
	}
	variant, err := ResolveVariant(cfg.goos, machine, ReadBoardRevision(cfg.revisionPath))
	if err != nil {
		return Artifacts{}, err
	}
	cfg.logger.Info("selected fusion library variant", "variant", variant.Name, "machine", machine)

	builder := NewBuildCache(baseDir, srcDir)
	builder.SetLogger(cfg.logger)
	builder.SetRunner(cfg.runner)
	execPath, err := builder.Ensure(ctx, variant)
	if err != nil {
		return Artifacts{}, err
	}

	resolver := NewConfigResolver(baseDir, srcDir)
	resolver.SetLogger(cfg.logger)
	configPath, err := resolver.Ensure(device)
	if err != nil {
		return Artifacts{}, err
	}

	store := NewStateStore(baseDir)
	store.SetLogger(cfg.logger)
	statePath, err := store.Ensure()
	if err != nil {
		return Artifacts{}, err
	}

	return Artifacts{
		Executable: execPath,
		Config:     configPath,
		State:      statePath,
	}, nil
}

// resolveConfig carries the injectable pieces of artifact resolution.
type resolveConfig struct {
	goos         string
	machine      func() (string, error)
	revisionPath string
	runner       CommandRunner
	logger       Logger
}

// ResolveOption customises ResolveArtifacts.
type ResolveOption func(*resolveConfig)

// WithLogger attaches a logger to every resolution step.
func WithLogger(logger Logger) ResolveOption {
	return func(c *resolveConfig) { c.logger = logger }
}

// WithRunner replaces the compiler invoker. Used by tests.
func WithRunner(runner CommandRunner) ResolveOption {
	return func(c *resolveConfig) { c.runner = runner }
}

// WithPlatform overrides host detection. Used by tests.
func WithPlatform(goos string, machine func() (string, error), revisionPath string) ResolveOption {
	return func(c *resolveConfig) {
		c.goos = goos
		c.machine = machine
		c.revisionPath = revisionPath
	}
}
