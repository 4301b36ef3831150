package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/oshokin/gtk-bootstrap/internal/config"
	"github.com/oshokin/gtk-bootstrap/internal/domain/provision"
	"github.com/oshokin/gtk-bootstrap/internal/logger"
	"github.com/oshokin/gtk-bootstrap/internal/service/envpath"
	"github.com/oshokin/gtk-bootstrap/internal/service/fetch"
	"github.com/oshokin/gtk-bootstrap/internal/service/installer"
	"github.com/oshokin/gtk-bootstrap/internal/service/presence"
	"github.com/oshokin/gtk-bootstrap/internal/service/readiness"
	"github.com/oshokin/gtk-bootstrap/internal/system"
)

// Dependencies are the collaborators a Pipeline drives.
type Dependencies struct {
	// System is the filesystem, environment and process abstraction.
	System system.System
	// Presence gates downloads and installs.
	Presence *presence.Checker
	// Fetcher downloads installers.
	Fetcher *fetch.Fetcher
	// Runner launches installers and shell commands.
	Runner *installer.Runner
	// Path persists the toolchain bin directory.
	Path *envpath.Updater
	// Sleep overrides the pause between readiness checks; nil sleeps for real.
	Sleep readiness.SleepFunc
	// Now returns the current time; nil means time.Now.
	Now func() time.Time
}

// Pipeline is one configured bootstrap run.
type Pipeline struct {
	// cfg holds paths, URLs, arguments and the recipe.
	cfg *config.Config
	// deps are the injected collaborators.
	deps *Dependencies
}

// stepFunc performs one step and returns how it ended.
type stepFunc func(ctx context.Context) (provision.StepStatus, string, error)

// NewPipeline creates a Pipeline over a validated configuration.
func NewPipeline(cfg *config.Config, deps *Dependencies) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Pipeline{
		cfg:  cfg,
		deps: deps,
	}
}

// Run executes every step in order and returns the journal of the run.
// The returned error is a *provision.StepError naming the failed step.
func (p *Pipeline) Run(ctx context.Context) (*provision.Journal, error) {
	journal := &provision.Journal{
		StartedAt: p.deps.Now(),
		Recipe:    p.cfg.Recipe.Name,
	}

	err := p.run(ctx, journal)

	journal.FinishedAt = p.deps.Now()
	journal.Succeeded = err == nil

	return journal, err
}

func (p *Pipeline) run(ctx context.Context, journal *provision.Journal) error {
	if err := p.step(ctx, journal, provision.StepRuntime, p.ensureRuntime); err != nil {
		return err
	}

	if err := p.ensureToolchain(ctx, journal); err != nil {
		return err
	}

	shell := p.cfg.ShellExecutable()

	for _, shellStep := range p.cfg.Recipe.Steps {
		err := p.step(ctx, journal, shellStep.Name, func(ctx context.Context) (provision.StepStatus, string, error) {
			logger.InfoKV(ctx, "Running package manager step", "step", shellStep.Name, "command", shellStep.Command)

			if err := p.deps.Runner.Shell(ctx, shell, p.cfg.Toolchain.ShellArgs, shellStep.Command); err != nil {
				return provision.StepFailed, "", err
			}

			return provision.StepDone, "", nil
		})
		if err != nil {
			return err
		}
	}

	return p.step(ctx, journal, provision.StepPath, p.updatePath)
}

// step runs fn under name, records the outcome and wraps a failure.
func (p *Pipeline) step(ctx context.Context, journal *provision.Journal, name string, fn stepFunc) error {
	ctx = logger.WithKV(ctx, "step", name)

	status, detail, err := fn(ctx)
	if err != nil {
		journal.Record(name, provision.StepFailed, err.Error())
		logger.ErrorKV(ctx, "Step failed", "error", err)

		return &provision.StepError{
			Step: name,
			Err:  err,
		}
	}

	journal.Record(name, status, detail)

	return nil
}

func (p *Pipeline) ensureRuntime(ctx context.Context) (provision.StepStatus, string, error) {
	runtime := &p.cfg.Runtime

	if p.deps.Presence.RuntimePresent(runtime) {
		logger.InfoKV(ctx, "VC runtime already installed", "dir", p.deps.Presence.SystemDirectory(runtime))
		return provision.StepSkipped, "already installed", nil
	}

	dest := filepath.Join(p.deps.System.TempDir(), runtime.InstallerFilename)

	logger.Info(ctx, "Downloading VC runtime")

	if _, err := p.deps.Fetcher.FetchStatic(ctx, runtime.InstallerURL, dest); err != nil {
		return provision.StepFailed, "", err
	}

	logger.Info(ctx, "Installing VC runtime")

	if err := p.deps.Runner.RunSilent(ctx, dest, runtime.InstallerArgs); err != nil {
		return provision.StepFailed, "", err
	}

	logger.Info(ctx, "VC runtime installed")

	return provision.StepDone, "", nil
}

// ensureToolchain installs MSYS2 when it is missing. Launch, readiness and
// cleanup are recorded as separate steps; none of them runs when the
// toolchain is already present.
func (p *Pipeline) ensureToolchain(ctx context.Context, journal *provision.Journal) error {
	var installerPath string

	err := p.step(ctx, journal, provision.StepToolchain, func(ctx context.Context) (provision.StepStatus, string, error) {
		if p.deps.Presence.ToolchainPresent(p.cfg) {
			logger.InfoKV(ctx, "MSYS2 already installed", "root", p.cfg.Toolchain.Root)
			return provision.StepSkipped, "already installed", nil
		}

		path, err := p.launchToolchainInstaller(ctx)
		if err != nil {
			return provision.StepFailed, "", err
		}

		installerPath = path

		return provision.StepDone, filepath.Base(path), nil
	})
	if err != nil || installerPath == "" {
		return err
	}

	err = p.step(ctx, journal, provision.StepToolchainWait, p.awaitToolchain)
	if err != nil {
		return err
	}

	return p.step(ctx, journal, provision.StepCleanup, func(ctx context.Context) (provision.StepStatus, string, error) {
		status, detail := p.cleanupInstaller(ctx, installerPath)

		return status, detail, nil
	})
}

func (p *Pipeline) launchToolchainInstaller(ctx context.Context) (string, error) {
	cwd, err := p.deps.System.Getwd()
	if err != nil {
		return "", fmt.Errorf("%w: working directory: %w", provision.ErrFileIO, err)
	}

	logger.Info(ctx, "Downloading MSYS2 installer")

	path, err := p.deps.Fetcher.FetchLatestAsset(
		ctx,
		p.cfg.Toolchain.ReleasesAPI,
		p.cfg.Toolchain.Repository,
		p.cfg.AssetFilter(),
		cwd,
	)
	if err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Installing MSYS2", "root", p.cfg.Toolchain.Root)

	if err = p.deps.Runner.Launch(ctx, path, p.cfg.ToolchainInstallerArgs()); err != nil {
		return "", err
	}

	return path, nil
}

func (p *Pipeline) awaitToolchain(ctx context.Context) (provision.StepStatus, string, error) {
	policy := readiness.Policy{
		Interval:    p.cfg.Readiness.Interval,
		MaxAttempts: p.cfg.Readiness.MaxAttempts,
	}

	waiter := readiness.New(policy, readiness.WithSleep(p.deps.Sleep))
	shell := p.cfg.ShellExecutable()

	logger.InfoKV(ctx, "Waiting for MSYS2 to finish installing", "path", shell)

	attempts, err := waiter.Await(ctx, func() bool {
		return p.deps.Presence.Exists(shell)
	})
	if err != nil {
		return provision.StepFailed, "", err
	}

	return provision.StepDone, fmt.Sprintf("ready after %d check(s)", attempts), nil
}

// cleanupInstaller applies the recipe's cleanup policy. A failed removal is
// logged and recorded but never stops the pipeline.
func (p *Pipeline) cleanupInstaller(ctx context.Context, path string) (provision.StepStatus, string) {
	if !p.cfg.Recipe.CleanupInstaller {
		logger.InfoKV(ctx, "Keeping MSYS2 installer", "path", path)
		return provision.StepSkipped, "kept by recipe"
	}

	if err := p.deps.System.Remove(path); err != nil {
		logger.WarnKV(ctx, "Unable to remove MSYS2 installer", "path", path, "error", err)
		return provision.StepFailed, fmt.Sprintf("%v: %v", provision.ErrFileIO, err)
	}

	logger.InfoKV(ctx, "MSYS2 installer removed", "path", path)

	return provision.StepDone, ""
}

func (p *Pipeline) updatePath(ctx context.Context) (provision.StepStatus, string, error) {
	dir := p.cfg.ToolchainBin()

	logger.InfoKV(ctx, "Adding toolchain bin directory to PATH", "dir", dir)

	result, err := p.deps.Path.Ensure(ctx, dir)
	if err != nil {
		return provision.StepFailed, "", err
	}

	if result == envpath.ResultAlreadyPresent {
		return provision.StepSkipped, result.String(), nil
	}

	return provision.StepDone, result.String(), nil
}
