package bootstrap

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gtk-bootstrap/internal/config"
	"github.com/oshokin/gtk-bootstrap/internal/domain/provision"
	"github.com/oshokin/gtk-bootstrap/internal/service/envpath"
	"github.com/oshokin/gtk-bootstrap/internal/service/fetch"
	"github.com/oshokin/gtk-bootstrap/internal/service/installer"
	"github.com/oshokin/gtk-bootstrap/internal/service/presence"
	"github.com/oshokin/gtk-bootstrap/internal/system"
	"github.com/oshokin/gtk-bootstrap/internal/system/systemtest"
)

const (
	testRoot          = "/msys64"
	testSystemRoot    = "/windows"
	testCwd           = "/work"
	testTempDir       = "/tmp"
	testInstallerName = "msys2-x86_64-20240101.exe"
)

var (
	testShell        = filepath.Join(testRoot, "usr", "bin", "bash.exe")
	testRuntimeDLL   = filepath.Join(testSystemRoot, "System32", "vcruntime140.dll")
	testInstaller    = filepath.Join(testCwd, testInstallerName)
	testRedist       = filepath.Join(testTempDir, "vc_redist.x64.exe")
	testToolchainBin = filepath.Join(testRoot, "ucrt64", "bin")
)

// harness wires a pipeline to an in-memory system and a fake release server.
type harness struct {
	fake      *systemtest.Fake
	store     *envpath.MemoryStore
	cfg       *config.Config
	downloads atomic.Int32
	sleeps    atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		fake:  systemtest.New(testCwd, testTempDir),
		store: envpath.NewMemoryStore(`C:\Windows`),
	}

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/repos/msys2/msys2-installer/releases/latest", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name":"2024-01-01","assets":[` +
			`{"name":"msys2-x86_64-20240101.sfx.exe","browser_download_url":"` + server.URL + `/download/sfx"},` +
			`{"name":"` + testInstallerName + `","browser_download_url":"` + server.URL + `/download/installer"}]}`))
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, _ *http.Request) {
		h.downloads.Add(1)
		_, _ = w.Write([]byte("installer"))
	})
	mux.HandleFunc("/vc_redist.x64.exe", func(w http.ResponseWriter, _ *http.Request) {
		h.downloads.Add(1)
		_, _ = w.Write([]byte("redist"))
	})

	cfg := config.Default()
	cfg.Runtime.FallbackSystemRoot = testSystemRoot
	cfg.Runtime.InstallerURL = server.URL + "/vc_redist.x64.exe"
	cfg.Toolchain.Root = testRoot
	cfg.Toolchain.ReleasesAPI = server.URL
	cfg.Path.Separator = ";"
	require.NoError(t, config.Validate(cfg))

	h.cfg = cfg

	// Installers "install" by creating the files their presence checks look for.
	h.fake.RunFunc = func(_ context.Context, cmd *system.Command) (int, error) {
		switch cmd.Path {
		case testRedist:
			h.fake.AddFile(testRuntimeDLL, nil)
		case testInstaller:
			h.fake.AddFile(testShell, nil)
		}

		return 0, nil
	}

	return h
}

func (h *harness) pipeline() *Pipeline {
	return NewPipeline(h.cfg, &Dependencies{
		System:   h.fake,
		Presence: presence.New(h.fake),
		Fetcher:  fetch.New(h.fake),
		Runner:   installer.New(h.fake, installer.WithOutput(io.Discard, io.Discard)),
		Path:     envpath.New(h.store, h.cfg.Path.Separator),
		Sleep: func(_ context.Context, _ time.Duration) error {
			h.sleeps.Add(1)
			return nil
		},
	})
}

// shellCommands returns the command strings passed to the interpreter.
func (h *harness) shellCommands() []string {
	var commands []string

	for _, cmd := range h.fake.Commands() {
		if cmd.Path == testShell {
			commands = append(commands, cmd.Args[len(cmd.Args)-1])
		}
	}

	return commands
}

// vanishingSystem hides a path after it has been seen a number of times.
type vanishingSystem struct {
	*systemtest.Fake

	hide  string
	after int32
	seen  atomic.Int32
}

func (s *vanishingSystem) Stat(name string) (os.FileInfo, error) {
	if name == s.hide && s.seen.Add(1) > s.after {
		return nil, os.ErrNotExist
	}

	return s.Fake.Stat(name)
}

func statuses(journal *provision.Journal) map[string]provision.StepStatus {
	result := make(map[string]provision.StepStatus, len(journal.Steps))
	for _, step := range journal.Steps {
		result[step.Name] = step.Status
	}

	return result
}

// TestPipeline_AllPresent runs only the recipe steps and the PATH update.
func TestPipeline_AllPresent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fake.AddFile(testRuntimeDLL, nil)
	h.fake.AddFile(testShell, nil)

	journal, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	require.True(t, journal.Succeeded)
	require.Equal(t, "full", journal.Recipe)

	require.Zero(t, h.downloads.Load())
	require.Equal(t, []string{
		"pacman -Syu --noconfirm",
		"pacman -S --noconfirm mingw-w64-ucrt-x86_64-gtk4 mingw-w64-ucrt-x86_64-glade " +
			"mingw-w64-ucrt-x86_64-toolchain mingw-w64-ucrt-x86_64-pkg-config",
	}, h.shellCommands())
	require.Len(t, h.fake.Commands(), 2)

	for _, cmd := range h.fake.Commands() {
		require.Equal(t, "-lc", cmd.Args[0])
	}

	require.Equal(t, map[string]provision.StepStatus{
		provision.StepRuntime:   provision.StepSkipped,
		provision.StepToolchain: provision.StepSkipped,
		"update-msys2":          provision.StepDone,
		"install-gtk4":          provision.StepDone,
		provision.StepPath:      provision.StepDone,
	}, statuses(journal))

	value, err := h.store.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, `C:\Windows;`+testToolchainBin, value)
}

// TestPipeline_FullInstallThenIdempotentRerun installs everything once and
// then finds nothing left to do.
func TestPipeline_FullInstallThenIdempotentRerun(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	journal, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	require.True(t, journal.Succeeded)

	// Redistributable and the selected installer, never the sfx variant.
	require.Equal(t, int32(2), h.downloads.Load())
	require.Zero(t, h.sleeps.Load())

	commands := h.fake.Commands()
	require.Len(t, commands, 4)
	require.Equal(t, testRedist, commands[0].Path)
	require.Equal(t, []string{"/quiet", "/norestart"}, commands[0].Args)
	require.Equal(t, testInstaller, commands[1].Path)
	require.Equal(t, []string{"in", "--confirm-command", "--accept-messages", "--root", testRoot}, commands[1].Args)

	_, kept := h.fake.File(testInstaller)
	require.False(t, kept, "full recipe removes the installer")

	_, kept = h.fake.File(testRedist)
	require.True(t, kept, "the redistributable stays for reuse")

	require.Equal(t, provision.StepDone, statuses(journal)[provision.StepToolchainWait])
	require.Equal(t, provision.StepDone, statuses(journal)[provision.StepCleanup])

	// Second run: presence checks pass, nothing is downloaded or installed.
	journal, err = h.pipeline().Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), h.downloads.Load())
	require.Len(t, h.fake.Commands(), 6)
	require.Len(t, h.shellCommands(), 4)

	require.Equal(t, provision.StepSkipped, statuses(journal)[provision.StepRuntime])
	require.Equal(t, provision.StepSkipped, statuses(journal)[provision.StepToolchain])
	require.Equal(t, provision.StepSkipped, statuses(journal)[provision.StepPath])
	require.Equal(t, 1, h.store.Writes())
}

// TestPipeline_MinimalRecipeKeepsInstaller applies the other cleanup policy.
func TestPipeline_MinimalRecipeKeepsInstaller(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	require.NoError(t, h.cfg.ApplyRecipe("minimal"))
	h.fake.AddFile(testRuntimeDLL, nil)

	journal, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "minimal", journal.Recipe)

	_, kept := h.fake.File(testInstaller)
	require.True(t, kept)
	require.Equal(t, provision.StepSkipped, statuses(journal)[provision.StepCleanup])
	require.Equal(t, "pacman -Sy --noconfirm", h.shellCommands()[0])
}

// TestPipeline_CleanupFailureIsNotFatal logs the failed removal and continues.
func TestPipeline_CleanupFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fake.AddFile(testRuntimeDLL, nil)
	h.fake.RemoveErr = errors.New("file in use")

	journal, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	require.True(t, journal.Succeeded)
	require.Equal(t, provision.StepFailed, statuses(journal)[provision.StepCleanup])
	require.Equal(t, provision.StepDone, statuses(journal)[provision.StepPath])
}

// TestPipeline_ReadinessTimeoutIsFatal exhausts the polling budget.
func TestPipeline_ReadinessTimeoutIsFatal(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fake.AddFile(testRuntimeDLL, nil)
	h.fake.RunFunc = func(_ context.Context, _ *system.Command) (int, error) {
		return 0, nil
	}

	journal, err := h.pipeline().Run(context.Background())
	require.ErrorIs(t, err, provision.ErrReadinessTimeout)
	require.True(t, provision.IsFatal(err))
	require.False(t, journal.Succeeded)

	step, ok := provision.FailedStep(err)
	require.True(t, ok)
	require.Equal(t, provision.StepToolchainWait, step)

	require.Equal(t, int32(h.cfg.Readiness.MaxAttempts), h.sleeps.Load())
	require.Empty(t, h.shellCommands())
	require.Zero(t, h.store.Writes())

	_, cleanupRan := journal.Status(provision.StepCleanup)
	require.False(t, cleanupRan)
}

// TestPipeline_RuntimeInstallFailureStopsPipeline embeds the exit code and runs nothing else.
func TestPipeline_RuntimeInstallFailureStopsPipeline(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fake.RunFunc = func(_ context.Context, _ *system.Command) (int, error) {
		return 1638, nil
	}

	journal, err := h.pipeline().Run(context.Background())
	require.False(t, provision.IsFatal(err))

	var exitErr *provision.ProcessExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 1638, exitErr.ExitCode)

	step, ok := provision.FailedStep(err)
	require.True(t, ok)
	require.Equal(t, provision.StepRuntime, step)

	require.Len(t, h.fake.Commands(), 1)
	require.Len(t, journal.Steps, 1)
	require.Equal(t, int32(1), h.downloads.Load())
}

// TestPipeline_NoMatchingAsset fails the toolchain step without downloading.
func TestPipeline_NoMatchingAsset(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fake.AddFile(testRuntimeDLL, nil)
	h.cfg.Toolchain.ArchMarker = "aarch64"

	_, err := h.pipeline().Run(context.Background())
	require.ErrorIs(t, err, provision.ErrNoMatchingAsset)

	step, _ := provision.FailedStep(err)
	require.Equal(t, provision.StepToolchain, step)
	require.Zero(t, h.downloads.Load())
	require.Empty(t, h.fake.Commands())
}

// TestPipeline_MissingInterpreter names the shell step and spawns nothing.
func TestPipeline_MissingInterpreter(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fake.AddFile(testRuntimeDLL, nil)
	h.fake.AddFile(testShell, nil)

	// Present for the toolchain check, gone when the first step runs.
	sys := &vanishingSystem{Fake: h.fake, hide: testShell, after: 1}

	pipeline := NewPipeline(h.cfg, &Dependencies{
		System:   sys,
		Presence: presence.New(sys),
		Fetcher:  fetch.New(sys),
		Runner:   installer.New(sys),
		Path:     envpath.New(h.store, h.cfg.Path.Separator),
	})

	journal, err := pipeline.Run(context.Background())
	require.ErrorIs(t, err, provision.ErrProcessLaunch)
	require.Contains(t, err.Error(), "update-msys2")

	step, ok := provision.FailedStep(err)
	require.True(t, ok)
	require.Equal(t, "update-msys2", step)

	require.Empty(t, h.fake.Commands())
	require.Zero(t, h.store.Writes())
	require.Equal(t, provision.StepFailed, statuses(journal)["update-msys2"])

	_, pathRan := journal.Status(provision.StepPath)
	require.False(t, pathRan)
}
