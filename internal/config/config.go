package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/gtk-bootstrap/internal/domain/provision"
)

// Config holds every constant the bootstrap pipeline depends on.
type Config struct {
	// Runtime describes the native runtime redistributable.
	Runtime RuntimeConfig `yaml:"runtime"`
	// Toolchain describes the MSYS2 distribution and its installer.
	Toolchain ToolchainConfig `yaml:"toolchain"`
	// Readiness is the polling policy used after the toolchain installer returns.
	Readiness ReadinessConfig `yaml:"readiness"`
	// Path describes how the toolchain bin directory is persisted.
	Path PathConfig `yaml:"path"`
	// Recipe lists the package-manager steps and the cleanup policy.
	Recipe provision.Recipe `yaml:"recipe"`
	// UserAgent is sent with every HTTP request; the releases API rejects requests without one.
	UserAgent string `yaml:"user_agent"`
	// JournalFile is where the outcome of the last run is stored.
	JournalFile string `yaml:"journal_file"`
	// ExitDelay keeps the console open after a successful run.
	ExitDelay time.Duration `yaml:"exit_delay"`
}

// RuntimeConfig describes the Visual C++ runtime dependency.
type RuntimeConfig struct {
	// SystemRootEnv names the variable holding the OS root directory.
	SystemRootEnv string `yaml:"system_root_env"`
	// FallbackSystemRoot is used when SystemRootEnv is unset or empty.
	FallbackSystemRoot string `yaml:"fallback_system_root"`
	// LibrarySubdir is the system library directory under the OS root.
	LibrarySubdir string `yaml:"library_subdir"`
	// Libraries are the files whose presence means the runtime is installed.
	Libraries []string `yaml:"libraries"`
	// InstallerURL is the static download location of the redistributable.
	InstallerURL string `yaml:"installer_url"`
	// InstallerFilename is the name used inside the temporary directory.
	InstallerFilename string `yaml:"installer_filename"`
	// InstallerArgs makes the redistributable install silently.
	InstallerArgs []string `yaml:"installer_args"`
}

// ToolchainConfig describes the MSYS2 distribution.
type ToolchainConfig struct {
	// Root is the installation root directory.
	Root string `yaml:"root"`
	// ShellPath is the interpreter location relative to Root, slash separated.
	ShellPath string `yaml:"shell_path"`
	// ShellArgs precede the command string when invoking the interpreter.
	ShellArgs []string `yaml:"shell_args"`
	// BinDir is the directory added to PATH, relative to Root, slash separated.
	BinDir string `yaml:"bin_dir"`
	// ReleasesAPI is the base URL of the release-metadata API.
	ReleasesAPI string `yaml:"releases_api"`
	// Repository is the owner/name of the installer repository.
	Repository string `yaml:"repository"`
	// ArchMarker must appear in the selected asset name.
	ArchMarker string `yaml:"arch_marker"`
	// ExecutableSuffix must end the selected asset name.
	ExecutableSuffix string `yaml:"executable_suffix"`
	// ExcludedSuffix must not end the selected asset name.
	ExcludedSuffix string `yaml:"excluded_suffix"`
	// InstallerArgs are passed before "--root <Root>".
	InstallerArgs []string `yaml:"installer_args"`
}

// ReadinessConfig is the polling policy for the asynchronous toolchain install.
type ReadinessConfig struct {
	// Interval is the pause after each failed check.
	Interval time.Duration `yaml:"interval"`
	// MaxAttempts is the number of checks before giving up.
	MaxAttempts int `yaml:"max_attempts"`
}

// PathConfig describes persistent PATH handling.
type PathConfig struct {
	// Variable is the environment variable to extend.
	Variable string `yaml:"variable"`
	// Separator joins PATH entries.
	Separator string `yaml:"separator"`
	// Persistence selects the store: "setx" or "registry".
	Persistence string `yaml:"persistence"`
	// SetxExecutable is the persistence utility used by the setx store.
	SetxExecutable string `yaml:"setx_executable"`
}

// Persistence stores.
const (
	PersistenceSetx     = "setx"
	PersistenceRegistry = "registry"
)

const (
	// DefaultJournalFilename is the default filename for the run journal.
	DefaultJournalFilename = "gtk-bootstrap-journal.json"

	// DefaultLockFilename marks the running bootstrap inside the temporary directory.
	DefaultLockFilename = "gtk-bootstrap.lock"

	// DefaultUserAgent identifies the bootstrapper to remote APIs.
	DefaultUserAgent = "gtk-bootstrap"

	// DefaultReadinessInterval is the pause after a failed readiness check.
	DefaultReadinessInterval = 2 * time.Second

	// DefaultReadinessAttempts is the number of readiness checks.
	DefaultReadinessAttempts = 30

	// DefaultExitDelay keeps the console window open after success.
	DefaultExitDelay = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errFieldRequired is returned when a mandatory field is empty.
	errFieldRequired = errors.New("field must be provided")
	// errInvalidRepository is returned when the repository is not owner/name.
	errInvalidRepository = errors.New("repository must look like owner/name")
	// errUnknownPersistence is returned for an unsupported PATH store.
	errUnknownPersistence = errors.New("unknown path persistence")
	// errInvalidRecipe is returned when a recipe step is malformed.
	errInvalidRecipe = errors.New("invalid recipe")
)

// Default returns the built-in configuration for a Windows x64 machine.
func Default() *Config {
	recipe, _ := LookupRecipe(DefaultRecipe)

	return &Config{
		Runtime: RuntimeConfig{
			SystemRootEnv:      "SystemRoot",
			FallbackSystemRoot: `C:\Windows`,
			LibrarySubdir:      "System32",
			Libraries:          []string{"vcruntime140.dll", "msvcp140.dll", "vcruntime140_1.dll"},
			InstallerURL:       "https://aka.ms/vs/17/release/vc_redist.x64.exe",
			InstallerFilename:  "vc_redist.x64.exe",
			InstallerArgs:      []string{"/quiet", "/norestart"},
		},
		Toolchain: ToolchainConfig{
			Root:             `C:\msys64`,
			ShellPath:        "usr/bin/bash.exe",
			ShellArgs:        []string{"-lc"},
			BinDir:           "ucrt64/bin",
			ReleasesAPI:      "https://api.github.com",
			Repository:       "msys2/msys2-installer",
			ArchMarker:       "x86_64",
			ExecutableSuffix: ".exe",
			ExcludedSuffix:   "sfx.exe",
			InstallerArgs:    []string{"in", "--confirm-command", "--accept-messages"},
		},
		Readiness: ReadinessConfig{
			Interval:    DefaultReadinessInterval,
			MaxAttempts: DefaultReadinessAttempts,
		},
		Path: PathConfig{
			Variable:       "PATH",
			Separator:      string(os.PathListSeparator),
			Persistence:    PersistenceSetx,
			SetxExecutable: "setx",
		},
		Recipe:      *recipe,
		UserAgent:   DefaultUserAgent,
		JournalFile: DefaultJournalFilename,
		ExitDelay:   DefaultExitDelay,
	}
}

// Load returns Default overlaid with the YAML file at path.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		contents, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}

		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills zero-valued tunables with defaults.
//
//nolint:cyclop // A flat list of field checks reads better than a table here.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	required := map[string]string{
		"runtime.installer_url":       cfg.Runtime.InstallerURL,
		"runtime.installer_filename":  cfg.Runtime.InstallerFilename,
		"toolchain.root":              cfg.Toolchain.Root,
		"toolchain.shell_path":        cfg.Toolchain.ShellPath,
		"toolchain.bin_dir":           cfg.Toolchain.BinDir,
		"toolchain.releases_api":      cfg.Toolchain.ReleasesAPI,
		"toolchain.arch_marker":       cfg.Toolchain.ArchMarker,
		"toolchain.executable_suffix": cfg.Toolchain.ExecutableSuffix,
		"path.variable":               cfg.Path.Variable,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s: %w", field, errFieldRequired)
		}
	}

	if len(cfg.Runtime.Libraries) == 0 {
		return fmt.Errorf("runtime.libraries: %w", errFieldRequired)
	}

	for field, raw := range map[string]string{
		"runtime.installer_url":  cfg.Runtime.InstallerURL,
		"toolchain.releases_api": cfg.Toolchain.ReleasesAPI,
	} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", field, err)
		}
	}

	if owner, name, ok := strings.Cut(cfg.Toolchain.Repository, "/"); !ok || owner == "" || name == "" {
		return fmt.Errorf("%q: %w", cfg.Toolchain.Repository, errInvalidRepository)
	}

	if cfg.Readiness.Interval <= 0 {
		cfg.Readiness.Interval = DefaultReadinessInterval
	}

	if cfg.Readiness.MaxAttempts <= 0 {
		cfg.Readiness.MaxAttempts = DefaultReadinessAttempts
	}

	if cfg.Path.Separator == "" {
		cfg.Path.Separator = string(os.PathListSeparator)
	}

	switch cfg.Path.Persistence {
	case "":
		cfg.Path.Persistence = PersistenceSetx
	case PersistenceSetx, PersistenceRegistry:
	default:
		return fmt.Errorf("%q: %w", cfg.Path.Persistence, errUnknownPersistence)
	}

	if cfg.Path.Persistence == PersistenceSetx && cfg.Path.SetxExecutable == "" {
		cfg.Path.SetxExecutable = "setx"
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	if cfg.JournalFile == "" {
		cfg.JournalFile = DefaultJournalFilename
	}

	if cfg.ExitDelay < 0 {
		cfg.ExitDelay = 0
	}

	return validateRecipe(&cfg.Recipe)
}

// ShellExecutable returns the absolute interpreter path.
func (c *Config) ShellExecutable() string {
	return filepath.Join(c.Toolchain.Root, filepath.FromSlash(c.Toolchain.ShellPath))
}

// ToolchainBin returns the absolute directory added to PATH.
func (c *Config) ToolchainBin() string {
	return filepath.Join(c.Toolchain.Root, filepath.FromSlash(c.Toolchain.BinDir))
}

// ToolchainInstallerArgs returns the installer arguments including the root.
func (c *Config) ToolchainInstallerArgs() []string {
	args := append([]string(nil), c.Toolchain.InstallerArgs...)

	return append(args, "--root", filepath.ToSlash(c.Toolchain.Root))
}

// AssetFilter returns the release asset selection predicate.
func (c *Config) AssetFilter() provision.AssetFilter {
	return provision.AssetFilter{
		Contains:      c.Toolchain.ArchMarker,
		Suffix:        c.Toolchain.ExecutableSuffix,
		ExcludeSuffix: c.Toolchain.ExcludedSuffix,
	}
}

func validateRecipe(recipe *provision.Recipe) error {
	if strings.TrimSpace(recipe.Name) == "" {
		return fmt.Errorf("%w: name is empty", errInvalidRecipe)
	}

	seen := make(map[string]struct{}, len(recipe.Steps))
	for i, step := range recipe.Steps {
		if strings.TrimSpace(step.Name) == "" || strings.TrimSpace(step.Command) == "" {
			return fmt.Errorf("%w: step %d needs a name and a command", errInvalidRecipe, i+1)
		}

		if _, dup := seen[step.Name]; dup {
			return fmt.Errorf("%w: duplicate step %q", errInvalidRecipe, step.Name)
		}

		seen[step.Name] = struct{}{}
	}

	return nil
}
