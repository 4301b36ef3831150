package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/oshokin/gtk-bootstrap/internal/config"
	"github.com/oshokin/gtk-bootstrap/internal/domain/provision"
	"github.com/oshokin/gtk-bootstrap/internal/logger"
	"github.com/oshokin/gtk-bootstrap/internal/repository/journal"
	"github.com/oshokin/gtk-bootstrap/internal/service/common"
	"github.com/oshokin/gtk-bootstrap/internal/service/envpath"
	"github.com/oshokin/gtk-bootstrap/internal/service/fetch"
	"github.com/oshokin/gtk-bootstrap/internal/service/installer"
	"github.com/oshokin/gtk-bootstrap/internal/service/presence"
	"github.com/oshokin/gtk-bootstrap/internal/system"
)

// Options controls a bootstrap run.
type Options struct {
	// ConfigPath is an optional YAML file overlaid onto the defaults.
	ConfigPath string
	// RecipeName selects a built-in recipe; empty keeps the configured one.
	RecipeName string
	// AllowConcurrent skips the instance lock.
	AllowConcurrent bool
}

// Report is what a finished run hands back to the command line.
type Report struct {
	// Journal is the record of the run; nil when the pipeline never started.
	Journal *provision.Journal
	// ExitDelay is how long to keep the console open after success.
	ExitDelay time.Duration
}

// Run loads the configuration, runs the pipeline on the real system and
// stores the journal. A journal that cannot be stored only produces a warning.
func Run(ctx context.Context, opts *Options) (*Report, error) {
	ctx = logger.WithName(ctx, "gtk-bootstrap")

	cfg, err := loadConfig(opts.ConfigPath, opts.RecipeName)
	if err != nil {
		return nil, err
	}

	report := &Report{ExitDelay: cfg.ExitDelay}

	var (
		sys    = system.RealSystem{}
		runner = installer.New(sys)
	)

	if !opts.AllowConcurrent {
		lock, lockErr := common.AcquireInstanceLock(filepath.Join(sys.TempDir(), config.DefaultLockFilename))
		if lockErr != nil {
			return report, lockErr
		}

		defer func() {
			if releaseErr := lock.Release(); releaseErr != nil {
				logger.WarnKV(ctx, "Unable to release instance lock", "error", releaseErr)
			}
		}()
	}

	store, err := newPathStore(cfg, sys, runner)
	if err != nil {
		return report, err
	}

	pipeline := NewPipeline(cfg, &Dependencies{
		System:   sys,
		Presence: presence.New(sys),
		Fetcher:  fetch.New(sys, fetch.WithUserAgent(cfg.UserAgent)),
		Runner:   runner,
		Path:     envpath.New(store, cfg.Path.Separator),
	})

	logger.InfoKV(ctx, "Starting GTK4 environment setup", "recipe", cfg.Recipe.Name)

	runJournal, runErr := pipeline.Run(ctx)
	report.Journal = runJournal

	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect actor", "error", err)
	}

	runJournal.Actor = actor

	repository := journal.NewFileRepository(cfg.JournalFile)
	if err = repository.Save(ctx, runJournal); err != nil {
		logger.WarnKV(ctx, "Unable to save run journal", "path", repository.Path(), "error", err)
	}

	return report, runErr
}

// LastJournal returns the journal written by the previous run.
func LastJournal(ctx context.Context, configPath string) (*provision.Journal, error) {
	cfg, err := loadConfig(configPath, "")
	if err != nil {
		return nil, err
	}

	runJournal, err := journal.NewFileRepository(cfg.JournalFile).Load(ctx)
	if errors.Is(err, journal.ErrNotFound) {
		return nil, fmt.Errorf("no run recorded at %s: %w", cfg.JournalFile, err)
	}

	return runJournal, err
}

func loadConfig(path, recipeName string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if err = cfg.ApplyRecipe(recipeName); err != nil {
		return nil, fmt.Errorf("select recipe: %w", err)
	}

	return cfg, nil
}

// newPathStore builds the persistent PATH store selected by the configuration.
func newPathStore(cfg *config.Config, sys system.System, runner *installer.Runner) (envpath.Store, error) {
	switch cfg.Path.Persistence {
	case config.PersistenceSetx:
		return envpath.NewSetxStore(sys, runner, cfg.Path.SetxExecutable, cfg.Path.Variable), nil
	case config.PersistenceRegistry:
		return envpath.NewRegistryStore(cfg.Path.Variable), nil
	default:
		return nil, fmt.Errorf("unknown path persistence %q", cfg.Path.Persistence)
	}
}
