// Package cli provides the shelfsync command line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/shelfsync/internal/config"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driving"
	"github.com/custodia-labs/shelfsync/internal/logger"
)

// annotationConfigOnly marks commands that run with only the settings
// store, so a broken configuration can still be inspected and fixed.
const annotationConfigOnly = "config-only"

// Options are the global flags handed to the bootstrap function.
type Options struct {
	Verbose bool
	EnvFile string
	DataDir string
	Memory  bool

	// ConfigOnly asks for the settings store alone.
	ConfigOnly bool
}

// Services are the ports commands call.
type Services struct {
	Reconcile   driving.ReconcileService
	Records     driving.RecordService
	Scheduler   driving.Scheduler
	ConfigStore driven.ConfigStore
	Config      *config.Config
}

// Bootstrap builds the services for one invocation. The returned cleanup
// runs after the command finishes.
type Bootstrap func(ctx context.Context, opts Options) (*Services, func(), error)

var (
	version   = "dev"
	bootstrap Bootstrap
	cleanup   func()

	reconcileService driving.ReconcileService
	recordService    driving.RecordService
	scheduler        driving.Scheduler
	configStore      driven.ConfigStore
	runtimeConfig    *config.Config

	opts Options
)

var rootCmd = &cobra.Command{
	Use:   "shelfsync",
	Short: "Reconcile your reading across services",
	Long: `shelfsync pulls articles, highlights, books and notes from your reading
services into one local library, matches them against records you already
have and merges duplicates.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Print progress and debug output")
	flags.StringVar(&opts.EnvFile, "env", "", "Load environment variables from this .env file")
	flags.StringVar(&opts.DataDir, "data-dir", "", "Directory holding settings and the database (default ~/.shelfsync)")
	flags.BoolVar(&opts.Memory, "memory", false, "Keep records in memory only (dry run)")
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)
	if bootstrap == nil {
		return nil
	}

	o := opts
	o.ConfigOnly = cmd.Annotations[annotationConfigOnly] == "true"
	svc, done, err := bootstrap(cmd.Context(), o)
	if err != nil {
		return err
	}
	cleanup = done
	reconcileService = svc.Reconcile
	recordService = svc.Records
	scheduler = svc.Scheduler
	configStore = svc.ConfigStore
	runtimeConfig = svc.Config
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
	return nil
}

// Execute runs the command line with the given bootstrap and version.
func Execute(ctx context.Context, b Bootstrap, v string) error {
	if b == nil {
		return errors.New("no bootstrap configured")
	}
	bootstrap = b
	if v != "" {
		version = v
	}
	return rootCmd.ExecuteContext(ctx)
}
