// Package cli implements flarectl, the command-line front end of the flare
// risk pipeline.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/flare-risk-server/internal/service"
	"github.com/flare-risk-server/internal/symptomlog"
)

// Migrator applies the PostgreSQL schema.
type Migrator interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
	Version() (uint, bool, error)
	Close() error
}

// App holds the services used by CLI commands. Store and OpenMigrator may be
// nil when the configuration does not provide them. OpenMigrator receives the
// --path flag of the migrate command, empty when unset.
type App struct {
	Predictor    *service.Predictor
	Recorder     *service.Recorder
	Store        symptomlog.Store
	OpenMigrator func(path string) (Migrator, error)
}

var errNoStore = errors.New("the configured symptom log sink cannot be queried; use the sqlite or postgres sink")

// NewRootCmd creates the top-level "flarectl" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "flarectl",
		Short:         "IBS flare-up risk scoring and symptom log",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newPredictCmd(app),
		newSeveritiesCmd(),
		newTriggersCmd(app),
		newLogCmd(app),
		newMigrateCmd(app),
		newSetupCmd(),
	)

	return root
}
