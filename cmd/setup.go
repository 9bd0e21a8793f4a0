package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ndx/internal/shared"
	"github.com/desertthunder/ndx/internal/ui"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded configuration template to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("%s Configuration written to %s\n", ui.Styles().Mark(true), path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Fill in credentials.spotify and credentials.navidrome (or set NDX_* variables in .env)\n")
	r.writePlain("2. Run 'ndx setup database'\n")
	r.writePlain("3. Run 'ndx navidrome ping' to check the server connection\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
//
// With --status it lists migrations instead, and with --rollback it reverts the latest one.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.config
	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	switch {
	case cmd.Bool("rollback"):
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		r.writePlain("%s Rolled back the latest migration\n", ui.Styles().Mark(true))
		return nil
	case cmd.Bool("status"):
		statuses, err := shared.MigrationStatuses(db)
		if err != nil {
			return err
		}
		t := ui.NewTable(r.output, "Version", "Name", "Applied")
		for _, s := range statuses {
			t.AppendRow(table.Row{s.Version, s.Name, ui.Styles().Mark(s.Applied)})
		}
		t.Render()
		return nil
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("%s Database ready at %s\n", ui.Styles().Mark(true), config.Database.Path)
	return nil
}
