package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cuentas-dev/cuentas/internal/categories"
	"github.com/cuentas-dev/cuentas/internal/config"
)

func newInitCommand() *cobra.Command {
	var dbPath string
	var noSeed bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a config file, database and default categories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, dbPath, !noSeed)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", config.Default().Database.Path, "database path, relative to the directory")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "do not create the default categories")

	return cmd
}

func runInit(cmd *cobra.Command, dir, dbPath string, seed bool) error {
	if err := os.MkdirAll(filepath.Join(dir, auditDirName), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", auditDirName, err)
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default()
	cfg.Database.Path = dbPath
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	e, err := openEnv(cfgPath)
	if err != nil {
		return err
	}
	defer e.Close()

	created := 0
	if seed {
		res, err := e.categories.Import(context.Background(), categories.Defaults())
		if err != nil {
			return fmt.Errorf("seeding categories: %w", err)
		}
		created = res.Created
	}

	printf(cmd, "Initialized cuentas at %s (%d categories)\n", dir, created)
	return nil
}
