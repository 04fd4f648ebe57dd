package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cuentas-dev/cuentas/internal/importer"
)

func newImportCommand(cfgPath func() string) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Ingest .xls/.xlsx bank statements",
		Long: "Ingest statement spreadsheets. With --dir, every spreadsheet directly\n" +
			"inside the directory is ingested and moved to its processed/ subdirectory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" && len(args) == 0 {
				return errors.New("no files given; pass file paths or --dir")
			}

			e, err := openEnv(cfgPath())
			if err != nil {
				return err
			}
			defer e.Close()

			return runImport(cmd, e, args, dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "import every spreadsheet in this directory")

	return cmd
}

func runImport(cmd *cobra.Command, e *env, files []string, dir string) error {
	ctx := cmd.Context()
	failed := 0

	for _, path := range files {
		if err := importOne(ctx, cmd, e, path); err != nil {
			failed++
		}
	}

	if dir != "" {
		found, err := importer.Scan(dir)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			printf(cmd, "No spreadsheets in %s\n", dir)
		}
		for _, f := range found {
			if err := importOne(ctx, cmd, e, f.Path); err != nil {
				failed++
				continue
			}
			if err := importer.MarkProcessed(dir, f.Name); err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) failed to import", failed)
	}
	return nil
}

func importOne(ctx context.Context, cmd *cobra.Command, e *env, path string) error {
	name := filepath.Base(path)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", name, err)
		return err
	}

	out, err := e.importer.IngestFile(ctx, name, data)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", name, err)
		if out.Inserted > 0 {
			printf(cmd, "%s: %d inserted before the failure\n", name, out.Inserted)
		}
		return err
	}

	printf(cmd, "%s: %d inserted, %d duplicates, %d errors\n", name, out.Inserted, out.Duplicates, out.Errors)
	for _, msg := range out.Messages() {
		printf(cmd, "  %s\n", msg)
	}
	return nil
}
