package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuentas-dev/cuentas/internal/importer"
)

func newTemplateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "template <out.xlsx>",
		Short: "Write a sample statement spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("creating %s: %w", args[0], err)
			}
			if err := importer.WriteTemplate(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", args[0], err)
			}
			printf(cmd, "Wrote %s\n", args[0])
			return nil
		},
	}
}
