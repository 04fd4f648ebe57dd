package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuentas-dev/cuentas/internal/buildinfo"
	"github.com/cuentas-dev/cuentas/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:     "cuentas",
		Short:   "Bank statement ingestion and categorization",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.FileName, "path to "+config.FileName)

	cfg := func() string { return cfgPath }
	rootCmd.AddCommand(
		newInitCommand(),
		newServeCommand(cfg),
		newImportCommand(cfg),
		newTemplateCommand(),
		newTransactionsCommand(cfg),
		newExportCommand(cfg),
		newSimilarCommand(cfg),
		newCategoriesCommand(cfg),
		newMCPCommand(cfg),
	)

	return rootCmd
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
