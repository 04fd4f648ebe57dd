package commands

import (
	"github.com/spf13/cobra"

	"github.com/cuentas-dev/cuentas/internal/buildinfo"
	"github.com/cuentas-dev/cuentas/internal/toolserver"
)

func newMCPCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve cuentas tools over JSON-RPC on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cfgPath())
			if err != nil {
				return err
			}
			defer e.Close()

			srv := toolserver.NewServer("cuentas", buildinfo.Version, cmd.OutOrStdout(), e.log)
			toolserver.Register(srv, toolserver.Services{
				Transactions: e.transactions,
				Categories:   e.categories,
				Similarity:   e.similarity,
			})
			e.log.Info().Strs("tools", srv.ToolNames()).Msg("tool server ready")
			return srv.Serve(cmd.Context(), cmd.InOrStdin())
		},
	}
}
