package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cuentas-dev/cuentas/internal/model"
	"github.com/cuentas-dev/cuentas/internal/transactions"
)

func newTransactionsCommand(cfgPath func() string) *cobra.Command {
	var month string
	var categoryID int64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cfgPath())
			if err != nil {
				return err
			}
			defer e.Close()

			txs, err := e.transactions.Query(cmd.Context(), transactions.Filter{Month: month, CategoryID: categoryID})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), txs)
			}
			return writeTransactionTable(cmd.OutOrStdout(), txs)
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "only this month (YYYY-MM)")
	cmd.Flags().Int64Var(&categoryID, "category", 0, "only transactions tagged with this category id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

func newExportCommand(cfgPath func() string) *cobra.Command {
	var month string
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cfgPath())
			if err != nil {
				return err
			}
			defer e.Close()

			txs, err := e.transactions.Query(cmd.Context(), transactions.Filter{Month: month})
			if err != nil {
				return err
			}

			if outPath == "" {
				return transactions.WriteCSV(cmd.OutOrStdout(), txs)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			if err := transactions.WriteCSV(f, txs); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", outPath, err)
			}
			printf(cmd, "Exported %d transactions to %s\n", len(txs), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "only this month (YYYY-MM)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to this file instead of stdout")

	return cmd
}

func writeTransactionTable(w io.Writer, txs []model.Transaction) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tAMOUNT\tBALANCE\tCATEGORIES\t")
	for _, tx := range txs {
		names := make([]string, len(tx.Categories))
		for i, c := range tx.Categories {
			names[i] = c.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			tx.ID, tx.PostingDate, tx.Description,
			tx.Amount.StringFixed(2), tx.Balance.StringFixed(2), strings.Join(names, ", "))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
