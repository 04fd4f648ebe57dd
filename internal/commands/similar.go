package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cuentas-dev/cuentas/internal/similarity"
)

func newSimilarCommand(cfgPath func() string) *cobra.Command {
	var req similarity.Request
	var amount string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Rank stored transactions by similarity to a reference movement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := decimal.NewFromString(strings.ReplaceAll(amount, ",", "."))
			if err != nil {
				return fmt.Errorf("invalid --amount %q", amount)
			}
			req.Amount = amt

			e, err := openEnv(cfgPath())
			if err != nil {
				return err
			}
			defer e.Close()

			cands, err := e.similarity.Find(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), cands)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tAMOUNT\tSCORE\tDESC\tAMT\tDATE")
			for _, c := range cands {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.3f\t%.3f\t%.3f\t%.3f\n",
					c.ID, c.PostingDate, c.Description, c.Amount.StringFixed(2),
					c.Similarity, c.DescriptionSimilarity, c.AmountSimilarity, c.DateSimilarity)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&req.Description, "description", "", "reference description")
	cmd.Flags().StringVar(&amount, "amount", "", "reference amount")
	cmd.Flags().StringVar(&req.Date, "date", "", "reference date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&req.Threshold, "threshold", 0, "minimum total score (default from config)")
	cmd.Flags().IntVar(&req.TopK, "top-k", 0, "return this many best candidates regardless of threshold")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	for _, name := range []string{"description", "amount", "date"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
