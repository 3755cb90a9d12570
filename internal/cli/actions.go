package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pricebook/internal/models"
	"pricebook/internal/store"
	"pricebook/pkg/utils"
)

func newActionsCmd(app *App) *cobra.Command {
	var (
		symbol string
		from   string
		to     string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List applied corporate action adjustments",
		Example: `  pricebook actions
  pricebook actions --symbol RELIANCE --from 2017-01-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			filter := store.ActionFilter{Symbol: symbol, Limit: limit}
			var err error
			if from != "" {
				if filter.StartDate, err = models.ParseDate(from); err != nil {
					return fmt.Errorf("invalid --from date: %w", err)
				}
			}
			if to != "" {
				if filter.EndDate, err = models.ParseDate(to); err != nil {
					return fmt.Errorf("invalid --to date: %w", err)
				}
			}

			s, err := app.openStore()
			if err != nil {
				return err
			}

			entries, err := s.GetAppliedActions(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(entries)
			}

			if len(entries) == 0 {
				output.Info("No adjustments applied yet")
				return nil
			}

			table := NewTable(output, "SYMBOL", "EXEC DATE", "ACTION", "FACTOR", "APPLIED AT", "DETAILS")
			for _, e := range entries {
				table.AddRow(
					e.Symbol,
					models.FormatDate(e.ExecDate),
					e.Type,
					utils.FormatFactor(e.Factor),
					e.AppliedAt.Local().Format(time.DateTime),
					e.Details,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "only this symbol")
	cmd.Flags().StringVar(&from, "from", "", "earliest execution date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "latest execution date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries to list")

	return cmd
}
