package cli

import (
	"github.com/spf13/cobra"

	"pricebook/internal/corporate"
	"pricebook/internal/models"
	"pricebook/pkg/utils"
)

func newAdjustCmd(app *App) *cobra.Command {
	var (
		dir string
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "adjust [csv files...]",
		Short: "Apply corporate action adjustments to the price history",
		Long: `Parse corporate action CSV exports and rescale every price recorded before
each action's execution date. Face value splits, bonus issues, rights issues and
multi-tranche rights issues are recognized; other purposes are ignored.

Each adjustment is shown for confirmation unless --yes is given, and is recorded
in the audit log so that re-running the same files has no further effect.

With no files, every *.csv in --dir (default: adjust.notices_dir) is read.`,
		Example: `  pricebook adjust CF-CA-equities.csv
  pricebook adjust --dir ./corporate_action --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			s, err := app.openStore()
			if err != nil {
				return err
			}

			var notices []models.Notice
			if len(args) > 0 {
				for _, path := range args {
					n, err := corporate.ReadNoticeFile(path, app.Logger)
					if err != nil {
						return err
					}
					notices = append(notices, n...)
				}
			} else {
				if dir == "" {
					dir = app.Config.Adjust.NoticesDir
				}
				if notices, err = corporate.ReadNoticeDir(dir, app.Logger); err != nil {
					return err
				}
			}

			var confirm corporate.Confirmer = corporate.NewPromptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
			if yes || app.Config.Adjust.AutoConfirm {
				confirm = corporate.AutoConfirm
			}

			engine := corporate.NewEngine(s, confirm, app.Logger)
			report, runErr := engine.Run(ctx, notices)
			if report != nil {
				if output.IsJSON() {
					if err := output.JSON(adjustSummary(report)); err != nil {
						return err
					}
				} else {
					printAdjustReport(output, report)
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory of corporate action CSV files")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "apply adjustments without confirmation")

	return cmd
}

type adjustResultJSON struct {
	Symbol   string  `json:"symbol"`
	ExecDate string  `json:"exec_date"`
	Type     string  `json:"action_type"`
	Details  string  `json:"details"`
	Factor   float64 `json:"factor"`
	Outcome  string  `json:"outcome"`
	Rows     int64   `json:"rows"`
}

func adjustSummary(report *corporate.Report) map[string]interface{} {
	results := make([]adjustResultJSON, 0, len(report.Results))
	for _, r := range report.Results {
		results = append(results, adjustResultJSON{
			Symbol:   r.Action.Symbol,
			ExecDate: models.FormatDate(r.Action.ExecDate),
			Type:     r.Action.Type,
			Details:  r.Action.Details,
			Factor:   r.Action.Factor,
			Outcome:  string(r.Outcome),
			Rows:     r.Rows,
		})
	}
	return map[string]interface{}{
		"results":      results,
		"invalid_date": report.InvalidDate,
		"unrecognized": report.Unrecognized,
		"no_op":        report.NoOp,
	}
}

func printAdjustReport(output *Output, report *corporate.Report) {
	output.Println()
	skipped := report.InvalidDate + report.Unrecognized + report.NoOp
	if len(report.Results) == 0 && skipped == 0 {
		output.Warning("No corporate action notices found")
		return
	}
	if len(report.Results) > 0 {
		table := NewTable(output, "SYMBOL", "EXEC DATE", "ACTION", "FACTOR", "CHANGE", "OUTCOME", "ROWS")
		for _, r := range report.Results {
			table.AddRow(
				r.Action.Symbol,
				models.FormatDate(r.Action.ExecDate),
				r.Action.Type,
				utils.FormatFactor(r.Action.Factor),
				utils.FormatPercent((r.Action.Factor-1)*100),
				string(r.Outcome),
				utils.FormatCount(r.Rows),
			)
		}
		table.Render()
		output.Println()
	}

	output.Success("Applied: %d", report.Count(corporate.OutcomeApplied))
	output.Dim("Already applied: %d  No prior data: %d  Declined: %d",
		report.Count(corporate.OutcomeAlreadyApplied),
		report.Count(corporate.OutcomeNoPriorData),
		report.Count(corporate.OutcomeDeclined))
	output.Dim("Skipped notices: %d invalid date, %d unrecognized, %d no-op",
		report.InvalidDate, report.Unrecognized, report.NoOp)
}
