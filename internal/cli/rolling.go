package cli

import (
	"github.com/spf13/cobra"

	"pricebook/internal/models"
	"pricebook/internal/rolling"
	"pricebook/pkg/utils"
)

func newRollingCmd(app *App) *cobra.Command {
	var (
		weeks     []int
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "rolling",
		Short: "Update rolling window highs and lows",
		Long: `Recompute the trailing 4, 12 and 52 week high and low of every price row and
the dates they occurred. By default only rows with missing values are filled;
--overwrite recomputes every row. An empty rolling.windows list updates all three.`,
		Example: `  pricebook rolling
  pricebook rolling --weeks 52 --overwrite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			windows := app.Config.RollingWindows()
			if cmd.Flags().Changed("weeks") {
				windows = make([]models.Window, len(weeks))
				for i, w := range weeks {
					windows[i] = models.Window(w)
				}
			}
			if !cmd.Flags().Changed("overwrite") {
				overwrite = app.Config.Rolling.Overwrite
			}

			s, err := app.openStore()
			if err != nil {
				return err
			}

			m := rolling.NewMaintainer(s, app.Logger)
			var stats []rolling.UpdateStats
			if len(windows) == 0 {
				stats, err = m.UpdateAll(cmd.Context(), overwrite)
			} else {
				stats, err = m.UpdateWindows(cmd.Context(), windows, overwrite)
			}

			if output.IsJSON() {
				if jerr := output.JSON(stats); jerr != nil {
					return jerr
				}
				return err
			}

			if len(stats) > 0 {
				table := NewTable(output, "WINDOW", "SYMBOLS", "ROWS", "WRITTEN", "DURATION")
				for _, st := range stats {
					table.AddRow(
						st.Window.String(),
						utils.FormatCount(int64(st.Symbols)),
						utils.FormatCount(int64(st.Computed)),
						utils.FormatCount(st.Written),
						st.Duration.Round(1e6).String(),
					)
				}
				table.Render()
			}
			return err
		},
	}

	cmd.Flags().IntSliceVar(&weeks, "weeks", []int{4, 12, 52}, "window lengths in weeks (4, 12, 52)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "recompute every row instead of filling missing values")

	return cmd
}
