package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/DieselDot/Trademind/internal/dashboard"
	"github.com/DieselDot/Trademind/internal/models"
	"github.com/DieselDot/Trademind/internal/stats"
)

// addInsightCommands adds the read-only analytics commands.
func addInsightCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newDashboardCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
}

func newDashboardCmd(app *App) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show discipline and performance at a glance",
		Example: `  trademind dashboard
  trademind dashboard --period 7d`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			window, err := stats.ParseTrendWindow(period)
			if err != nil {
				return err
			}
			data, err := app.Composer.Dashboard(ctx, app.UserID)
			if err != nil {
				return err
			}
			pnl, err := app.Composer.PnLPeriod(ctx, app.UserID, window)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(struct {
					*dashboard.Data
					Period *dashboard.PnLPeriod `json:"period"`
				}{data, pnl})
			}
			renderDashboard(output, data, pnl)
			return nil
		},
	}

	cmd.Flags().StringVarP(&period, "period", "p", string(stats.Window30D), "P&L period: 7d, 30d, 90d, 1y, all")
	return cmd
}

func renderDashboard(output *Output, d *dashboard.Data, pnl *dashboard.PnLPeriod) {
	output.Bold("Discipline")
	output.Printf("  Latest score:    %s\n", output.FormatScore(d.LatestScore))
	output.Printf("  Average score:   %s\n", output.FormatScore(d.AvgDisciplineScore))
	output.Printf("  Streak:          %d day(s)\n", d.Streak)
	output.Printf("  Rules followed:  %d%%  (%d active rules)\n", d.RulesFollowedPercentage, d.RulesCount)
	if d.ActiveSessionID != "" {
		output.Printf("  Active session:  %s\n", output.Green(d.ActiveSessionID))
	}
	output.Println()

	output.Bold("Performance")
	output.Printf("  Sessions:        %d\n", d.TotalSessions)
	output.Printf("  Trades:          %d  (%d W / %d L)\n", d.TotalTrades, d.Wins, d.Losses)
	output.Printf("  Total P&L:       %s\n", output.FormatPnL(d.TotalPnL))
	output.Printf("  P&L %-4s         %s  (cumulative %s)\n", string(pnl.Window), output.FormatPnL(pnl.Summary.Total), output.FormatPnL(pnl.Summary.Latest))
	output.Println()

	if len(d.ScoreTrend) > 0 {
		output.Bold("Score trend")
		for _, p := range d.ScoreTrend {
			output.Printf("  %-7s %3d %s\n", p.DisplayDate, p.Score, FormatBar(float64(p.Score), 25))
		}
		output.Println()
	}

	if len(d.EmotionWinRate) > 0 {
		output.Bold("Emotions")
		table := NewTable(output, "Emotion", "Trades", "Win rate")
		for _, e := range d.EmotionWinRate {
			table.AddRow(e.Label, strconv.Itoa(e.Total), strconv.Itoa(e.WinRate)+"%")
		}
		table.Render()
		output.Println()
	}

	if len(d.RecentSessions) > 0 {
		output.Bold("Recent sessions")
		table := NewTable(output, "Date", "Score", "ID")
		for _, s := range d.RecentSessions {
			table.AddRow(models.DisplayDate(s.Date), output.FormatScore(s.DisciplineScore), output.DimText(s.ID))
		}
		table.Render()
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List sessions grouped by month",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			months, err := app.Composer.History(ctx, app.UserID)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(months)
			}
			if len(months) == 0 {
				output.Info("No sessions yet.")
				return nil
			}

			for _, m := range months {
				output.Bold("%s  avg score %s  %s", m.Label, FormatScore(m.AvgScore), output.FormatPnL(m.TotalPnL))
				table := NewTable(output, "Date", "Status", "Score", "Trades", "P&L", "ID")
				for _, s := range m.Sessions {
					status := "completed"
					if !s.Session.Completed() {
						status = output.Green("active")
					}
					table.AddRow(
						models.DisplayDate(s.Session.Date),
						status,
						output.FormatScore(s.Session.DisciplineScore),
						strconv.Itoa(s.Trades.Count),
						output.FormatPnL(s.Trades.TotalPnL),
						output.DimText(s.Session.ID),
					)
				}
				table.Render()
				output.Println()
			}
			return nil
		},
	}
}
