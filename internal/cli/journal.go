package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/DieselDot/Trademind/internal/models"
	"github.com/DieselDot/Trademind/internal/tracker"
)

// addJournalCommands adds journal commands.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Trading journal",
		Long:  "Write and review free-form notes for your trading days.",
	}

	cmd.AddCommand(newJournalAddCmd(app))
	cmd.AddCommand(newJournalEditCmd(app))
	cmd.AddCommand(newJournalListCmd(app))
	cmd.AddCommand(newJournalDaysCmd(app))
	cmd.AddCommand(newJournalDeleteCmd(app))

	rootCmd.AddCommand(cmd)
}

func parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return models.ParseDate(value)
}

func newJournalAddCmd(app *App) *cobra.Command {
	var title, content, date, image string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Write a journal entry",
		Example: `  trademind journal add --title "Patience" --content "Waited for the retest and it paid."
  trademind journal add --date 2026-03-09 --title "Overtraded" --content "Five trades after the limit."`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			day, err := parseDateFlag(date)
			if err != nil {
				return err
			}
			entry, err := app.Tracker.WriteJournalEntry(ctx, app.UserID, "", tracker.JournalInput{
				Date:     day,
				Title:    title,
				Content:  content,
				ImageURL: image,
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(entry)
			}
			output.Success("✓ Journal entry saved for %s (%s)", entry.DateKey(), entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "entry title")
	cmd.Flags().StringVarP(&content, "content", "m", "", "entry text")
	cmd.Flags().StringVar(&date, "date", "", "day the entry is about, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&image, "image", "", "screenshot URL")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("content")
	return cmd
}

func newJournalEditCmd(app *App) *cobra.Command {
	var title, content, date, image string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			current, err := app.Tracker.JournalEntry(ctx, app.UserID, args[0])
			if err != nil {
				return err
			}
			in := tracker.JournalInput{
				Date:     current.Date,
				Title:    current.Title,
				Content:  current.Content,
				ImageURL: current.ImageURL,
			}
			if cmd.Flags().Changed("title") {
				in.Title = title
			}
			if cmd.Flags().Changed("content") {
				in.Content = content
			}
			if cmd.Flags().Changed("image") {
				in.ImageURL = image
			}
			if cmd.Flags().Changed("date") {
				if in.Date, err = parseDateFlag(date); err != nil {
					return err
				}
			}

			entry, err := app.Tracker.WriteJournalEntry(ctx, app.UserID, args[0], in)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(entry)
			}
			output.Success("✓ Journal entry updated")
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "entry title")
	cmd.Flags().StringVarP(&content, "content", "m", "", "entry text")
	cmd.Flags().StringVar(&date, "date", "", "day the entry is about, YYYY-MM-DD")
	cmd.Flags().StringVar(&image, "image", "", "screenshot URL")
	return cmd
}

func newJournalListCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			entries, err := app.Tracker.Journal(ctx, app.UserID, limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(entries)
			}
			if len(entries) == 0 {
				output.Info("No journal entries yet.")
				return nil
			}

			for _, e := range entries {
				output.Bold("%s  %s", e.DateKey(), e.Title)
				output.Dim("  %s", e.ID)
				for _, line := range strings.Split(strings.TrimSpace(e.Content), "\n") {
					output.Printf("  %s\n", line)
				}
				output.Println()
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show")
	return cmd
}

func newJournalDaysCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "days",
		Short: "Show journal entries with that day's trading results",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			days, err := app.Composer.JournalDays(ctx, app.UserID)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(days)
			}
			if len(days) == 0 {
				output.Info("No journal entries yet.")
				return nil
			}

			table := NewTable(output, "Date", "Title", "Trades", "W/L", "P&L")
			for _, d := range days {
				trades, wl, pnl := "-", "-", output.DimText("-")
				if d.Stats != nil {
					trades = strconv.Itoa(d.Stats.TradeCount)
					wl = strconv.Itoa(d.Stats.Wins) + "/" + strconv.Itoa(d.Stats.Losses)
					pnl = output.FormatPnL(d.Stats.TotalPnL)
				}
				table.AddRow(d.Entry.DateKey(), TruncateString(d.Entry.Title, 40), trades, wl, pnl)
			}
			table.Render()
			return nil
		},
	}
}

func newJournalDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			if err := app.Tracker.DeleteJournalEntry(ctx, app.UserID, args[0]); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Journal entry deleted")
			return nil
		},
	}
}
