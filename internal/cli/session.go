package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	apperrors "github.com/DieselDot/Trademind/internal/errors"
	"github.com/DieselDot/Trademind/internal/dashboard"
	"github.com/DieselDot/Trademind/internal/models"
	"github.com/DieselDot/Trademind/internal/notify"
)

// addSessionCommands adds the session lifecycle commands.
func addSessionCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Run a trading session",
		Long: `Start a session with a pre-session check-in, log trades as you take
them, and end it with a short reflection to get your discipline score.`,
	}

	cmd.AddCommand(newSessionStartCmd(app))
	cmd.AddCommand(newSessionStatusCmd(app))
	cmd.AddCommand(newSessionTradeCmd(app))
	cmd.AddCommand(newSessionUndoCmd(app))
	cmd.AddCommand(newSessionEndCmd(app))
	cmd.AddCommand(newSessionShowCmd(app))

	rootCmd.AddCommand(cmd)
}

func newSessionStartCmd(app *App) *cobra.Command {
	var (
		pre        models.PreSession
		sleepHours float64
		maxLoss    float64
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Check in and start a session",
		Example: `  trademind session start --sleep 4 --stress 2 --focus 4 --max-trades 3 --max-loss 500 --confirm
  trademind session start --sleep-hours 6.5 --stress 3 --focus 3 --max-trades 5 --setups "ORB on NQ"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			if cmd.Flags().Changed("sleep-hours") {
				pre.SleepRating = models.SleepRatingFromHours(sleepHours)
			}
			if cmd.Flags().Changed("max-loss") {
				pre.MaxLoss = &maxLoss
			}

			session, err := app.Tracker.StartSession(ctx, app.UserID, pre)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(session)
			}

			output.Success("✓ Session started for %s", models.DisplayDate(session.Date))
			output.Printf("  Max trades: %d\n", pre.MaxTrades)
			if pre.MaxLoss != nil {
				output.Printf("  Max loss:   %s\n", FormatCurrency(*pre.MaxLoss, output.currency))
			}
			if !pre.RulesConfirmed {
				output.Warning("Rules not confirmed. Re-read your rules before the first trade.")
			}
			output.Dim("Log trades with: trademind session trade win 120 --emotion calm")
			return nil
		},
	}

	cmd.Flags().IntVar(&pre.SleepRating, "sleep", 3, "sleep quality 1-5")
	cmd.Flags().Float64Var(&sleepHours, "sleep-hours", 0, "hours slept (sets --sleep)")
	cmd.Flags().IntVar(&pre.StressLevel, "stress", 3, "stress level 1-5")
	cmd.Flags().IntVar(&pre.FocusRating, "focus", 3, "focus 1-5")
	cmd.Flags().IntVar(&pre.MaxTrades, "max-trades", 3, "maximum trades for the session")
	cmd.Flags().Float64Var(&maxLoss, "max-loss", 0, "maximum loss for the session")
	cmd.Flags().StringVar(&pre.PlannedSetups, "setups", "", "setups you plan to trade")
	cmd.Flags().StringVar(&pre.WellnessNotes, "notes", "", "how you feel")
	cmd.Flags().BoolVar(&pre.RulesConfirmed, "confirm", false, "confirm you reviewed your rules")
	return cmd
}

func newSessionStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			session, err := app.Tracker.ActiveSession(ctx, app.UserID)
			if apperrors.Is(err, apperrors.ErrNoActiveSession) && !output.IsJSON() {
				output.Info("No active session.")
				output.Dim("Start one with: trademind session start")
				return nil
			}
			if err != nil {
				return err
			}

			view, err := app.Composer.SessionView(ctx, app.UserID, session.ID)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(view)
			}
			renderSessionView(output, app, view)
			return nil
		},
	}
}

func newSessionShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a session with its trades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			view, err := app.Composer.SessionView(ctx, app.UserID, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(view)
			}
			renderSessionView(output, app, view)
			return nil
		},
	}
}

func renderSessionView(output *Output, app *App, v *dashboard.SessionView) {
	s := v.Session
	pre := s.PreSession

	output.Bold("Session %s  %s", models.DisplayDate(s.Date), output.DimText(s.ID))
	if s.Completed() {
		output.Printf("  Status:      completed (score %s)\n", output.FormatScore(s.DisciplineScore))
		if s.EndedAt != nil {
			output.Printf("  Duration:    %s\n", FormatDuration(s.EndedAt.Sub(s.StartedAt)))
		}
	} else {
		output.Printf("  Status:      %s since %s\n", output.Green("active"), FormatTime(s.StartedAt, app.Location))
	}
	output.Printf("  Check-in:    sleep %d  stress %d  focus %d\n", pre.SleepRating, pre.StressLevel, pre.FocusRating)
	output.Printf("  Trades:      %d/%d %s\n", v.Stats.Count, pre.MaxTrades, FormatBar(v.TradesUsedPercent, 20))
	if v.LossUsedPercent != nil {
		output.Printf("  Loss limit:  %.0f%% %s\n", *v.LossUsedPercent, FormatBar(*v.LossUsedPercent, 20))
	}
	output.Printf("  P&L:         %s\n", output.FormatPnL(v.Stats.TotalPnL))
	output.Printf("  Win rate:    %d%%   Rules followed: %d%%\n", v.Stats.WinRate(), v.Stats.RulesFollowedPercentage)
	output.Println()

	if len(v.Trades) > 0 {
		table := NewTable(output, "#", "Time", "Result", "P&L", "Emotion", "Rules")
		for _, t := range v.Trades {
			rules := output.Green("followed")
			if !t.RulesFollowed {
				rules = output.Red(ruleNameList(v.BrokenRuleNames[t.ID]))
			}
			table.AddRow(
				strconv.Itoa(t.TradeNumber),
				FormatTime(t.LoggedAt, app.Location),
				t.Result.Label(),
				output.FormatOptionalPnL(t.PnL),
				t.EmotionTag.Label(),
				rules,
			)
		}
		table.Render()
		output.Println()
	}

	if v.Breakdown != nil {
		b := v.Breakdown
		output.Bold("Score breakdown")
		output.Printf("  Rules %.0f  Pre-session %.0f  Post-session %.0f  Emotional %.0f  =  %d\n",
			b.Rules, b.PreSession, b.PostSession, b.Emotional, b.Total)
	}
	if post := s.PostSession; post != nil {
		if post.WhatWentWell != "" {
			output.Printf("  Went well:   %s\n", post.WhatWentWell)
		}
		if post.WhatToImprove != "" {
			output.Printf("  Improve:     %s\n", post.WhatToImprove)
		}
		if post.TomorrowFocus != "" {
			output.Printf("  Tomorrow:    %s\n", post.TomorrowFocus)
		}
	}
}

func newSessionTradeCmd(app *App) *cobra.Command {
	var (
		emotion string
		broke   []string
		notes   string
	)

	cmd := &cobra.Command{
		Use:   "trade <win|loss|breakeven> [pnl]",
		Short: "Log a trade in the active session",
		Example: `  trademind session trade win 250 --emotion confident
  trademind session trade loss 120 --emotion fomo --broke <rule-id>
  trademind session trade breakeven --emotion calm`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			in := models.TradeInput{BrokenRuleIDs: broke, Notes: notes}
			var err error
			if in.Result, err = models.ParseTradeResult(args[0]); err != nil {
				return err
			}
			if in.EmotionTag, err = models.ParseEmotionTag(emotion); err != nil {
				return err
			}
			if len(args) == 2 {
				v, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return apperrors.NewValidationError("pnl", args[1], "not a number")
				}
				in.PnL = &v
			}

			session, err := app.Tracker.ActiveSession(ctx, app.UserID)
			if err != nil {
				return err
			}
			trade, err := app.Tracker.LogTrade(ctx, app.UserID, session.ID, in)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(trade)
			}

			output.Success("✓ Trade #%d logged: %s %s", trade.TradeNumber, trade.Result.Label(), output.FormatOptionalPnL(trade.PnL))
			trades, err := app.Tracker.Trades(ctx, app.UserID, session.ID)
			if err != nil {
				return err
			}
			for _, alert := range notify.CheckLimits(session, trades) {
				switch alert.Kind {
				case notify.LimitMaxTrades:
					output.Warning("Trade limit reached (%d). Consider ending the session.", session.PreSession.MaxTrades)
				case notify.LimitMaxLoss:
					output.Warning("Loss limit reached (%s). Stop trading for today.", output.FormatPnL(-alert.Current))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&emotion, "emotion", "e", string(models.EmotionCalm), "confident, calm, fomo, revenge, fearful, frustrated")
	cmd.Flags().StringSliceVar(&broke, "broke", nil, "ids of rules this trade broke")
	cmd.Flags().StringVar(&notes, "notes", "", "trade notes")
	return cmd
}

func newSessionUndoCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Delete the last trade of the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			trade, err := app.Tracker.UndoLastTrade(ctx, app.UserID)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("✓ Trade #%d removed", trade.TradeNumber)
			return nil
		},
	}
}

func newSessionEndCmd(app *App) *cobra.Command {
	var post models.PostSession

	cmd := &cobra.Command{
		Use:     "end",
		Short:   "Reflect and end the active session",
		Example: `  trademind session end --plan 4 --emotional 3 --well "Waited for setups" --improve "Sized up after a win"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			session, err := app.Tracker.ActiveSession(ctx, app.UserID)
			if err != nil {
				return err
			}
			ended, err := app.Tracker.EndSession(ctx, app.UserID, session.ID, post)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(ended)
			}

			output.Success("✓ Session complete")
			output.Printf("  Discipline score: %s\n", output.FormatScore(ended.DisciplineScore))
			if ended.EndedAt != nil {
				output.Printf("  Duration:         %s\n", FormatDuration(ended.EndedAt.Sub(ended.StartedAt)))
			}
			output.Dim("See the details with: trademind session show %s", ended.ID)
			return nil
		},
	}

	cmd.Flags().IntVar(&post.PlanFollowedRating, "plan", 0, "how well you followed your plan 1-5")
	cmd.Flags().IntVar(&post.EmotionalControlRating, "emotional", 0, "emotional control 1-5")
	cmd.Flags().StringVar(&post.WhatWentWell, "well", "", "what went well")
	cmd.Flags().StringVar(&post.WhatToImprove, "improve", "", "what to improve")
	cmd.Flags().StringVar(&post.TomorrowFocus, "tomorrow", "", "focus for tomorrow")
	cmd.MarkFlagRequired("plan")
	cmd.MarkFlagRequired("emotional")
	return cmd
}
