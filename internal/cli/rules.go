package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DieselDot/Trademind/internal/models"
	"github.com/DieselDot/Trademind/internal/tracker"
)

// addRulesCommands adds rule management commands.
func addRulesCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage your trading rules",
		Long:  "Create, list and retire the personal rules every trade is checked against.",
	}

	cmd.AddCommand(newRulesListCmd(app))
	cmd.AddCommand(newRulesAddCmd(app))
	cmd.AddCommand(newRulesEditCmd(app))
	cmd.AddCommand(newRulesToggleCmd(app))
	cmd.AddCommand(newRulesDeleteCmd(app))

	rootCmd.AddCommand(cmd)
}

func newRulesListCmd(app *App) *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules grouped by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			rules, err := app.Tracker.Rules(ctx, app.UserID, activeOnly)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rules)
			}
			if len(rules) == 0 {
				output.Info("No rules yet.")
				output.Dim("Tip: trademind rules add \"Always use a stop loss\" --category risk")
				return nil
			}

			table := NewTable(output, "ID", "Category", "Rule", "Status")
			for _, r := range rules {
				status := output.Green("active")
				if !r.IsActive {
					status = output.DimText("inactive")
				}
				table.AddRow(r.ID, r.Category.Label(), TruncateString(r.Name, 50), status)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "only show active rules")
	return cmd
}

func ruleCategoryHelp() string {
	names := make([]string, 0, len(models.AllRuleCategories()))
	for _, c := range models.AllRuleCategories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func newRulesAddCmd(app *App) *cobra.Command {
	var category, description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a rule",
		Example: `  trademind rules add "Always use a stop loss" --category risk
  trademind rules add "No trades in the first 15 minutes" --category timing`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			cat, err := models.ParseRuleCategory(category)
			if err != nil {
				return err
			}
			rule, err := app.Tracker.CreateRule(ctx, app.UserID, tracker.RuleInput{
				Name:        args[0],
				Description: description,
				Category:    cat,
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rule)
			}
			output.Success("✓ Rule added: %s (%s)", rule.Name, rule.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", string(models.CategoryRisk), "category: "+ruleCategoryHelp())
	cmd.Flags().StringVarP(&description, "description", "d", "", "longer description")
	return cmd
}

func newRulesEditCmd(app *App) *cobra.Command {
	var name, category, description string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			current, err := app.Store.GetRule(ctx, app.UserID, args[0])
			if err != nil {
				return err
			}
			in := tracker.RuleInput{Name: current.Name, Description: current.Description, Category: current.Category}
			if cmd.Flags().Changed("name") {
				in.Name = name
			}
			if cmd.Flags().Changed("description") {
				in.Description = description
			}
			if cmd.Flags().Changed("category") {
				if in.Category, err = models.ParseRuleCategory(category); err != nil {
					return err
				}
			}

			rule, err := app.Tracker.UpdateRule(ctx, app.UserID, args[0], in)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rule)
			}
			output.Success("✓ Rule updated: %s", rule.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category: "+ruleCategoryHelp())
	cmd.Flags().StringVarP(&description, "description", "d", "", "longer description")
	return cmd
}

func newRulesToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Activate or deactivate a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			rule, err := app.Tracker.ToggleRule(ctx, app.UserID, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rule)
			}
			state := "inactive"
			if rule.IsActive {
				state = "active"
			}
			output.Success("✓ %s is now %s", rule.Name, state)
			return nil
		},
	}
}

func newRulesDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.context(cmd)
			defer cancel()

			if err := app.Tracker.DeleteRule(ctx, app.UserID, args[0]); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Rule %s deleted", args[0])
			return nil
		},
	}
}

// ruleNameList joins rule names for display.
func ruleNameList(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return fmt.Sprintf("broke: %s", strings.Join(names, ", "))
}
