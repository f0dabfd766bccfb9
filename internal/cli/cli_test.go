package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DieselDot/Trademind/internal/dashboard"
	"github.com/DieselDot/Trademind/internal/models"
)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	app := NewApp(zerolog.Nop())
	t.Cleanup(func() { app.Close() })

	root := NewRootCmd(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", dir}, args...))
	err := root.Execute()
	return out.String(), err
}

func runJSON[T any](t *testing.T, dir string, args ...string) T {
	t.Helper()
	out, err := run(t, dir, append(args, "--json")...)
	require.NoError(t, err, out)
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestVersionSkipsConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never-created")
	out, err := run(t, dir, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Trademind v"+Version)
	assert.NoDirExists(t, dir)
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), strings.TrimSpace(out))

	out, err = run(t, dir, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	shown := runJSON[map[string]any](t, dir, "config", "show")
	assert.Contains(t, shown, "User")
}

func TestSessionWorkflow(t *testing.T) {
	dir := t.TempDir()

	rule := runJSON[models.Rule](t, dir, "rules", "add", "Use a stop loss", "--category", "risk")
	assert.True(t, rule.IsActive)

	rules := runJSON[[]models.Rule](t, dir, "rules", "list")
	require.Len(t, rules, 1)

	session := runJSON[models.Session](t, dir, "session", "start",
		"--sleep-hours", "7.5", "--stress", "2", "--focus", "4", "--max-trades", "2", "--max-loss", "100", "--confirm")
	assert.Equal(t, 4, session.PreSession.SleepRating)
	require.NotNil(t, session.PreSession.MaxLoss)

	_, err := run(t, dir, "session", "start", "--max-trades", "2")
	assert.Error(t, err)

	trade := runJSON[models.Trade](t, dir, "session", "trade", "loss", "30", "--emotion", "fomo", "--broke", rule.ID)
	assert.Equal(t, -30.0, *trade.PnL)
	assert.False(t, trade.RulesFollowed)

	view := runJSON[dashboard.SessionView](t, dir, "session", "status")
	assert.Equal(t, session.ID, view.Session.ID)
	assert.Equal(t, 50.0, view.TradesUsedPercent)

	out, err := run(t, dir, "session", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Use a stop loss")

	ended := runJSON[models.Session](t, dir, "session", "end", "--plan", "4", "--emotional", "5")
	// 0 * .4 + 100 * .2 + 100 * .2 + 100 * .2
	require.NotNil(t, ended.DisciplineScore)
	assert.Equal(t, 60, *ended.DisciplineScore)

	out, err = run(t, dir, "session", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No active session")

	dash := runJSON[map[string]any](t, dir, "dashboard", "--period", "all")
	assert.Equal(t, float64(1), dash["total_sessions"])
	assert.Equal(t, float64(60), dash["latest_score"])
	assert.Contains(t, dash, "period")

	_, err = run(t, dir, "dashboard", "--period", "2w")
	assert.Error(t, err)

	out, err = run(t, dir, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, session.ID)
}

func TestUndoTrade(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "session", "start", "--max-trades", "3")
	require.NoError(t, err)
	runJSON[models.Trade](t, dir, "session", "trade", "win", "10")
	second := runJSON[models.Trade](t, dir, "session", "trade", "breakeven")
	assert.Equal(t, 0.0, *second.PnL)

	undone := runJSON[models.Trade](t, dir, "session", "undo")
	assert.Equal(t, second.ID, undone.ID)

	_, err = run(t, dir, "session", "trade", "win")
	assert.Error(t, err)
	_, err = run(t, dir, "session", "trade", "scratch", "1")
	assert.Error(t, err)
}

func TestJournalCommands(t *testing.T) {
	dir := t.TempDir()

	entry := runJSON[models.JournalEntry](t, dir, "journal", "add", "--date", "2026-03-09", "--title", "Patience", "--content", "Waited.")
	assert.Equal(t, "2026-03-09", entry.DateKey())

	edited := runJSON[models.JournalEntry](t, dir, "journal", "edit", entry.ID, "--title", "More patience")
	assert.Equal(t, "More patience", edited.Title)
	assert.Equal(t, "Waited.", edited.Content)

	days := runJSON[[]dashboard.JournalDay](t, dir, "journal", "days")
	require.Len(t, days, 1)

	out, err := run(t, dir, "journal", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "More patience")

	_, err = run(t, dir, "journal", "delete", entry.ID)
	require.NoError(t, err)
	_, err = run(t, dir, "journal", "delete", entry.ID)
	assert.Error(t, err)
}

func TestUserFlagIsolatesData(t *testing.T) {
	dir := t.TempDir()

	runJSON[models.Rule](t, dir, "rules", "add", "Alice's rule", "--user", "alice")
	rules := runJSON[[]models.Rule](t, dir, "rules", "list", "--user", "bob")
	assert.Empty(t, rules)
}
