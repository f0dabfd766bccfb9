package tracker

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/DieselDot/Trademind/internal/errors"
	"github.com/DieselDot/Trademind/internal/models"
	"github.com/DieselDot/Trademind/internal/store"
)

const testUser = "trader-1"

type recordingInvalidator struct {
	calls []string
}

func (r *recordingInvalidator) InvalidateDashboard(_ context.Context, userID string) {
	r.calls = append(r.calls, userID)
}

type fixture struct {
	svc   *Service
	store *store.SQLStore
	inv   *recordingInvalidator
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ds, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	f := &fixture{
		store: ds,
		inv:   &recordingInvalidator{},
		now:   time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
	}
	seq := 0
	f.svc = NewService(ds,
		WithInvalidator(f.inv),
		WithClock(func() time.Time { return f.now }),
		WithLocation(time.UTC),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		}),
	)
	return f
}

func pre() models.PreSession {
	maxLoss := 300.0
	return models.PreSession{
		SleepRating:    4,
		StressLevel:    2,
		FocusRating:    4,
		MaxTrades:      3,
		MaxLoss:        &maxLoss,
		RulesConfirmed: true,
	}
}

func pnl(v float64) *float64 { return &v }

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	stop, err := f.svc.CreateRule(ctx, testUser, RuleInput{Name: "Use a stop loss", Category: models.CategoryRisk})
	require.NoError(t, err)
	assert.True(t, stop.IsActive)

	session, err := f.svc.StartSession(ctx, testUser, pre())
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, session.Status)
	assert.Equal(t, "2026-03-10", session.DateKey())

	_, err = f.svc.StartSession(ctx, testUser, pre())
	assert.ErrorIs(t, err, apperrors.ErrActiveSessionExists)

	win, err := f.svc.LogTrade(ctx, testUser, session.ID, models.TradeInput{
		Result: models.ResultWin, PnL: pnl(-150), EmotionTag: models.EmotionCalm,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, win.TradeNumber)
	assert.Equal(t, 150.0, *win.PnL)
	assert.True(t, win.RulesFollowed)

	loss, err := f.svc.LogTrade(ctx, testUser, session.ID, models.TradeInput{
		Result:        models.ResultLoss,
		PnL:           pnl(50),
		EmotionTag:    models.EmotionFOMO,
		BrokenRuleIDs: []string{stop.ID, stop.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, loss.TradeNumber)
	assert.Equal(t, -50.0, *loss.PnL)
	assert.False(t, loss.RulesFollowed)
	assert.Equal(t, []string{stop.ID}, loss.BrokenRuleIDs)

	ended, err := f.svc.EndSession(ctx, testUser, session.ID, models.PostSession{
		PlanFollowedRating: 4, EmotionalControlRating: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, ended.Status)
	require.NotNil(t, ended.DisciplineScore)
	// rules 50 * .4 + 100 * .2 + 100 * .2 + 80 * .2
	assert.Equal(t, 76, *ended.DisciplineScore)
	require.NotNil(t, ended.EndedAt)

	stored, err := f.store.GetSession(ctx, testUser, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 76, *stored.DisciplineScore)

	_, err = f.svc.EndSession(ctx, testUser, session.ID, models.PostSession{PlanFollowedRating: 1, EmotionalControlRating: 1})
	assert.ErrorIs(t, err, apperrors.ErrSessionCompleted)

	_, err = f.svc.LogTrade(ctx, testUser, session.ID, models.TradeInput{Result: models.ResultBreakeven, EmotionTag: models.EmotionCalm})
	assert.ErrorIs(t, err, apperrors.ErrSessionCompleted)

	_, err = f.svc.ActiveSession(ctx, testUser)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)

	// a new session can start once the previous one ended
	_, err = f.svc.StartSession(ctx, testUser, pre())
	require.NoError(t, err)

	assert.NotEmpty(t, f.inv.calls)
	for _, u := range f.inv.calls {
		assert.Equal(t, testUser, u)
	}
}

func TestStartSessionValidates(t *testing.T) {
	f := newFixture(t)
	p := pre()
	p.MaxTrades = 0

	_, err := f.svc.StartSession(context.Background(), testUser, p)
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
	assert.Empty(t, f.inv.calls)
}

func TestLogTradeRejectsUnknownOrInactiveRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rule, err := f.svc.CreateRule(ctx, testUser, RuleInput{Name: "No revenge trades", Category: models.CategoryMindset})
	require.NoError(t, err)
	session, err := f.svc.StartSession(ctx, testUser, pre())
	require.NoError(t, err)

	_, err = f.svc.LogTrade(ctx, testUser, session.ID, models.TradeInput{
		Result: models.ResultLoss, PnL: pnl(10), EmotionTag: models.EmotionRevenge, BrokenRuleIDs: []string{"nope"},
	})
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "broken_rule_ids", ve.Field)

	_, err = f.svc.SetRuleActive(ctx, testUser, rule.ID, false)
	require.NoError(t, err)
	_, err = f.svc.LogTrade(ctx, testUser, session.ID, models.TradeInput{
		Result: models.ResultLoss, PnL: pnl(10), EmotionTag: models.EmotionRevenge, BrokenRuleIDs: []string{rule.ID},
	})
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	trades, err := f.svc.Trades(ctx, testUser, session.ID)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestLogTradeRequiresOwnSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	session, err := f.svc.StartSession(ctx, testUser, pre())
	require.NoError(t, err)

	_, err = f.svc.LogTrade(ctx, "someone-else", session.ID, models.TradeInput{Result: models.ResultBreakeven, EmotionTag: models.EmotionCalm})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteAndUndoTrade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	session, err := f.svc.StartSession(ctx, testUser, pre())
	require.NoError(t, err)

	var ids []string
	for range 3 {
		tr, err := f.svc.LogTrade(ctx, testUser, session.ID, models.TradeInput{Result: models.ResultBreakeven, EmotionTag: models.EmotionCalm})
		require.NoError(t, err)
		ids = append(ids, tr.ID)
	}

	require.NoError(t, f.svc.DeleteTrade(ctx, testUser, session.ID, ids[0]))
	err = f.svc.DeleteTrade(ctx, testUser, session.ID, ids[0])
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	undone, err := f.svc.UndoLastTrade(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, ids[2], undone.ID)
	assert.Equal(t, 3, undone.TradeNumber)

	trades, err := f.svc.Trades(ctx, testUser, session.ID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 2, trades[0].TradeNumber)

	next, err := f.svc.LogTrade(ctx, testUser, session.ID, models.TradeInput{Result: models.ResultBreakeven, EmotionTag: models.EmotionCalm})
	require.NoError(t, err)
	assert.Equal(t, 4, next.TradeNumber)
}

func TestUndoWithoutTrades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.UndoLastTrade(ctx, testUser)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)

	_, err = f.svc.StartSession(ctx, testUser, pre())
	require.NoError(t, err)
	_, err = f.svc.UndoLastTrade(ctx, testUser)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEndSessionWithoutTrades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p := pre()
	p.RulesConfirmed = false
	session, err := f.svc.StartSession(ctx, testUser, p)
	require.NoError(t, err)

	ended, err := f.svc.EndSession(ctx, testUser, session.ID, models.PostSession{PlanFollowedRating: 2, EmotionalControlRating: 5})
	require.NoError(t, err)
	// 100 * .4 + 0 + 100 * .2 + 100 * .2
	assert.Equal(t, 80, *ended.DisciplineScore)
}

func TestRulesCRUD(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateRule(ctx, testUser, RuleInput{Name: "  ", Category: models.CategoryEntry})
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	psych, err := f.svc.CreateRule(ctx, testUser, RuleInput{Name: "Breathe", Category: models.CategoryMindset})
	require.NoError(t, err)
	entry, err := f.svc.CreateRule(ctx, testUser, RuleInput{Name: " Wait for the close ", Category: models.CategoryEntry})
	require.NoError(t, err)
	assert.Equal(t, "Wait for the close", entry.Name)

	rules, err := f.svc.Rules(ctx, testUser, false)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, entry.ID, rules[0].ID)
	assert.Equal(t, psych.ID, rules[1].ID)

	updated, err := f.svc.UpdateRule(ctx, testUser, psych.ID, RuleInput{Name: "Breathe first", Description: "box breathing", Category: models.CategoryMindset})
	require.NoError(t, err)
	assert.Equal(t, "Breathe first", updated.Name)

	toggled, err := f.svc.ToggleRule(ctx, testUser, psych.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	active, err := f.svc.Rules(ctx, testUser, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, entry.ID, active[0].ID)

	require.NoError(t, f.svc.DeleteRule(ctx, testUser, entry.ID))
	assert.ErrorIs(t, f.svc.DeleteRule(ctx, testUser, entry.ID), apperrors.ErrNotFound)

	_, err = f.svc.UpdateRule(ctx, "other", psych.ID, RuleInput{Name: "x", Category: models.CategoryRisk})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	entry, err := f.svc.WriteJournalEntry(ctx, testUser, "", JournalInput{Title: "Patience", Content: "Waited for setups."})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", entry.DateKey())

	f.now = f.now.Add(time.Hour)
	edited, err := f.svc.WriteJournalEntry(ctx, testUser, entry.ID, JournalInput{
		Date:    time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		Title:   "Patience, mostly",
		Content: "Waited for most setups.",
	})
	require.NoError(t, err)
	assert.Equal(t, entry.ID, edited.ID)
	assert.Equal(t, "2026-03-09", edited.DateKey())

	got, err := f.svc.JournalEntry(ctx, testUser, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Patience, mostly", got.Title)

	_, err = f.svc.WriteJournalEntry(ctx, testUser, "", JournalInput{Title: "Empty"})
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	_, err = f.svc.WriteJournalEntry(ctx, testUser, "missing", JournalInput{Title: "x", Content: "y"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err := f.svc.Journal(ctx, testUser, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.svc.DeleteJournalEntry(ctx, testUser, entry.ID))
	list, err = f.svc.Journal(ctx, testUser, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
