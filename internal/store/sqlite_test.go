package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/DieselDot/Trademind/internal/errors"
	"github.com/DieselDot/Trademind/internal/models"
)

const testUser = "user-1"

var baseTime = time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trademind.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newSession(id string, date time.Time) *models.Session {
	maxLoss := 200.0
	return &models.Session{
		ID:        id,
		UserID:    testUser,
		Date:      models.CalendarDate(date),
		StartedAt: date,
		Status:    models.SessionActive,
		PreSession: models.PreSession{
			SleepRating:    4,
			StressLevel:    2,
			FocusRating:    5,
			MaxTrades:      3,
			MaxLoss:        &maxLoss,
			RulesConfirmed: true,
			Extra:          map[string]any{"mood": "steady"},
		},
		CreatedAt: date,
		UpdatedAt: date,
	}
}

func newTrade(id, sessionID string, result models.TradeResult, pnl float64) *models.Trade {
	return &models.Trade{
		ID:            id,
		SessionID:     sessionID,
		UserID:        testUser,
		Result:        result,
		PnL:           models.NormalizePnL(result, &pnl),
		RulesFollowed: true,
		EmotionTag:    models.EmotionCalm,
		LoggedAt:      baseTime,
		CreatedAt:     baseTime,
	}
}

func TestRulesCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rule := &models.Rule{
		ID:        "r1",
		UserID:    testUser,
		Name:      "Always use a stop loss",
		Category:  models.CategoryRisk,
		IsActive:  true,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
	require.NoError(t, s.CreateRule(ctx, rule))
	require.NoError(t, s.CreateRule(ctx, &models.Rule{
		ID: "r2", UserID: testUser, Name: "No trades before 9:30", Category: models.CategoryTiming,
		CreatedAt: baseTime.Add(time.Minute), UpdatedAt: baseTime.Add(time.Minute),
	}))

	got, err := s.GetRule(ctx, testUser, "r1")
	require.NoError(t, err)
	assert.Equal(t, rule.Name, got.Name)
	assert.Equal(t, models.CategoryRisk, got.Category)
	assert.True(t, got.CreatedAt.Equal(baseTime))

	active, err := s.GetRules(ctx, RuleFilter{UserID: testUser, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "r1", active[0].ID)

	byID, err := s.GetRules(ctx, RuleFilter{UserID: testUser, IDs: []string{"r2", "missing"}})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "r2", byID[0].ID)

	rule.IsActive = false
	require.NoError(t, s.UpdateRule(ctx, rule))
	got, err = s.GetRule(ctx, testUser, "r1")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.NoError(t, s.DeleteRule(ctx, testUser, "r1"))
	_, err = s.GetRule(ctx, testUser, "r1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, s.DeleteRule(ctx, "someone-else", "r2"), apperrors.ErrNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetActiveSession(ctx, testUser)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	session := newSession("s1", baseTime)
	require.NoError(t, s.CreateSession(ctx, session))

	active, err := s.GetActiveSession(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "s1", active.ID)
	assert.Equal(t, "2026-03-10", active.DateKey())
	assert.Nil(t, active.DisciplineScore)
	assert.Nil(t, active.PostSession)
	assert.Equal(t, 4, active.PreSession.SleepRating)
	require.NotNil(t, active.PreSession.MaxLoss)
	assert.Equal(t, 200.0, *active.PreSession.MaxLoss)
	assert.Equal(t, "steady", active.PreSession.Extra["mood"])

	ended := baseTime.Add(2 * time.Hour)
	score := 87
	session.EndedAt = &ended
	session.Status = models.SessionCompleted
	session.PostSession = &models.PostSession{PlanFollowedRating: 5, EmotionalControlRating: 4, TomorrowFocus: "patience"}
	session.DisciplineScore = &score
	session.UpdatedAt = ended
	require.NoError(t, s.CompleteSession(ctx, session))

	got, err := s.GetSession(ctx, testUser, "s1")
	require.NoError(t, err)
	assert.True(t, got.Completed())
	require.NotNil(t, got.DisciplineScore)
	assert.Equal(t, 87, *got.DisciplineScore)
	require.NotNil(t, got.EndedAt)
	assert.True(t, got.EndedAt.Equal(ended))
	assert.Equal(t, "patience", got.PostSession.TomorrowFocus)

	err = s.CompleteSession(ctx, session)
	assert.ErrorIs(t, err, apperrors.ErrSessionCompleted)

	_, err = s.GetSession(ctx, "someone-else", "s1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetSessionsOrderAndFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.CreateSession(ctx, newSession(id, baseTime.AddDate(0, 0, i))))
	}

	all, err := s.GetSessions(ctx, SessionFilter{UserID: testUser})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	ranged, err := s.GetSessions(ctx, SessionFilter{
		UserID:    testUser,
		StartDate: baseTime.AddDate(0, 0, 1),
		EndDate:   baseTime.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "b", ranged[0].ID)

	limited, err := s.GetSessions(ctx, SessionFilter{UserID: testUser, IDs: []string{"a", "c"}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "c", limited[0].ID)

	completed, err := s.GetSessions(ctx, SessionFilter{UserID: testUser, Status: models.SessionCompleted})
	require.NoError(t, err)
	assert.Empty(t, completed)
}

func TestGetSessionsToleratesMistypedDocumentField(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateSession(ctx, newSession("a", baseTime)))

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE sessions SET pre_session = ? WHERE id = ?`),
		`{"rulesConfirmed":true,"maxLoss":"n/a"}`, "a")
	require.NoError(t, err)

	sessions, err := s.GetSessions(ctx, SessionFilter{UserID: testUser})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	pre := sessions[0].PreSession
	assert.True(t, pre.RulesConfirmed)
	assert.Nil(t, pre.MaxLoss)
	assert.Equal(t, "n/a", pre.Extra["maxLoss"])
}

func TestSessionsOrderBySubSecondStart(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Same day; "b" starts on a whole second, "a" half a second later.
	require.NoError(t, s.CreateSession(ctx, newSession("b", baseTime)))
	require.NoError(t, s.CreateSession(ctx, newSession("a", baseTime.Add(500*time.Millisecond))))

	var started []string
	require.NoError(t, s.db.SelectContext(ctx, &started, `SELECT started_at FROM sessions ORDER BY started_at`))
	assert.Equal(t, []string{"2026-03-10T09:15:00.000000000Z", "2026-03-10T09:15:00.500000000Z"}, started)

	sessions, err := s.GetSessions(ctx, SessionFilter{UserID: testUser})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].ID)
	assert.True(t, sessions[0].StartedAt.Equal(baseTime.Add(500*time.Millisecond)))
}

func TestInsertTradeNumbering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateSession(ctx, newSession("s1", baseTime)))

	first := newTrade("t1", "s1", models.ResultWin, 120)
	second := newTrade("t2", "s1", models.ResultLoss, 40)
	second.RulesFollowed = false
	second.BrokenRuleIDs = []string{"r1"}
	require.NoError(t, s.InsertTrade(ctx, first))
	require.NoError(t, s.InsertTrade(ctx, second))
	assert.Equal(t, 1, first.TradeNumber)
	assert.Equal(t, 2, second.TradeNumber)

	require.NoError(t, s.DeleteTrade(ctx, testUser, "t2"))
	third := newTrade("t3", "s1", models.ResultBreakeven, 15)
	require.NoError(t, s.InsertTrade(ctx, third))
	assert.Equal(t, 3, third.TradeNumber, "numbers are not reused after a delete")

	trades, err := s.GetTrades(ctx, TradeFilter{UserID: testUser, SessionIDs: []string{"s1"}})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, 1, trades[0].TradeNumber)
	assert.Equal(t, 3, trades[1].TradeNumber)
	assert.Equal(t, 0.0, *trades[1].PnL)
	assert.Equal(t, []string{}, trades[0].BrokenRuleIDs)

	assert.ErrorIs(t, s.DeleteTrade(ctx, testUser, "t2"), apperrors.ErrNotFound)
}

func TestInsertTradeRequiresActiveSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.InsertTrade(ctx, newTrade("t1", "missing", models.ResultWin, 10))
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)

	session := newSession("s1", baseTime)
	require.NoError(t, s.CreateSession(ctx, session))
	session.Status = models.SessionCompleted
	session.PostSession = &models.PostSession{PlanFollowedRating: 3, EmotionalControlRating: 3}
	require.NoError(t, s.CompleteSession(ctx, session))

	err = s.InsertTrade(ctx, newTrade("t2", "s1", models.ResultWin, 10))
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entry := &models.JournalEntry{
		ID:        "j1",
		UserID:    testUser,
		Date:      models.CalendarDate(baseTime),
		Title:     "Chased the open",
		Content:   "Entered before my setup confirmed.",
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
	require.NoError(t, s.SaveJournalEntry(ctx, entry))
	require.NoError(t, s.SaveJournalEntry(ctx, &models.JournalEntry{
		ID: "j2", UserID: testUser, Date: models.CalendarDate(baseTime.AddDate(0, 0, 2)),
		Title: "Calm day", Content: "Waited.", CreatedAt: baseTime, UpdatedAt: baseTime,
	}))

	entry.Title = "Chased the open again"
	entry.ImageURL = "https://example.com/chart.png"
	entry.UpdatedAt = baseTime.Add(time.Hour)
	require.NoError(t, s.SaveJournalEntry(ctx, entry))

	got, err := s.GetJournalEntry(ctx, testUser, "j1")
	require.NoError(t, err)
	assert.Equal(t, "Chased the open again", got.Title)
	assert.Equal(t, "https://example.com/chart.png", got.ImageURL)
	assert.True(t, got.CreatedAt.Equal(baseTime))

	entries, err := s.GetJournal(ctx, JournalFilter{UserID: testUser})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "j2", entries[0].ID)

	recent, err := s.GetJournal(ctx, JournalFilter{UserID: testUser, StartDate: baseTime.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.Len(t, recent, 1)

	require.NoError(t, s.DeleteJournalEntry(ctx, testUser, "j1"))
	_, err = s.GetJournalEntry(ctx, testUser, "j1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := NewSQLStore("mysql", "whatever")
	assert.Error(t, err)
}
