// Package dashboard composes the dashboard, history, session and journal
// read models from the stored sessions, trades, rules and journal entries.
package dashboard

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/DieselDot/Trademind/internal/cache"
	apperrors "github.com/DieselDot/Trademind/internal/errors"
	"github.com/DieselDot/Trademind/internal/models"
	"github.com/DieselDot/Trademind/internal/scoring"
	"github.com/DieselDot/Trademind/internal/stats"
	"github.com/DieselDot/Trademind/internal/store"
)

// RecentSessionsLimit is the number of completed sessions on the dashboard.
const RecentSessionsLimit = 5

// Source is the read side of the data store used by the composer.
type Source interface {
	GetRules(ctx context.Context, filter store.RuleFilter) ([]models.Rule, error)
	GetSession(ctx context.Context, userID, id string) (*models.Session, error)
	GetSessions(ctx context.Context, filter store.SessionFilter) ([]models.Session, error)
	GetTrades(ctx context.Context, filter store.TradeFilter) ([]models.Trade, error)
	GetJournal(ctx context.Context, filter store.JournalFilter) ([]models.JournalEntry, error)
}

// Clock returns the current time.
type Clock func() time.Time

// Composer builds read models for one user at a time.
type Composer struct {
	source   Source
	cache    cache.Cache[Data]
	now      Clock
	location *time.Location
	logger   zerolog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithCache caches composed dashboards.
func WithCache(c cache.Cache[Data]) Option {
	return func(comp *Composer) { comp.cache = c }
}

// WithClock replaces the wall clock.
func WithClock(now Clock) Option {
	return func(comp *Composer) { comp.now = now }
}

// WithLocation sets the time zone that decides what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(comp *Composer) { comp.location = loc }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(comp *Composer) { comp.logger = logger }
}

// NewComposer creates a composer over source.
func NewComposer(source Source, opts ...Option) *Composer {
	c := &Composer{
		source: source,
		cache:    cache.NewNop[Data](),
		now:      time.Now,
		location: time.Local,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// localNow is the composer's clock in its configured time zone.
func (c *Composer) localNow() time.Time {
	return c.now().In(c.location)
}

// Data is the composed dashboard.
type Data struct {
	TotalSessions           int                    `json:"total_sessions"`
	TotalTrades             int                    `json:"total_trades"`
	Wins                    int                    `json:"wins"`
	Losses                  int                    `json:"losses"`
	TotalPnL                float64                `json:"total_pnl"`
	RulesFollowedPercentage int                    `json:"rules_followed_percentage"`
	AvgDisciplineScore      *int                   `json:"avg_discipline_score"`
	LatestScore             *int                   `json:"latest_score"`
	Streak                  int                    `json:"streak"`
	RulesCount              int                    `json:"rules_count"`
	ActiveSessionID         string                 `json:"active_session_id,omitempty"`
	ScoreTrend              []stats.ScorePoint     `json:"score_trend"`
	EmotionDistribution     []stats.EmotionCount   `json:"emotion_distribution"`
	EmotionWinRate          []stats.EmotionWinRate `json:"emotion_win_rate"`
	PnLTrend                []stats.PnLPoint       `json:"pnl_trend"`
	RecentSessions          []models.Session       `json:"recent_sessions"`
	GeneratedAt             time.Time              `json:"generated_at"`
}

// Dashboard composes the dashboard for userID. The streak depends on the
// current day, so a cached dashboard composed on an earlier day is
// composed again.
func (c *Composer) Dashboard(ctx context.Context, userID string) (*Data, error) {
	if cached, ok := c.cache.Get(ctx, userID); ok && c.composedToday(cached) {
		return cached, nil
	}

	completed, err := c.source.GetSessions(ctx, store.SessionFilter{UserID: userID, Status: models.SessionCompleted})
	if err != nil {
		return nil, apperrors.Wrap(err, "loading completed sessions")
	}
	trades, err := c.source.GetTrades(ctx, store.TradeFilter{UserID: userID})
	if err != nil {
		return nil, apperrors.Wrap(err, "loading trades")
	}
	rules, err := c.source.GetRules(ctx, store.RuleFilter{UserID: userID, ActiveOnly: true})
	if err != nil {
		return nil, apperrors.Wrap(err, "loading rules")
	}
	active, err := c.source.GetSessions(ctx, store.SessionFilter{UserID: userID, Status: models.SessionActive, Limit: 1})
	if err != nil {
		return nil, apperrors.Wrap(err, "loading active session")
	}

	now := c.localNow()
	summary := stats.Summarize(trades)

	d := &Data{
		TotalSessions:           len(completed),
		TotalTrades:             summary.Count,
		Wins:                    summary.Wins,
		Losses:                  summary.Losses,
		TotalPnL:                summary.TotalPnL,
		RulesFollowedPercentage: summary.RulesFollowedPercentage,
		AvgDisciplineScore:      averageScore(completed, false),
		LatestScore:             latestScore(completed),
		Streak:                  stats.Streak(stats.SessionDates(completed), now),
		RulesCount:              len(rules),
		ScoreTrend:              slices.Collect(stats.ScoreTrend(completed, stats.ScoreTrendLength)),
		EmotionDistribution:     stats.EmotionCounts(trades),
		EmotionWinRate:          stats.EmotionWinRates(trades),
		PnLTrend:                stats.PnLTrend(stats.PnLByDate(completed, trades)),
		RecentSessions:          recent(completed, RecentSessionsLimit),
		GeneratedAt:             now,
	}
	if len(active) > 0 {
		d.ActiveSessionID = active[0].ID
	}

	c.cache.Set(ctx, userID, d)
	c.logger.Debug().Str("user_id", userID).Int("sessions", d.TotalSessions).Msg("Dashboard composed")
	return d, nil
}

func (c *Composer) composedToday(d *Data) bool {
	today := models.CalendarDate(c.localNow())
	return models.CalendarDate(d.GeneratedAt.In(c.location)).Equal(today)
}

// InvalidateDashboard drops the cached dashboard for userID.
func (c *Composer) InvalidateDashboard(ctx context.Context, userID string) {
	c.cache.Invalidate(ctx, userID)
}

// averageScore averages discipline scores, rounded half up. With
// missingAsZero unset only sessions with a score count; otherwise every
// session counts and a missing score is 0. Returns nil when nothing counts.
func averageScore(sessions []models.Session, missingAsZero bool) *int {
	sum, n := 0, 0
	for _, s := range sessions {
		if s.DisciplineScore == nil {
			if !missingAsZero {
				continue
			}
		} else {
			sum += *s.DisciplineScore
		}
		n++
	}
	if n == 0 {
		return nil
	}
	avg := scoring.RoundHalfUp(float64(sum) / float64(n))
	return &avg
}

// latestScore is the score of the most recent completed session.
func latestScore(completed []models.Session) *int {
	if len(completed) == 0 || completed[0].DisciplineScore == nil {
		return nil
	}
	v := *completed[0].DisciplineScore
	return &v
}

func recent(sessions []models.Session, n int) []models.Session {
	if len(sessions) > n {
		sessions = sessions[:n]
	}
	return slices.Clone(sessions)
}

// SessionStats is one session in the history with its trade statistics.
type SessionStats struct {
	Session models.Session   `json:"session"`
	Trades  stats.TradeStats `json:"trade_stats"`
}

// HistoryMonth groups the sessions of one calendar month.
type HistoryMonth struct {
	Key      string         `json:"key"`
	Label    string         `json:"label"`
	Sessions []SessionStats `json:"sessions"`
	AvgScore *int           `json:"avg_score"`
	TotalPnL float64        `json:"total_pnl"`
}

// History groups all sessions of userID by month, most recent month first.
// Within a month sessions keep the store order (date descending).
func (c *Composer) History(ctx context.Context, userID string) ([]HistoryMonth, error) {
	sessions, err := c.source.GetSessions(ctx, store.SessionFilter{UserID: userID})
	if err != nil {
		return nil, apperrors.Wrap(err, "loading sessions")
	}
	if len(sessions) == 0 {
		return []HistoryMonth{}, nil
	}

	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	trades, err := c.source.GetTrades(ctx, store.TradeFilter{UserID: userID, SessionIDs: ids})
	if err != nil {
		return nil, apperrors.Wrap(err, "loading trades")
	}
	bySession := stats.SummarizeBySession(trades)

	index := make(map[string]int)
	var months []HistoryMonth
	var completed [][]models.Session
	for _, s := range sessions {
		key := s.Date.Format("2006-01")
		i, ok := index[key]
		if !ok {
			i = len(months)
			index[key] = i
			months = append(months, HistoryMonth{Key: key, Label: s.Date.Format("January 2006")})
			completed = append(completed, nil)
		}

		ts, ok := bySession[s.ID]
		if !ok {
			ts = stats.Summarize(nil)
		}
		months[i].Sessions = append(months[i].Sessions, SessionStats{Session: s, Trades: ts})
		months[i].TotalPnL += ts.TotalPnL
		if s.Completed() {
			completed[i] = append(completed[i], s)
		}
	}

	for i := range months {
		months[i].AvgScore = averageScore(completed[i], true)
	}
	slices.SortStableFunc(months, func(a, b HistoryMonth) int {
		switch {
		case a.Key > b.Key:
			return -1
		case a.Key < b.Key:
			return 1
		}
		return 0
	})
	return months, nil
}

// SessionView is a single session with its live statistics.
//
// TradesUsedPercent is the share of the planned maximum trade count used.
// LossUsedPercent is the share of the loss limit used, capped at 100, and is
// nil when no loss limit was set. Breakdown is set for completed sessions.
type SessionView struct {
	Session           models.Session          `json:"session"`
	Trades            []models.Trade          `json:"trades"`
	Stats             stats.TradeStats        `json:"stats"`
	TradesUsedPercent float64                 `json:"trades_used_percent"`
	LossUsedPercent   *float64                `json:"loss_used_percent,omitempty"`
	BrokenRuleNames   map[string][]string     `json:"broken_rule_names"`
	Breakdown         *scoring.ScoreBreakdown `json:"score_breakdown,omitempty"`
}

// SessionView loads one session with its trades. Broken rule IDs are
// resolved to names; IDs of deleted rules are kept as they are.
func (c *Composer) SessionView(ctx context.Context, userID, sessionID string) (*SessionView, error) {
	session, err := c.source.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	trades, err := c.source.GetTrades(ctx, store.TradeFilter{UserID: userID, SessionIDs: []string{sessionID}})
	if err != nil {
		return nil, apperrors.Wrap(err, "loading trades")
	}
	rules, err := c.source.GetRules(ctx, store.RuleFilter{UserID: userID})
	if err != nil {
		return nil, apperrors.Wrap(err, "loading rules")
	}

	v := &SessionView{
		Session:         *session,
		Trades:          trades,
		Stats:           stats.Summarize(trades),
		BrokenRuleNames: make(map[string][]string),
	}

	pre := session.PreSession
	if pre.MaxTrades > 0 {
		v.TradesUsedPercent = float64(v.Stats.Count) / float64(pre.MaxTrades) * 100
	}
	if pre.MaxLoss != nil && *pre.MaxLoss > 0 {
		lost := math.Abs(math.Min(v.Stats.TotalPnL, 0))
		used := math.Min(lost / *pre.MaxLoss * 100, 100)
		v.LossUsedPercent = &used
	}

	names := models.RuleNames(rules)
	for _, t := range trades {
		if len(t.BrokenRuleIDs) == 0 {
			continue
		}
		resolved := make([]string, 0, len(t.BrokenRuleIDs))
		for _, id := range t.BrokenRuleIDs {
			if name, ok := names[id]; ok {
				resolved = append(resolved, name)
			} else {
				resolved = append(resolved, id)
			}
		}
		v.BrokenRuleNames[t.ID] = resolved
	}

	if session.Completed() {
		b := scoring.Breakdown(&session.PreSession, session.PostSession, trades)
		v.Breakdown = &b
	}
	return v, nil
}

// JournalDay is a journal entry with the trading results of its day.
type JournalDay struct {
	Entry models.JournalEntry `json:"entry"`
	Stats *stats.DayStats     `json:"stats,omitempty"`
}

// JournalDays lists the journal entries of userID, most recent first, each
// linked to the trading of its day when there was any.
func (c *Composer) JournalDays(ctx context.Context, userID string) ([]JournalDay, error) {
	entries, err := c.source.GetJournal(ctx, store.JournalFilter{UserID: userID})
	if err != nil {
		return nil, apperrors.Wrap(err, "loading journal")
	}
	if len(entries) == 0 {
		return []JournalDay{}, nil
	}

	// Only sessions within the journal's date span can match.
	first, last := entries[len(entries)-1].Date, entries[0].Date
	sessions, err := c.source.GetSessions(ctx, store.SessionFilter{UserID: userID, StartDate: first, EndDate: last})
	if err != nil {
		return nil, apperrors.Wrap(err, "loading sessions")
	}

	var days map[string]stats.DayStats
	if len(sessions) > 0 {
		ids := make([]string, len(sessions))
		for i, s := range sessions {
			ids[i] = s.ID
		}
		trades, err := c.source.GetTrades(ctx, store.TradeFilter{UserID: userID, SessionIDs: ids})
		if err != nil {
			return nil, apperrors.Wrap(err, "loading trades")
		}
		days = stats.JournalDayStats(entries, sessions, trades)
	}

	out := make([]JournalDay, len(entries))
	for i, e := range entries {
		out[i] = JournalDay{Entry: e}
		if d, ok := days[e.DateKey()]; ok {
			out[i].Stats = &d
		}
	}
	return out, nil
}

// PnLPeriod is the P&L trend for a trailing window.
type PnLPeriod struct {
	Window  stats.TrendWindow   `json:"window"`
	Points  []stats.PnLPoint    `json:"points"`
	Summary stats.PeriodSummary `json:"summary"`
}

// PnLPeriod returns the P&L trend of completed sessions limited to window.
// Cumulative values reflect the full history.
func (c *Composer) PnLPeriod(ctx context.Context, userID string, window stats.TrendWindow) (*PnLPeriod, error) {
	if _, err := stats.ParseTrendWindow(string(window)); err != nil {
		return nil, apperrors.NewValidationError("period", window, err.Error())
	}

	completed, err := c.source.GetSessions(ctx, store.SessionFilter{UserID: userID, Status: models.SessionCompleted})
	if err != nil {
		return nil, apperrors.Wrap(err, "loading completed sessions")
	}
	trades, err := c.source.GetTrades(ctx, store.TradeFilter{UserID: userID})
	if err != nil {
		return nil, apperrors.Wrap(err, "loading trades")
	}

	trend := stats.PnLTrend(stats.PnLByDate(completed, trades))
	points := stats.FilterPnLTrend(trend, window, c.localNow())
	return &PnLPeriod{
		Window:  window,
		Points:  points,
		Summary: stats.SummarizePeriod(points),
	}, nil
}
