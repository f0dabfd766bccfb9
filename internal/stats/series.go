package stats

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/DieselDot/Trademind/internal/models"
)

// ScoreTrendLength is the number of sessions shown on the score trend chart.
const ScoreTrendLength = 14

// ScorePoint is one point of the discipline score trend.
type ScorePoint struct {
	Date        time.Time `json:"date"`
	DisplayDate string    `json:"display_date"`
	Score       int       `json:"score"`
}

// ScoreTrend yields the n most recent completed sessions in ascending date
// order. Sessions without a score contribute 0. The sequence is computed on
// each iteration and can be ranged over any number of times.
func ScoreTrend(sessions []models.Session, n int) iter.Seq[ScorePoint] {
	return func(yield func(ScorePoint) bool) {
		if n <= 0 {
			return
		}

		var completed []models.Session
		for _, s := range sessions {
			if s.Completed() {
				completed = append(completed, s)
			}
		}
		slices.SortStableFunc(completed, func(a, b models.Session) int {
			return b.Date.Compare(a.Date)
		})
		if len(completed) > n {
			completed = completed[:n]
		}

		for i := len(completed) - 1; i >= 0; i-- {
			s := completed[i]
			p := ScorePoint{Date: s.Date, DisplayDate: models.DisplayDate(s.Date)}
			if s.DisciplineScore != nil {
				p.Score = *s.DisciplineScore
			}
			if !yield(p) {
				return
			}
		}
	}
}

// PnLPoint is one day of the P&L trend.
type PnLPoint struct {
	Date          string  `json:"date"`
	DisplayDate   string  `json:"display_date"`
	PnL           float64 `json:"pnl"`
	CumulativePnL float64 `json:"cumulative_pnl"`
}

// PnLTrend orders the per-day totals by date and adds a running cumulative
// total starting at zero. Days without trades are not filled in.
func PnLTrend(byDate map[string]float64) []PnLPoint {
	dates := slices.Sorted(maps.Keys(byDate))

	points := make([]PnLPoint, 0, len(dates))
	var cumulative float64
	for _, d := range dates {
		pnl := byDate[d]
		cumulative += pnl
		points = append(points, PnLPoint{
			Date:          d,
			DisplayDate:   displayDateKey(d),
			PnL:           pnl,
			CumulativePnL: cumulative,
		})
	}
	return points
}

func displayDateKey(key string) string {
	t, err := models.ParseDate(key)
	if err != nil {
		return key
	}
	return models.DisplayDate(t)
}

// TrendWindow selects a trailing period of the P&L trend.
type TrendWindow string

const (
	Window7D  TrendWindow = "7d"
	Window30D TrendWindow = "30d"
	Window90D TrendWindow = "90d"
	Window1Y  TrendWindow = "1y"
	WindowAll TrendWindow = "all"
)

// AllTrendWindows returns the supported windows, shortest first.
func AllTrendWindows() []TrendWindow {
	return []TrendWindow{Window7D, Window30D, Window90D, Window1Y, WindowAll}
}

// ParseTrendWindow converts a raw string to a TrendWindow.
func ParseTrendWindow(s string) (TrendWindow, error) {
	w := TrendWindow(s)
	switch w {
	case Window7D, Window30D, Window90D, Window1Y, WindowAll:
		return w, nil
	}
	return "", fmt.Errorf("unknown period %q (want 7d, 30d, 90d, 1y or all)", s)
}

// Days returns the window length in days. ok is false for the unbounded window.
func (w TrendWindow) Days() (days int, ok bool) {
	switch w {
	case Window7D:
		return 7, true
	case Window30D:
		return 30, true
	case Window90D:
		return 90, true
	case Window1Y:
		return 365, true
	case WindowAll:
		return 0, false
	}
	panic(fmt.Sprintf("stats: unhandled trend window %q", string(w)))
}

// FilterPnLTrend keeps the points dated on or after today minus the window.
// Cumulative values are left as computed over the full history.
func FilterPnLTrend(points []PnLPoint, window TrendWindow, now time.Time) []PnLPoint {
	days, bounded := window.Days()
	if !bounded {
		return slices.Clone(points)
	}

	cutoff := models.DateKey(models.CalendarDate(now).AddDate(0, 0, -days))
	out := make([]PnLPoint, 0, len(points))
	for _, p := range points {
		if p.Date >= cutoff {
			out = append(out, p)
		}
	}
	return out
}

// PeriodSummary summarizes the visible part of a P&L trend.
type PeriodSummary struct {
	// Total is the sum of the daily P&L in the period.
	Total float64 `json:"total"`
	// Change is the cumulative P&L gained over the period.
	Change float64 `json:"change"`
	// Latest is the cumulative P&L at the last point.
	Latest float64 `json:"latest"`
}

// SummarizePeriod summarizes a (possibly filtered) P&L trend.
func SummarizePeriod(points []PnLPoint) PeriodSummary {
	if len(points) == 0 {
		return PeriodSummary{}
	}

	var s PeriodSummary
	for _, p := range points {
		s.Total += p.PnL
	}
	first, last := points[0], points[len(points)-1]
	s.Latest = last.CumulativePnL
	s.Change = last.CumulativePnL - (first.CumulativePnL - first.PnL)
	return s
}

// DayStats holds the trading results of one calendar day.
type DayStats struct {
	TotalPnL   float64 `json:"total_pnl"`
	TradeCount int     `json:"trade_count"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
}

// JournalDayStats links journal entries to the trading of their day. Only
// dates that have at least one session appear in the result.
func JournalDayStats(entries []models.JournalEntry, sessions []models.Session, trades []models.Trade) map[string]DayStats {
	wanted := make(map[string]bool, len(entries))
	for _, e := range entries {
		wanted[e.DateKey()] = true
	}

	sessionDates := make(map[string]string)
	out := make(map[string]DayStats)
	for _, s := range sessions {
		date := s.DateKey()
		if !wanted[date] {
			continue
		}
		sessionDates[s.ID] = date
		out[date] = out[date]
	}

	for _, t := range trades {
		date, ok := sessionDates[t.SessionID]
		if !ok {
			continue
		}
		d := out[date]
		d.TotalPnL += t.PnLValue()
		d.TradeCount++
		switch t.Result {
		case models.ResultWin:
			d.Wins++
		case models.ResultLoss:
			d.Losses++
		}
		out[date] = d
	}
	return out
}
