// Package stats aggregates trades and sessions into the statistics and
// chart series shown on the dashboard and history views.
//
// Everything in this package is pure: no I/O, no clock reads. Callers pass
// "now" explicitly wherever today's date matters.
package stats

import (
	"slices"

	"github.com/DieselDot/Trademind/internal/models"
	"github.com/DieselDot/Trademind/internal/scoring"
)

// TradeStats holds counts and totals for a list of trades.
type TradeStats struct {
	Count                   int     `json:"count"`
	Wins                    int     `json:"wins"`
	Losses                  int     `json:"losses"`
	Breakeven               int     `json:"breakeven"`
	TotalPnL                float64 `json:"total_pnl"`
	RulesFollowed           int     `json:"rules_followed"`
	RulesFollowedPercentage int     `json:"rules_followed_percentage"`
}

// WinRate returns wins as a rounded percentage of all trades, or 0 with no trades.
func (s TradeStats) WinRate() int {
	if s.Count == 0 {
		return 0
	}
	return percentage(s.Wins, s.Count)
}

// Summarize computes trade statistics in a single pass.
func Summarize(trades []models.Trade) TradeStats {
	var s TradeStats
	for _, t := range trades {
		s.add(t)
	}
	s.finish()
	return s
}

// SummarizeBySession computes per-session statistics keyed by session ID.
func SummarizeBySession(trades []models.Trade) map[string]TradeStats {
	out := make(map[string]TradeStats)
	for _, t := range trades {
		s := out[t.SessionID]
		s.add(t)
		out[t.SessionID] = s
	}
	for id, s := range out {
		s.finish()
		out[id] = s
	}
	return out
}

func (s *TradeStats) add(t models.Trade) {
	s.Count++
	switch t.Result {
	case models.ResultWin:
		s.Wins++
	case models.ResultLoss:
		s.Losses++
	case models.ResultBreakeven:
		s.Breakeven++
	}
	s.TotalPnL += t.PnLValue()
	if t.RulesFollowed {
		s.RulesFollowed++
	}
}

func (s *TradeStats) finish() {
	if s.Count == 0 {
		s.RulesFollowedPercentage = 100
		return
	}
	s.RulesFollowedPercentage = percentage(s.RulesFollowed, s.Count)
}

func percentage(part, total int) int {
	return scoring.RoundHalfUp(float64(part) / float64(total) * 100)
}

// EmotionDistribution counts trades per emotion tag. Every trade contributes
// exactly one tag, so the counts sum to len(trades).
func EmotionDistribution(trades []models.Trade) map[models.EmotionTag]int {
	dist := make(map[models.EmotionTag]int)
	for _, t := range trades {
		dist[t.EmotionTag]++
	}
	return dist
}

// EmotionCount is one slice of the emotion distribution chart.
type EmotionCount struct {
	Emotion models.EmotionTag `json:"emotion"`
	Label   string            `json:"label"`
	Count   int               `json:"count"`
	Color   string            `json:"color"`
}

// EmotionCounts returns the non-zero emotion counts in canonical tag order.
func EmotionCounts(trades []models.Trade) []EmotionCount {
	dist := EmotionDistribution(trades)
	var out []EmotionCount
	for _, e := range models.AllEmotionTags() {
		n := dist[e]
		if n == 0 {
			continue
		}
		out = append(out, EmotionCount{Emotion: e, Label: e.Label(), Count: n, Color: e.Color()})
	}
	return out
}

// EmotionWinRate is the win rate of trades tagged with one emotion.
type EmotionWinRate struct {
	Emotion models.EmotionTag `json:"emotion"`
	Label   string            `json:"label"`
	WinRate int               `json:"win_rate"`
	Total   int               `json:"total"`
}

// EmotionWinRates computes the win rate per emotion tag. Tags without trades
// are left out. The result is sorted by win rate descending, ties broken by
// canonical tag order.
func EmotionWinRates(trades []models.Trade) []EmotionWinRate {
	totals := make(map[models.EmotionTag]int)
	wins := make(map[models.EmotionTag]int)
	for _, t := range trades {
		totals[t.EmotionTag]++
		if t.IsWin() {
			wins[t.EmotionTag]++
		}
	}

	var out []EmotionWinRate
	for _, e := range models.AllEmotionTags() {
		total := totals[e]
		if total == 0 {
			continue
		}
		out = append(out, EmotionWinRate{
			Emotion: e,
			Label:   e.Label(),
			WinRate: percentage(wins[e], total),
			Total:   total,
		})
	}

	slices.SortStableFunc(out, func(a, b EmotionWinRate) int {
		return b.WinRate - a.WinRate
	})
	return out
}

// PnLByDate sums trade P&L per session date (YYYY-MM-DD). Trades whose
// session is not in sessions are skipped.
func PnLByDate(sessions []models.Session, trades []models.Trade) map[string]float64 {
	dates := make(map[string]string, len(sessions))
	for _, s := range sessions {
		dates[s.ID] = s.DateKey()
	}

	byDate := make(map[string]float64)
	for _, t := range trades {
		date, ok := dates[t.SessionID]
		if !ok {
			continue
		}
		byDate[date] += t.PnLValue()
	}
	return byDate
}
