package models

import (
	"math"
	"time"
)

// Trade represents a self-reported trade logged during a session.
type Trade struct {
	ID            string      `json:"id"`
	SessionID     string      `json:"session_id"`
	UserID        string      `json:"user_id"`
	TradeNumber   int         `json:"trade_number"`
	Result        TradeResult `json:"result"`
	PnL           *float64    `json:"pnl,omitempty"`
	RulesFollowed bool        `json:"rules_followed"`
	BrokenRuleIDs []string    `json:"broken_rule_ids"`
	EmotionTag    EmotionTag  `json:"emotion_tag"`
	Notes         string      `json:"notes,omitempty"`
	LoggedAt      time.Time   `json:"logged_at"`
	CreatedAt     time.Time   `json:"created_at"`
}

// PnLValue returns the trade's P&L, treating a missing value as zero.
func (t Trade) PnLValue() float64 {
	if t.PnL == nil {
		return 0
	}
	return *t.PnL
}

// IsWin reports whether the trade was a win.
func (t Trade) IsWin() bool {
	return t.Result == ResultWin
}

// TradeInput is what a user submits when logging a trade.
type TradeInput struct {
	Result        TradeResult `json:"result"`
	PnL           *float64    `json:"pnl,omitempty"`
	BrokenRuleIDs []string    `json:"broken_rule_ids,omitempty"`
	EmotionTag    EmotionTag  `json:"emotion_tag"`
	Notes         string      `json:"notes,omitempty"`
}

// NormalizePnL applies the sign convention for a result: breakeven is
// exactly zero, losses are negative and wins are positive.
func NormalizePnL(result TradeResult, pnl *float64) *float64 {
	if result == ResultBreakeven {
		zero := 0.0
		return &zero
	}
	if pnl == nil {
		return nil
	}
	v := math.Abs(*pnl)
	if result == ResultLoss {
		v = -v
	}
	return &v
}
