// Package models provides domain models for the discipline tracker.
package models

import (
	"fmt"
	"time"
)

// DateLayout is the fixed-width calendar date format used for keys and storage.
const DateLayout = "2006-01-02"

// RuleCategory represents the category a trading rule belongs to.
type RuleCategory string

const (
	CategoryRisk    RuleCategory = "risk"
	CategoryEntry   RuleCategory = "entry"
	CategoryExit    RuleCategory = "exit"
	CategoryTiming  RuleCategory = "timing"
	CategoryMindset RuleCategory = "mindset"
)

// AllRuleCategories returns every rule category in display order.
func AllRuleCategories() []RuleCategory {
	return []RuleCategory{CategoryRisk, CategoryEntry, CategoryExit, CategoryTiming, CategoryMindset}
}

// ParseRuleCategory converts a raw string to a RuleCategory.
func ParseRuleCategory(s string) (RuleCategory, error) {
	c := RuleCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown rule category %q", s)
	}
	return c, nil
}

// Valid reports whether c is a known category.
func (c RuleCategory) Valid() bool {
	switch c {
	case CategoryRisk, CategoryEntry, CategoryExit, CategoryTiming, CategoryMindset:
		return true
	}
	return false
}

// Label returns the display label.
func (c RuleCategory) Label() string {
	switch c {
	case CategoryRisk:
		return "Risk Management"
	case CategoryEntry:
		return "Entry"
	case CategoryExit:
		return "Exit"
	case CategoryTiming:
		return "Timing"
	case CategoryMindset:
		return "Mindset"
	}
	panic(fmt.Sprintf("models: unhandled rule category %q", string(c)))
}

// Color returns the chart color for the category.
func (c RuleCategory) Color() string {
	switch c {
	case CategoryRisk:
		return "#EF4444"
	case CategoryEntry:
		return "#22C55E"
	case CategoryExit:
		return "#3B82F6"
	case CategoryTiming:
		return "#F59E0B"
	case CategoryMindset:
		return "#A855F7"
	}
	panic(fmt.Sprintf("models: unhandled rule category %q", string(c)))
}

// SessionStatus represents the lifecycle state of a trading session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	return s == SessionActive || s == SessionCompleted
}

// TradeResult represents the outcome of a trade.
type TradeResult string

const (
	ResultWin       TradeResult = "win"
	ResultLoss      TradeResult = "loss"
	ResultBreakeven TradeResult = "breakeven"
)

// AllTradeResults returns every trade result.
func AllTradeResults() []TradeResult {
	return []TradeResult{ResultWin, ResultLoss, ResultBreakeven}
}

// ParseTradeResult converts a raw string to a TradeResult.
func ParseTradeResult(s string) (TradeResult, error) {
	r := TradeResult(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown trade result %q", s)
	}
	return r, nil
}

// Valid reports whether r is a known result.
func (r TradeResult) Valid() bool {
	switch r {
	case ResultWin, ResultLoss, ResultBreakeven:
		return true
	}
	return false
}

// Label returns the short display label.
func (r TradeResult) Label() string {
	switch r {
	case ResultWin:
		return "W"
	case ResultLoss:
		return "L"
	case ResultBreakeven:
		return "BE"
	}
	panic(fmt.Sprintf("models: unhandled trade result %q", string(r)))
}

// EmotionTag represents the dominant emotion a trader reported for a trade.
type EmotionTag string

const (
	EmotionConfident  EmotionTag = "confident"
	EmotionCalm       EmotionTag = "calm"
	EmotionFOMO       EmotionTag = "fomo"
	EmotionRevenge    EmotionTag = "revenge"
	EmotionFearful    EmotionTag = "fearful"
	EmotionFrustrated EmotionTag = "frustrated"
)

// AllEmotionTags returns every emotion tag in canonical order.
func AllEmotionTags() []EmotionTag {
	return []EmotionTag{
		EmotionConfident,
		EmotionCalm,
		EmotionFOMO,
		EmotionRevenge,
		EmotionFearful,
		EmotionFrustrated,
	}
}

// ParseEmotionTag converts a raw string to an EmotionTag.
func ParseEmotionTag(s string) (EmotionTag, error) {
	e := EmotionTag(s)
	if !e.Valid() {
		return "", fmt.Errorf("unknown emotion tag %q", s)
	}
	return e, nil
}

// Valid reports whether e is a known tag.
func (e EmotionTag) Valid() bool {
	switch e {
	case EmotionConfident, EmotionCalm, EmotionFOMO, EmotionRevenge, EmotionFearful, EmotionFrustrated:
		return true
	}
	return false
}

// Index returns the canonical position of the tag, used for stable ordering.
func (e EmotionTag) Index() int {
	switch e {
	case EmotionConfident:
		return 0
	case EmotionCalm:
		return 1
	case EmotionFOMO:
		return 2
	case EmotionRevenge:
		return 3
	case EmotionFearful:
		return 4
	case EmotionFrustrated:
		return 5
	}
	panic(fmt.Sprintf("models: unhandled emotion tag %q", string(e)))
}

// Label returns the display label.
func (e EmotionTag) Label() string {
	switch e {
	case EmotionConfident:
		return "Confident"
	case EmotionCalm:
		return "Calm"
	case EmotionFOMO:
		return "FOMO"
	case EmotionRevenge:
		return "Revenge"
	case EmotionFearful:
		return "Fearful"
	case EmotionFrustrated:
		return "Frustrated"
	}
	panic(fmt.Sprintf("models: unhandled emotion tag %q", string(e)))
}

// Color returns the chart color for the tag.
func (e EmotionTag) Color() string {
	switch e {
	case EmotionConfident:
		return "#22C55E"
	case EmotionCalm:
		return "#3B82F6"
	case EmotionFOMO:
		return "#F59E0B"
	case EmotionRevenge:
		return "#EF4444"
	case EmotionFearful:
		return "#A855F7"
	case EmotionFrustrated:
		return "#F97316"
	}
	panic(fmt.Sprintf("models: unhandled emotion tag %q", string(e)))
}

// CalendarDate strips the time of day from t, keeping t's own year, month and day.
// The result is midnight UTC so that dates compare by value.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DateKey formats t as a YYYY-MM-DD key.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// DisplayDate formats a calendar date as a short chart label ("Jan 2").
func DisplayDate(t time.Time) string {
	return t.Format("Jan 2")
}
