package models

import (
	"strings"
	"unicode/utf8"

	apperrors "github.com/DieselDot/Trademind/internal/errors"
)

// Validate checks a rule before it is stored.
func (r Rule) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return apperrors.NewValidationError("name", r.Name, "rule name is required")
	}
	if utf8.RuneCountInString(name) > 100 {
		return apperrors.NewValidationError("name", r.Name, "rule name is too long")
	}
	if utf8.RuneCountInString(r.Description) > 500 {
		return apperrors.NewValidationError("description", len(r.Description), "description is too long")
	}
	if !r.Category.Valid() {
		return apperrors.NewValidationError("category", r.Category, "please select a category")
	}
	return nil
}

// Validate checks the pre-session check-in.
func (p PreSession) Validate() error {
	if err := checkRating("sleepRating", p.SleepRating); err != nil {
		return err
	}
	if err := checkRating("stressLevel", p.StressLevel); err != nil {
		return err
	}
	if err := checkRating("focusRating", p.FocusRating); err != nil {
		return err
	}
	if err := checkLength("wellnessNotes", p.WellnessNotes, 500); err != nil {
		return err
	}
	if err := checkLength("plannedSetups", p.PlannedSetups, 1000); err != nil {
		return err
	}
	if p.MaxTrades < 1 || p.MaxTrades > 100 {
		return apperrors.NewValidationError("maxTrades", p.MaxTrades, "must be between 1 and 100")
	}
	if p.MaxLoss != nil && *p.MaxLoss < 0 {
		return apperrors.NewValidationError("maxLoss", *p.MaxLoss, "must be non-negative")
	}
	return nil
}

// Validate checks the post-session reflection.
func (p PostSession) Validate() error {
	if err := checkRating("planFollowedRating", p.PlanFollowedRating); err != nil {
		return err
	}
	if err := checkRating("emotionalControlRating", p.EmotionalControlRating); err != nil {
		return err
	}
	if err := checkLength("whatWentWell", p.WhatWentWell, 1000); err != nil {
		return err
	}
	if err := checkLength("whatToImprove", p.WhatToImprove, 1000); err != nil {
		return err
	}
	return checkLength("tomorrowFocus", p.TomorrowFocus, 500)
}

// Validate checks a trade submission.
func (t TradeInput) Validate() error {
	if !t.Result.Valid() {
		return apperrors.NewValidationError("result", t.Result, "must be win, loss or breakeven")
	}
	if !t.EmotionTag.Valid() {
		return apperrors.NewValidationError("emotion_tag", t.EmotionTag, "unknown emotion")
	}
	if t.Result != ResultBreakeven && t.PnL == nil {
		return apperrors.NewValidationError("pnl", nil, "P&L is required")
	}
	return checkLength("notes", t.Notes, 500)
}

// Validate checks a journal entry.
func (j JournalEntry) Validate() error {
	title := strings.TrimSpace(j.Title)
	if title == "" {
		return apperrors.NewValidationError("title", j.Title, "title is required")
	}
	if utf8.RuneCountInString(title) > 200 {
		return apperrors.NewValidationError("title", j.Title, "title is too long")
	}
	if strings.TrimSpace(j.Content) == "" {
		return apperrors.NewValidationError("content", "", "content is required")
	}
	if j.Date.IsZero() {
		return apperrors.NewValidationError("date", j.Date, "date is required")
	}
	return nil
}

func checkRating(field string, v int) error {
	if v < 1 || v > 5 {
		return apperrors.NewValidationError(field, v, "must be between 1 and 5")
	}
	return nil
}

func checkLength(field, s string, max int) error {
	if n := utf8.RuneCountInString(s); n > max {
		return apperrors.NewValidationError(field, n, "is too long")
	}
	return nil
}
