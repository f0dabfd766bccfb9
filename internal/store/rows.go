package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/DieselDot/Trademind/internal/errors"
	"github.com/DieselDot/Trademind/internal/models"
)

// Timestamps are stored as fixed-width RFC 3339 UTC text and calendar dates
// as YYYY-MM-DD text, so both drivers share one schema and both sort as
// strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime also reads rows written with variable-width fractions.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func invalidRow(entity, id string, err error) error {
	return apperrors.NewDataError(entity, id, "invalid stored value", err)
}

const ruleColumns = "id, user_id, name, description, category, is_active, created_at, updated_at"

type ruleRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Category    string `db:"category"`
	IsActive    bool   `db:"is_active"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func (r ruleRow) toModel() (models.Rule, error) {
	category, err := models.ParseRuleCategory(r.Category)
	if err != nil {
		return models.Rule{}, invalidRow("rule", r.ID, err)
	}
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return models.Rule{}, invalidRow("rule", r.ID, err)
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return models.Rule{}, invalidRow("rule", r.ID, err)
	}

	return models.Rule{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Description: r.Description,
		Category:    category,
		IsActive:    r.IsActive,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

const sessionColumns = "id, user_id, date, started_at, ended_at, status, pre_session, post_session, discipline_score, created_at, updated_at"

type sessionRow struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	Date            string         `db:"date"`
	StartedAt       string         `db:"started_at"`
	EndedAt         sql.NullString `db:"ended_at"`
	Status          string         `db:"status"`
	PreSession      string         `db:"pre_session"`
	PostSession     sql.NullString `db:"post_session"`
	DisciplineScore sql.NullInt64  `db:"discipline_score"`
	CreatedAt       string         `db:"created_at"`
	UpdatedAt       string         `db:"updated_at"`
}

func newSessionRow(s *models.Session) (sessionRow, error) {
	pre, err := json.Marshal(s.PreSession)
	if err != nil {
		return sessionRow{}, fmt.Errorf("failed to marshal pre-session: %w", err)
	}

	row := sessionRow{
		ID:         s.ID,
		UserID:     s.UserID,
		Date:       s.DateKey(),
		StartedAt:  formatTime(s.StartedAt),
		Status:     string(s.Status),
		PreSession: string(pre),
		CreatedAt:  formatTime(s.CreatedAt),
		UpdatedAt:  formatTime(s.UpdatedAt),
	}
	if s.EndedAt != nil {
		row.EndedAt = sql.NullString{String: formatTime(*s.EndedAt), Valid: true}
	}
	if s.PostSession != nil {
		post, err := json.Marshal(s.PostSession)
		if err != nil {
			return sessionRow{}, fmt.Errorf("failed to marshal post-session: %w", err)
		}
		row.PostSession = sql.NullString{String: string(post), Valid: true}
	}
	if s.DisciplineScore != nil {
		row.DisciplineScore = sql.NullInt64{Int64: int64(*s.DisciplineScore), Valid: true}
	}
	return row, nil
}

func (r sessionRow) toModel() (models.Session, error) {
	status := models.SessionStatus(r.Status)
	if !status.Valid() {
		return models.Session{}, invalidRow("session", r.ID, fmt.Errorf("unknown status %q", r.Status))
	}
	date, err := models.ParseDate(r.Date)
	if err != nil {
		return models.Session{}, invalidRow("session", r.ID, err)
	}

	s := models.Session{
		ID:     r.ID,
		UserID: r.UserID,
		Date:   date,
		Status: status,
	}
	if s.StartedAt, err = parseTime(r.StartedAt); err != nil {
		return models.Session{}, invalidRow("session", r.ID, err)
	}
	if s.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return models.Session{}, invalidRow("session", r.ID, err)
	}
	if s.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return models.Session{}, invalidRow("session", r.ID, err)
	}
	if r.EndedAt.Valid {
		ended, err := parseTime(r.EndedAt.String)
		if err != nil {
			return models.Session{}, invalidRow("session", r.ID, err)
		}
		s.EndedAt = &ended
	}
	if err := json.Unmarshal([]byte(r.PreSession), &s.PreSession); err != nil {
		return models.Session{}, invalidRow("session", r.ID, err)
	}
	if r.PostSession.Valid {
		var post models.PostSession
		if err := json.Unmarshal([]byte(r.PostSession.String), &post); err != nil {
			return models.Session{}, invalidRow("session", r.ID, err)
		}
		s.PostSession = &post
	}
	if r.DisciplineScore.Valid {
		score := int(r.DisciplineScore.Int64)
		s.DisciplineScore = &score
	}
	return s, nil
}

const tradeColumns = "id, session_id, user_id, trade_number, result, pnl, rules_followed, broken_rule_ids, emotion_tag, notes, logged_at, created_at"

type tradeRow struct {
	ID            string          `db:"id"`
	SessionID     string          `db:"session_id"`
	UserID        string          `db:"user_id"`
	TradeNumber   int             `db:"trade_number"`
	Result        string          `db:"result"`
	PnL           sql.NullFloat64 `db:"pnl"`
	RulesFollowed bool            `db:"rules_followed"`
	BrokenRuleIDs string          `db:"broken_rule_ids"`
	EmotionTag    string          `db:"emotion_tag"`
	Notes         string          `db:"notes"`
	LoggedAt      string          `db:"logged_at"`
	CreatedAt     string          `db:"created_at"`
}

func newTradeRow(t *models.Trade) (tradeRow, error) {
	ids := t.BrokenRuleIDs
	if ids == nil {
		ids = []string{}
	}
	broken, err := json.Marshal(ids)
	if err != nil {
		return tradeRow{}, fmt.Errorf("failed to marshal broken rule ids: %w", err)
	}

	row := tradeRow{
		ID:            t.ID,
		SessionID:     t.SessionID,
		UserID:        t.UserID,
		TradeNumber:   t.TradeNumber,
		Result:        string(t.Result),
		RulesFollowed: t.RulesFollowed,
		BrokenRuleIDs: string(broken),
		EmotionTag:    string(t.EmotionTag),
		Notes:         t.Notes,
		LoggedAt:      formatTime(t.LoggedAt),
		CreatedAt:     formatTime(t.CreatedAt),
	}
	if t.PnL != nil {
		row.PnL = sql.NullFloat64{Float64: *t.PnL, Valid: true}
	}
	return row, nil
}

func (r tradeRow) toModel() (models.Trade, error) {
	result, err := models.ParseTradeResult(r.Result)
	if err != nil {
		return models.Trade{}, invalidRow("trade", r.ID, err)
	}
	emotion, err := models.ParseEmotionTag(r.EmotionTag)
	if err != nil {
		return models.Trade{}, invalidRow("trade", r.ID, err)
	}

	t := models.Trade{
		ID:            r.ID,
		SessionID:     r.SessionID,
		UserID:        r.UserID,
		TradeNumber:   r.TradeNumber,
		Result:        result,
		RulesFollowed: r.RulesFollowed,
		EmotionTag:    emotion,
		Notes:         r.Notes,
	}
	if r.PnL.Valid {
		v := r.PnL.Float64
		t.PnL = &v
	}
	if err := json.Unmarshal([]byte(r.BrokenRuleIDs), &t.BrokenRuleIDs); err != nil {
		return models.Trade{}, invalidRow("trade", r.ID, err)
	}
	if t.LoggedAt, err = parseTime(r.LoggedAt); err != nil {
		return models.Trade{}, invalidRow("trade", r.ID, err)
	}
	if t.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return models.Trade{}, invalidRow("trade", r.ID, err)
	}
	return t, nil
}

const journalColumns = "id, user_id, date, title, content, image_url, created_at, updated_at"

type journalRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Date      string `db:"date"`
	Title     string `db:"title"`
	Content   string `db:"content"`
	ImageURL  string `db:"image_url"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func newJournalRow(e *models.JournalEntry) journalRow {
	return journalRow{
		ID:        e.ID,
		UserID:    e.UserID,
		Date:      e.DateKey(),
		Title:     e.Title,
		Content:   e.Content,
		ImageURL:  e.ImageURL,
		CreatedAt: formatTime(e.CreatedAt),
		UpdatedAt: formatTime(e.UpdatedAt),
	}
}

func (r journalRow) toModel() (models.JournalEntry, error) {
	date, err := models.ParseDate(r.Date)
	if err != nil {
		return models.JournalEntry{}, invalidRow("journal", r.ID, err)
	}
	e := models.JournalEntry{
		ID:       r.ID,
		UserID:   r.UserID,
		Date:     date,
		Title:    r.Title,
		Content:  r.Content,
		ImageURL: r.ImageURL,
	}
	if e.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return models.JournalEntry{}, invalidRow("journal", r.ID, err)
	}
	if e.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return models.JournalEntry{}, invalidRow("journal", r.ID, err)
	}
	return e, nil
}
