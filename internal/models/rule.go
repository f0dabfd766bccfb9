package models

import "time"

// Rule represents a personal trading rule.
type Rule struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Category    RuleCategory `json:"category"`
	IsActive    bool         `json:"is_active"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// RuleNames builds a rule_id -> name lookup.
func RuleNames(rules []Rule) map[string]string {
	names := make(map[string]string, len(rules))
	for _, r := range rules {
		names[r.ID] = r.Name
	}
	return names
}

// JournalEntry represents a free-form journal note for a calendar day.
type JournalEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Date      time.Time `json:"date"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DateKey returns the entry's calendar date as YYYY-MM-DD.
func (j JournalEntry) DateKey() string {
	return DateKey(j.Date)
}
