// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/DieselDot/Trademind/internal/models"
)

// DataStore defines the interface for data persistence.
// Every query is scoped to a single owning user.
type DataStore interface {
	// Rules
	CreateRule(ctx context.Context, rule *models.Rule) error
	UpdateRule(ctx context.Context, rule *models.Rule) error
	DeleteRule(ctx context.Context, userID, id string) error
	GetRule(ctx context.Context, userID, id string) (*models.Rule, error)
	GetRules(ctx context.Context, filter RuleFilter) ([]models.Rule, error)

	// Sessions
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, userID, id string) (*models.Session, error)
	GetActiveSession(ctx context.Context, userID string) (*models.Session, error)
	GetSessions(ctx context.Context, filter SessionFilter) ([]models.Session, error)
	CompleteSession(ctx context.Context, session *models.Session) error

	// Trades
	InsertTrade(ctx context.Context, trade *models.Trade) error
	DeleteTrade(ctx context.Context, userID, id string) error
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)

	// Journal
	SaveJournalEntry(ctx context.Context, entry *models.JournalEntry) error
	DeleteJournalEntry(ctx context.Context, userID, id string) error
	GetJournalEntry(ctx context.Context, userID, id string) (*models.JournalEntry, error)
	GetJournal(ctx context.Context, filter JournalFilter) ([]models.JournalEntry, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// RuleFilter represents filters for querying rules.
type RuleFilter struct {
	UserID     string
	ActiveOnly bool
	IDs        []string
}

// SessionFilter represents filters for querying sessions.
// Results are ordered by date, most recent first.
type SessionFilter struct {
	UserID    string
	Status    models.SessionStatus
	StartDate time.Time
	EndDate   time.Time
	IDs       []string
	Limit     int
}

// TradeFilter represents filters for querying trades.
// Results are ordered by session and trade number.
type TradeFilter struct {
	UserID     string
	SessionIDs []string
	Limit      int
}

// JournalFilter represents filters for querying journal entries.
// Results are ordered by date, most recent first.
type JournalFilter struct {
	UserID    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
