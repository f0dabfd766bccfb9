package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/DieselDot/Trademind/internal/errors"
	"github.com/DieselDot/Trademind/internal/models"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SQLStore implements DataStore on top of sqlx. It works with SQLite and
// PostgreSQL; queries are written with ? placeholders and rebound for the
// driver in use.
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

// NewSQLiteStore creates a SQLite-backed data store at dbPath.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	return NewSQLStore(DriverSQLite, dbPath)
}

// NewSQLStore opens a data store with the given driver and DSN and makes
// sure the schema exists.
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLStore{db: db, driver: driver}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLStore) initSchema() error {
	schema := `
	-- Personal trading rules
	CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Trading sessions with their pre/post-session documents
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT,
		status TEXT NOT NULL,
		pre_session TEXT NOT NULL,
		post_session TEXT,
		discipline_score INTEGER,
		trade_seq INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Self-reported trades
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		user_id TEXT NOT NULL,
		trade_number INTEGER NOT NULL,
		result TEXT NOT NULL,
		pnl DOUBLE PRECISION,
		rules_followed BOOLEAN NOT NULL,
		broken_rule_ids TEXT NOT NULL DEFAULT '[]',
		emotion_tag TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		logged_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(session_id, trade_number)
	);

	-- Journal entries
	CREATE TABLE IF NOT EXISTS journal (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_rules_user ON rules(user_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_user_date ON sessions(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_sessions_user_status ON sessions(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_trades_session ON trades(session_id);
	CREATE INDEX IF NOT EXISTS idx_trades_user ON trades(user_id);
	CREATE INDEX IF NOT EXISTS idx_journal_user_date ON journal(user_id, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Driver returns the name of the database driver in use.
func (s *SQLStore) Driver() string {
	return s.driver
}

// Ping verifies the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// in expands slice arguments and rebinds placeholders for the driver.
func (s *SQLStore) in(query string, args ...interface{}) (string, []interface{}, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build query: %w", err)
	}
	return s.db.Rebind(q), a, nil
}

func notFound(entity, id string) error {
	return apperrors.NewDataError(entity, id, "not found", apperrors.ErrNotFound)
}

func checkAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound(entity, id)
	}
	return nil
}

// ============================================================================
// Rules Methods
// ============================================================================

// CreateRule saves a new rule.
func (s *SQLStore) CreateRule(ctx context.Context, rule *models.Rule) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO rules (id, user_id, name, description, category, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), rule.ID, rule.UserID, rule.Name, rule.Description, string(rule.Category), rule.IsActive,
		formatTime(rule.CreatedAt), formatTime(rule.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// UpdateRule updates the editable fields of a rule.
func (s *SQLStore) UpdateRule(ctx context.Context, rule *models.Rule) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE rules SET name = ?, description = ?, category = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`), rule.Name, rule.Description, string(rule.Category), rule.IsActive, formatTime(rule.UpdatedAt),
		rule.ID, rule.UserID)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return checkAffected(res, "rule", rule.ID)
}

// DeleteRule removes a rule.
func (s *SQLStore) DeleteRule(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM rules WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return checkAffected(res, "rule", id)
}

// GetRule retrieves one rule.
func (s *SQLStore) GetRule(ctx context.Context, userID, id string) (*models.Rule, error) {
	var row ruleRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT `+ruleColumns+` FROM rules WHERE id = ? AND user_id = ?
	`), id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("rule", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	rule, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// GetRules retrieves rules ordered by creation time.
func (s *SQLStore) GetRules(ctx context.Context, filter RuleFilter) ([]models.Rule, error) {
	query := "SELECT " + ruleColumns + " FROM rules WHERE user_id = ?"
	args := []interface{}{filter.UserID}

	if filter.ActiveOnly {
		query += " AND is_active = ?"
		args = append(args, true)
	}
	if len(filter.IDs) > 0 {
		query += " AND id IN (?)"
		args = append(args, filter.IDs)
	}
	query += " ORDER BY created_at ASC, id ASC"

	query, args, err := s.in(query, args...)
	if err != nil {
		return nil, err
	}

	var rows []ruleRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	rules := make([]models.Rule, 0, len(rows))
	for _, row := range rows {
		r, err := row.toModel()
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// ============================================================================
// Sessions Methods
// ============================================================================

// CreateSession saves a new session.
func (s *SQLStore) CreateSession(ctx context.Context, session *models.Session) error {
	row, err := newSessionRow(session)
	if err != nil {
		return err
	}

	_, err = sqlx.NamedExecContext(ctx, s.db, `
		INSERT INTO sessions (id, user_id, date, started_at, ended_at, status, pre_session, post_session, discipline_score, created_at, updated_at)
		VALUES (:id, :user_id, :date, :started_at, :ended_at, :status, :pre_session, :post_session, :discipline_score, :created_at, :updated_at)
	`, row)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves one session.
func (s *SQLStore) GetSession(ctx context.Context, userID, id string) (*models.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT `+sessionColumns+` FROM sessions WHERE id = ? AND user_id = ?
	`), id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetActiveSession retrieves the user's active session, or ErrNotFound.
func (s *SQLStore) GetActiveSession(ctx context.Context, userID string) (*models.Session, error) {
	sessions, err := s.GetSessions(ctx, SessionFilter{
		UserID: userID,
		Status: models.SessionActive,
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, notFound("session", "active")
	}
	return &sessions[0], nil
}

// GetSessions retrieves sessions, most recent date first.
func (s *SQLStore) GetSessions(ctx context.Context, filter SessionFilter) ([]models.Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE user_id = ?"
	args := []interface{}{filter.UserID}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if !filter.StartDate.IsZero() {
		query += " AND date >= ?"
		args = append(args, models.DateKey(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		query += " AND date <= ?"
		args = append(args, models.DateKey(filter.EndDate))
	}
	if len(filter.IDs) > 0 {
		query += " AND id IN (?)"
		args = append(args, filter.IDs)
	}

	query += " ORDER BY date DESC, started_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	query, args, err := s.in(query, args...)
	if err != nil {
		return nil, err
	}

	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	sessions := make([]models.Session, 0, len(rows))
	for _, row := range rows {
		session, err := row.toModel()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// CompleteSession sets the end time, reflection, score and status in one
// statement. It fails with ErrSessionCompleted if the session is not active.
func (s *SQLStore) CompleteSession(ctx context.Context, session *models.Session) error {
	row, err := newSessionRow(session)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE sessions
		SET ended_at = ?, status = ?, post_session = ?, discipline_score = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND status = ?
	`), row.EndedAt, string(models.SessionCompleted), row.PostSession, row.DisciplineScore, row.UpdatedAt,
		row.ID, row.UserID, string(models.SessionActive))
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.NewSessionError(session.ID, "complete", apperrors.ErrSessionCompleted)
	}
	return nil
}

// ============================================================================
// Trades Methods
// ============================================================================

// InsertTrade saves a trade and assigns its trade number. Numbers come from a
// per-session counter, so they keep increasing after deletes and are never
// reused. The session must be active.
func (s *SQLStore) InsertTrade(ctx context.Context, trade *models.Trade) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE sessions SET trade_seq = trade_seq + 1
		WHERE id = ? AND user_id = ? AND status = ?
	`), trade.SessionID, trade.UserID, string(models.SessionActive))
	if err != nil {
		return fmt.Errorf("failed to reserve trade number: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	} else if n == 0 {
		return apperrors.NewSessionError(trade.SessionID, "log trade", apperrors.ErrNoActiveSession)
	}

	var number int
	if err := tx.GetContext(ctx, &number, tx.Rebind(`SELECT trade_seq FROM sessions WHERE id = ?`), trade.SessionID); err != nil {
		return fmt.Errorf("failed to read trade number: %w", err)
	}
	trade.TradeNumber = number

	row, err := newTradeRow(trade)
	if err != nil {
		return err
	}
	if _, err := sqlx.NamedExecContext(ctx, tx, `
		INSERT INTO trades (id, session_id, user_id, trade_number, result, pnl, rules_followed, broken_rule_ids, emotion_tag, notes, logged_at, created_at)
		VALUES (:id, :session_id, :user_id, :trade_number, :result, :pnl, :rules_followed, :broken_rule_ids, :emotion_tag, :notes, :logged_at, :created_at)
	`, row); err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteTrade removes a trade. Remaining trade numbers are left as they are.
func (s *SQLStore) DeleteTrade(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM trades WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	return checkAffected(res, "trade", id)
}

// GetTrades retrieves trades ordered by session and trade number.
func (s *SQLStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT " + tradeColumns + " FROM trades WHERE user_id = ?"
	args := []interface{}{filter.UserID}

	if len(filter.SessionIDs) > 0 {
		query += " AND session_id IN (?)"
		args = append(args, filter.SessionIDs)
	}

	query += " ORDER BY session_id ASC, trade_number ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	query, args, err := s.in(query, args...)
	if err != nil {
		return nil, err
	}

	var rows []tradeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}

	trades := make([]models.Trade, 0, len(rows))
	for _, row := range rows {
		t, err := row.toModel()
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// ============================================================================
// Journal Methods
// ============================================================================

// SaveJournalEntry creates or updates a journal entry.
func (s *SQLStore) SaveJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, `
		INSERT INTO journal (id, user_id, date, title, content, image_url, created_at, updated_at)
		VALUES (:id, :user_id, :date, :title, :content, :image_url, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			date = excluded.date,
			title = excluded.title,
			content = excluded.content,
			image_url = excluded.image_url,
			updated_at = excluded.updated_at
	`, newJournalRow(entry))
	if err != nil {
		return fmt.Errorf("failed to save journal entry: %w", err)
	}
	return nil
}

// DeleteJournalEntry removes a journal entry.
func (s *SQLStore) DeleteJournalEntry(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM journal WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete journal entry: %w", err)
	}
	return checkAffected(res, "journal", id)
}

// GetJournalEntry retrieves one journal entry.
func (s *SQLStore) GetJournalEntry(ctx context.Context, userID, id string) (*models.JournalEntry, error) {
	var row journalRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT `+journalColumns+` FROM journal WHERE id = ? AND user_id = ?
	`), id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("journal", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}

	entry, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetJournal retrieves journal entries, most recent date first.
func (s *SQLStore) GetJournal(ctx context.Context, filter JournalFilter) ([]models.JournalEntry, error) {
	query := "SELECT " + journalColumns + " FROM journal WHERE user_id = ?"
	args := []interface{}{filter.UserID}

	if !filter.StartDate.IsZero() {
		query += " AND date >= ?"
		args = append(args, models.DateKey(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		query += " AND date <= ?"
		args = append(args, models.DateKey(filter.EndDate))
	}

	query += " ORDER BY date DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []journalRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}

	entries := make([]models.JournalEntry, 0, len(rows))
	for _, row := range rows {
		e, err := row.toModel()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
