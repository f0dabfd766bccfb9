// Package tracker implements the session lifecycle and the rule and journal
// bookkeeping on top of the data store.
package tracker

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/DieselDot/Trademind/internal/errors"
	"github.com/DieselDot/Trademind/internal/logging"
	"github.com/DieselDot/Trademind/internal/models"
	"github.com/DieselDot/Trademind/internal/notify"
	"github.com/DieselDot/Trademind/internal/scoring"
	"github.com/DieselDot/Trademind/internal/store"
)

// Invalidator drops cached read models after a write.
type Invalidator interface {
	InvalidateDashboard(ctx context.Context, userID string)
}

type nopInvalidator struct{}

func (nopInvalidator) InvalidateDashboard(context.Context, string) {}

// Service runs the tracker operations for any user.
type Service struct {
	store       store.DataStore
	invalidator Invalidator
	notifier    notify.Notifier
	now         func() time.Time
	location    *time.Location
	newID       func() string
	logger      zerolog.Logger

	// pending tracks notifications still being delivered.
	pending sync.WaitGroup
}

// notifyTimeout bounds the delivery of one notification, retries included.
const notifyTimeout = 15 * time.Second

// Option configures a Service.
type Option func(*Service)

// WithInvalidator sets the cache invalidator called after writes.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// WithNotifier sets where limit alerts and session summaries are sent.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the time zone that decides a session's calendar date.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a tracker service over ds.
func NewService(ds store.DataStore, opts ...Option) *Service {
	s := &Service{
		store:       ds,
		invalidator: nopInvalidator{},
		notifier:    notify.NewNoOpNotifier(),
		now:         time.Now,
		location:    time.Local,
		newID:       uuid.NewString,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return models.CalendarDate(s.now().In(s.location))
}

// ============================================================================
// Sessions
// ============================================================================

// StartSession opens a new session for today. A user has at most one
// active session.
func (s *Service) StartSession(ctx context.Context, userID string, pre models.PreSession) (*models.Session, error) {
	if err := pre.Validate(); err != nil {
		return nil, err
	}

	active, err := s.store.GetActiveSession(ctx, userID)
	if err == nil {
		return nil, apperrors.NewSessionError(active.ID, "start", apperrors.ErrActiveSessionExists)
	}
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Wrap(err, "checking active session")
	}

	now := s.now()
	session := &models.Session{
		ID:         s.newID(),
		UserID:     userID,
		Date:       s.today(),
		StartedAt:  now,
		Status:     models.SessionActive,
		PreSession: pre,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateDashboard(ctx, userID)
	logging.LogSessionStarted(logging.WithUser(s.logger, userID), session.ID, pre.MaxTrades)
	return session, nil
}

// ActiveSession returns the user's active session, or ErrNoActiveSession.
func (s *Service) ActiveSession(ctx context.Context, userID string) (*models.Session, error) {
	session, err := s.store.GetActiveSession(ctx, userID)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrNoActiveSession
	}
	return session, err
}

// activeSession loads a session and checks that it can still change.
func (s *Service) activeSession(ctx context.Context, userID, sessionID, op string) (*models.Session, error) {
	session, err := s.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return nil, apperrors.NewSessionError(sessionID, op, apperrors.ErrSessionCompleted)
	}
	return session, nil
}

// LogTrade records a trade in an active session. Broken rule IDs must name
// the user's active rules; the trade follows the rules iff none are broken.
func (s *Service) LogTrade(ctx context.Context, userID, sessionID string, in models.TradeInput) (*models.Trade, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	session, err := s.activeSession(ctx, userID, sessionID, "log trade")
	if err != nil {
		return nil, err
	}

	broken := uniqueIDs(in.BrokenRuleIDs)
	if len(broken) > 0 {
		rules, err := s.store.GetRules(ctx, store.RuleFilter{UserID: userID, ActiveOnly: true, IDs: broken})
		if err != nil {
			return nil, apperrors.Wrap(err, "loading rules")
		}
		if len(rules) != len(broken) {
			names := models.RuleNames(rules)
			for _, id := range broken {
				if _, ok := names[id]; !ok {
					return nil, apperrors.NewValidationError("broken_rule_ids", id, "not one of your active rules")
				}
			}
		}
	}

	now := s.now()
	trade := &models.Trade{
		ID:            s.newID(),
		SessionID:     sessionID,
		UserID:        userID,
		Result:        in.Result,
		PnL:           models.NormalizePnL(in.Result, in.PnL),
		RulesFollowed: len(broken) == 0,
		BrokenRuleIDs: broken,
		EmotionTag:    in.EmotionTag,
		Notes:         strings.TrimSpace(in.Notes),
		LoggedAt:      now,
		CreatedAt:     now,
	}
	if err := s.store.InsertTrade(ctx, trade); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateDashboard(ctx, userID)
	logging.LogTradeLogged(logging.WithUser(s.logger, userID), sessionID, trade.TradeNumber, string(trade.Result), trade.PnL, trade.RulesFollowed)
	s.alertNewLimits(ctx, session)
	return trade, nil
}

// alertNewLimits notifies about limits reached by the latest trade. Limits
// already reached before it were reported then.
func (s *Service) alertNewLimits(ctx context.Context, session *models.Session) {
	trades, err := s.Trades(ctx, session.UserID, session.ID)
	if err != nil || len(trades) == 0 {
		return
	}
	before := notify.CheckLimits(session, trades[:len(trades)-1])
	for _, alert := range notify.CheckLimits(session, trades) {
		if slices.ContainsFunc(before, func(a notify.LimitAlert) bool { return a.Kind == alert.Kind }) {
			continue
		}
		s.deliver(ctx, session.ID, "limit_alert", func(ctx context.Context) error {
			return s.notifier.SendLimitAlert(ctx, alert)
		})
	}
}

// deliver sends a notification in the background so a slow channel never
// holds up the caller. The send gets its own deadline and outlives ctx's
// cancellation.
func (s *Service) deliver(ctx context.Context, sessionID, op string, send func(context.Context) error) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			logger := logging.WithOperation(logging.WithSession(s.logger, sessionID), op)
			logger.Warn().Err(err).Msg("Notification not delivered")
		}
	}()
}

// Wait blocks until all notifications started so far have been delivered
// or have failed.
func (s *Service) Wait() {
	s.pending.Wait()
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Trades returns the trades of a session ordered by trade number.
func (s *Service) Trades(ctx context.Context, userID, sessionID string) ([]models.Trade, error) {
	return s.store.GetTrades(ctx, store.TradeFilter{UserID: userID, SessionIDs: []string{sessionID}})
}

// DeleteTrade removes a trade from an active session. Other trades keep
// their numbers.
func (s *Service) DeleteTrade(ctx context.Context, userID, sessionID, tradeID string) error {
	if _, err := s.activeSession(ctx, userID, sessionID, "delete trade"); err != nil {
		return err
	}

	trades, err := s.Trades(ctx, userID, sessionID)
	if err != nil {
		return apperrors.Wrap(err, "loading trades")
	}
	if !slices.ContainsFunc(trades, func(t models.Trade) bool { return t.ID == tradeID }) {
		return apperrors.NewDataError("trade", tradeID, "not in session "+sessionID, apperrors.ErrNotFound)
	}

	if err := s.store.DeleteTrade(ctx, userID, tradeID); err != nil {
		return err
	}
	s.invalidator.InvalidateDashboard(ctx, userID)
	logger := logging.WithSession(s.logger, sessionID)
	logger.Info().Str("trade_id", tradeID).Msg("Trade deleted")
	return nil
}

// UndoLastTrade removes the most recent trade of the active session.
func (s *Service) UndoLastTrade(ctx context.Context, userID string) (*models.Trade, error) {
	session, err := s.ActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	trades, err := s.Trades(ctx, userID, session.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, "loading trades")
	}
	if len(trades) == 0 {
		return nil, apperrors.NewDataError("trade", "last", "session has no trades", apperrors.ErrNotFound)
	}

	last := trades[len(trades)-1]
	if err := s.DeleteTrade(ctx, userID, session.ID, last.ID); err != nil {
		return nil, err
	}
	return &last, nil
}

// EndSession completes a session: the reflection, discipline score and end
// time are written together.
func (s *Service) EndSession(ctx context.Context, userID, sessionID string, post models.PostSession) (*models.Session, error) {
	if err := post.Validate(); err != nil {
		return nil, err
	}
	session, err := s.activeSession(ctx, userID, sessionID, "end")
	if err != nil {
		return nil, err
	}

	trades, err := s.Trades(ctx, userID, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, "loading trades")
	}

	now := s.now()
	score := scoring.Calculate(&session.PreSession, &post, trades)
	session.PostSession = &post
	session.DisciplineScore = &score
	session.Status = models.SessionCompleted
	session.EndedAt = &now
	session.UpdatedAt = now

	if err := s.store.CompleteSession(ctx, session); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateDashboard(ctx, userID)
	logging.LogSessionCompleted(logging.WithUser(s.logger, userID), sessionID, score, len(trades))
	completed := *session
	s.deliver(ctx, sessionID, "session_summary", func(ctx context.Context) error {
		return s.notifier.SendSessionSummary(ctx, &completed, trades)
	})
	return session, nil
}
