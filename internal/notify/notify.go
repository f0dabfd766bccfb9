// Package notify delivers discipline alerts and session summaries to
// external channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/DieselDot/Trademind/internal/models"
)

// Notifier sends notifications about a user's trading sessions.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendLimitAlert(ctx context.Context, alert LimitAlert) error
	SendSessionSummary(ctx context.Context, session *models.Session, trades []models.Trade) error
}

// NotificationChannel is one delivery target.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType
	UserID    string
	Title     string
	Message   string
	Data      map[string]any
	Timestamp time.Time
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationAlert   NotificationType = "alert"
	NotificationSummary NotificationType = "summary"
	NotificationInfo    NotificationType = "info"
)

// NotificationLevel filters which notifications are delivered.
type NotificationLevel string

const (
	LevelAll           NotificationLevel = "all"
	LevelAlertsOnly    NotificationLevel = "alerts_only"
	LevelSummariesOnly NotificationLevel = "summaries_only"
)

// ValidLevel reports whether level names a supported filter.
func ValidLevel(level string) bool {
	switch NotificationLevel(level) {
	case "", LevelAll, LevelAlertsOnly, LevelSummariesOnly:
		return true
	}
	return false
}

// LimitKind names the pre-session limit that was reached.
type LimitKind string

const (
	LimitMaxTrades LimitKind = "max_trades"
	LimitMaxLoss   LimitKind = "max_loss"
)

// LimitAlert reports that a session reached one of its own limits.
type LimitAlert struct {
	UserID    string
	SessionID string
	Kind      LimitKind
	Limit     float64
	Current   float64
}

// CheckLimits returns the limits of pre that the session's trades have
// reached. A limit of zero is unset.
func CheckLimits(session *models.Session, trades []models.Trade) []LimitAlert {
	var alerts []LimitAlert
	pre := session.PreSession

	if pre.MaxTrades > 0 && len(trades) >= pre.MaxTrades {
		alerts = append(alerts, LimitAlert{
			UserID:    session.UserID,
			SessionID: session.ID,
			Kind:      LimitMaxTrades,
			Limit:     float64(pre.MaxTrades),
			Current:   float64(len(trades)),
		})
	}

	if pre.MaxLoss != nil && *pre.MaxLoss > 0 {
		var net float64
		for _, t := range trades {
			net += t.PnLValue()
		}
		if net < 0 && -net >= *pre.MaxLoss {
			alerts = append(alerts, LimitAlert{
				UserID:    session.UserID,
				SessionID: session.ID,
				Kind:      LimitMaxLoss,
				Limit:     *pre.MaxLoss,
				Current:   -net,
			})
		}
	}
	return alerts
}

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []NotificationChannel
	level    NotificationLevel
	mu       sync.RWMutex
}

// Config configures a MultiNotifier.
type Config struct {
	Level      string
	WebhookURL string
}

// NewMultiNotifier creates a MultiNotifier with a webhook channel when a URL
// is configured.
func NewMultiNotifier(cfg Config) *MultiNotifier {
	mn := &MultiNotifier{
		level: NotificationLevel(cfg.Level),
	}
	if mn.level == "" {
		mn.level = LevelAll
	}
	if cfg.WebhookURL != "" {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.WebhookURL))
	}
	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

func (mn *MultiNotifier) shouldSend(notifType NotificationType) bool {
	switch mn.level {
	case LevelAlertsOnly:
		return notifType == NotificationAlert
	case LevelSummariesOnly:
		return notifType == NotificationSummary
	default:
		return true
	}
}

// Send sends a notification to all enabled channels.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !mn.shouldSend(n.Type) {
		return nil
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if ch.IsEnabled() {
			if err := ch.Send(ctx, n); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendLimitAlert sends an alert for a reached session limit.
func (mn *MultiNotifier) SendLimitAlert(ctx context.Context, alert LimitAlert) error {
	var title, message string
	switch alert.Kind {
	case LimitMaxTrades:
		title = "Trade limit reached"
		message = fmt.Sprintf("%d of %d planned trades taken. Time to stop.", int(alert.Current), int(alert.Limit))
	case LimitMaxLoss:
		title = "Loss limit reached"
		message = fmt.Sprintf("Session loss %.2f has reached the %.2f limit. Stop trading for today.", alert.Current, alert.Limit)
	default:
		title = "Session limit reached"
		message = fmt.Sprintf("%s: %.2f / %.2f", alert.Kind, alert.Current, alert.Limit)
	}

	return mn.Send(ctx, Notification{
		Type:    NotificationAlert,
		UserID:  alert.UserID,
		Title:   title,
		Message: message,
		Data: map[string]any{
			"session_id": alert.SessionID,
			"limit":      string(alert.Kind),
			"value":      alert.Current,
			"threshold":  alert.Limit,
		},
	})
}

// SendSessionSummary sends the result of a completed session.
func (mn *MultiNotifier) SendSessionSummary(ctx context.Context, session *models.Session, trades []models.Trade) error {
	var wins, losses, broken int
	var pnl float64
	for _, t := range trades {
		switch t.Result {
		case models.ResultWin:
			wins++
		case models.ResultLoss:
			losses++
		}
		if !t.RulesFollowed {
			broken++
		}
		pnl += t.PnLValue()
	}

	score := 0
	if session.DisciplineScore != nil {
		score = *session.DisciplineScore
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Discipline score %d/100\n", score)
	fmt.Fprintf(&sb, "Trades: %d (%d W / %d L)\n", len(trades), wins, losses)
	fmt.Fprintf(&sb, "P&L: %+.2f\n", pnl)
	if broken > 0 {
		fmt.Fprintf(&sb, "Trades breaking rules: %d", broken)
	} else {
		sb.WriteString("All trades followed the rules")
	}

	return mn.Send(ctx, Notification{
		Type:    NotificationSummary,
		UserID:  session.UserID,
		Title:   "Session complete: " + models.DisplayDate(session.Date),
		Message: sb.String(),
		Data: map[string]any{
			"session_id":       session.ID,
			"date":             session.DateKey(),
			"discipline_score": score,
			"trades":           len(trades),
			"wins":             wins,
			"losses":           losses,
			"pnl":              pnl,
		},
	})
}

// WebhookNotifier posts notifications as JSON to a URL.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
	retry   RetryConfig
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:     url,
		enabled: url != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry: DefaultRetryConfig(),
	}
}

// WithRetry replaces the retry configuration.
func (w *WebhookNotifier) WithRetry(cfg RetryConfig) *WebhookNotifier {
	w.retry = cfg
	return w
}

// Name returns the name of the notifier.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// IsEnabled returns whether the notifier is enabled.
func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

// Send sends a notification via webhook.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]any{
		"type":      n.Type,
		"user_id":   n.UserID,
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	return retry(ctx, w.retry, func() error {
		return w.post(ctx, body)
	})
}

// post delivers one attempt. Client errors other than 429 are permanent.
func (w *WebhookNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return permanent(fmt.Errorf("creating webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Trademind/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("webhook returned status %d", resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return permanent(err)
		}
		return err
	}
	return nil
}

// NoOpNotifier is a notifier that does nothing.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

func (*NoOpNotifier) Send(context.Context, Notification) error { return nil }

func (*NoOpNotifier) SendLimitAlert(context.Context, LimitAlert) error { return nil }

func (*NoOpNotifier) SendSessionSummary(context.Context, *models.Session, []models.Trade) error {
	return nil
}
