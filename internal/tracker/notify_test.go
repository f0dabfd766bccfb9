package tracker

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DieselDot/Trademind/internal/models"
	"github.com/DieselDot/Trademind/internal/notify"
)

type recordingNotifier struct {
	notify.NoOpNotifier
	mu        sync.Mutex
	alerts    []notify.LimitAlert
	summaries []string
}

func (r *recordingNotifier) SendLimitAlert(_ context.Context, alert notify.LimitAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return nil
}

func (r *recordingNotifier) SendSessionSummary(_ context.Context, session *models.Session, _ []models.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, session.ID)
	return nil
}

func (r *recordingNotifier) sentAlerts() []notify.LimitAlert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.LimitAlert(nil), r.alerts...)
}

func TestLimitAlertsSentOnceWhenCrossed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rec := &recordingNotifier{}
	svc := NewService(f.store,
		WithNotifier(rec),
		WithClock(func() time.Time { return f.now }),
		WithLocation(time.UTC),
	)

	session, err := svc.StartSession(ctx, testUser, pre())
	require.NoError(t, err)

	logTrade := func(result models.TradeResult, v float64) []notify.LimitAlert {
		t.Helper()
		_, err := svc.LogTrade(ctx, testUser, session.ID, models.TradeInput{
			Result: result, PnL: pnl(v), EmotionTag: models.EmotionCalm,
		})
		require.NoError(t, err)
		svc.Wait()
		return rec.sentAlerts()
	}

	assert.Empty(t, logTrade(models.ResultLoss, 200))

	alerts := logTrade(models.ResultLoss, 150)
	require.Len(t, alerts, 1)
	assert.Equal(t, notify.LimitMaxLoss, alerts[0].Kind)
	assert.Equal(t, 350.0, alerts[0].Current)

	alerts = logTrade(models.ResultWin, 100)
	require.Len(t, alerts, 2)
	assert.Equal(t, notify.LimitMaxTrades, alerts[1].Kind)
	assert.Equal(t, 3.0, alerts[1].Current)

	// back above the loss limit after the win, so crossing again alerts again
	alerts = logTrade(models.ResultLoss, 100)
	require.Len(t, alerts, 3)
	assert.Equal(t, notify.LimitMaxLoss, alerts[2].Kind)

	_, err = svc.EndSession(ctx, testUser, session.ID, models.PostSession{PlanFollowedRating: 2, EmotionalControlRating: 2})
	require.NoError(t, err)
	svc.Wait()
	assert.Equal(t, []string{session.ID}, rec.summaries)
}

type blockingNotifier struct {
	notify.NoOpNotifier
	release chan struct{}
	sent    chan error
}

func (b *blockingNotifier) SendLimitAlert(ctx context.Context, _ notify.LimitAlert) error {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	b.sent <- ctx.Err()
	return nil
}

func TestSlowNotifierDoesNotBlockLogTrade(t *testing.T) {
	f := newFixture(t)
	slow := &blockingNotifier{release: make(chan struct{}), sent: make(chan error, 1)}
	svc := NewService(f.store,
		WithNotifier(slow),
		WithClock(func() time.Time { return f.now }),
		WithLocation(time.UTC),
	)

	p := pre()
	p.MaxTrades = 1
	session, err := svc.StartSession(context.Background(), testUser, p)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.LogTrade(ctx, testUser, session.ID, models.TradeInput{Result: models.ResultWin, PnL: pnl(10), EmotionTag: models.EmotionCalm})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("LogTrade waited for the notifier")
	}

	// the request context ending does not cancel the delivery
	cancel()
	close(slow.release)
	svc.Wait()
	assert.NoError(t, <-slow.sent)
}

type failingNotifier struct {
	notify.NoOpNotifier
}

func (*failingNotifier) SendLimitAlert(context.Context, notify.LimitAlert) error {
	return errors.New("webhook returned status 502")
}

func TestUndeliveredNotificationIsLogged(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	svc := NewService(f.store,
		WithNotifier(&failingNotifier{}),
		WithClock(func() time.Time { return f.now }),
		WithLocation(time.UTC),
		WithLogger(zerolog.New(&buf)),
	)

	p := pre()
	p.MaxTrades = 1
	session, err := svc.StartSession(context.Background(), testUser, p)
	require.NoError(t, err)

	_, err = svc.LogTrade(context.Background(), testUser, session.ID, models.TradeInput{Result: models.ResultWin, PnL: pnl(10), EmotionTag: models.EmotionCalm})
	require.NoError(t, err)
	svc.Wait()

	assert.Contains(t, buf.String(), `"operation":"limit_alert"`)
	assert.Contains(t, buf.String(), `"session_id":"`+session.ID+`"`)
	assert.Contains(t, buf.String(), "status 502")
}
