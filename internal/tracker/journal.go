package tracker

import (
	"context"
	"strings"
	"time"

	"github.com/DieselDot/Trademind/internal/models"
	"github.com/DieselDot/Trademind/internal/store"
)

// JournalInput is the editable part of a journal entry.
type JournalInput struct {
	Date     time.Time `json:"date"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	ImageURL string    `json:"image_url,omitempty"`
}

// Journal lists the user's journal entries, newest first.
func (s *Service) Journal(ctx context.Context, userID string, limit int) ([]models.JournalEntry, error) {
	return s.store.GetJournal(ctx, store.JournalFilter{UserID: userID, Limit: limit})
}

// JournalEntry returns a single entry.
func (s *Service) JournalEntry(ctx context.Context, userID, id string) (*models.JournalEntry, error) {
	return s.store.GetJournalEntry(ctx, userID, id)
}

// WriteJournalEntry creates an entry, or updates it when id names an
// existing one. A zero date means today.
func (s *Service) WriteJournalEntry(ctx context.Context, userID, id string, in JournalInput) (*models.JournalEntry, error) {
	now := s.now()
	entry := &models.JournalEntry{ID: id, UserID: userID, CreatedAt: now}
	if id != "" {
		existing, err := s.store.GetJournalEntry(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		entry = existing
	} else {
		entry.ID = s.newID()
	}

	entry.Date = models.CalendarDate(in.Date)
	if in.Date.IsZero() {
		entry.Date = s.today()
	}
	entry.Title = strings.TrimSpace(in.Title)
	entry.Content = in.Content
	entry.ImageURL = strings.TrimSpace(in.ImageURL)
	entry.UpdatedAt = now
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.SaveJournalEntry(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("user_id", userID).Str("entry_id", entry.ID).Str("date", entry.DateKey()).Msg("Journal entry saved")
	return entry, nil
}

// DeleteJournalEntry removes an entry.
func (s *Service) DeleteJournalEntry(ctx context.Context, userID, id string) error {
	return s.store.DeleteJournalEntry(ctx, userID, id)
}
