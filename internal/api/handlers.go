package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/DieselDot/Trademind/internal/errors"
	"github.com/DieselDot/Trademind/internal/logging"
	"github.com/DieselDot/Trademind/internal/models"
	"github.com/DieselDot/Trademind/internal/stats"
	"github.com/DieselDot/Trademind/internal/tracker"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// fail maps err to a status code and writes it. Server errors are logged
// and not echoed to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		s.writeError(w, status, "internal error")
		return
	}
	s.writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInputValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrNoActiveSession):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrActiveSessionExists), errors.Is(err, apperrors.ErrSessionCompleted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// userID returns the user a request acts for.
func (s *Server) userID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(UserHeader)); id != "" {
		return id
	}
	return s.defaultUser
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return apperrors.NewValidationError("body", nil, "invalid JSON: "+err.Error())
	}
	return nil
}

// ============================================================================
// System
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ============================================================================
// Insights
// ============================================================================

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := s.composer.Dashboard(r.Context(), s.userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	months, err := s.composer.History(r.Context(), s.userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, months)
}

func (s *Server) handlePnL(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = string(stats.Window30D)
	}
	window, err := stats.ParseTrendWindow(period)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pnl, err := s.composer.PnLPeriod(r.Context(), s.userID(r), window)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pnl)
}

// ============================================================================
// Sessions
// ============================================================================

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var pre models.PreSession
	if err := decode(w, r, &pre); err != nil {
		s.fail(w, r, err)
		return
	}

	session, err := s.tracker.StartSession(r.Context(), s.userID(r), pre)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	session, err := s.tracker.ActiveSession(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.composer.SessionView(r.Context(), userID, session.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.composer.SessionView(r.Context(), s.userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleLogTrade(w http.ResponseWriter, r *http.Request) {
	var in models.TradeInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}

	trade, err := s.tracker.LogTrade(r.Context(), s.userID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, trade)
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	err := s.tracker.DeleteTrade(r.Context(), s.userID(r), chi.URLParam(r, "id"), chi.URLParam(r, "tradeID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var post models.PostSession
	if err := decode(w, r, &post); err != nil {
		s.fail(w, r, err)
		return
	}

	session, err := s.tracker.EndSession(r.Context(), s.userID(r), chi.URLParam(r, "id"), post)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

// ============================================================================
// Rules
// ============================================================================

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	rules, err := s.tracker.Rules(r.Context(), s.userID(r), activeOnly)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rules == nil {
		rules = []models.Rule{}
	}
	s.writeJSON(w, http.StatusOK, rules)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var in tracker.RuleInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}

	rule, err := s.tracker.CreateRule(r.Context(), s.userID(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var in tracker.RuleInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}

	rule, err := s.tracker.UpdateRule(r.Context(), s.userID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleToggleRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.tracker.ToggleRule(r.Context(), s.userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteRule(r.Context(), s.userID(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Journal
// ============================================================================

func (s *Server) handleListJournal(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.tracker.Journal(r.Context(), s.userID(r), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// journalRequest accepts the entry date as YYYY-MM-DD.
type journalRequest struct {
	Date     string `json:"date"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

func (s *Server) handleWriteJournal(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	in := tracker.JournalInput{Title: req.Title, Content: req.Content, ImageURL: req.ImageURL}
	if req.Date != "" {
		date, err := models.ParseDate(req.Date)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		in.Date = date
	}

	id := chi.URLParam(r, "id")
	entry, err := s.tracker.WriteJournalEntry(r.Context(), s.userID(r), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, entry)
}

func (s *Server) handleJournalDays(w http.ResponseWriter, r *http.Request) {
	days, err := s.composer.JournalDays(r.Context(), s.userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleDeleteJournal(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteJournalEntry(r.Context(), s.userID(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
