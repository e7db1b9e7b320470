package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"meudinheiro/internal/app"
	"meudinheiro/internal/core"
	"meudinheiro/internal/icons"
	"meudinheiro/internal/identity"
	"meudinheiro/internal/ledger"
	"meudinheiro/internal/log"
	"meudinheiro/internal/prefs"
)

type categoriesResponse struct {
	Categories core.CategoryMap     `json:"categories"`
	Icons      core.CategoryIconMap `json:"icons"`
}

type monthsResponse struct {
	Months   []core.MonthData `json:"months"`
	Selected string           `json:"selected"`
}

type themeResponse struct {
	DarkMode bool `json:"darkMode"`
}

type adviceResponse struct {
	Advice string `json:"advice"`
}

type sessionResponse struct {
	User    *identity.Identity `json:"user"`
	Syncing bool               `json:"syncing"`
}

// parseBody reads the request body, answering 422 when it is malformed.
func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeDomainError(w, r, err)
		return nil, false
	}
	return p, true
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	writeJSON(w, http.StatusOK, ctrl.View())
}

func (s *Server) handleIcons(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, icons.All())
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	txs := ctrl.CurrentTransactions(r.URL.Query().Get("month"))
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	in, err := parseTransactionInput(p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	tx, err := ctrl.AddTransaction(in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithTransaction(tx.ID, string(tx.Type), tx.Category, tx.Amount.String()).
			ToSlice()...)
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleParseTransaction(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	tx, err := ctrl.ParseAndAdd(r.Context(), p.Get("text"))
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		writeStatusError(w, r, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	id := urlParam(r, "id")
	// Deleting an absent id is a no-op, not an error.
	if ctrl.Ledger().DeleteTransaction(id) {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
			log.FieldTransactionID, id, log.FieldOperation, log.OpDelete)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleTransaction(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	id := urlParam(r, "id")
	tx, ok := ctrl.Ledger().ToggleStatus(id)
	if !ok {
		writeDomainError(w, r, fmt.Errorf("%w: transaction %s", core.ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	stats := ledger.Summarize(ctrl.CurrentTransactions(r.URL.Query().Get("month")))
	writeJSON(w, http.StatusOK, struct {
		core.SummaryStats
		Bars []core.Bar `json:"bars"`
	}{stats, ledger.ComparisonBars(stats)})
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	breakdown := ledger.CategoryBreakdown(ctrl.CurrentTransactions(r.URL.Query().Get("month")))
	if breakdown == nil {
		breakdown = []core.CategoryTotal{}
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	writeJSON(w, http.StatusOK, monthsResponse{Months: ctrl.Ledger().Months(), Selected: ctrl.SelectedMonth()})
}

func (s *Server) handleAddMonth(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	index, err := parseInt(p, "month")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	year, err := parseInt(p, "year")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	m, err := ctrl.AddMonth(index, year)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleSelectMonth(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	id := p.Get("id")
	if id == "" {
		writeDomainError(w, r, fmt.Errorf("%w: id is required", core.ErrValidation))
		return
	}
	ctrl.SelectMonth(id)
	writeJSON(w, http.StatusOK, monthsResponse{Months: ctrl.Ledger().Months(), Selected: ctrl.SelectedMonth()})
}

func (s *Server) handleDeleteMonth(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	if err := ctrl.DeleteMonth(urlParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, monthsResponse{Months: ctrl.Ledger().Months(), Selected: ctrl.SelectedMonth()})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	writeJSON(w, http.StatusOK, categoriesResponse{
		Categories: ctrl.Ledger().Categories(),
		Icons:      ctrl.Ledger().CategoryIcons(),
	})
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	t, err := core.ParseType(p.Get("type"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	name := p.Get("name")
	if name == "" {
		writeDomainError(w, r, fmt.Errorf("%w: name is required", core.ErrValidation))
		return
	}
	icon := p.Get("icon")
	if icon == "" {
		icon = icons.Fallback
	}
	if err := ctrl.Ledger().AddCategory(t, name, icon); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoriesResponse{
		Categories: ctrl.Ledger().Categories(),
		Icons:      ctrl.Ledger().CategoryIcons(),
	})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	t, err := core.ParseType(urlParam(r, "type"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	removed, err := ctrl.Ledger().DeleteCategory(t, urlParam(r, "name"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !removed {
		writeDomainError(w, r, fmt.Errorf("%w: category %s", core.ErrNotFound, urlParam(r, "name")))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	if s.deps.Preferences == nil {
		writeJSON(w, http.StatusOK, themeResponse{DarkMode: prefs.Default().DarkMode})
		return
	}
	writeJSON(w, http.StatusOK, themeResponse{DarkMode: s.deps.Preferences.Get(clientID(w, r)).DarkMode})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	if s.deps.Preferences == nil {
		writeError(w, http.StatusServiceUnavailable, "preferences not configured")
		return
	}
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	on, err := parseBool(p.Get("darkMode"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.deps.Preferences.SetDarkMode(clientID(w, r), on); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, themeResponse{DarkMode: on})
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	if s.deps.Preferences == nil {
		writeError(w, http.StatusServiceUnavailable, "preferences not configured")
		return
	}
	on, err := s.deps.Preferences.Toggle(clientID(w, r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, themeResponse{DarkMode: on})
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	writeJSON(w, http.StatusOK, adviceResponse{Advice: ctrl.Advice(r.Context())})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	if s.deps.Verifier == nil {
		writeDomainError(w, r, identity.ErrNotConfigured)
		return
	}
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if token == "" {
		writeDomainError(w, r, fmt.Errorf("%w: missing bearer token", identity.ErrInvalidToken))
		return
	}
	id, err := s.deps.Verifier.Verify(token)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected sign-in token",
			log.FieldOperation, log.OpSignIn, log.FieldError, err)
		writeDomainError(w, r, err)
		return
	}
	s.signIn(w, r, id, ctrl)
}

func (s *Server) handleDemoSignIn(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	s.signIn(w, r, identity.Demo(), ctrl)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request, id identity.Identity, ctrl *app.Controller) {
	if err := ctrl.SignIn(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	user := ctrl.Identity()
	writeJSON(w, http.StatusOK, sessionResponse{User: &user, Syncing: ctrl.Syncing()})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.sessions.controllerFor(w, r)
	ctrl.SignOut(r.Context())
	log.FromContext(r.Context()).InfoContext(r.Context(), "Signed out", log.FieldOperation, log.OpSignOut)
	writeJSON(w, http.StatusOK, sessionResponse{})
}
