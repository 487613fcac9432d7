package handlers

import (
	"fmt"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/profiles"
	"github.com/dvloznov/finance-dashboard/internal/projection"
	"github.com/dvloznov/finance-dashboard/internal/report"
)

// maxCashflowMonths bounds ?months on the cashflow endpoint.
const maxCashflowMonths = 120

// ProjectionsHandler serves the read-only projections of a profile.
type ProjectionsHandler struct {
	repo  *profiles.Repository
	today func() civil.Date
	log   zerolog.Logger
}

// NewProjectionsHandler creates a projections handler. today supplies the
// default as-of date.
func NewProjectionsHandler(repo *profiles.Repository, today func() civil.Date, log zerolog.Logger) *ProjectionsHandler {
	if today == nil {
		today = Today
	}
	return &ProjectionsHandler{repo: repo, today: today, log: log}
}

// Register adds the projection routes to mux.
func (h *ProjectionsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/profiles/{profile}/projections/balance", h.Balance)
	mux.HandleFunc("GET /api/profiles/{profile}/projections/cashflow", h.Cashflow)
	mux.HandleFunc("GET /api/profiles/{profile}/projections/debt", h.Debt)
	mux.HandleFunc("GET /api/profiles/{profile}/projections/goals", h.Goals)
	mux.HandleFunc("GET /api/profiles/{profile}/upcoming", h.Upcoming)
	mux.HandleFunc("GET /api/profiles/{profile}/report", h.Report)
}

// load resolves the profile and as-of date shared by every projection.
func (h *ProjectionsHandler) load(w http.ResponseWriter, r *http.Request) (*domain.ProfileData, civil.Date, bool) {
	today, err := asOf(r, h.today)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, civil.Date{}, false
	}
	data, err := h.repo.Load(r.Context(), r.PathValue("profile"))
	if err != nil {
		writeFailure(w, h.log, err, "Failed to load profile")
		return nil, civil.Date{}, false
	}
	return data, today, true
}

// Balance handles GET /api/profiles/{profile}/projections/balance?month=YYYY-MM
func (h *ProjectionsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	data, today, ok := h.load(w, r)
	if !ok {
		return
	}
	m, err := month(r, today)
	if err == nil {
		err = projection.CheckBalanceMonth(m, today)
	}
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"month": m.String(),
		"days":  projection.ProjectMonthBalances(data, m, today),
	})
}

// Cashflow handles GET /api/profiles/{profile}/projections/cashflow?months=N
func (h *ProjectionsHandler) Cashflow(w http.ResponseWriter, r *http.Request) {
	data, today, ok := h.load(w, r)
	if !ok {
		return
	}
	months, err := positiveInt(r, "months", projection.DefaultCashflowWindow)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if months > maxCashflowMonths {
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("months must be at most %d", maxCashflowMonths))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"months": projection.MonthlyTotals(data.Transactions, today, months),
	})
}

// Debt handles GET /api/profiles/{profile}/projections/debt
func (h *ProjectionsHandler) Debt(w http.ResponseWriter, r *http.Request) {
	data, today, ok := h.load(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"points": projection.ProjectPayoff(data.Transactions, today),
	})
}

// Goals handles GET /api/profiles/{profile}/projections/goals
func (h *ProjectionsHandler) Goals(w http.ResponseWriter, r *http.Request) {
	data, today, ok := h.load(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, projection.ProjectGoalPayoff(data.Goals, data.Transactions, today))
}

// Upcoming handles GET /api/profiles/{profile}/upcoming?month=YYYY-MM
func (h *ProjectionsHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	data, today, ok := h.load(w, r)
	if !ok {
		return
	}
	m, err := month(r, today)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	payments := projection.UpcomingPayments(data.Transactions, m)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"month":    m.String(),
		"payments": payments,
		"count":    len(payments),
	})
}

// Report handles GET /api/profiles/{profile}/report and returns an XLSX workbook.
func (h *ProjectionsHandler) Report(w http.ResponseWriter, r *http.Request) {
	data, today, ok := h.load(w, r)
	if !ok {
		return
	}
	settings, err := h.repo.Settings(r.Context())
	if err != nil {
		writeFailure(w, h.log, err, "Failed to load settings")
		return
	}

	name := r.PathValue("profile")
	f, err := report.Build(name, data, settings, today)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to build report")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-%s.xlsx", name, today)))
	if err := f.Write(w); err != nil {
		h.log.Error().Err(err).Str("profile", name).Msg("Failed to write report")
	}
}
