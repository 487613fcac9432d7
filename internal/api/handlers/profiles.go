package handlers

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/profiles"
)

// ProfilesHandler handles profiles, settings and every profile mutation.
type ProfilesHandler struct {
	repo *profiles.Repository
	log  zerolog.Logger
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(repo *profiles.Repository, log zerolog.Logger) *ProfilesHandler {
	return &ProfilesHandler{repo: repo, log: log}
}

// Register adds the profile routes to mux.
func (h *ProfilesHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/settings", h.GetSettings)
	mux.HandleFunc("PUT /api/settings", h.PutSettings)

	mux.HandleFunc("GET /api/profiles", h.ListProfiles)
	mux.HandleFunc("POST /api/profiles", h.CreateProfile)
	mux.HandleFunc("PUT /api/profiles/active", h.SetActive)
	mux.HandleFunc("GET /api/profiles/{profile}", h.GetProfile)
	mux.HandleFunc("DELETE /api/profiles/{profile}", h.DeleteProfile)
	mux.HandleFunc("PUT /api/profiles/{profile}/balance", h.SetBalance)

	mux.HandleFunc("POST /api/profiles/{profile}/transactions", h.AddTransaction)
	mux.HandleFunc("PUT /api/profiles/{profile}/transactions/{id}", h.UpdateTransaction)
	mux.HandleFunc("DELETE /api/profiles/{profile}/transactions/{id}", h.DeleteTransaction)
	mux.HandleFunc("POST /api/profiles/{profile}/transactions/{id}/paid", h.MarkPaid)

	mux.HandleFunc("GET /api/profiles/{profile}/goals", h.ListGoals)
	mux.HandleFunc("POST /api/profiles/{profile}/goals", h.AddGoal)
	mux.HandleFunc("PUT /api/profiles/{profile}/goals/order", h.ReorderGoals)
	mux.HandleFunc("PUT /api/profiles/{profile}/goals/{id}", h.UpdateGoal)
	mux.HandleFunc("DELETE /api/profiles/{profile}/goals/{id}", h.DeleteGoal)

	mux.HandleFunc("POST /api/profiles/{profile}/accounts", h.AddAccount)
	mux.HandleFunc("PUT /api/profiles/{profile}/accounts/{id}", h.UpdateAccount)
	mux.HandleFunc("DELETE /api/profiles/{profile}/accounts/{id}", h.DeleteAccount)
	mux.HandleFunc("POST /api/profiles/{profile}/accounts/{id}/interest", h.AddInterest)
}

// GetSettings handles GET /api/settings
func (h *ProfilesHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.repo.Settings(r.Context())
	if err != nil {
		writeFailure(w, h.log, err, "Failed to load settings")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, s)
}

// PutSettings handles PUT /api/settings
func (h *ProfilesHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var s domain.Settings
	if err := decodeJSON(w, r, &s); err != nil {
		writeFailure(w, h.log, err, "Invalid request body")
		return
	}
	if err := h.repo.SaveSettings(r.Context(), s); err != nil {
		writeFailure(w, h.log, err, "Failed to save settings")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, s.WithDefaults())
}

// ListProfiles handles GET /api/profiles
func (h *ProfilesHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	names, err := h.repo.List(ctx)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to list profiles")
		return
	}
	active, err := h.repo.Active(ctx)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to list profiles")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"profiles": names,
		"active":   active,
		"count":    len(names),
	})
}

// CreateProfile handles POST /api/profiles
func (h *ProfilesHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, h.log, err, "Invalid request body")
		return
	}
	if err := h.repo.Create(r.Context(), req.Name); err != nil {
		writeFailure(w, h.log, err, "Failed to create profile")
		return
	}

	logger.ForProfile(h.log, req.Name).Info().Msg("Profile created")
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// SetActive handles PUT /api/profiles/active
func (h *ProfilesHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, h.log, err, "Invalid request body")
		return
	}
	if err := h.repo.SetActive(r.Context(), req.Name); err != nil {
		writeFailure(w, h.log, err, "Failed to switch profile")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"active": req.Name})
}

// GetProfile handles GET /api/profiles/{profile}
func (h *ProfilesHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("profile")

	data, err := h.repo.Load(r.Context(), name)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to load profile")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"name":                 name,
		"data":                 data,
		"effectiveGoalAmounts": data.EffectiveGoalAmounts(),
	})
}

// DeleteProfile handles DELETE /api/profiles/{profile}
func (h *ProfilesHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("profile")
	if err := h.repo.Delete(r.Context(), name); err != nil {
		writeFailure(w, h.log, err, "Failed to delete profile")
		return
	}

	logger.ForProfile(h.log, name).Info().Msg("Profile deleted")
	w.WriteHeader(http.StatusNoContent)
}

// SetBalance handles PUT /api/profiles/{profile}/balance
func (h *ProfilesHandler) SetBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, h.log, err, "Invalid request body")
		return
	}

	_, err := h.repo.Update(r.Context(), r.PathValue("profile"), func(p *domain.ProfileData) error {
		p.SetCurrentBalance(req.Amount)
		return nil
	})
	if err != nil {
		writeFailure(w, h.log, err, "Failed to update balance")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]decimal.Decimal{"currentBalance": req.Amount})
}
