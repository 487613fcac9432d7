package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// goalView is a goal with its effective amount and progress resolved.
type goalView struct {
	domain.SavingsGoal
	EffectiveAmount decimal.Decimal `json:"effectiveAmount"`
	Progress        decimal.Decimal `json:"progress"`
}

func goalViews(p *domain.ProfileData) []goalView {
	effective := p.EffectiveGoalAmounts()
	out := make([]goalView, 0, len(p.Goals))
	for _, g := range p.Goals {
		current := effective[g.ID]
		out = append(out, goalView{
			SavingsGoal:     g,
			EffectiveAmount: current,
			Progress:        domain.GoalProgress(g.TargetAmount, current).Round(2),
		})
	}
	return out
}

// ListGoals handles GET /api/profiles/{profile}/goals
func (h *ProfilesHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	data, err := h.repo.Load(r.Context(), r.PathValue("profile"))
	if err != nil {
		writeFailure(w, h.log, err, "Failed to load goals")
		return
	}
	goals := goalViews(data)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"goals": goals,
		"count": len(goals),
	})
}

// AddGoal handles POST /api/profiles/{profile}/goals
func (h *ProfilesHandler) AddGoal(w http.ResponseWriter, r *http.Request) {
	var g domain.SavingsGoal
	if err := decodeJSON(w, r, &g); err != nil {
		writeFailure(w, h.log, err, "Invalid request body")
		return
	}

	var added domain.SavingsGoal
	_, err := h.repo.Update(r.Context(), r.PathValue("profile"), func(p *domain.ProfileData) error {
		var err error
		added, err = p.AddGoal(g)
		return err
	})
	if err != nil {
		writeFailure(w, h.log, err, "Failed to add goal")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, added)
}

// UpdateGoal handles PUT /api/profiles/{profile}/goals/{id}
func (h *ProfilesHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	var g domain.SavingsGoal
	if err := decodeJSON(w, r, &g); err != nil {
		writeFailure(w, h.log, err, "Invalid request body")
		return
	}
	g.ID = r.PathValue("id")

	data, err := h.repo.Update(r.Context(), r.PathValue("profile"), func(p *domain.ProfileData) error {
		return p.UpdateGoal(g)
	})
	if err != nil {
		writeFailure(w, h.log, err, "Failed to update goal")
		return
	}
	for _, v := range goalViews(data) {
		if v.ID == g.ID {
			middleware.WriteJSON(w, http.StatusOK, v)
			return
		}
	}
	middleware.WriteError(w, http.StatusNotFound, "goal not found")
}

// DeleteGoal handles DELETE /api/profiles/{profile}/goals/{id}
func (h *ProfilesHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, err := h.repo.Update(r.Context(), r.PathValue("profile"), func(p *domain.ProfileData) error {
		return p.DeleteGoal(id)
	})
	if err != nil {
		writeFailure(w, h.log, err, "Failed to delete goal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderGoals handles PUT /api/profiles/{profile}/goals/order
func (h *ProfilesHandler) ReorderGoals(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string   `json:"accountId"`
		IDs       []string `json:"ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, h.log, err, "Invalid request body")
		return
	}

	data, err := h.repo.Update(r.Context(), r.PathValue("profile"), func(p *domain.ProfileData) error {
		return p.ReorderGoals(req.AccountID, req.IDs)
	})
	if err != nil {
		writeFailure(w, h.log, err, "Failed to reorder goals")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"goals": goalViews(data)})
}
