package handlers

import (
	"net/http"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// AddAccount handles POST /api/profiles/{profile}/accounts
func (h *ProfilesHandler) AddAccount(w http.ResponseWriter, r *http.Request) {
	var a domain.SavingsAccount
	if err := decodeJSON(w, r, &a); err != nil {
		writeFailure(w, h.log, err, "Invalid request body")
		return
	}

	var added domain.SavingsAccount
	_, err := h.repo.Update(r.Context(), r.PathValue("profile"), func(p *domain.ProfileData) error {
		var err error
		added, err = p.AddAccount(a)
		return err
	})
	if err != nil {
		writeFailure(w, h.log, err, "Failed to add account")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, added)
}

// UpdateAccount handles PUT /api/profiles/{profile}/accounts/{id}
func (h *ProfilesHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var a domain.SavingsAccount
	if err := decodeJSON(w, r, &a); err != nil {
		writeFailure(w, h.log, err, "Invalid request body")
		return
	}
	a.ID = r.PathValue("id")

	data, err := h.repo.Update(r.Context(), r.PathValue("profile"), func(p *domain.ProfileData) error {
		return p.UpdateAccount(a)
	})
	if err != nil {
		writeFailure(w, h.log, err, "Failed to update account")
		return
	}
	writeAccount(w, data, a.ID)
}

// DeleteAccount handles DELETE /api/profiles/{profile}/accounts/{id}
// Goals linked to the account become unlinked.
func (h *ProfilesHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, err := h.repo.Update(r.Context(), r.PathValue("profile"), func(p *domain.ProfileData) error {
		return p.DeleteAccount(id)
	})
	if err != nil {
		writeFailure(w, h.log, err, "Failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddInterest handles POST /api/profiles/{profile}/accounts/{id}/interest
func (h *ProfilesHandler) AddInterest(w http.ResponseWriter, r *http.Request) {
	var e domain.InterestEntry
	if err := decodeJSON(w, r, &e); err != nil {
		writeFailure(w, h.log, err, "Invalid request body")
		return
	}
	id := r.PathValue("id")

	data, err := h.repo.Update(r.Context(), r.PathValue("profile"), func(p *domain.ProfileData) error {
		return p.AddInterestEntry(id, e)
	})
	if err != nil {
		writeFailure(w, h.log, err, "Failed to add interest entry")
		return
	}
	writeAccount(w, data, id)
}

func writeAccount(w http.ResponseWriter, data *domain.ProfileData, id string) {
	for _, a := range data.Accounts {
		if a.ID == id {
			middleware.WriteJSON(w, http.StatusOK, a)
			return
		}
	}
	middleware.WriteError(w, http.StatusNotFound, "account not found")
}
