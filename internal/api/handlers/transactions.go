package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// decodeTransaction reads a tagged transaction from the request body.
// One-time payments without a status start out pending.
func decodeTransaction(w http.ResponseWriter, r *http.Request) (domain.Transaction, error) {
	raw, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	tx, err := domain.UnmarshalTransaction(raw)
	if err != nil {
		return nil, err
	}
	if p, ok := tx.(*domain.Payment); ok && p.Recurrence == domain.RecurrenceOnce && p.Status == "" {
		p.Status = domain.StatusPending
	}
	return tx, nil
}

func writeTransaction(w http.ResponseWriter, status int, tx domain.Transaction) {
	raw, err := domain.MarshalTransaction(tx)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to encode transaction")
		return
	}
	middleware.WriteJSON(w, status, json.RawMessage(raw))
}

// AddTransaction handles POST /api/profiles/{profile}/transactions
func (h *ProfilesHandler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := decodeTransaction(w, r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err = h.repo.Update(r.Context(), r.PathValue("profile"), func(p *domain.ProfileData) error {
		return p.AddTransaction(tx)
	})
	if err != nil {
		writeFailure(w, h.log, err, "Failed to add transaction")
		return
	}
	writeTransaction(w, http.StatusCreated, tx)
}

// UpdateTransaction handles PUT /api/profiles/{profile}/transactions/{id}
func (h *ProfilesHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := decodeTransaction(w, r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx.Base().ID = r.PathValue("id")

	_, err = h.repo.Update(r.Context(), r.PathValue("profile"), func(p *domain.ProfileData) error {
		return p.UpdateTransaction(tx)
	})
	if err != nil {
		writeFailure(w, h.log, err, "Failed to update transaction")
		return
	}
	writeTransaction(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/profiles/{profile}/transactions/{id}
func (h *ProfilesHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, err := h.repo.Update(r.Context(), r.PathValue("profile"), func(p *domain.ProfileData) error {
		return p.DeleteTransaction(id)
	})
	if err != nil {
		writeFailure(w, h.log, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkPaid handles POST /api/profiles/{profile}/transactions/{id}/paid
func (h *ProfilesHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var paid domain.Transaction
	_, err := h.repo.Update(r.Context(), r.PathValue("profile"), func(p *domain.ProfileData) error {
		if err := p.MarkPaymentPaid(id); err != nil {
			return err
		}
		tx, err := p.Transaction(id)
		paid = tx
		return err
	})
	if err != nil {
		writeFailure(w, h.log, err, "Failed to mark payment paid")
		return
	}
	writeTransaction(w, http.StatusOK, paid)
}
