package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/profiles"
)

// Backups is the cloud backup service. It may be nil when no bucket is configured.
type Backups interface {
	Backup(ctx context.Context) (string, error)
	List(ctx context.Context) ([]string, error)
	Restore(ctx context.Context, name string) (string, error)
}

// BundleHandler handles export, import and cloud backups.
type BundleHandler struct {
	repo    *profiles.Repository
	backups Backups
	log     zerolog.Logger
}

// NewBundleHandler creates a new bundle handler.
func NewBundleHandler(repo *profiles.Repository, backups Backups, log zerolog.Logger) *BundleHandler {
	return &BundleHandler{repo: repo, backups: backups, log: log}
}

// Register adds the bundle routes to mux.
func (h *BundleHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/export", h.Export)
	mux.HandleFunc("POST /api/import", h.Import)
	mux.HandleFunc("GET /api/backups", h.ListBackups)
	mux.HandleFunc("POST /api/backups", h.CreateBackup)
	mux.HandleFunc("POST /api/backups/restore", h.RestoreBackup)
}

// Export handles GET /api/export
func (h *BundleHandler) Export(w http.ResponseWriter, r *http.Request) {
	b, err := h.repo.Export(r.Context())
	if err != nil {
		writeFailure(w, h.log, err, "Failed to export data")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "finance-export-"+b.ExportedAt.Format("2006-01-02")+".json"))
	middleware.WriteJSON(w, http.StatusOK, b)
}

// Import handles POST /api/import. The bundle replaces every stored profile.
func (h *BundleHandler) Import(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b, err := profiles.ParseBundle(r.Context(), raw)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to parse bundle")
		return
	}
	if err := h.repo.Import(r.Context(), b); err != nil {
		writeFailure(w, h.log, err, "Failed to import data")
		return
	}

	h.log.Info().Int("profiles", len(b.Profiles)).Str("active", b.ActiveProfile).Msg("Bundle imported")
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"profiles": b.Profiles,
		"active":   b.ActiveProfile,
	})
}

func (h *BundleHandler) backupsEnabled(w http.ResponseWriter) bool {
	if h.backups == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Backups are not configured")
		return false
	}
	return true
}

// ListBackups handles GET /api/backups
func (h *BundleHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	if !h.backupsEnabled(w) {
		return
	}
	names, err := h.backups.List(r.Context())
	if err != nil {
		writeFailure(w, h.log, err, "Failed to list backups")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"backups": names,
		"count":   len(names),
	})
}

// CreateBackup handles POST /api/backups
func (h *BundleHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	if !h.backupsEnabled(w) {
		return
	}
	name, err := h.backups.Backup(r.Context())
	if err != nil {
		writeFailure(w, h.log, err, "Failed to create backup")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"name": name})
}

// RestoreBackup handles POST /api/backups/restore. An empty name restores the latest backup.
func (h *BundleHandler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	if !h.backupsEnabled(w) {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeFailure(w, h.log, err, "Invalid request body")
			return
		}
	}

	name, err := h.backups.Restore(r.Context(), req.Name)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to restore backup")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"restored": name})
}
