// Package handlers implements the JSON HTTP API over the profile repository.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/backup"
	"github.com/dvloznov/finance-dashboard/internal/calendar"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/jobs"
	"github.com/dvloznov/finance-dashboard/internal/kv"
	"github.com/dvloznov/finance-dashboard/internal/profiles"
)

// maxBodyBytes bounds request bodies; an import bundle is the largest.
const maxBodyBytes = 16 << 20

// Today returns the local calendar date.
func Today() civil.Date {
	return civil.DateOf(time.Now())
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, kv.ErrNotFound),
		errors.Is(err, jobs.ErrJobNotFound),
		errors.Is(err, backup.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, profiles.ErrProfileExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalid),
		errors.Is(err, profiles.ErrInvalidBundle):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure writes err as a JSON error. Server errors are logged and
// replaced by msg so internals do not leak.
func writeFailure(w http.ResponseWriter, log zerolog.Logger, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, status, msg)
		return
	}
	middleware.WriteError(w, status, err.Error())
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalid, err)
	}
	return nil
}

// asOf reads ?as_of=YYYY-MM-DD, defaulting to today.
func asOf(r *http.Request, today func() civil.Date) (civil.Date, error) {
	v := r.URL.Query().Get("as_of")
	if v == "" {
		return today(), nil
	}
	d, err := domain.ParseDate(v)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: as_of: %v", domain.ErrInvalid, err)
	}
	return d, nil
}

// month reads ?month=YYYY-MM, defaulting to the month of asOf.
func month(r *http.Request, asOf civil.Date) (calendar.Month, error) {
	v := r.URL.Query().Get("month")
	if v == "" {
		return calendar.MonthOf(asOf), nil
	}
	m, err := calendar.ParseMonth(v)
	if err != nil {
		return calendar.Month{}, fmt.Errorf("%w: month: %v", domain.ErrInvalid, err)
	}
	return m, nil
}

// positiveInt reads an optional positive integer query parameter.
func positiveInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalid, key)
	}
	return n, nil
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
