package api

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/bambu-core/internal/hms"
	"github.com/nerrad567/bambu-core/internal/job"
)

// hmsLookupTimeout bounds a description lookup made on behalf of a request.
const hmsLookupTimeout = 10 * time.Second

// hmsCodePattern matches HMS codes with or without their "HMS_" prefix.
var hmsCodePattern = regexp.MustCompile(`^(HMS_)?[0-9A-Fa-f]{4}(_[0-9A-Fa-f]{4}){3,}$`)

// handleGetStatus returns the latest projected status.
func (s *Server) handleGetStatus(w http.ResponseWriter, _ *http.Request) {
	st, ok := s.printer.Status()
	if !ok {
		writeNotFound(w, "no status received yet")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleGetDevice returns the module list from the last version reply.
func (s *Server) handleGetDevice(w http.ResponseWriter, _ *http.Request) {
	dev, ok := s.printer.Device()
	if !ok {
		writeNotFound(w, "device version not received yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"modules": dev.Module,
	})
}

// handleGetCurrentJob returns the active job.
func (s *Server) handleGetCurrentJob(w http.ResponseWriter, _ *http.Request) {
	writeJob(w, s.printer.CurrentJob(), "no active job")
}

// handleGetLastJob returns the most recently finished job.
func (s *Server) handleGetLastJob(w http.ResponseWriter, _ *http.Request) {
	writeJob(w, s.printer.LastJob(), "no finished job")
}

func writeJob(w http.ResponseWriter, j *job.Job, missing string) {
	if j == nil {
		writeNotFound(w, missing)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// handleGetHMS resolves the description of an HMS alert code.
func (s *Server) handleGetHMS(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !hmsCodePattern.MatchString(code) {
		writeBadRequest(w, "invalid HMS code")
		return
	}
	if s.hms == nil {
		writeNotFound(w, "HMS lookups are disabled")
		return
	}

	code = strings.ToUpper(strings.TrimPrefix(code, "HMS_"))
	ctx, cancel := context.WithTimeout(r.Context(), hmsLookupTimeout)
	defer cancel()

	desc, err := s.hms.Describe(ctx, code)
	switch {
	case err == nil:
	case errors.Is(err, hms.ErrNoDescription), errors.Is(err, hms.ErrAttemptsExhausted):
		writeNotFound(w, "no description for "+code)
		return
	default:
		s.logger.Warn("hms lookup failed", "code", code, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "hms lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":        "HMS_" + code,
		"url":         s.hms.URL(code),
		"description": desc,
	})
}
