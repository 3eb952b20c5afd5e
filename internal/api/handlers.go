// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/geek-md/media-downloader/internal/fsutil"
	"github.com/geek-md/media-downloader/internal/jobs"
	"github.com/geek-md/media-downloader/internal/log"
	"github.com/google/uuid"
)

const maxRequestBody = 64 * 1024

// deleteRequest is the body of both delete endpoints. The path is optional;
// the configured fallback applies when it is empty.
type deleteRequest struct {
	Path string `json:"path,omitempty"`
}

// handleDownload accepts a download job and runs it asynchronously. The
// response carries the job ID; progress is observable via signals and the
// status endpoint.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	var req jobs.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validateURL(req.URL); err != nil {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "download.rejected").
			Msg("download request rejected")
		writeError(w, err)
		return
	}

	jobID := uuid.New().String()

	// The job outlives the request; carry only the correlation IDs over to
	// a fresh context.
	ctx := log.ContextWithRequestID(context.Background(), log.RequestIDFromContext(r.Context()))
	ctx = log.ContextWithJobID(ctx, jobID)

	logger.Info().
		Str(log.FieldEvent, "download.accepted").
		Str(log.FieldJobID, jobID).
		Str(log.FieldURL, req.URL).
		Msg("download job accepted")

	go s.downloader.Run(ctx, req)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": "accepted",
	})
}

// handleDeleteFile removes a single file under the base root.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	path, ok := s.deleteTarget(w, r, s.cfg.DeleteFilePath)
	if !ok {
		return
	}

	if err := s.remover.DeleteFile(r.Context(), path); err != nil {
		writeDeleteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "path": path})
}

// handleClearDirectory removes the regular files directly inside a directory
// under the base root.
func (s *Server) handleClearDirectory(w http.ResponseWriter, r *http.Request) {
	path, ok := s.deleteTarget(w, r, s.cfg.DeleteDirPath)
	if !ok {
		return
	}

	removed, failed, err := s.remover.ClearDirectory(r.Context(), path)
	if err != nil {
		writeDeleteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "cleared",
		"path":    path,
		"removed": removed,
		"failed":  failed,
	})
}

// handleStatus reports the aggregated operation state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

// deleteTarget resolves the request body path against the configured
// fallback. Writes the error response itself when no target is available.
func (s *Server) deleteTarget(w http.ResponseWriter, r *http.Request, fallback string) (string, bool) {
	var req deleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return "", false
	}
	path := req.Path
	if path == "" {
		path = fallback
	}
	if path == "" {
		writeError(w, errors.New("no path given and no fallback configured"))
		return "", false
	}
	return path, true
}

// writeDeleteError maps delete failures onto HTTP status codes. Containment
// violations are forbidden, missing targets are not found, everything else
// stays an opaque 500.
func writeDeleteError(w http.ResponseWriter, err error) {
	var pe *fsutil.PathEscapeError
	switch {
	case errors.As(err, &pe):
		writeForbidden(w)
	case errors.Is(err, fs.ErrNotExist):
		writeNotFound(w)
	case errors.Is(err, fsutil.ErrNotRegularFile):
		writeError(w, err)
	default:
		writeInternalError(w)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme: %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url has no host")
	}
	return nil
}
