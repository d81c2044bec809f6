package web

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/rfid-ingest/internal/ingest"
	"github.com/JonMunkholm/rfid-ingest/internal/logging"
)

// uploadMemory is how much of a multipart form is kept in memory before
// spilling to temporary files.
const uploadMemory = 1 << 20

// handleIngestReadings ingests a JSON object or array of readings. The body
// may be sent with Content-Encoding gzip or zstd.
func (s *Server) handleIngestReadings(w http.ResponseWriter, r *http.Request) {
	mode, err := s.modeParam(r, s.cfg.Ingest.DefaultMode)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Ingest.MaxBodySize)
	body, err := readCapped(r.Body, r.Header.Get("Content-Encoding"), s.cfg.Ingest.MaxBodySize)
	if err != nil {
		respondError(w, r, err, ingestErrorStatus(err))
		return
	}

	rep, err := s.pipeline.IngestJSON(r.Context(), body, mode)
	if err != nil {
		respondError(w, r, err, ingestErrorStatus(err))
		return
	}
	writeJSON(w, reportStatus(rep), rep)
}

// handleUpload ingests a text file holding one JSON object per line. Files
// named *.txt.gz or *.txt.zst are decompressed first.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	mode, err := s.modeParam(r, s.cfg.Ingest.UploadMode)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Ingest.MaxBodySize)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			respondError(w, r, fmt.Errorf("web: file too large: %w", err), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	encoding, ok := uploadEncoding(header.Filename, header.Header.Get("Content-Type"))
	if !ok {
		respondError(w, r, fmt.Errorf("%w: %s", errUnsupportedFile, header.Filename), http.StatusUnsupportedMediaType)
		return
	}

	content, err := readCapped(file, encoding, s.cfg.Ingest.MaxBodySize)
	if err != nil {
		respondError(w, r, err, ingestErrorStatus(err))
		return
	}

	logging.FromContext(r.Context()).Debug("upload received",
		"filename", header.Filename,
		"size", header.Size,
		"encoding", encoding,
		"mode", mode,
	)

	rep, err := s.pipeline.IngestText(r.Context(), bytes.NewReader(content), mode)
	if err != nil {
		respondError(w, r, err, ingestErrorStatus(err))
		return
	}
	writeJSON(w, reportStatus(rep), rep)
}

// modeParam reads ?mode=, falling back to def.
func (s *Server) modeParam(r *http.Request, def string) (ingest.Mode, error) {
	raw := r.URL.Query().Get("mode")
	if raw == "" {
		raw = def
	}
	mode, err := ingest.ParseMode(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidParam, err)
	}
	return mode, nil
}

// uploadEncoding reports whether an uploaded file is accepted and how it is
// compressed. Compressed files must be named *.txt.gz or *.txt.zst.
func uploadEncoding(filename, contentType string) (string, bool) {
	encoding, inner := encodingFromName(filename)
	if encoding != "" {
		return encoding, strings.EqualFold(filepath.Ext(inner), ".txt")
	}
	return "", isTextFile(filename, contentType)
}

// isTextFile accepts text/plain parts and, for clients that send a generic
// content type, files named *.txt.
func isTextFile(filename, contentType string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "text/plain" {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".txt")
}
