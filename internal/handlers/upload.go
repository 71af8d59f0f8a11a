package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"canvia-backend/internal/models"
	"canvia-backend/internal/services"
)

const maxUploadBytes = 16 << 20 // 16 MB

type UploadHandler struct {
	extractor *services.FileExtractService
}

func NewUploadHandler(extractor *services.FileExtractService) *UploadHandler {
	return &UploadHandler{extractor: extractor}
}

// Upload extracts text from a study document so the frontend can attach it
// to a later chat request.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Could not parse upload", r))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file": "file is required"}, r))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Could not read upload", r))
		return
	}

	filename := filepath.Base(header.Filename)
	text, err := h.extractor.ExtractText(filename, data)
	if err != nil {
		if strings.Contains(err.Error(), "unsupported") {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"file": err.Error()}, r))
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorResp("EXTRACTION_FAILED", "Could not extract text from the uploaded file", r))
		return
	}

	writeJSON(w, http.StatusOK, models.UploadResponse{
		Filename: filename,
		Content:  text,
	})
}
