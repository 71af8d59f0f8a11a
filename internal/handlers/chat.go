package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"canvia-backend/internal/middleware"
	"canvia-backend/internal/models"
	"canvia-backend/internal/services"
)

type ChatHandler struct {
	engine *services.Engine
	gemini *services.GeminiService
}

func NewChatHandler(engine *services.Engine, gemini *services.GeminiService) *ChatHandler {
	return &ChatHandler{engine: engine, gemini: gemini}
}

// Chat runs one query through the context pipeline and the AI model.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "No active session", r))
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"query": "query is required"}, r))
		return
	}

	result := h.engine.BuildContext(r.Context(), id, services.BuildRequest{
		Query:        req.Query,
		UploadedName: req.UploadedName,
		UploadedText: req.UploadedText,
	})

	reply, err := h.gemini.Chat(r.Context(), result.Context, req.Query, req.History)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{
		Reply:              reply,
		GeneralQuery:       result.GeneralQuery,
		ResolvedCourse:     result.ResolvedCourse,
		NeedsClarification: result.NeedsClarification,
		Projection:         result.Projection,
	})
}
