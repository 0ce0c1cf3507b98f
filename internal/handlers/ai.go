package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cardlab-backend/internal/config"
	"cardlab-backend/internal/models"
	"cardlab-backend/internal/services"
)

var validDifficulties = map[string]bool{"easy": true, "medium": true, "hard": true}

// CardGenerator is the slice of the generation service the handler needs.
type CardGenerator interface {
	Generate(ctx context.Context, in services.GenerateInput) (*services.GenerateResult, error)
}

type AIHandler struct {
	svc CardGenerator
	cfg *config.Config
}

func NewAIHandler(svc CardGenerator, cfg *config.Config) *AIHandler {
	return &AIHandler{svc: svc, cfg: cfg}
}

// Generate handles POST /api/v1/ai/generate.
func (h *AIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateCardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "content is required", r))
		return
	}
	difficulty := strings.ToLower(strings.TrimSpace(req.Difficulty))
	if difficulty == "" {
		difficulty = "medium"
	}
	if !validDifficulties[difficulty] {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "difficulty must be one of easy, medium, hard", r))
		return
	}
	focusMode := strings.ToLower(strings.TrimSpace(req.FocusMode))
	if focusMode != "" && focusMode != "highlight" && focusMode != "timeline" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "focus_mode must be highlight or timeline", r))
		return
	}

	types := dedupeTypes(req.Types)

	result, err := h.svc.Generate(r.Context(), services.GenerateInput{
		Content:      req.Content,
		Highlights:   req.Highlights,
		Types:        types,
		Difficulty:   difficulty,
		ForceRefresh: req.NoCache,
		FocusMode:    focusMode,
		Timeline:     req.Timeline,
	})
	if err != nil {
		var genErr *services.GenerationError
		var extractErr *services.ExtractionError
		switch {
		case errors.As(err, &genErr):
			writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{
				Error: models.APIError{
					Code:      "CARD_VALIDATION_FAILED",
					Message:   "생성된 카드가 검증을 통과하지 못했습니다.",
					Errors:    genErr.Errors,
					RequestID: r.Header.Get("X-Request-ID"),
				},
			})
		case errors.As(err, &extractErr):
			writeJSON(w, http.StatusBadGateway, errorResp("EXTRACTION_FAILED", "사실 추출에 실패했습니다.", r))
		default:
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Card generation failed", r))
		}
		return
	}

	writeJSON(w, http.StatusOK, models.GenerateCardsResponse{
		Cards: result.Cards,
		Facts: result.Facts,
		Meta:  result.Meta,
	})
}

// Health handles GET /api/v1/ai/health.
func (h *AIHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if h.cfg.GeminiAPIKey == "" {
		status = "missing_api_key"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         status,
		"extract_model":  h.cfg.ExtractModel,
		"generate_model": h.cfg.GenerateModel,
		"fix_model":      h.cfg.FixModel,
	})
}

func dedupeTypes(types []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range types {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}
