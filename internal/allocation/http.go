package allocation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-allocator/internal/auth"
	httperrors "github.com/gokatarajesh/quiz-allocator/pkg/http/errors"
)

// Engine is the subset of Coordinator the HTTP layer depends on.
type Engine interface {
	Allocate(ctx context.Context, req Request) (Result, error)
	ResetGeneration(ctx context.Context, quizID string) (int64, error)
	Get(ctx context.Context, allocationID string) (Allocation, error)
	DefaultPolicy() Policy
}

// maxBodyBytes caps allocation request bodies.
const maxBodyBytes = 64 << 10

// HTTPHandler exposes allocation endpoints.
type HTTPHandler struct {
	engine Engine
	logger zerolog.Logger
}

func NewHTTPHandler(engine Engine, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		engine: engine,
		logger: logger.With().Str("component", "allocation_http").Logger(),
	}
}

type allocateBody struct {
	Sections    []SectionQuota `json:"sections"`
	Difficulty  string         `json:"difficulty"`
	TotalCount  *int           `json:"total_count"`
	Policy      string         `json:"policy"`
	RequesterID string         `json:"requester_id"`
}

// HandleAllocate serves POST /v1/quizzes/{quizID}/allocations.
func (h *HTTPHandler) HandleAllocate(w http.ResponseWriter, r *http.Request) {
	quizID := strings.TrimSpace(r.PathValue("quizID"))
	if quizID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "quiz id is required", "quiz_id")
		return
	}

	var body allocateBody
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	requester, ok := auth.RequesterFromContext(r.Context())
	if !ok {
		requester = strings.TrimSpace(body.RequesterID)
	}
	if requester == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingRequester, "requester id is required", "requester_id")
		return
	}

	policy, err := ParsePolicy(body.Policy, h.engine.DefaultPolicy())
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidPolicy, err.Error(), "policy")
		return
	}

	quota := QuotaSpec{Sections: body.Sections, TotalCount: body.TotalCount}
	if body.Difficulty != "" {
		d, err := ParseDifficulty(body.Difficulty)
		if err != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidRequest, err.Error(), "difficulty")
			return
		}
		quota.Difficulty = &d
	}

	result, err := h.engine.Allocate(r.Context(), Request{
		QuizID:      quizID,
		RequesterID: requester,
		Quota:       quota,
		Policy:      policy,
	})
	if err != nil {
		h.respondAllocationError(w, quizID, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// HandleReset serves POST /v1/quizzes/{quizID}/generation/reset.
func (h *HTTPHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	quizID := strings.TrimSpace(r.PathValue("quizID"))
	if quizID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "quiz id is required", "quiz_id")
		return
	}

	generation, err := h.engine.ResetGeneration(r.Context(), quizID)
	if err != nil {
		if errors.Is(err, ErrLockTimeout) {
			httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeQuizBusy, "Quiz is busy, try again")
			return
		}
		h.logger.Error().Err(err).Str("quiz_id", quizID).Msg("reset generation failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeResetFailed, "Failed to reset generation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"quiz_id":    quizID,
		"generation": generation,
	})
}

// HandleGet serves GET /v1/allocations/{allocationID}.
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	allocationID := strings.TrimSpace(r.PathValue("allocationID"))
	alloc, err := h.engine.Get(r.Context(), allocationID)
	if err != nil {
		if errors.Is(err, ErrAllocationNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeAllocationNotFound, "Allocation not found")
			return
		}
		h.logger.Error().Err(err).Str("allocation_id", allocationID).Msg("allocation lookup failed")
		httperrors.RespondInternalError(w, "Failed to load allocation")
		return
	}
	writeJSON(w, http.StatusOK, alloc)
}

func (h *HTTPHandler) respondAllocationError(w http.ResponseWriter, quizID string, err error) {
	var invalid *InvalidQuotaError
	var insufficient *InsufficientPoolError
	switch {
	case errors.As(err, &invalid):
		httperrors.RespondUnprocessable(w, httperrors.ErrCodeInvalidQuota, invalid.Error(), map[string]interface{}{
			"sections": invalid.Sections,
		})
	case errors.As(err, &insufficient):
		httperrors.RespondConflict(w, httperrors.ErrCodeInsufficientPool, insufficient.Error(), map[string]interface{}{
			"sections": insufficient.Sections,
		})
	case errors.Is(err, ErrLockTimeout):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeQuizBusy, "Quiz is busy, try again")
	case errors.Is(err, ErrInvalidPolicy):
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidPolicy, err.Error(), "policy")
	default:
		h.logger.Error().Err(err).Str("quiz_id", quizID).Msg("allocation failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeAllocationFailed, "Allocation failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
