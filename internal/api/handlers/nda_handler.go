package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tawqeea/marketplace-backend/internal/application/services"
	"github.com/tawqeea/marketplace-backend/internal/domain/entities"
	"github.com/tawqeea/marketplace-backend/internal/domain/repositories"
	apperrors "github.com/tawqeea/marketplace-backend/pkg/errors"
)

// NdaHandler handles NDA workflow HTTP requests
type NdaHandler struct {
	service *services.NdaService
}

// NewNdaHandler creates a new NDA handler
func NewNdaHandler(service *services.NdaService) *NdaHandler {
	return &NdaHandler{service: service}
}

// callerFromRequest reads the authenticated identity injected by the session
// layer in front of this service
func callerFromRequest(r *http.Request) services.Caller {
	return services.Caller{
		UserID:  r.Header.Get("X-User-ID"),
		IsAdmin: r.Header.Get("X-User-Role") == "admin",
	}
}

// Initiate handles POST /api/ndas
func (h *NdaHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var input services.InitiateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	record, err := h.service.Initiate(r.Context(), callerFromRequest(r), input)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"nda_id": record.ID,
		"status": record.Status,
	})
}

// Complete handles POST /api/ndas/{id}/complete
func (h *NdaHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var input services.CompleteInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	input.NdaID = r.PathValue("id")

	result, err := h.service.Complete(r.Context(), callerFromRequest(r), input)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeFallback) && result != nil {
			// automated signing and the email fallback both failed: surface
			// both parties' contacts so a human can finish out of band
			respondWithJSON(w, http.StatusBadGateway, fallbackFailurePayload(result, err))
			return
		}
		respondWithAppError(w, err)
		return
	}

	response := map[string]interface{}{
		"nda_id": result.Record.ID,
		"status": result.Record.Status,
	}
	if result.FallbackUsed {
		response["fallback_used"] = true
		response["emails_sent_to"] = result.EmailsSentTo
	} else if result.Record.ProviderReferenceNumber != nil {
		response["provider_reference_number"] = *result.Record.ProviderReferenceNumber
	}

	respondWithJSON(w, http.StatusOK, response)
}

func fallbackFailurePayload(result *services.CompleteResult, err error) map[string]interface{} {
	record := result.Record
	payload := map[string]interface{}{
		"nda_id":         record.ID,
		"status":         record.Status,
		"error":          err.Error(),
		"emails_sent_to": result.EmailsSentTo,
		"company_contact": map[string]string{
			"name":  record.CompanyInfo.RepName,
			"email": record.CompanyInfo.RepEmail,
			"phone": record.CompanyInfo.RepPhone,
		},
	}
	if record.EntrepreneurInfo != nil {
		payload["entrepreneur_contact"] = map[string]string{
			"name":  record.EntrepreneurInfo.Name,
			"email": record.EntrepreneurInfo.Email,
			"phone": record.EntrepreneurInfo.Phone,
		}
	}
	return payload
}

// GetStatus handles GET /api/ndas/{id}/status
func (h *NdaHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ndaID := r.PathValue("id")
	if ndaID == "" {
		respondWithError(w, http.StatusBadRequest, "NDA ID is required")
		return
	}

	record, err := h.service.GetStatus(r.Context(), callerFromRequest(r), ndaID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"nda_id":     record.ID,
		"project_id": record.ProjectID,
		"status":     record.Status,
		"breakdown":  record.Breakdown(),
		"signed_at":  record.SignedAt,
		"updated_at": record.UpdatedAt,
	})
}

// GetDocument handles GET /api/ndas/{id}/document
func (h *NdaHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	ndaID := r.PathValue("id")
	if ndaID == "" {
		respondWithError(w, http.StatusBadRequest, "NDA ID is required")
		return
	}

	content, reconstruction, err := h.service.GetDocument(r.Context(), callerFromRequest(r), ndaID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	if reconstruction {
		// a regenerated rendition, not the verified signed original
		w.Header().Set("X-Document-Source", "local-reconstruction")
	} else {
		w.Header().Set("X-Document-Source", "provider")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// Cancel handles POST /api/ndas/{id}/cancel
func (h *NdaHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ndaID := r.PathValue("id")
	if ndaID == "" {
		respondWithError(w, http.StatusBadRequest, "NDA ID is required")
		return
	}

	record, err := h.service.Cancel(r.Context(), callerFromRequest(r), ndaID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"nda_id": record.ID,
		"status": record.Status,
	})
}

// ListByProject handles GET /api/projects/{id}/ndas
func (h *NdaHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if projectID == "" {
		respondWithError(w, http.StatusBadRequest, "project ID is required")
		return
	}

	filter := repositoriesFilterFromQuery(r)
	records, err := h.service.ListByProject(r.Context(), callerFromRequest(r), projectID, filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"ndas":  records,
		"count": len(records),
	})
}

func repositoriesFilterFromQuery(r *http.Request) repositories.NdaFilter {
	filter := repositories.NdaFilter{
		Status: entities.NdaStatus(r.URL.Query().Get("status")),
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		filter.Offset = offset
	}
	return filter
}

// respondWithAppError maps the application error taxonomy onto HTTP statuses
func respondWithAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeValidation:
		respondWithError(w, http.StatusBadRequest, appErr.Message)
	case apperrors.ErrorTypeUnauthorized:
		respondWithError(w, http.StatusForbidden, appErr.Message)
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, appErr.Message)
	case apperrors.ErrorTypeConflict:
		respondWithError(w, http.StatusConflict, appErr.Message)
	case apperrors.ErrorTypeProviderTransient, apperrors.ErrorTypeProviderPermanent, apperrors.ErrorTypeFallback:
		respondWithError(w, http.StatusBadGateway, appErr.Message)
	default:
		respondWithError(w, http.StatusInternalServerError, appErr.Message)
	}
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
