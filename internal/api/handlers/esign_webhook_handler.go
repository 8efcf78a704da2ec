package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tawqeea/marketplace-backend/internal/application/services"
	"github.com/tawqeea/marketplace-backend/internal/domain/entities"
	"github.com/tawqeea/marketplace-backend/internal/domain/providers"
	"github.com/tawqeea/marketplace-backend/internal/infrastructure/observability"
	apperrors "github.com/tawqeea/marketplace-backend/pkg/errors"
)

const webhookProvider = "esign"

// EsignWebhookHandler processes signing-status callbacks from the e-signature
// provider. Events are deduplicated and every status update flows through the
// engine's single reconcile entry point.
type EsignWebhookHandler struct {
	db           *sqlx.DB
	service      *services.NdaService
	sharedSecret string
	metrics      *observability.Metrics
}

// NewEsignWebhookHandler creates a new webhook handler
func NewEsignWebhookHandler(db *sqlx.DB, service *services.NdaService, sharedSecret string, metrics *observability.Metrics) *EsignWebhookHandler {
	return &EsignWebhookHandler{
		db:           db,
		service:      service,
		sharedSecret: sharedSecret,
		metrics:      metrics,
	}
}

// esignWebhookEvent is the provider's callback payload
type esignWebhookEvent struct {
	EventID         string `json:"event_id"`
	EventType       string `json:"event_type"`
	ReferenceNumber string `json:"reference_number"`
	EnvelopeID      string `json:"envelope_id"`
	Status          string `json:"status"`
	Signers         []struct {
		Name     string     `json:"name"`
		Email    string     `json:"email"`
		Status   string     `json:"status"`
		SignedAt *time.Time `json:"signed_at"`
	} `json:"signers"`
}

// HandleWebhook processes POST /webhooks/esign
func (h *EsignWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx)

	if !h.authorized(r) {
		observability.RecordWebhook(ctx, h.metrics, false)
		respondWithError(w, http.StatusUnauthorized, "invalid webhook credentials")
		return
	}

	var event esignWebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		observability.RecordWebhook(ctx, h.metrics, false)
		respondWithError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if event.ReferenceNumber == "" || event.Status == "" {
		observability.RecordWebhook(ctx, h.metrics, false)
		respondWithError(w, http.StatusBadRequest, "reference_number and status are required")
		return
	}

	eventID := event.EventID
	if eventID == "" {
		eventID = uuid.New().String()
	}

	if h.isEventProcessed(ctx, eventID) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "already_processed"})
		return
	}

	if err := h.storeWebhookEvent(ctx, eventID, &event); err != nil {
		logger.Warn().Err(err).Str("event_id", eventID).Msg("Failed to store webhook event")
	}

	record, err := h.service.Reconcile(ctx, event.ReferenceNumber, envelopeStatusFromEvent(&event))
	if err != nil {
		h.markEventFailed(ctx, eventID, err)
		observability.RecordWebhook(ctx, h.metrics, false)

		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			// unknown references are kept in webhook_events for audit
			respondWithError(w, http.StatusNotFound, "no record matches the reference number")
			return
		}
		logger.Error().Err(err).Str("event_id", eventID).Msg("Webhook reconciliation failed")
		respondWithError(w, http.StatusInternalServerError, "failed to process webhook")
		return
	}

	h.markEventProcessed(ctx, eventID)
	observability.RecordWebhook(ctx, h.metrics, true)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "processed",
		"nda_status": record.Status,
	})
}

// authorized performs the shared-secret bearer check in constant time
func (h *EsignWebhookHandler) authorized(r *http.Request) bool {
	if h.sharedSecret == "" {
		return false
	}
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.sharedSecret)) == 1
}

// envelopeStatusFromEvent maps the wire payload into the engine's view
func envelopeStatusFromEvent(event *esignWebhookEvent) *providers.EnvelopeStatus {
	status := &providers.EnvelopeStatus{
		EnvelopeID: event.EnvelopeID,
		RawStatus:  event.Status,
	}
	switch strings.ToUpper(event.Status) {
	case "COMPLETED", "SIGNED":
		status.Completed = true
	case "VOIDED", "DECLINED", "CANCELLED", "EXPIRED":
		status.Voided = true
	}

	for _, s := range event.Signers {
		state := entities.SignerState{
			Name:     s.Name,
			Email:    s.Email,
			SignedAt: s.SignedAt,
		}
		switch strings.ToUpper(s.Status) {
		case "SIGNED", "COMPLETED":
			state.Status = entities.SignerStatusSigned
		case "DECLINED", "REJECTED":
			state.Status = entities.SignerStatusDeclined
		default:
			state.Status = entities.SignerStatusPending
		}
		status.Signers = append(status.Signers, state)
	}
	return status
}

// Database operations
func (h *EsignWebhookHandler) isEventProcessed(ctx context.Context, eventID string) bool {
	var count int
	query := `SELECT COUNT(*) FROM webhook_events WHERE id = $1 AND provider = $2 AND processed = true`
	h.db.GetContext(ctx, &count, query, eventID, webhookProvider)
	return count > 0
}

func (h *EsignWebhookHandler) storeWebhookEvent(ctx context.Context, eventID string, event *esignWebhookEvent) error {
	payload, _ := json.Marshal(event)
	query := `
		INSERT INTO webhook_events (id, provider, event_type, payload, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, id) DO NOTHING
	`
	_, err := h.db.ExecContext(ctx, query, eventID, webhookProvider, event.EventType, payload, false, time.Now())
	return err
}

func (h *EsignWebhookHandler) markEventProcessed(ctx context.Context, eventID string) {
	query := `UPDATE webhook_events SET processed = true, processed_at = $1 WHERE id = $2 AND provider = $3`
	h.db.ExecContext(ctx, query, time.Now(), eventID, webhookProvider)
}

func (h *EsignWebhookHandler) markEventFailed(ctx context.Context, eventID string, err error) {
	errMsg := err.Error()
	query := `UPDATE webhook_events SET error_message = $1 WHERE id = $2 AND provider = $3`
	h.db.ExecContext(ctx, query, errMsg, eventID, webhookProvider)
}
