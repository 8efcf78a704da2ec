package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tawqeea/marketplace-backend/internal/domain/entities"
	"github.com/tawqeea/marketplace-backend/internal/domain/providers"
	"github.com/tawqeea/marketplace-backend/internal/infrastructure/observability"
)

// EmailSender is the outbound email surface the notification service needs
type EmailSender interface {
	SendDocument(ctx context.Context, recipients []string, subject, body string, attachment providers.Attachment) []providers.SendResult
	SendText(ctx context.Context, recipients []string, subject, body string) []providers.SendResult
}

// NotificationService sends workflow emails and records every attempt in
// nda_notifications so support can audit what each party received.
type NotificationService struct {
	db      *sqlx.DB
	sender  EmailSender
	metrics *observability.Metrics
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *sqlx.DB, sender EmailSender, metrics *observability.Metrics) *NotificationService {
	return &NotificationService{
		db:      db,
		sender:  sender,
		metrics: metrics,
	}
}

// SendOwnerInputRequired tells the project owner a company initiated an NDA
// and their details are needed to proceed
func (n *NotificationService) SendOwnerInputRequired(ctx context.Context, record *entities.NdaRecord, project *entities.Project) error {
	if project.OwnerEmail == "" {
		return fmt.Errorf("project %s has no owner email on file", project.ID)
	}

	subject := fmt.Sprintf("Action required: NDA requested for %q", project.Title)
	body := fmt.Sprintf(
		"Hello %s,\n\n%s has requested a non-disclosure agreement for your project %q.\n"+
			"Please provide your signer details to proceed with signing.\n\n"+
			"Reference: %s\n",
		project.OwnerName, record.CompanyInfo.LegalCompanyName, project.Title, record.ID,
	)

	results := n.sender.SendText(ctx, []string{project.OwnerEmail}, subject, body)
	n.recordResults(ctx, record.ID, entities.NotificationOwnerInputRequired, results)

	if len(results) > 0 && results[0].Err != nil {
		return results[0].Err
	}
	return nil
}

// SendFallbackDocument emails the unsigned agreement to both parties with
// manual-signature instructions and reports each recipient's outcome
func (n *NotificationService) SendFallbackDocument(ctx context.Context, record *entities.NdaRecord, recipients []string, document []byte) []providers.SendResult {
	subject := "NDA for manual signature"
	body := "Automated electronic signing could not be completed.\n\n" +
		"The agreement is attached. Please print, sign, and exchange signed copies " +
		"with the other party directly. Both parties have received this email.\n"

	attachment := providers.Attachment{
		Filename:    fmt.Sprintf("nda-%s.pdf", record.ID),
		ContentType: "application/pdf",
		Content:     document,
	}

	results := n.sender.SendDocument(ctx, recipients, subject, body, attachment)
	n.recordResults(ctx, record.ID, entities.NotificationFallbackDocument, results)

	succeeded := true
	for _, r := range results {
		if r.Err != nil {
			succeeded = false
			break
		}
	}
	observability.RecordFallback(ctx, n.metrics, succeeded)

	return results
}

// SendSignedConfirmation confirms full execution to both parties, best-effort
func (n *NotificationService) SendSignedConfirmation(ctx context.Context, record *entities.NdaRecord) {
	recipients := []string{record.CompanyInfo.RepEmail}
	if record.EntrepreneurInfo != nil {
		recipients = append(recipients, record.EntrepreneurInfo.Email)
	}

	subject := "NDA fully signed"
	body := fmt.Sprintf(
		"All parties have signed the non-disclosure agreement.\n\nReference: %s\n", record.ID)

	results := n.sender.SendText(ctx, recipients, subject, body)
	n.recordResults(ctx, record.ID, entities.NotificationSignedConfirmation, results)

	for _, r := range results {
		if r.Err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(r.Err).
				Str("nda_id", record.ID).
				Str("recipient", r.Recipient).
				Msg("Failed to send signed confirmation")
		}
	}
}

// recordResults persists one audit row per delivery attempt
func (n *NotificationService) recordResults(ctx context.Context, ndaID string, notifType entities.NotificationType, results []providers.SendResult) {
	for _, r := range results {
		now := time.Now()
		notification := &entities.NdaNotification{
			ID:               uuid.New().String(),
			NdaID:            ndaID,
			NotificationType: notifType,
			Channel:          entities.ChannelEmail,
			Recipient:        r.Recipient,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		if r.Err != nil {
			errMsg := r.Err.Error()
			notification.Status = entities.NotificationStatusFailed
			notification.FailedAt = &now
			notification.ErrorMessage = &errMsg
		} else {
			messageID := r.MessageID
			notification.Status = entities.NotificationStatusSent
			notification.MessageID = &messageID
			notification.SentAt = &now
		}

		if err := n.createNotification(ctx, notification); err != nil {
			observability.LoggerFromContext(ctx).Error().
				Err(err).
				Str("nda_id", ndaID).
				Str("recipient", r.Recipient).
				Msg("Failed to record notification audit row")
		}
	}
}

func (n *NotificationService) createNotification(ctx context.Context, notification *entities.NdaNotification) error {
	query := `
		INSERT INTO nda_notifications
		(id, nda_id, notification_type, channel, recipient, status, message_id,
		 sent_at, failed_at, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := n.db.ExecContext(ctx, query,
		notification.ID, notification.NdaID, notification.NotificationType, notification.Channel,
		notification.Recipient, notification.Status, notification.MessageID,
		notification.SentAt, notification.FailedAt, notification.ErrorMessage,
		notification.CreatedAt, notification.UpdatedAt,
	)
	return err
}

// ListByNda returns the audit trail of outbound emails for one record
func (n *NotificationService) ListByNda(ctx context.Context, ndaID string) ([]entities.NdaNotification, error) {
	var notifications []entities.NdaNotification
	query := `SELECT * FROM nda_notifications WHERE nda_id = $1 ORDER BY created_at ASC`
	if err := n.db.SelectContext(ctx, &notifications, query, ndaID); err != nil {
		return nil, fmt.Errorf("failed to list notifications for nda %s: %w", ndaID, err)
	}
	return notifications, nil
}
