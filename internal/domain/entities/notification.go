package entities

import "time"

// NotificationChannel represents the delivery channel
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
)

// NotificationType represents the notification purpose
type NotificationType string

const (
	// NotificationOwnerInputRequired tells the project owner a company initiated
	// an NDA and their details are needed
	NotificationOwnerInputRequired NotificationType = "owner_input_required"
	// NotificationFallbackDocument carries the unsigned agreement as an
	// attachment for manual signature-and-exchange
	NotificationFallbackDocument NotificationType = "fallback_document"
	// NotificationSignedConfirmation confirms full execution to both parties
	NotificationSignedConfirmation NotificationType = "signed_confirmation"
)

// NotificationStatus represents the delivery status
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// NdaNotification tracks every outbound email tied to an NDA record
type NdaNotification struct {
	ID               string              `json:"id" db:"id"`
	NdaID            string              `json:"nda_id" db:"nda_id"`
	NotificationType NotificationType    `json:"notification_type" db:"notification_type"`
	Channel          NotificationChannel `json:"channel" db:"channel"`
	Recipient        string              `json:"recipient" db:"recipient"`
	Status           NotificationStatus  `json:"status" db:"status"`
	MessageID        *string             `json:"message_id,omitempty" db:"message_id"`
	SentAt           *time.Time          `json:"sent_at,omitempty" db:"sent_at"`
	FailedAt         *time.Time          `json:"failed_at,omitempty" db:"failed_at"`
	ErrorMessage     *string             `json:"error_message,omitempty" db:"error_message"`
	CreatedAt        time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at" db:"updated_at"`
}

// WebhookEvent stores received webhook events for idempotency
type WebhookEvent struct {
	ID           string                 `json:"id" db:"id"`
	Provider     string                 `json:"provider" db:"provider"`
	EventType    string                 `json:"event_type" db:"event_type"`
	Payload      map[string]interface{} `json:"payload" db:"payload"`
	Processed    bool                   `json:"processed" db:"processed"`
	ProcessedAt  *time.Time             `json:"processed_at,omitempty" db:"processed_at"`
	ErrorMessage *string                `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
}
