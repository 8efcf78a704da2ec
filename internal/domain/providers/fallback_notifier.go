package providers

import "context"

// Attachment is a document delivered with a fallback email
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// SendResult reports the outcome of one recipient's delivery attempt
type SendResult struct {
	Recipient string
	MessageID string
	Err       error
}

// FallbackNotifier delivers the composed agreement by email when the automated
// signing path fails. The operation succeeds only if every recipient's send
// succeeds; partial results are reported per recipient.
type FallbackNotifier interface {
	SendDocument(ctx context.Context, recipients []string, subject, body string, attachment Attachment) []SendResult
}
