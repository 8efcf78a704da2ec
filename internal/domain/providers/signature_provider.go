package providers

import (
	"context"

	"github.com/tawqeea/marketplace-backend/internal/domain/entities"
)

// Signer is one invitee of a signing envelope. Phone must be in the provider's
// international format when available; an unnormalizable number is passed
// through best-effort.
type Signer struct {
	Name  string
	Email string
	Phone string
	Order int
}

// UploadResult carries the identifiers the provider assigns to an uploaded document
type UploadResult struct {
	DocumentID      string
	ReferenceNumber string
}

// EnvelopeStatus is the provider's authoritative signing state for an envelope
type EnvelopeStatus struct {
	EnvelopeID string
	RawStatus  string
	Completed  bool
	Voided     bool
	Signers    []entities.SignerState
}

// SignatureProvider defines the interface for external e-signature services.
// Implementations must classify failures as transient or permanent through
// pkg/errors so callers can decide whether the fallback path applies.
type SignatureProvider interface {
	// UploadDocument uploads a composed document and returns its provider identifiers
	UploadDocument(ctx context.Context, content []byte, name string) (*UploadResult, error)

	// CreateAndInvite creates a signing envelope for an uploaded document and
	// invites the signers in order
	CreateAndInvite(ctx context.Context, documentID string, signers []Signer) (envelopeID string, err error)

	// GetEnvelopeStatus queries the envelope status by reference number
	GetEnvelopeStatus(ctx context.Context, referenceNumber string) (*EnvelopeStatus, error)

	// DownloadDocument downloads the (possibly signed) document binary
	DownloadDocument(ctx context.Context, documentID string) ([]byte, error)
}
