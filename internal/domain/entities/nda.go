package entities

import (
	"time"
)

// NdaStatus represents the lifecycle state of an NDA record
type NdaStatus string

const (
	// NdaStatusAwaitingEntrepreneur means the company initiated and the project
	// owner has not supplied their details yet
	NdaStatusAwaitingEntrepreneur NdaStatus = "awaiting_entrepreneur"
	// NdaStatusReadyForProvider means both parties' data is captured and the
	// provider pipeline is about to run (or crashed mid-flight and is resumable)
	NdaStatusReadyForProvider NdaStatus = "ready_for_provider"
	// NdaStatusInvitationsSent means the provider accepted the document and
	// invited both signers
	NdaStatusInvitationsSent NdaStatus = "invitations_sent"
	// NdaStatusPartiallySigned means at least one signer signed
	NdaStatusPartiallySigned NdaStatus = "partially_signed"
	// NdaStatusSigned means all signers signed
	NdaStatusSigned NdaStatus = "signed"
	// NdaStatusEmailFallbackSent means automated signing failed and the document
	// was emailed to both parties for manual signature
	NdaStatusEmailFallbackSent NdaStatus = "email_fallback_sent"
	// NdaStatusProviderFailed means an administrator voided the record after an
	// unrecoverable provider-side failure
	NdaStatusProviderFailed NdaStatus = "provider_failed"
	// NdaStatusCancelled means the envelope was voided or a party cancelled
	NdaStatusCancelled NdaStatus = "cancelled"
	// NdaStatusVoided means the record was withdrawn before any invitation
	NdaStatusVoided NdaStatus = "voided"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s NdaStatus) IsTerminal() bool {
	switch s {
	case NdaStatusSigned, NdaStatusEmailFallbackSent, NdaStatusProviderFailed,
		NdaStatusCancelled, NdaStatusVoided:
		return true
	}
	return false
}

// CompanyInfo is the snapshot of the initiating company's signer, captured at
// initiation and immutable afterwards
type CompanyInfo struct {
	CompanyUserID    string    `json:"company_user_id" db:"company_user_id"`
	RepName          string    `json:"rep_name" db:"company_rep_name"`
	RepEmail         string    `json:"rep_email" db:"company_rep_email"`
	RepPhone         string    `json:"rep_phone" db:"company_rep_phone"`
	LegalCompanyName string    `json:"legal_company_name" db:"legal_company_name"`
	CapturedAt       time.Time `json:"captured_at" db:"company_captured_at"`
}

// EntrepreneurInfo is the snapshot of the project owner's signer, absent until
// the owner completes the second stage
type EntrepreneurInfo struct {
	EntrepreneurUserID string    `json:"entrepreneur_user_id" db:"entrepreneur_user_id"`
	Name               string    `json:"name" db:"entrepreneur_name"`
	Email              string    `json:"email" db:"entrepreneur_email"`
	Phone              string    `json:"phone" db:"entrepreneur_phone"`
	CompletedAt        time.Time `json:"completed_at" db:"entrepreneur_completed_at"`
}

// SignerStatus is the per-signer state reported by the provider
type SignerStatus string

const (
	SignerStatusPending  SignerStatus = "pending"
	SignerStatusSigned   SignerStatus = "signed"
	SignerStatusDeclined SignerStatus = "declined"
)

// SignerState is one entry of the reconciled signer breakdown
type SignerState struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Status   SignerStatus `json:"status"`
	SignedAt *time.Time   `json:"signed_at,omitempty"`
}

// SignerBreakdown is the normalized progress view for the status endpoint
type SignerBreakdown struct {
	Signers       []SignerState `json:"signers"`
	SignedCount   int           `json:"signed_count"`
	PendingCount  int           `json:"pending_count"`
	PercentSigned int           `json:"percent_signed"`
}

// NdaRecord tracks one non-disclosure-agreement negotiation between a project
// and a company. Records are an audit trail and are never hard-deleted.
type NdaRecord struct {
	ID        string    `json:"id" db:"id"`
	ProjectID string    `json:"project_id" db:"project_id"`
	Status    NdaStatus `json:"status" db:"status"`

	CompanyInfo      CompanyInfo       `json:"company_info"`
	EntrepreneurInfo *EntrepreneurInfo `json:"entrepreneur_info,omitempty"`

	ProviderDocumentID      *string `json:"provider_document_id,omitempty" db:"provider_document_id"`
	ProviderEnvelopeID      *string `json:"provider_envelope_id,omitempty" db:"provider_envelope_id"`
	ProviderReferenceNumber *string `json:"provider_reference_number,omitempty" db:"provider_reference_number"`
	ProviderEnvelopeStatus  *string `json:"provider_envelope_status,omitempty" db:"provider_envelope_status"`
	LastProviderError       *string `json:"last_provider_error,omitempty" db:"last_provider_error"`

	Signers []SignerState `json:"signers,omitempty"`

	PdfURL    *string    `json:"pdf_url,omitempty" db:"pdf_url"`
	SignedAt  *time.Time `json:"signed_at,omitempty" db:"signed_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Breakdown computes the normalized signer progress from the reconciled states.
func (n *NdaRecord) Breakdown() SignerBreakdown {
	breakdown := SignerBreakdown{Signers: n.Signers}
	for _, s := range n.Signers {
		if s.Status == SignerStatusSigned {
			breakdown.SignedCount++
		} else {
			breakdown.PendingCount++
		}
	}
	if total := len(n.Signers); total > 0 {
		breakdown.PercentSigned = breakdown.SignedCount * 100 / total
	}
	return breakdown
}

// CanAccess reports whether userID may read or act on this record.
// Admins are checked by the caller.
func (n *NdaRecord) CanAccess(userID, projectOwnerID string) bool {
	if userID == "" {
		return false
	}
	return userID == projectOwnerID || userID == n.CompanyInfo.CompanyUserID
}
