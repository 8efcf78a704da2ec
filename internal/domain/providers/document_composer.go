package providers

import (
	"github.com/tawqeea/marketplace-backend/internal/domain/entities"
)

// ComposeInput is everything the agreement template is rendered from
type ComposeInput struct {
	Project          *entities.Project
	LegalCompanyName string
	CompanySigner    string
	OwnerSigner      string
	// MaskSigners redacts the middle of both signer names, used for the
	// pre-signature upload so the provider's hosted UI does not leak identities
	MaskSigners bool
}

// DocumentComposer renders the fixed agreement template into a binary document.
// Implementations must be deterministic: identical input yields byte-identical
// output.
type DocumentComposer interface {
	Compose(input ComposeInput) ([]byte, error)
}
