package esign

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tawqeea/marketplace-backend/internal/domain/entities"
	"github.com/tawqeea/marketplace-backend/internal/domain/providers"
	apperrors "github.com/tawqeea/marketplace-backend/pkg/errors"
)

// MockAdapter is an in-memory SignatureProvider for local development. Every
// envelope stays pending until completed through the test hooks.
type MockAdapter struct {
	mu        sync.Mutex
	documents map[string][]byte
	envelopes map[string]*mockEnvelope
	byRef     map[string]string
}

type mockEnvelope struct {
	documentID string
	signers    []providers.Signer
	completed  bool
}

// NewMockAdapter creates a new mock adapter
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		documents: make(map[string][]byte),
		envelopes: make(map[string]*mockEnvelope),
		byRef:     make(map[string]string),
	}
}

// UploadDocument stores the document in memory
func (a *MockAdapter) UploadDocument(ctx context.Context, content []byte, name string) (*providers.UploadResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	documentID := "mock-doc-" + uuid.New().String()
	a.documents[documentID] = content

	return &providers.UploadResult{
		DocumentID:      documentID,
		ReferenceNumber: "MOCK-" + uuid.New().String()[:8],
	}, nil
}

// CreateAndInvite records an envelope with all signers pending
func (a *MockAdapter) CreateAndInvite(ctx context.Context, documentID string, signers []providers.Signer) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.documents[documentID]; !ok {
		return "", apperrors.NewProviderPermanentError(fmt.Sprintf("unknown document %s", documentID), nil)
	}

	envelopeID := "mock-env-" + uuid.New().String()
	a.envelopes[envelopeID] = &mockEnvelope{documentID: documentID, signers: signers}
	return envelopeID, nil
}

// GetEnvelopeStatus reports the in-memory envelope state
func (a *MockAdapter) GetEnvelopeStatus(ctx context.Context, referenceNumber string) (*providers.EnvelopeStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	envelopeID, ok := a.byRef[referenceNumber]
	if !ok {
		// without a registered reference the envelope is simply still pending
		return &providers.EnvelopeStatus{RawStatus: "PENDING"}, nil
	}

	env := a.envelopes[envelopeID]
	status := &providers.EnvelopeStatus{
		EnvelopeID: envelopeID,
		RawStatus:  "PENDING",
		Completed:  env.completed,
	}
	if env.completed {
		status.RawStatus = "COMPLETED"
	}
	for _, s := range env.signers {
		state := entities.SignerState{Name: s.Name, Email: s.Email, Status: entities.SignerStatusPending}
		if env.completed {
			state.Status = entities.SignerStatusSigned
		}
		status.Signers = append(status.Signers, state)
	}
	return status, nil
}

// DownloadDocument returns the stored document bytes
func (a *MockAdapter) DownloadDocument(ctx context.Context, documentID string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	content, ok := a.documents[documentID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("document %s not found", documentID))
	}
	return content, nil
}

// RegisterReference binds a reference number to an envelope, test hook
func (a *MockAdapter) RegisterReference(referenceNumber, envelopeID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byRef[referenceNumber] = envelopeID
}

// CompleteEnvelope marks all signers of an envelope signed, test hook
func (a *MockAdapter) CompleteEnvelope(envelopeID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if env, ok := a.envelopes[envelopeID]; ok {
		env.completed = true
	}
}
