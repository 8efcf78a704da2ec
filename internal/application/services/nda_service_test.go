package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tawqeea/marketplace-backend/internal/adapters/documents"
	"github.com/tawqeea/marketplace-backend/internal/application/services"
	"github.com/tawqeea/marketplace-backend/internal/domain/entities"
	"github.com/tawqeea/marketplace-backend/internal/domain/providers"
	"github.com/tawqeea/marketplace-backend/internal/domain/repositories"
	apperrors "github.com/tawqeea/marketplace-backend/pkg/errors"
	"github.com/tawqeea/marketplace-backend/pkg/utils"
)

// Mocks and fakes

type fakeNdaRepo struct {
	mu        sync.Mutex
	records   map[string]*entities.NdaRecord
	statusLog []entities.NdaStatus
}

func newFakeNdaRepo() *fakeNdaRepo {
	return &fakeNdaRepo{records: make(map[string]*entities.NdaRecord)}
}

func cloneRecord(r *entities.NdaRecord) *entities.NdaRecord {
	clone := *r
	if r.EntrepreneurInfo != nil {
		info := *r.EntrepreneurInfo
		clone.EntrepreneurInfo = &info
	}
	if r.Signers != nil {
		clone.Signers = append([]entities.SignerState(nil), r.Signers...)
	}
	return &clone
}

func (f *fakeNdaRepo) Create(ctx context.Context, record *entities.NdaRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.ID] = cloneRecord(record)
	f.statusLog = append(f.statusLog, record.Status)
	return nil
}

func (f *fakeNdaRepo) GetByID(ctx context.Context, id string) (*entities.NdaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("nda record not found")
	}
	return cloneRecord(record), nil
}

func (f *fakeNdaRepo) GetByReferenceNumber(ctx context.Context, referenceNumber string) (*entities.NdaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.ProviderReferenceNumber != nil && *record.ProviderReferenceNumber == referenceNumber {
			return cloneRecord(record), nil
		}
	}
	return nil, apperrors.NewNotFoundError("no nda record for reference")
}

func (f *fakeNdaRepo) FindActive(ctx context.Context, projectID, companyUserID string) (*entities.NdaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.ProjectID == projectID &&
			record.CompanyInfo.CompanyUserID == companyUserID &&
			!record.Status.IsTerminal() {
			return cloneRecord(record), nil
		}
	}
	return nil, apperrors.NewNotFoundError("no active nda record")
}

func (f *fakeNdaRepo) Update(ctx context.Context, record *entities.NdaRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[record.ID]; !ok {
		return apperrors.NewNotFoundError("nda record not found")
	}
	f.records[record.ID] = cloneRecord(record)
	f.statusLog = append(f.statusLog, record.Status)
	return nil
}

func (f *fakeNdaRepo) ListByProject(ctx context.Context, projectID string, filter repositories.NdaFilter) ([]*entities.NdaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.NdaRecord
	for _, record := range f.records {
		if record.ProjectID == projectID {
			out = append(out, cloneRecord(record))
		}
	}
	return out, nil
}

type fakeProjectRepo struct {
	projects map[string]*entities.Project
}

func (f *fakeProjectRepo) GetByID(ctx context.Context, id string) (*entities.Project, error) {
	project, ok := f.projects[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("project not found")
	}
	return project, nil
}

type MockSignatureProvider struct {
	mock.Mock
}

func (m *MockSignatureProvider) UploadDocument(ctx context.Context, content []byte, name string) (*providers.UploadResult, error) {
	args := m.Called(ctx, content, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.UploadResult), args.Error(1)
}

func (m *MockSignatureProvider) CreateAndInvite(ctx context.Context, documentID string, signers []providers.Signer) (string, error) {
	args := m.Called(ctx, documentID, signers)
	return args.String(0), args.Error(1)
}

func (m *MockSignatureProvider) GetEnvelopeStatus(ctx context.Context, referenceNumber string) (*providers.EnvelopeStatus, error) {
	args := m.Called(ctx, referenceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.EnvelopeStatus), args.Error(1)
}

func (m *MockSignatureProvider) DownloadDocument(ctx context.Context, documentID string) ([]byte, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type fakeNotifier struct {
	mu                 sync.Mutex
	ownerNotices       int
	fallbackRecipients [][]string
	failRecipients     map[string]error
	confirmations      int
}

func (f *fakeNotifier) SendOwnerInputRequired(ctx context.Context, record *entities.NdaRecord, project *entities.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ownerNotices++
	return nil
}

func (f *fakeNotifier) SendFallbackDocument(ctx context.Context, record *entities.NdaRecord, recipients []string, document []byte) []providers.SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallbackRecipients = append(f.fallbackRecipients, recipients)

	results := make([]providers.SendResult, 0, len(recipients))
	for _, r := range recipients {
		result := providers.SendResult{Recipient: r, MessageID: "<msg@test>"}
		if err, ok := f.failRecipients[r]; ok {
			result.Err = err
			result.MessageID = ""
		}
		results = append(results, result)
	}
	return results
}

func (f *fakeNotifier) SendSignedConfirmation(ctx context.Context, record *entities.NdaRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations++
}

type testEnv struct {
	service  *services.NdaService
	repo     *fakeNdaRepo
	provider *MockSignatureProvider
	notifier *fakeNotifier
}

func newTestEnv() *testEnv {
	repo := newFakeNdaRepo()
	provider := new(MockSignatureProvider)
	notifier := &fakeNotifier{failRecipients: map[string]error{}}
	projectRepo := &fakeProjectRepo{projects: map[string]*entities.Project{
		"proj-42": {
			ID:          "proj-42",
			OwnerUserID: "user-noor",
			OwnerName:   "Noor Hassan",
			OwnerEmail:  "noor@test.com",
			Title:       "Inventory Platform",
			Description: "A warehouse inventory tracking platform.",
			IsActive:    true,
		},
	}}

	service := services.NewNdaService(
		repo,
		projectRepo,
		provider,
		documents.NewPdfComposer(),
		notifier,
		nil,
		utils.NewPhoneNormalizer("966"),
		nil,
	)

	return &testEnv{service: service, repo: repo, provider: provider, notifier: notifier}
}

var (
	companyCaller = services.Caller{UserID: "user-ayesha"}
	ownerCaller   = services.Caller{UserID: "user-noor"}
)

func initiateInput() services.InitiateInput {
	return services.InitiateInput{
		ProjectID:        "proj-42",
		LegalCompanyName: "Nimble Software LLC",
		Representative: services.ContactInput{
			Name:  "Ayesha Karim",
			Email: "ayesha@co.test",
			Phone: "+966501234567",
		},
	}
}

func completeInput(ndaID string) services.CompleteInput {
	return services.CompleteInput{
		NdaID: ndaID,
		Entrepreneur: services.ContactInput{
			Name:  "Noor Hassan",
			Email: "noor@test.com",
			Phone: "+966559876543",
		},
	}
}

// Tests

func TestNdaService_Initiate(t *testing.T) {
	t.Run("creates record awaiting entrepreneur and notifies owner", func(t *testing.T) {
		env := newTestEnv()

		record, err := env.service.Initiate(context.Background(), companyCaller, initiateInput())
		require.NoError(t, err)

		assert.Equal(t, entities.NdaStatusAwaitingEntrepreneur, record.Status)
		assert.Equal(t, "user-ayesha", record.CompanyInfo.CompanyUserID)
		assert.Equal(t, "Ayesha Karim", record.CompanyInfo.RepName)
		assert.Nil(t, record.EntrepreneurInfo)
		assert.Equal(t, 1, env.notifier.ownerNotices)
	})

	t.Run("second initiate while one is active returns conflict", func(t *testing.T) {
		env := newTestEnv()

		_, err := env.service.Initiate(context.Background(), companyCaller, initiateInput())
		require.NoError(t, err)

		_, err = env.service.Initiate(context.Background(), companyCaller, initiateInput())
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
		assert.Len(t, env.repo.records, 1)
	})

	t.Run("rejects missing representative fields", func(t *testing.T) {
		env := newTestEnv()

		input := initiateInput()
		input.Representative.Email = ""
		_, err := env.service.Initiate(context.Background(), companyCaller, input)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		assert.Empty(t, env.repo.records)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		env := newTestEnv()

		input := initiateInput()
		input.Representative.Email = "not-an-email"
		_, err := env.service.Initiate(context.Background(), companyCaller, input)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("rejects owner initiating against their own project", func(t *testing.T) {
		env := newTestEnv()

		_, err := env.service.Initiate(context.Background(), ownerCaller, initiateInput())
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})
}

func TestNdaService_Complete_Success(t *testing.T) {
	env := newTestEnv()
	record, err := env.service.Initiate(context.Background(), companyCaller, initiateInput())
	require.NoError(t, err)

	env.provider.On("UploadDocument", mock.Anything, mock.Anything, mock.Anything).
		Return(&providers.UploadResult{DocumentID: "doc-1", ReferenceNumber: "REF-100"}, nil)
	env.provider.On("CreateAndInvite", mock.Anything, "doc-1", mock.MatchedBy(func(signers []providers.Signer) bool {
		return len(signers) == 2 &&
			signers[0].Email == "noor@test.com" && signers[0].Order == 1 &&
			signers[1].Email == "ayesha@co.test" && signers[1].Order == 2
	})).Return("env-1", nil)

	result, err := env.service.Complete(context.Background(), ownerCaller, completeInput(record.ID))
	require.NoError(t, err)

	assert.Equal(t, entities.NdaStatusInvitationsSent, result.Record.Status)
	require.NotNil(t, result.Record.ProviderEnvelopeID)
	assert.Equal(t, "env-1", *result.Record.ProviderEnvelopeID)
	assert.False(t, result.FallbackUsed)
	assert.Nil(t, result.Record.LastProviderError)
	assert.Len(t, result.Record.Signers, 2)

	// the ready_for_provider checkpoint must hit storage before the upload
	assert.Contains(t, env.repo.statusLog, entities.NdaStatusReadyForProvider)
	env.provider.AssertExpectations(t)
}

func TestNdaService_Complete_Authorization(t *testing.T) {
	env := newTestEnv()
	record, err := env.service.Initiate(context.Background(), companyCaller, initiateInput())
	require.NoError(t, err)

	_, err = env.service.Complete(context.Background(), services.Caller{UserID: "user-stranger"}, completeInput(record.ID))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))

	// even the initiating company rep cannot complete for the owner
	_, err = env.service.Complete(context.Background(), companyCaller, completeInput(record.ID))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func TestNdaService_Complete_CrashSafeCheckpoint(t *testing.T) {
	env := newTestEnv()
	record, err := env.service.Initiate(context.Background(), companyCaller, initiateInput())
	require.NoError(t, err)

	// simulate a crash after upload: document id persisted, invitations never sent
	stored, err := env.repo.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	docID, refNum := "doc-1", "REF-100"
	stored.Status = entities.NdaStatusReadyForProvider
	stored.ProviderDocumentID = &docID
	stored.ProviderReferenceNumber = &refNum
	stored.EntrepreneurInfo = &entities.EntrepreneurInfo{
		EntrepreneurUserID: "user-noor",
		Name:               "Noor Hassan",
		Email:              "noor@test.com",
		Phone:              "+966559876543",
		CompletedAt:        time.Now(),
	}
	require.NoError(t, env.repo.Update(context.Background(), stored))

	// no UploadDocument expectation: a re-upload would fail the test
	env.provider.On("CreateAndInvite", mock.Anything, "doc-1", mock.Anything).Return("env-1", nil)

	result, err := env.service.Complete(context.Background(), ownerCaller, completeInput(record.ID))
	require.NoError(t, err)

	assert.Equal(t, entities.NdaStatusInvitationsSent, result.Record.Status)
	assert.Equal(t, "doc-1", *result.Record.ProviderDocumentID)
	env.provider.AssertExpectations(t)
	env.provider.AssertNotCalled(t, "UploadDocument", mock.Anything, mock.Anything, mock.Anything)
}

func TestNdaService_Complete_FallbackOnUploadFailure(t *testing.T) {
	env := newTestEnv()
	record, err := env.service.Initiate(context.Background(), companyCaller, initiateInput())
	require.NoError(t, err)

	env.provider.On("UploadDocument", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.NewProviderTransientError("provider returned 500", nil))

	result, err := env.service.Complete(context.Background(), ownerCaller, completeInput(record.ID))
	require.NoError(t, err)

	assert.True(t, result.FallbackUsed)
	assert.Equal(t, entities.NdaStatusEmailFallbackSent, result.Record.Status)
	assert.ElementsMatch(t, []string{"noor@test.com", "ayesha@co.test"}, result.EmailsSentTo)
	require.NotNil(t, result.Record.LastProviderError)
	assert.Contains(t, *result.Record.LastProviderError, "500")

	// synthetic placeholders keep the both-or-neither identifier invariant
	require.NotNil(t, result.Record.ProviderDocumentID)
	require.NotNil(t, result.Record.ProviderEnvelopeID)

	require.Len(t, env.notifier.fallbackRecipients, 1)
	assert.Equal(t, []string{"noor@test.com", "ayesha@co.test"}, env.notifier.fallbackRecipients[0])
}

func TestNdaService_Complete_FallbackFailureSurfacesContacts(t *testing.T) {
	env := newTestEnv()
	record, err := env.service.Initiate(context.Background(), companyCaller, initiateInput())
	require.NoError(t, err)

	env.provider.On("UploadDocument", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.NewProviderTransientError("provider returned 500", nil))
	env.notifier.failRecipients["ayesha@co.test"] = assert.AnError

	result, err := env.service.Complete(context.Background(), ownerCaller, completeInput(record.ID))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeFallback))

	// never a silent failure: the caller gets the record with both contacts
	// and the record stays retryable
	require.NotNil(t, result)
	assert.Equal(t, entities.NdaStatusAwaitingEntrepreneur, result.Record.Status)
	assert.Equal(t, []string{"noor@test.com"}, result.EmailsSentTo)
	require.NotNil(t, result.Record.LastProviderError)
}

func TestNdaService_Complete_AfterFallbackIsConflict(t *testing.T) {
	env := newTestEnv()
	record, err := env.service.Initiate(context.Background(), companyCaller, initiateInput())
	require.NoError(t, err)

	env.provider.On("UploadDocument", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.NewProviderTransientError("provider returned 500", nil))

	_, err = env.service.Complete(context.Background(), ownerCaller, completeInput(record.ID))
	require.NoError(t, err)

	_, err = env.service.Complete(context.Background(), ownerCaller, completeInput(record.ID))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func invitationsSentRecord(t *testing.T, env *testEnv) *entities.NdaRecord {
	t.Helper()
	record, err := env.service.Initiate(context.Background(), companyCaller, initiateInput())
	require.NoError(t, err)

	env.provider.On("UploadDocument", mock.Anything, mock.Anything, mock.Anything).
		Return(&providers.UploadResult{DocumentID: "doc-1", ReferenceNumber: "REF-100"}, nil).Once()
	env.provider.On("CreateAndInvite", mock.Anything, "doc-1", mock.Anything).Return("env-1", nil).Once()

	result, err := env.service.Complete(context.Background(), ownerCaller, completeInput(record.ID))
	require.NoError(t, err)
	require.Equal(t, entities.NdaStatusInvitationsSent, result.Record.Status)
	return result.Record
}

func TestNdaService_Reconcile(t *testing.T) {
	signedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	bothSigned := &providers.EnvelopeStatus{
		EnvelopeID: "env-1",
		RawStatus:  "COMPLETED",
		Completed:  true,
		Signers: []entities.SignerState{
			{Name: "Noor Hassan", Email: "noor@test.com", Status: entities.SignerStatusSigned, SignedAt: &signedAt},
			{Name: "Ayesha Karim", Email: "ayesha@co.test", Status: entities.SignerStatusSigned, SignedAt: &signedAt},
		},
	}

	t.Run("both signers signed moves record to signed, idempotently", func(t *testing.T) {
		env := newTestEnv()
		invitationsSentRecord(t, env)

		record, err := env.service.Reconcile(context.Background(), "REF-100", bothSigned)
		require.NoError(t, err)
		assert.Equal(t, entities.NdaStatusSigned, record.Status)
		require.NotNil(t, record.SignedAt)
		firstSignedAt := *record.SignedAt
		assert.Equal(t, 1, env.notifier.confirmations)

		// applying the identical payload again changes nothing
		record, err = env.service.Reconcile(context.Background(), "REF-100", bothSigned)
		require.NoError(t, err)
		assert.Equal(t, entities.NdaStatusSigned, record.Status)
		assert.True(t, firstSignedAt.Equal(*record.SignedAt))
		assert.Equal(t, 1, env.notifier.confirmations)
	})

	t.Run("one signer signed moves record to partially signed", func(t *testing.T) {
		env := newTestEnv()
		invitationsSentRecord(t, env)

		record, err := env.service.Reconcile(context.Background(), "REF-100", &providers.EnvelopeStatus{
			EnvelopeID: "env-1",
			RawStatus:  "IN_PROGRESS",
			Signers: []entities.SignerState{
				{Name: "Noor Hassan", Email: "noor@test.com", Status: entities.SignerStatusSigned, SignedAt: &signedAt},
				{Name: "Ayesha Karim", Email: "ayesha@co.test", Status: entities.SignerStatusPending},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, entities.NdaStatusPartiallySigned, record.Status)
		assert.Nil(t, record.SignedAt)
		breakdown := record.Breakdown()
		assert.Equal(t, 1, breakdown.SignedCount)
		assert.Equal(t, 1, breakdown.PendingCount)
		assert.Equal(t, 50, breakdown.PercentSigned)
	})

	t.Run("voided envelope cancels the record", func(t *testing.T) {
		env := newTestEnv()
		invitationsSentRecord(t, env)

		record, err := env.service.Reconcile(context.Background(), "REF-100", &providers.EnvelopeStatus{
			EnvelopeID: "env-1",
			RawStatus:  "VOIDED",
			Voided:     true,
		})
		require.NoError(t, err)
		assert.Equal(t, entities.NdaStatusCancelled, record.Status)
		assert.Nil(t, record.SignedAt)
	})

	t.Run("polls the provider when no payload is given", func(t *testing.T) {
		env := newTestEnv()
		invitationsSentRecord(t, env)

		env.provider.On("GetEnvelopeStatus", mock.Anything, "REF-100").Return(bothSigned, nil).Once()

		record, err := env.service.Reconcile(context.Background(), "REF-100", nil)
		require.NoError(t, err)
		assert.Equal(t, entities.NdaStatusSigned, record.Status)
		env.provider.AssertExpectations(t)
	})

	t.Run("unknown reference is not found", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.service.Reconcile(context.Background(), "REF-UNKNOWN", bothSigned)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestNdaService_GetDocument(t *testing.T) {
	t.Run("serves the provider copy when reachable", func(t *testing.T) {
		env := newTestEnv()
		record := invitationsSentRecord(t, env)

		env.provider.On("DownloadDocument", mock.Anything, "doc-1").Return([]byte("provider-copy"), nil)

		content, reconstruction, err := env.service.GetDocument(context.Background(), ownerCaller, record.ID)
		require.NoError(t, err)
		assert.False(t, reconstruction)
		assert.Equal(t, []byte("provider-copy"), content)
	})

	t.Run("regenerates locally when the download fails", func(t *testing.T) {
		env := newTestEnv()
		record := invitationsSentRecord(t, env)

		env.provider.On("DownloadDocument", mock.Anything, "doc-1").
			Return(nil, apperrors.NewProviderTransientError("timeout", nil))

		content, reconstruction, err := env.service.GetDocument(context.Background(), ownerCaller, record.ID)
		require.NoError(t, err)
		assert.True(t, reconstruction)
		assert.Contains(t, string(content), "Nimble Software LLC")
	})

	t.Run("company representative may read the document", func(t *testing.T) {
		env := newTestEnv()
		record := invitationsSentRecord(t, env)

		env.provider.On("DownloadDocument", mock.Anything, "doc-1").Return([]byte("provider-copy"), nil)

		_, _, err := env.service.GetDocument(context.Background(), companyCaller, record.ID)
		assert.NoError(t, err)
	})

	t.Run("unrelated caller is rejected", func(t *testing.T) {
		env := newTestEnv()
		record := invitationsSentRecord(t, env)

		_, _, err := env.service.GetDocument(context.Background(), services.Caller{UserID: "user-stranger"}, record.ID)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
	})
}

func TestNdaService_Cancel(t *testing.T) {
	t.Run("voids a record before invitations", func(t *testing.T) {
		env := newTestEnv()
		record, err := env.service.Initiate(context.Background(), companyCaller, initiateInput())
		require.NoError(t, err)

		cancelled, err := env.service.Cancel(context.Background(), companyCaller, record.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.NdaStatusVoided, cancelled.Status)
	})

	t.Run("cancels a record after invitations", func(t *testing.T) {
		env := newTestEnv()
		record := invitationsSentRecord(t, env)

		cancelled, err := env.service.Cancel(context.Background(), ownerCaller, record.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.NdaStatusCancelled, cancelled.Status)
	})

	t.Run("terminal record cannot be cancelled", func(t *testing.T) {
		env := newTestEnv()
		invitationsSentRecord(t, env)

		_, err := env.service.Reconcile(context.Background(), "REF-100", &providers.EnvelopeStatus{
			RawStatus: "VOIDED", Voided: true,
		})
		require.NoError(t, err)

		record, err := env.repo.GetByReferenceNumber(context.Background(), "REF-100")
		require.NoError(t, err)
		_, err = env.service.Cancel(context.Background(), ownerCaller, record.ID)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})
}

func TestNdaService_GetStatus(t *testing.T) {
	t.Run("reconciles in-flight records against the provider", func(t *testing.T) {
		env := newTestEnv()
		record := invitationsSentRecord(t, env)

		env.provider.On("GetEnvelopeStatus", mock.Anything, "REF-100").Return(&providers.EnvelopeStatus{
			EnvelopeID: "env-1",
			RawStatus:  "IN_PROGRESS",
			Signers: []entities.SignerState{
				{Name: "Noor Hassan", Email: "noor@test.com", Status: entities.SignerStatusSigned},
				{Name: "Ayesha Karim", Email: "ayesha@co.test", Status: entities.SignerStatusPending},
			},
		}, nil)

		got, err := env.service.GetStatus(context.Background(), ownerCaller, record.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.NdaStatusPartiallySigned, got.Status)
	})

	t.Run("provider outage degrades to stored state", func(t *testing.T) {
		env := newTestEnv()
		record := invitationsSentRecord(t, env)

		env.provider.On("GetEnvelopeStatus", mock.Anything, "REF-100").
			Return(nil, apperrors.NewProviderTransientError("timeout", nil))

		got, err := env.service.GetStatus(context.Background(), ownerCaller, record.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.NdaStatusInvitationsSent, got.Status)
	})
}
