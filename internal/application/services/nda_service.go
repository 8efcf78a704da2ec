package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tawqeea/marketplace-backend/internal/domain/entities"
	"github.com/tawqeea/marketplace-backend/internal/domain/providers"
	"github.com/tawqeea/marketplace-backend/internal/domain/repositories"
	"github.com/tawqeea/marketplace-backend/internal/infrastructure/observability"
	apperrors "github.com/tawqeea/marketplace-backend/pkg/errors"
	"github.com/tawqeea/marketplace-backend/pkg/utils"
)

// syntheticProviderIDPrefix marks placeholder identifiers written when the
// email fallback replaced the provider path, so downstream code can treat the
// record as "invitations dispatched" without a real envelope behind it
const syntheticProviderIDPrefix = "email-fallback:"

const reconciledStatusCacheTTL = 30 // seconds

// NdaNotifier is the notification surface the workflow engine drives
type NdaNotifier interface {
	SendOwnerInputRequired(ctx context.Context, record *entities.NdaRecord, project *entities.Project) error
	SendFallbackDocument(ctx context.Context, record *entities.NdaRecord, recipients []string, document []byte) []providers.SendResult
	SendSignedConfirmation(ctx context.Context, record *entities.NdaRecord)
}

// Caller identifies the authenticated user invoking a workflow operation
type Caller struct {
	UserID  string
	IsAdmin bool
}

// ContactInput is an explicitly supplied, validated signer contact. Contact
// details are never taken silently from account records.
type ContactInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (c ContactInput) validate(role string) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperrors.NewValidationError(fmt.Sprintf("%s name is required", role))
	}
	if strings.TrimSpace(c.Email) == "" || !strings.Contains(c.Email, "@") {
		return apperrors.NewValidationError(fmt.Sprintf("%s email is missing or malformed", role))
	}
	if strings.TrimSpace(c.Phone) == "" {
		return apperrors.NewValidationError(fmt.Sprintf("%s phone is required", role))
	}
	return nil
}

// InitiateInput is the company-side request that opens an NDA negotiation
type InitiateInput struct {
	ProjectID        string       `json:"project_id"`
	LegalCompanyName string       `json:"legal_company_name"`
	Representative   ContactInput `json:"representative"`
}

// CompleteInput is the project owner's request that supplies their signer
// details and triggers the provider pipeline
type CompleteInput struct {
	NdaID        string       `json:"nda_id"`
	Entrepreneur ContactInput `json:"entrepreneur"`
}

// CompleteResult reports the outcome of a Complete call, including whether
// the email fallback replaced the automated signing path
type CompleteResult struct {
	Record       *entities.NdaRecord
	FallbackUsed bool
	EmailsSentTo []string
}

// NdaService is the NDA workflow engine: it owns the record lifecycle,
// decides side effects per transition, reconciles against the provider, and
// drives the fallback path. All mutations of one record are serialized.
type NdaService struct {
	repo        repositories.NdaRepository
	projectRepo repositories.ProjectRepository
	provider    providers.SignatureProvider
	composer    providers.DocumentComposer
	notifier    NdaNotifier
	cache       providers.CacheProvider
	phones      *utils.PhoneNormalizer
	metrics     *observability.Metrics
	locks       *recordLocks
}

// NewNdaService creates a new NDA workflow service. cache may be nil; the
// engine then polls the provider on every status read.
func NewNdaService(
	repo repositories.NdaRepository,
	projectRepo repositories.ProjectRepository,
	provider providers.SignatureProvider,
	composer providers.DocumentComposer,
	notifier NdaNotifier,
	cache providers.CacheProvider,
	phones *utils.PhoneNormalizer,
	metrics *observability.Metrics,
) *NdaService {
	return &NdaService{
		repo:        repo,
		projectRepo: projectRepo,
		provider:    provider,
		composer:    composer,
		notifier:    notifier,
		cache:       cache,
		phones:      phones,
		metrics:     metrics,
		locks:       newRecordLocks(),
	}
}

// Initiate creates a new NDA record on behalf of a company representative.
// Exactly one record per (project, company) pair may be active at a time.
func (s *NdaService) Initiate(ctx context.Context, caller Caller, input InitiateInput) (*entities.NdaRecord, error) {
	ctx, span := observability.StartSpan(ctx, "NdaService.Initiate")
	defer span.End()

	if caller.UserID == "" {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	if input.ProjectID == "" {
		return nil, apperrors.NewValidationError("project_id is required")
	}
	if strings.TrimSpace(input.LegalCompanyName) == "" {
		return nil, apperrors.NewValidationError("legal_company_name is required")
	}
	if err := input.Representative.validate("representative"); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.GetByID(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if !project.IsActive {
		return nil, apperrors.NewValidationError("project is not active")
	}
	if project.OwnerUserID == caller.UserID {
		return nil, apperrors.NewValidationError("project owner cannot request an NDA on their own project")
	}

	_, err = s.repo.FindActive(ctx, input.ProjectID, caller.UserID)
	if err == nil {
		return nil, apperrors.NewConflictError("an active NDA already exists for this project and company")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, err
	}

	now := time.Now()
	record := &entities.NdaRecord{
		ID:        uuid.New().String(),
		ProjectID: input.ProjectID,
		Status:    entities.NdaStatusAwaitingEntrepreneur,
		CompanyInfo: entities.CompanyInfo{
			CompanyUserID:    caller.UserID,
			RepName:          input.Representative.Name,
			RepEmail:         input.Representative.Email,
			RepPhone:         input.Representative.Phone,
			LegalCompanyName: input.LegalCompanyName,
			CapturedAt:       now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	observability.RecordTransition(ctx, s.metrics, "", string(record.Status))

	if err := s.notifier.SendOwnerInputRequired(ctx, record, project); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("nda_id", record.ID).
			Msg("Failed to notify project owner of NDA initiation")
	}

	return record, nil
}

// Complete captures the project owner's signer details and synchronously runs
// the provider pipeline: persist the ready_for_provider checkpoint, compose,
// upload, invite. Any provider failure is absorbed into the single fallback
// path.
func (s *NdaService) Complete(ctx context.Context, caller Caller, input CompleteInput) (*CompleteResult, error) {
	ctx, span := observability.StartSpan(ctx, "NdaService.Complete")
	defer span.End()

	if input.NdaID == "" {
		return nil, apperrors.NewValidationError("nda_id is required")
	}
	if err := input.Entrepreneur.validate("entrepreneur"); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(input.NdaID)
	defer unlock()

	record, err := s.repo.GetByID(ctx, input.NdaID)
	if err != nil {
		return nil, err
	}

	project, err := s.projectRepo.GetByID(ctx, record.ProjectID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin && caller.UserID != project.OwnerUserID {
		return nil, apperrors.NewUnauthorizedError("only the project owner can complete this NDA")
	}

	switch record.Status {
	case entities.NdaStatusAwaitingEntrepreneur, entities.NdaStatusReadyForProvider:
		// ready_for_provider means a prior attempt crashed mid-pipeline; the
		// retry resumes from the persisted checkpoint
	case entities.NdaStatusEmailFallbackSent:
		return nil, apperrors.NewConflictError("the agreement was already dispatched by email for manual signature")
	case entities.NdaStatusInvitationsSent, entities.NdaStatusPartiallySigned:
		return nil, apperrors.NewConflictError("signing invitations were already sent")
	default:
		return nil, apperrors.NewConflictError(fmt.Sprintf("NDA is not awaiting entrepreneur input (status %s)", record.Status))
	}

	now := time.Now()
	if record.EntrepreneurInfo == nil {
		record.EntrepreneurInfo = &entities.EntrepreneurInfo{CompletedAt: now}
	}
	record.EntrepreneurInfo.EntrepreneurUserID = project.OwnerUserID
	record.EntrepreneurInfo.Name = input.Entrepreneur.Name
	record.EntrepreneurInfo.Email = input.Entrepreneur.Email
	record.EntrepreneurInfo.Phone = input.Entrepreneur.Phone

	// checkpoint before any provider call so a crash mid-pipeline is resumable
	previous := record.Status
	record.Status = entities.NdaStatusReadyForProvider
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}
	observability.RecordTransition(ctx, s.metrics, string(previous), string(record.Status))

	return s.runProviderPipeline(ctx, record, project)
}

// runProviderPipeline performs compose, upload and invite against the
// provider. The record must already be persisted as ready_for_provider.
func (s *NdaService) runProviderPipeline(ctx context.Context, record *entities.NdaRecord, project *entities.Project) (*CompleteResult, error) {
	logger := observability.LoggerFromContext(ctx)

	composed, err := s.composer.Compose(providers.ComposeInput{
		Project:          project,
		LegalCompanyName: record.CompanyInfo.LegalCompanyName,
		CompanySigner:    record.CompanyInfo.RepName,
		OwnerSigner:      record.EntrepreneurInfo.Name,
		MaskSigners:      true,
	})
	if err != nil {
		s.revertToAwaiting(ctx, record, err)
		return nil, apperrors.NewInternalError("failed to compose agreement document", err)
	}

	// never re-upload once a provider document id is persisted for this record
	if record.ProviderDocumentID == nil {
		upload, err := s.provider.UploadDocument(ctx, composed, fmt.Sprintf("nda-%s.pdf", record.ID))
		if err != nil {
			return s.handlePipelineFailure(ctx, record, project, err)
		}

		initialStatus := "UPLOADED"
		record.ProviderDocumentID = &upload.DocumentID
		record.ProviderReferenceNumber = &upload.ReferenceNumber
		record.ProviderEnvelopeStatus = &initialStatus
		if err := s.repo.Update(ctx, record); err != nil {
			return nil, err
		}
		logger.Info().
			Str("nda_id", record.ID).
			Str("document_id", upload.DocumentID).
			Msg("Agreement uploaded to signing provider")
	}

	envelopeID, err := s.provider.CreateAndInvite(ctx, *record.ProviderDocumentID, s.buildSigners(ctx, record))
	if err != nil {
		return s.handlePipelineFailure(ctx, record, project, err)
	}

	sentStatus := "SENT"
	previous := record.Status
	record.Status = entities.NdaStatusInvitationsSent
	record.ProviderEnvelopeID = &envelopeID
	record.ProviderEnvelopeStatus = &sentStatus
	record.LastProviderError = nil
	record.Signers = []entities.SignerState{
		{Name: record.EntrepreneurInfo.Name, Email: record.EntrepreneurInfo.Email, Status: entities.SignerStatusPending},
		{Name: record.CompanyInfo.RepName, Email: record.CompanyInfo.RepEmail, Status: entities.SignerStatusPending},
	}
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}
	observability.RecordTransition(ctx, s.metrics, string(previous), string(record.Status))
	logger.Info().
		Str("nda_id", record.ID).
		Str("envelope_id", envelopeID).
		Msg("Signing invitations sent")

	return &CompleteResult{Record: record}, nil
}

// buildSigners assembles the invitation list in fixed order: project owner
// first, company representative second. Phone numbers are normalized
// best-effort; an unnormalizable number is passed through and logged.
func (s *NdaService) buildSigners(ctx context.Context, record *entities.NdaRecord) []providers.Signer {
	logger := observability.LoggerFromContext(ctx)

	contacts := []struct {
		name, email, phone string
	}{
		{record.EntrepreneurInfo.Name, record.EntrepreneurInfo.Email, record.EntrepreneurInfo.Phone},
		{record.CompanyInfo.RepName, record.CompanyInfo.RepEmail, record.CompanyInfo.RepPhone},
	}

	signers := make([]providers.Signer, 0, len(contacts))
	for i, c := range contacts {
		normalized := s.phones.Normalize(c.phone)
		if !normalized.Valid {
			logger.Warn().
				Str("nda_id", record.ID).
				Str("phone", c.phone).
				Msg("Phone number could not be normalized, passing through as supplied")
		}
		signers = append(signers, providers.Signer{
			Name:  c.name,
			Email: c.email,
			Phone: normalized.E164,
			Order: i + 1,
		})
	}
	return signers
}

// handlePipelineFailure is the single failure path for provider errors:
// revert to awaiting_entrepreneur with the error recorded, then attempt the
// email fallback. The caller is never left with a silent failure.
func (s *NdaService) handlePipelineFailure(ctx context.Context, record *entities.NdaRecord, project *entities.Project, cause error) (*CompleteResult, error) {
	logger := observability.LoggerFromContext(ctx)
	logger.Error().
		Err(cause).
		Str("nda_id", record.ID).
		Msg("Provider pipeline failed, attempting email fallback")

	s.revertToAwaiting(ctx, record, cause)

	// the fallback document carries full names: it goes directly to the
	// parties for manual signature, not through the provider's hosted UI
	document, err := s.composer.Compose(providers.ComposeInput{
		Project:          project,
		LegalCompanyName: record.CompanyInfo.LegalCompanyName,
		CompanySigner:    record.CompanyInfo.RepName,
		OwnerSigner:      record.EntrepreneurInfo.Name,
	})
	if err != nil {
		return &CompleteResult{Record: record}, apperrors.NewFallbackError("failed to compose fallback document", err)
	}

	recipients := []string{record.EntrepreneurInfo.Email, record.CompanyInfo.RepEmail}
	results := s.notifier.SendFallbackDocument(ctx, record, recipients, document)

	var sentTo []string
	var failed []string
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r.Recipient)
		} else {
			sentTo = append(sentTo, r.Recipient)
		}
	}

	if len(failed) > 0 {
		return &CompleteResult{Record: record, EmailsSentTo: sentTo},
			apperrors.NewFallbackError(
				fmt.Sprintf("fallback delivery failed for %s; manual follow-up required", strings.Join(failed, ", ")),
				cause,
			)
	}

	previous := record.Status
	record.Status = entities.NdaStatusEmailFallbackSent
	fallbackStatus := "EMAIL_FALLBACK"
	record.ProviderEnvelopeStatus = &fallbackStatus
	if record.ProviderDocumentID == nil {
		synthetic := syntheticProviderIDPrefix + record.ID
		record.ProviderDocumentID = &synthetic
	}
	if record.ProviderEnvelopeID == nil {
		synthetic := syntheticProviderIDPrefix + record.ID
		record.ProviderEnvelopeID = &synthetic
	}
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}
	observability.RecordTransition(ctx, s.metrics, string(previous), string(record.Status))
	logger.Info().
		Str("nda_id", record.ID).
		Strs("recipients", sentTo).
		Msg("Agreement dispatched by email fallback")

	return &CompleteResult{Record: record, FallbackUsed: true, EmailsSentTo: sentTo}, nil
}

// revertToAwaiting puts the record back into awaiting_entrepreneur with the
// failure recorded, keeping captured data and any persisted provider
// identifiers so a retry can resume
func (s *NdaService) revertToAwaiting(ctx context.Context, record *entities.NdaRecord, cause error) {
	errMsg := cause.Error()
	previous := record.Status
	record.Status = entities.NdaStatusAwaitingEntrepreneur
	record.LastProviderError = &errMsg
	if err := s.repo.Update(ctx, record); err != nil {
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("nda_id", record.ID).
			Msg("Failed to persist pipeline failure state")
		return
	}
	observability.RecordTransition(ctx, s.metrics, string(previous), string(record.Status))
}

// Reconcile is the single entry point through which every externally observed
// envelope status reaches the record, whether from a webhook payload or a
// provider poll (payload nil). Applying the same payload twice yields the same
// record and no duplicate notifications.
func (s *NdaService) Reconcile(ctx context.Context, referenceNumber string, payload *providers.EnvelopeStatus) (*entities.NdaRecord, error) {
	ctx, span := observability.StartSpan(ctx, "NdaService.Reconcile")
	defer span.End()

	if referenceNumber == "" {
		return nil, apperrors.NewValidationError("reference number is required")
	}

	record, err := s.repo.GetByReferenceNumber(ctx, referenceNumber)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(record.ID)
	defer unlock()

	// re-read under the lock, a concurrent reconciliation may have advanced it
	record, err = s.repo.GetByID(ctx, record.ID)
	if err != nil {
		return nil, err
	}

	status := payload
	if status == nil {
		status, err = s.provider.GetEnvelopeStatus(ctx, referenceNumber)
		if err != nil {
			return nil, err
		}
	}

	changed, newlySigned := s.applyEnvelopeStatus(record, status)
	if !changed {
		return record, nil
	}

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}
	s.invalidateStatusCache(ctx, record.ID)

	if newlySigned {
		s.notifier.SendSignedConfirmation(ctx, record)
	}

	return record, nil
}

// applyEnvelopeStatus maps the provider's vocabulary onto the internal state
// machine. It mutates the record in memory and reports whether anything
// changed and whether the record just became fully signed.
func (s *NdaService) applyEnvelopeStatus(record *entities.NdaRecord, status *providers.EnvelopeStatus) (changed, newlySigned bool) {
	// terminal records only accept the update that made them terminal again
	if record.Status.IsTerminal() {
		return false, false
	}

	var target entities.NdaStatus
	switch {
	case status.Completed:
		target = entities.NdaStatusSigned
	case status.Voided:
		target = entities.NdaStatusCancelled
	default:
		signedCount := 0
		for _, signer := range status.Signers {
			if signer.Status == entities.SignerStatusSigned {
				signedCount++
			}
		}
		if signedCount > 0 {
			target = entities.NdaStatusPartiallySigned
		} else {
			target = entities.NdaStatusInvitationsSent
		}
	}

	previous := record.Status
	if record.Status != target {
		record.Status = target
		changed = true
	}
	if record.ProviderEnvelopeStatus == nil || *record.ProviderEnvelopeStatus != status.RawStatus {
		raw := status.RawStatus
		record.ProviderEnvelopeStatus = &raw
		changed = true
	}
	if status.EnvelopeID != "" && (record.ProviderEnvelopeID == nil || *record.ProviderEnvelopeID != status.EnvelopeID) {
		envelopeID := status.EnvelopeID
		record.ProviderEnvelopeID = &envelopeID
		changed = true
	}
	if len(status.Signers) > 0 && !signersEqual(record.Signers, status.Signers) {
		record.Signers = status.Signers
		changed = true
	}

	if target == entities.NdaStatusSigned && record.SignedAt == nil {
		signedAt := latestSignedAt(status.Signers)
		record.SignedAt = &signedAt
		newlySigned = previous != entities.NdaStatusSigned
		changed = true
	}

	return changed, newlySigned
}

func signersEqual(a, b []entities.SignerState) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Email != b[i].Email || a[i].Status != b[i].Status {
			return false
		}
		aSigned, bSigned := a[i].SignedAt, b[i].SignedAt
		if (aSigned == nil) != (bSigned == nil) {
			return false
		}
		if aSigned != nil && !aSigned.Equal(*bSigned) {
			return false
		}
	}
	return true
}

func latestSignedAt(signers []entities.SignerState) time.Time {
	var latest time.Time
	for _, s := range signers {
		if s.SignedAt != nil && s.SignedAt.After(latest) {
			latest = *s.SignedAt
		}
	}
	if latest.IsZero() {
		latest = time.Now()
	}
	return latest
}

// GetStatus returns the record with its normalized signer breakdown,
// opportunistically reconciling against the provider while signing is in
// flight. A provider outage degrades to the last stored state.
func (s *NdaService) GetStatus(ctx context.Context, caller Caller, ndaID string) (*entities.NdaRecord, error) {
	ctx, span := observability.StartSpan(ctx, "NdaService.GetStatus")
	defer span.End()

	record, err := s.authorizedRecord(ctx, caller, ndaID)
	if err != nil {
		return nil, err
	}

	if !s.shouldPoll(ctx, record) {
		return record, nil
	}

	reconciled, err := s.Reconcile(ctx, *record.ProviderReferenceNumber, nil)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("nda_id", record.ID).
			Msg("Opportunistic reconciliation failed, serving stored state")
		return record, nil
	}
	s.markStatusFresh(ctx, record.ID)

	return reconciled, nil
}

// shouldPoll reports whether a provider poll is due for this record
func (s *NdaService) shouldPoll(ctx context.Context, record *entities.NdaRecord) bool {
	if record.Status != entities.NdaStatusInvitationsSent && record.Status != entities.NdaStatusPartiallySigned {
		return false
	}
	if record.ProviderReferenceNumber == nil || isSynthetic(*record.ProviderReferenceNumber) {
		return false
	}
	if s.cache == nil {
		return true
	}
	fresh, err := s.cache.Exists(ctx, statusCacheKey(record.ID))
	if err != nil {
		return true
	}
	return !fresh
}

func (s *NdaService) markStatusFresh(ctx context.Context, ndaID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, statusCacheKey(ndaID), []byte("1"), reconciledStatusCacheTTL); err != nil {
		observability.LoggerFromContext(ctx).Debug().Err(err).Msg("Failed to mark reconciled status fresh")
	}
}

func (s *NdaService) invalidateStatusCache(ctx context.Context, ndaID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statusCacheKey(ndaID)); err != nil {
		observability.LoggerFromContext(ctx).Debug().Err(err).Msg("Failed to invalidate status cache")
	}
}

func statusCacheKey(ndaID string) string {
	return "nda:status-fresh:" + ndaID
}

func documentCacheKey(ndaID string) string {
	return "nda:signed-document:" + ndaID
}

func isSynthetic(providerID string) bool {
	return strings.HasPrefix(providerID, syntheticProviderIDPrefix)
}

// GetDocument returns the agreement binary: the provider's copy when one
// exists and is reachable, otherwise a locally regenerated rendition. The
// second return value is true for a reconstruction.
func (s *NdaService) GetDocument(ctx context.Context, caller Caller, ndaID string) ([]byte, bool, error) {
	ctx, span := observability.StartSpan(ctx, "NdaService.GetDocument")
	defer span.End()

	record, err := s.authorizedRecord(ctx, caller, ndaID)
	if err != nil {
		return nil, false, err
	}

	if record.ProviderDocumentID != nil && !isSynthetic(*record.ProviderDocumentID) {
		if cached := s.cachedDocument(ctx, record); cached != nil {
			return cached, false, nil
		}

		content, err := s.provider.DownloadDocument(ctx, *record.ProviderDocumentID)
		if err == nil {
			// only fully signed documents are immutable enough to cache
			if record.Status == entities.NdaStatusSigned {
				s.cacheDocument(ctx, record.ID, content)
			}
			return content, false, nil
		}
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("nda_id", record.ID).
			Msg("Provider document download failed, regenerating locally")
	}

	project, err := s.projectRepo.GetByID(ctx, record.ProjectID)
	if err != nil {
		return nil, false, err
	}

	ownerSigner := "Pending"
	if record.EntrepreneurInfo != nil {
		ownerSigner = record.EntrepreneurInfo.Name
	}
	content, err := s.composer.Compose(providers.ComposeInput{
		Project:          project,
		LegalCompanyName: record.CompanyInfo.LegalCompanyName,
		CompanySigner:    record.CompanyInfo.RepName,
		OwnerSigner:      ownerSigner,
	})
	if err != nil {
		return nil, false, apperrors.NewInternalError("failed to regenerate agreement document", err)
	}

	return content, true, nil
}

func (s *NdaService) cachedDocument(ctx context.Context, record *entities.NdaRecord) []byte {
	if s.cache == nil || record.Status != entities.NdaStatusSigned {
		return nil
	}
	content, err := s.cache.Get(ctx, documentCacheKey(record.ID))
	if err != nil {
		return nil
	}
	return content
}

func (s *NdaService) cacheDocument(ctx context.Context, ndaID string, content []byte) {
	if s.cache == nil {
		return
	}
	// signed documents never change; a day keeps repeat downloads off the provider
	if err := s.cache.Set(ctx, documentCacheKey(ndaID), content, 86400); err != nil {
		observability.LoggerFromContext(ctx).Debug().Err(err).Msg("Failed to cache signed document")
	}
}

// Cancel withdraws an active record: voided before any invitation went out,
// cancelled afterwards. Terminal records cannot be cancelled.
func (s *NdaService) Cancel(ctx context.Context, caller Caller, ndaID string) (*entities.NdaRecord, error) {
	ctx, span := observability.StartSpan(ctx, "NdaService.Cancel")
	defer span.End()

	unlock := s.locks.Lock(ndaID)
	defer unlock()

	record, err := s.authorizedRecord(ctx, caller, ndaID)
	if err != nil {
		return nil, err
	}

	if record.Status.IsTerminal() {
		return nil, apperrors.NewConflictError(fmt.Sprintf("NDA is already in terminal state %s", record.Status))
	}

	previous := record.Status
	switch record.Status {
	case entities.NdaStatusAwaitingEntrepreneur, entities.NdaStatusReadyForProvider:
		record.Status = entities.NdaStatusVoided
	default:
		record.Status = entities.NdaStatusCancelled
	}

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}
	observability.RecordTransition(ctx, s.metrics, string(previous), string(record.Status))
	s.invalidateStatusCache(ctx, record.ID)

	return record, nil
}

// ListByProject returns a project's NDA history for its owner or an admin
func (s *NdaService) ListByProject(ctx context.Context, caller Caller, projectID string, filter repositories.NdaFilter) ([]*entities.NdaRecord, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin && caller.UserID != project.OwnerUserID {
		return nil, apperrors.NewUnauthorizedError("only the project owner can list NDA history")
	}
	return s.repo.ListByProject(ctx, projectID, filter)
}

// authorizedRecord loads a record and enforces the read-access rule: project
// owner, initiating company representative, or admin
func (s *NdaService) authorizedRecord(ctx context.Context, caller Caller, ndaID string) (*entities.NdaRecord, error) {
	record, err := s.repo.GetByID(ctx, ndaID)
	if err != nil {
		return nil, err
	}

	if caller.IsAdmin {
		return record, nil
	}

	project, err := s.projectRepo.GetByID(ctx, record.ProjectID)
	if err != nil {
		return nil, err
	}
	if !record.CanAccess(caller.UserID, project.OwnerUserID) {
		return nil, apperrors.NewUnauthorizedError("caller is not a party to this NDA")
	}

	return record, nil
}
