package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/tawqeea/marketplace-backend/internal/domain/entities"
	"github.com/tawqeea/marketplace-backend/internal/domain/repositories"
	"github.com/tawqeea/marketplace-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/tawqeea/marketplace-backend/pkg/errors"
)

var terminalStatuses = []entities.NdaStatus{
	entities.NdaStatusSigned,
	entities.NdaStatusEmailFallbackSent,
	entities.NdaStatusProviderFailed,
	entities.NdaStatusCancelled,
	entities.NdaStatusVoided,
}

// NdaAdapter implements the NdaRepository interface
type NdaAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewNdaAdapter creates a new NDA adapter
func NewNdaAdapter(client *postgres.Client) repositories.NdaRepository {
	return &NdaAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var ndaColumns = []interface{}{
	"id", "project_id", "status",
	"company_user_id", "company_rep_name", "company_rep_email", "company_rep_phone",
	"legal_company_name", "company_captured_at",
	"entrepreneur_user_id", "entrepreneur_name", "entrepreneur_email",
	"entrepreneur_phone", "entrepreneur_completed_at",
	"provider_document_id", "provider_envelope_id", "provider_reference_number",
	"provider_envelope_status", "last_provider_error", "signers",
	"pdf_url", "signed_at", "expires_at", "created_at", "updated_at",
}

// Create creates a new NDA record
func (a *NdaAdapter) Create(ctx context.Context, record *entities.NdaRecord) error {
	signers, err := json.Marshal(record.Signers)
	if err != nil {
		return apperrors.NewInternalError("failed to encode signer states", err)
	}

	rec := goqu.Record{
		"id":                  record.ID,
		"project_id":          record.ProjectID,
		"status":              record.Status,
		"company_user_id":     record.CompanyInfo.CompanyUserID,
		"company_rep_name":    record.CompanyInfo.RepName,
		"company_rep_email":   record.CompanyInfo.RepEmail,
		"company_rep_phone":   record.CompanyInfo.RepPhone,
		"legal_company_name":  record.CompanyInfo.LegalCompanyName,
		"company_captured_at": record.CompanyInfo.CapturedAt,
		"signers":             signers,
		"created_at":          record.CreatedAt,
		"updated_at":          record.UpdatedAt,
	}

	if record.EntrepreneurInfo != nil {
		rec["entrepreneur_user_id"] = record.EntrepreneurInfo.EntrepreneurUserID
		rec["entrepreneur_name"] = record.EntrepreneurInfo.Name
		rec["entrepreneur_email"] = record.EntrepreneurInfo.Email
		rec["entrepreneur_phone"] = record.EntrepreneurInfo.Phone
		rec["entrepreneur_completed_at"] = record.EntrepreneurInfo.CompletedAt
	}

	query, args, err := a.db.Insert("nda_records").Rows(rec).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err = a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create nda record", err)
	}

	return nil
}

// GetByID retrieves an NDA record by ID
func (a *NdaAdapter) GetByID(ctx context.Context, id string) (*entities.NdaRecord, error) {
	query, args, err := a.db.Select(ndaColumns...).
		From("nda_records").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	record, err := a.scanOne(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("nda record with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get nda record", err)
	}
	return record, nil
}

// GetByReferenceNumber retrieves an NDA record by its provider reference number
func (a *NdaAdapter) GetByReferenceNumber(ctx context.Context, referenceNumber string) (*entities.NdaRecord, error) {
	query, args, err := a.db.Select(ndaColumns...).
		From("nda_records").
		Where(goqu.Ex{"provider_reference_number": referenceNumber}).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	record, err := a.scanOne(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no nda record for reference %s", referenceNumber))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get nda record", err)
	}
	return record, nil
}

// FindActive returns the non-terminal record for a (project, company) pair
func (a *NdaAdapter) FindActive(ctx context.Context, projectID, companyUserID string) (*entities.NdaRecord, error) {
	query, args, err := a.db.Select(ndaColumns...).
		From("nda_records").
		Where(
			goqu.Ex{"project_id": projectID, "company_user_id": companyUserID},
			goqu.C("status").NotIn(terminalStatuses),
		).
		Order(goqu.I("created_at").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	record, err := a.scanOne(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("no active nda record for project and company")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to find active nda record", err)
	}
	return record, nil
}

// Update persists all mutable fields of an NDA record. The company snapshot is
// immutable after creation and is deliberately not written here.
func (a *NdaAdapter) Update(ctx context.Context, record *entities.NdaRecord) error {
	record.UpdatedAt = time.Now()

	signers, err := json.Marshal(record.Signers)
	if err != nil {
		return apperrors.NewInternalError("failed to encode signer states", err)
	}

	rec := goqu.Record{
		"status":                    record.Status,
		"provider_document_id":      record.ProviderDocumentID,
		"provider_envelope_id":      record.ProviderEnvelopeID,
		"provider_reference_number": record.ProviderReferenceNumber,
		"provider_envelope_status":  record.ProviderEnvelopeStatus,
		"last_provider_error":       record.LastProviderError,
		"signers":                   signers,
		"pdf_url":                   record.PdfURL,
		"signed_at":                 record.SignedAt,
		"expires_at":                record.ExpiresAt,
		"updated_at":                record.UpdatedAt,
	}

	if record.EntrepreneurInfo != nil {
		rec["entrepreneur_user_id"] = record.EntrepreneurInfo.EntrepreneurUserID
		rec["entrepreneur_name"] = record.EntrepreneurInfo.Name
		rec["entrepreneur_email"] = record.EntrepreneurInfo.Email
		rec["entrepreneur_phone"] = record.EntrepreneurInfo.Phone
		rec["entrepreneur_completed_at"] = record.EntrepreneurInfo.CompletedAt
	}

	query, args, err := a.db.Update("nda_records").
		Set(rec).
		Where(goqu.Ex{"id": record.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update nda record", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("nda record with id %s not found", record.ID))
	}

	return nil
}

// ListByProject retrieves the historical records of a project, newest first
func (a *NdaAdapter) ListByProject(ctx context.Context, projectID string, filter repositories.NdaFilter) ([]*entities.NdaRecord, error) {
	ds := a.db.Select(ndaColumns...).
		From("nda_records").
		Where(goqu.Ex{"project_id": projectID})

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}

	ds = ds.Order(goqu.I("created_at").Desc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list nda records", err)
	}
	defer rows.Close()

	var records []*entities.NdaRecord
	for rows.Next() {
		record, err := a.scanOne(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan nda record", err)
		}
		records = append(records, record)
	}

	return records, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func (a *NdaAdapter) scanOne(row scanner) (*entities.NdaRecord, error) {
	record := &entities.NdaRecord{}
	var (
		entUserID, entName, entEmail, entPhone sql.NullString
		entCompletedAt                         sql.NullTime
		docID, envID, refNum, envStatus       sql.NullString
		lastErr, pdfURL                        sql.NullString
		signedAt, expiresAt                    sql.NullTime
		signers                                []byte
	)

	err := row.Scan(
		&record.ID,
		&record.ProjectID,
		&record.Status,
		&record.CompanyInfo.CompanyUserID,
		&record.CompanyInfo.RepName,
		&record.CompanyInfo.RepEmail,
		&record.CompanyInfo.RepPhone,
		&record.CompanyInfo.LegalCompanyName,
		&record.CompanyInfo.CapturedAt,
		&entUserID,
		&entName,
		&entEmail,
		&entPhone,
		&entCompletedAt,
		&docID,
		&envID,
		&refNum,
		&envStatus,
		&lastErr,
		&signers,
		&pdfURL,
		&signedAt,
		&expiresAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if entUserID.Valid {
		record.EntrepreneurInfo = &entities.EntrepreneurInfo{
			EntrepreneurUserID: entUserID.String,
			Name:               entName.String,
			Email:              entEmail.String,
			Phone:              entPhone.String,
			CompletedAt:        entCompletedAt.Time,
		}
	}

	record.ProviderDocumentID = nullString(docID)
	record.ProviderEnvelopeID = nullString(envID)
	record.ProviderReferenceNumber = nullString(refNum)
	record.ProviderEnvelopeStatus = nullString(envStatus)
	record.LastProviderError = nullString(lastErr)
	record.PdfURL = nullString(pdfURL)
	record.SignedAt = nullTime(signedAt)
	record.ExpiresAt = nullTime(expiresAt)

	if len(signers) > 0 {
		if err := json.Unmarshal(signers, &record.Signers); err != nil {
			return nil, err
		}
	}

	return record, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}
