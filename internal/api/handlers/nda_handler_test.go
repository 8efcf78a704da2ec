package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tawqeea/marketplace-backend/internal/adapters/documents"
	"github.com/tawqeea/marketplace-backend/internal/adapters/providers/esign"
	"github.com/tawqeea/marketplace-backend/internal/application/services"
	"github.com/tawqeea/marketplace-backend/internal/domain/entities"
	"github.com/tawqeea/marketplace-backend/pkg/utils"
)

func newNdaTestHandler(repo *stubNdaRepo) *NdaHandler {
	service := services.NewNdaService(
		repo,
		&stubProjectRepo{project: testProject()},
		esign.NewMockAdapter(),
		documents.NewPdfComposer(),
		&stubNotifier{},
		nil,
		utils.NewPhoneNormalizer("966"),
		nil,
	)
	return NewNdaHandler(service)
}

func jsonRequest(t *testing.T, method, target string, payload interface{}, userID string) *http.Request {
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func awaitingNdaRecord() *entities.NdaRecord {
	return &entities.NdaRecord{
		ID:        "nda-1",
		ProjectID: "proj-42",
		Status:    entities.NdaStatusAwaitingEntrepreneur,
		CompanyInfo: entities.CompanyInfo{
			CompanyUserID:    "user-ayesha",
			RepName:          "Ayesha Karim",
			RepEmail:         "ayesha@co.test",
			RepPhone:         "+966501234567",
			LegalCompanyName: "Nimble Software LLC",
			CapturedAt:       time.Now(),
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestNdaHandler_Initiate(t *testing.T) {
	t.Run("creates record for company representative", func(t *testing.T) {
		repo := &stubNdaRepo{}
		handler := newNdaTestHandler(repo)

		req := jsonRequest(t, "POST", "/api/ndas", map[string]interface{}{
			"project_id":         "proj-42",
			"legal_company_name": "Nimble Software LLC",
			"representative": map[string]string{
				"name":  "Ayesha Karim",
				"email": "ayesha@co.test",
				"phone": "0501234567",
			},
		}, "user-ayesha")

		w := httptest.NewRecorder()
		handler.Initiate(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		body := decodeBody(t, w)
		assert.NotEmpty(t, body["nda_id"])
		assert.Equal(t, string(entities.NdaStatusAwaitingEntrepreneur), body["status"])
		require.NotNil(t, repo.record)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		handler := newNdaTestHandler(&stubNdaRepo{})

		req := httptest.NewRequest("POST", "/api/ndas", bytes.NewBufferString("{not json"))
		req.Header.Set("X-User-ID", "user-ayesha")

		w := httptest.NewRecorder()
		handler.Initiate(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects representative without an email", func(t *testing.T) {
		handler := newNdaTestHandler(&stubNdaRepo{})

		req := jsonRequest(t, "POST", "/api/ndas", map[string]interface{}{
			"project_id":         "proj-42",
			"legal_company_name": "Nimble Software LLC",
			"representative": map[string]string{
				"name":  "Ayesha Karim",
				"phone": "0501234567",
			},
		}, "user-ayesha")

		w := httptest.NewRecorder()
		handler.Initiate(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestNdaHandler_Complete(t *testing.T) {
	completePayload := map[string]interface{}{
		"entrepreneur": map[string]string{
			"name":  "Noor Hassan",
			"email": "noor@test.com",
			"phone": "0559876543",
		},
	}

	t.Run("runs the provider pipeline for the project owner", func(t *testing.T) {
		repo := &stubNdaRepo{record: awaitingNdaRecord()}
		handler := newNdaTestHandler(repo)

		req := jsonRequest(t, "POST", "/api/ndas/nda-1/complete", completePayload, "user-noor")
		req.SetPathValue("id", "nda-1")

		w := httptest.NewRecorder()
		handler.Complete(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, string(entities.NdaStatusInvitationsSent), body["status"])
		assert.NotEmpty(t, body["provider_reference_number"])
		assert.Nil(t, body["fallback_used"])
	})

	t.Run("rejects callers who are not the project owner", func(t *testing.T) {
		repo := &stubNdaRepo{record: awaitingNdaRecord()}
		handler := newNdaTestHandler(repo)

		req := jsonRequest(t, "POST", "/api/ndas/nda-1/complete", completePayload, "user-stranger")
		req.SetPathValue("id", "nda-1")

		w := httptest.NewRecorder()
		handler.Complete(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, entities.NdaStatusAwaitingEntrepreneur, repo.record.Status)
	})

	t.Run("unknown record is 404", func(t *testing.T) {
		handler := newNdaTestHandler(&stubNdaRepo{})

		req := jsonRequest(t, "POST", "/api/ndas/nda-missing/complete", completePayload, "user-noor")
		req.SetPathValue("id", "nda-missing")

		w := httptest.NewRecorder()
		handler.Complete(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestNdaHandler_GetStatus(t *testing.T) {
	t.Run("returns the stored status with a signer breakdown", func(t *testing.T) {
		repo := &stubNdaRepo{record: awaitingNdaRecord()}
		handler := newNdaTestHandler(repo)

		req := jsonRequest(t, "GET", "/api/ndas/nda-1/status", nil, "user-ayesha")
		req.SetPathValue("id", "nda-1")

		w := httptest.NewRecorder()
		handler.GetStatus(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "nda-1", body["nda_id"])
		assert.Equal(t, string(entities.NdaStatusAwaitingEntrepreneur), body["status"])
		assert.Contains(t, body, "breakdown")
	})

	t.Run("hides records from unrelated users", func(t *testing.T) {
		repo := &stubNdaRepo{record: awaitingNdaRecord()}
		handler := newNdaTestHandler(repo)

		req := jsonRequest(t, "GET", "/api/ndas/nda-1/status", nil, "user-stranger")
		req.SetPathValue("id", "nda-1")

		w := httptest.NewRecorder()
		handler.GetStatus(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestNdaHandler_GetDocument(t *testing.T) {
	repo := &stubNdaRepo{record: awaitingNdaRecord()}
	handler := newNdaTestHandler(repo)

	req := jsonRequest(t, "GET", "/api/ndas/nda-1/document", nil, "user-ayesha")
	req.SetPathValue("id", "nda-1")

	w := httptest.NewRecorder()
	handler.GetDocument(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "local-reconstruction", w.Header().Get("X-Document-Source"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestNdaHandler_Cancel(t *testing.T) {
	repo := &stubNdaRepo{record: awaitingNdaRecord()}
	handler := newNdaTestHandler(repo)

	req := jsonRequest(t, "POST", "/api/ndas/nda-1/cancel", nil, "user-ayesha")
	req.SetPathValue("id", "nda-1")

	w := httptest.NewRecorder()
	handler.Cancel(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(entities.NdaStatusVoided), body["status"])
}

func TestNdaHandler_ListByProject(t *testing.T) {
	t.Run("project owner sees the project's records", func(t *testing.T) {
		repo := &stubNdaRepo{record: awaitingNdaRecord()}
		handler := newNdaTestHandler(repo)

		req := jsonRequest(t, "GET", "/api/projects/proj-42/ndas", nil, "user-noor")
		req.SetPathValue("id", "proj-42")

		w := httptest.NewRecorder()
		handler.ListByProject(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(1), body["count"])
	})

	t.Run("non-owners are rejected", func(t *testing.T) {
		repo := &stubNdaRepo{record: awaitingNdaRecord()}
		handler := newNdaTestHandler(repo)

		req := jsonRequest(t, "GET", "/api/projects/proj-42/ndas", nil, "user-ayesha")
		req.SetPathValue("id", "proj-42")

		w := httptest.NewRecorder()
		handler.ListByProject(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
