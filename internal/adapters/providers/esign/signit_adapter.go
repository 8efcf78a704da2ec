package esign

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tawqeea/marketplace-backend/internal/domain/entities"
	"github.com/tawqeea/marketplace-backend/internal/domain/providers"
	"github.com/tawqeea/marketplace-backend/internal/infrastructure/observability"
	"github.com/tawqeea/marketplace-backend/pkg/config"
	apperrors "github.com/tawqeea/marketplace-backend/pkg/errors"
)

// SignitAdapter implements SignatureProvider against the Signit REST API
type SignitAdapter struct {
	baseURL string
	client  *http.Client
	tokens  *TokenCache
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
}

// NewSignitAdapter creates a new Signit adapter. The token cache is injected so
// callers can share one cache across adapters and tests can control refreshes.
func NewSignitAdapter(cfg *config.EsignConfig, tokens *TokenCache, metrics *observability.Metrics) providers.SignatureProvider {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "signit",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &SignitAdapter{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.CallTimeout},
		tokens:  tokens,
		breaker: breaker,
		metrics: metrics,
	}
}

// NewSignitTokenFetcher returns the client-credentials fetcher for the Signit
// OAuth endpoint, for wiring into a TokenCache.
func NewSignitTokenFetcher(cfg *config.EsignConfig) TokenFetcher {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	client := &http.Client{Timeout: cfg.CallTimeout}

	return func(ctx context.Context) (string, time.Duration, error) {
		form := url.Values{}
		form.Set("grant_type", "client_credentials")
		form.Set("client_id", cfg.ClientID)
		form.Set("client_secret", cfg.ClientSecret)

		req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/oauth/token", strings.NewReader(form.Encode()))
		if err != nil {
			return "", 0, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := client.Do(req)
		if err != nil {
			return "", 0, apperrors.NewProviderTransientError("token request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", 0, classifyStatus(resp.StatusCode, "token request rejected")
		}

		var body struct {
			AccessToken string `json:"access_token"`
			ExpiresIn   int    `json:"expires_in"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", 0, apperrors.NewProviderTransientError("malformed token response", err)
		}
		if body.AccessToken == "" {
			return "", 0, apperrors.NewProviderPermanentError("token response missing access_token", nil)
		}

		return body.AccessToken, time.Duration(body.ExpiresIn) * time.Second, nil
	}
}

// UploadDocument uploads a composed document and returns its provider identifiers
func (a *SignitAdapter) UploadDocument(ctx context.Context, content []byte, name string) (*providers.UploadResult, error) {
	payload := map[string]string{
		"file_name":    name,
		"file_content": base64.StdEncoding.EncodeToString(content),
	}

	var body struct {
		DocumentID      string `json:"document_id"`
		ReferenceNumber string `json:"reference_number"`
	}
	if err := a.call(ctx, "upload_document", "POST", "/v1/documents", payload, &body); err != nil {
		return nil, err
	}
	if body.DocumentID == "" || body.ReferenceNumber == "" {
		return nil, apperrors.NewProviderPermanentError("upload response missing identifiers", nil)
	}

	return &providers.UploadResult{
		DocumentID:      body.DocumentID,
		ReferenceNumber: body.ReferenceNumber,
	}, nil
}

// CreateAndInvite creates a signing envelope for an uploaded document and
// invites the signers in order
func (a *SignitAdapter) CreateAndInvite(ctx context.Context, documentID string, signers []providers.Signer) (string, error) {
	type signerPayload struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone,omitempty"`
		Order int    `json:"signing_order"`
	}

	payload := struct {
		DocumentID string          `json:"document_id"`
		Signers    []signerPayload `json:"signers"`
	}{DocumentID: documentID}
	for _, s := range signers {
		payload.Signers = append(payload.Signers, signerPayload{
			Name: s.Name, Email: s.Email, Phone: s.Phone, Order: s.Order,
		})
	}

	var body struct {
		EnvelopeID string `json:"envelope_id"`
	}
	if err := a.call(ctx, "create_envelope", "POST", "/v1/envelopes", payload, &body); err != nil {
		return "", err
	}
	if body.EnvelopeID == "" {
		return "", apperrors.NewProviderPermanentError("envelope response missing envelope_id", nil)
	}

	return body.EnvelopeID, nil
}

// GetEnvelopeStatus queries the envelope status by reference number
func (a *SignitAdapter) GetEnvelopeStatus(ctx context.Context, referenceNumber string) (*providers.EnvelopeStatus, error) {
	var body struct {
		EnvelopeID string `json:"envelope_id"`
		Status     string `json:"status"`
		Signers    []struct {
			Name     string     `json:"name"`
			Email    string     `json:"email"`
			Status   string     `json:"status"`
			SignedAt *time.Time `json:"signed_at"`
		} `json:"signers"`
	}
	path := "/v1/envelopes/by-reference/" + url.PathEscape(referenceNumber)
	if err := a.call(ctx, "get_envelope_status", "GET", path, nil, &body); err != nil {
		return nil, err
	}

	status := &providers.EnvelopeStatus{
		EnvelopeID: body.EnvelopeID,
		RawStatus:  body.Status,
	}
	switch strings.ToUpper(body.Status) {
	case "COMPLETED", "SIGNED":
		status.Completed = true
	case "VOIDED", "DECLINED", "CANCELLED", "EXPIRED":
		status.Voided = true
	}

	for _, s := range body.Signers {
		state := entities.SignerState{
			Name:     s.Name,
			Email:    s.Email,
			SignedAt: s.SignedAt,
		}
		switch strings.ToUpper(s.Status) {
		case "SIGNED", "COMPLETED":
			state.Status = entities.SignerStatusSigned
		case "DECLINED", "REJECTED":
			state.Status = entities.SignerStatusDeclined
		default:
			state.Status = entities.SignerStatusPending
		}
		status.Signers = append(status.Signers, state)
	}

	return status, nil
}

// DownloadDocument downloads the (possibly signed) document binary
func (a *SignitAdapter) DownloadDocument(ctx context.Context, documentID string) ([]byte, error) {
	start := time.Now()
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.doRaw(ctx, "GET", "/v1/documents/"+url.PathEscape(documentID)+"/content")
	})
	observability.RecordProviderCall(ctx, a.metrics, "download_document", time.Since(start), err)
	if err != nil {
		return nil, mapBreakerError(err)
	}
	return result.([]byte), nil
}

// call performs one JSON API request through the circuit breaker
func (a *SignitAdapter) call(ctx context.Context, operation, method, path string, payload, out interface{}) error {
	start := time.Now()
	_, err := a.breaker.Execute(func() (interface{}, error) {
		return nil, a.doJSON(ctx, method, path, payload, out)
	})
	observability.RecordProviderCall(ctx, a.metrics, operation, time.Since(start), err)
	if err != nil {
		return mapBreakerError(err)
	}
	return nil
}

func (a *SignitAdapter) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	raw, err := a.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NewProviderTransientError("malformed provider response", err)
	}
	return nil
}

func (a *SignitAdapter) doRaw(ctx context.Context, method, path string) ([]byte, error) {
	return a.do(ctx, method, path, nil)
}

// do executes one authenticated request, refreshing the token once on 401
func (a *SignitAdapter) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		token, err := a.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}

		var reqBody io.Reader
		if payload != nil {
			encoded, err := json.Marshal(payload)
			if err != nil {
				return nil, apperrors.NewInternalError("failed to encode provider payload", err)
			}
			reqBody = bytes.NewReader(encoded)
		}

		req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := a.client.Do(req)
		if err != nil {
			return nil, apperrors.NewProviderTransientError(fmt.Sprintf("%s %s failed", method, path), err)
		}

		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			a.tokens.Invalidate()
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, classifyStatus(resp.StatusCode, fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode))
		}
		if readErr != nil {
			return nil, apperrors.NewProviderTransientError("failed to read provider response", readErr)
		}

		return raw, nil
	}
}

// classifyStatus splits provider HTTP failures into transient (worth retrying
// or falling back) and permanent (caller bug, do not retry)
func classifyStatus(statusCode int, message string) error {
	switch {
	case statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusTooManyRequests,
		statusCode >= 500:
		return apperrors.NewProviderTransientError(message, nil)
	default:
		return apperrors.NewProviderPermanentError(message, nil)
	}
}

// mapBreakerError keeps breaker rejections in the transient bucket so callers
// route straight to the fallback path
func mapBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.NewProviderTransientError("signing provider circuit open", err)
	}
	return err
}
