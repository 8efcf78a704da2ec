package esign

import (
	"fmt"

	"github.com/tawqeea/marketplace-backend/internal/domain/providers"
	"github.com/tawqeea/marketplace-backend/internal/infrastructure/observability"
	"github.com/tawqeea/marketplace-backend/pkg/config"
)

// NewProvider creates the configured signature provider
func NewProvider(cfg *config.EsignConfig, metrics *observability.Metrics) (providers.SignatureProvider, error) {
	switch cfg.Provider {
	case "signit":
		if cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, fmt.Errorf("signit provider requires ESIGN_CLIENT_ID and ESIGN_CLIENT_SECRET")
		}
		tokens := NewTokenCache(NewSignitTokenFetcher(cfg))
		return NewSignitAdapter(cfg, tokens, metrics), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown e-signature provider: %s", cfg.Provider)
	}
}
