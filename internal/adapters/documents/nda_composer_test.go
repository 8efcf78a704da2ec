package documents

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tawqeea/marketplace-backend/internal/domain/entities"
	"github.com/tawqeea/marketplace-backend/internal/domain/providers"
)

func composeInput() providers.ComposeInput {
	return providers.ComposeInput{
		Project: &entities.Project{
			ID:          "proj-42",
			Title:       "Inventory Platform",
			Description: "A warehouse inventory tracking platform with barcode scanning and real-time stock levels across multiple sites.",
		},
		LegalCompanyName: "Nimble Software LLC",
		CompanySigner:    "Ayesha Karim",
		OwnerSigner:      "Noor Hassan",
		MaskSigners:      true,
	}
}

func TestPdfComposer_Deterministic(t *testing.T) {
	composer := NewPdfComposer()

	first, err := composer.Compose(composeInput())
	require.NoError(t, err)
	second, err := composer.Compose(composeInput())
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "identical input must yield byte-identical output")
}

func TestPdfComposer_ValidPdfStructure(t *testing.T) {
	composer := NewPdfComposer()

	out, err := composer.Compose(composeInput())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-1.4")))
	assert.True(t, bytes.HasSuffix(out, []byte("%%EOF\n")))
	assert.Contains(t, string(out), "Inventory Platform")
	assert.Contains(t, string(out), "Nimble Software LLC")
}

func TestPdfComposer_MasksSignerNames(t *testing.T) {
	composer := NewPdfComposer()

	out, err := composer.Compose(composeInput())
	require.NoError(t, err)

	content := string(out)
	assert.NotContains(t, content, "Ayesha Karim")
	assert.NotContains(t, content, "Noor Hassan")
	assert.Contains(t, content, "A****a K***m")
	assert.Contains(t, content, "N**r H****n")
}

func TestPdfComposer_UnmaskedWhenRequested(t *testing.T) {
	composer := NewPdfComposer()

	input := composeInput()
	input.MaskSigners = false
	out, err := composer.Compose(input)
	require.NoError(t, err)

	assert.Contains(t, string(out), "Ayesha Karim")
}

func TestPdfComposer_RequiresInput(t *testing.T) {
	composer := NewPdfComposer()

	_, err := composer.Compose(providers.ComposeInput{})
	assert.Error(t, err)

	input := composeInput()
	input.CompanySigner = ""
	_, err = composer.Compose(input)
	assert.Error(t, err)
}

func TestMaskName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ayesha Karim", "A****a K***m"},
		{"Jo", "Jo"},
		{"A", "A"},
		{"Noor", "N**r"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskName(tt.in))
	}
}
