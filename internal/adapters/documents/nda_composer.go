package documents

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tawqeea/marketplace-backend/internal/domain/providers"
	apperrors "github.com/tawqeea/marketplace-backend/pkg/errors"
)

// PdfComposer renders the fixed agreement template into a single-page PDF.
// The PDF is emitted by hand with a fixed object layout and no timestamps so
// identical input always yields byte-identical output.
type PdfComposer struct{}

// NewPdfComposer creates a new PDF composer
func NewPdfComposer() providers.DocumentComposer {
	return &PdfComposer{}
}

const maxLineRunes = 88

// Compose renders the agreement. It never performs I/O and must succeed
// offline; the only failure mode is missing input.
func (c *PdfComposer) Compose(input providers.ComposeInput) ([]byte, error) {
	if input.Project == nil {
		return nil, apperrors.NewValidationError("project is required to compose the agreement")
	}
	if input.LegalCompanyName == "" || input.CompanySigner == "" || input.OwnerSigner == "" {
		return nil, apperrors.NewValidationError("company name and both signer names are required")
	}

	companySigner := input.CompanySigner
	ownerSigner := input.OwnerSigner
	if input.MaskSigners {
		companySigner = MaskName(companySigner)
		ownerSigner = MaskName(ownerSigner)
	}

	lines := renderLines(input.Project.Title, input.Project.Description,
		input.LegalCompanyName, companySigner, ownerSigner)

	return buildPdf(lines), nil
}

// MaskName keeps the first and last rune of each word and redacts the rest,
// so the provider's hosted UI does not expose full identities before both
// sides have opted in.
func MaskName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		runes := []rune(w)
		if len(runes) <= 2 {
			continue
		}
		masked := make([]rune, len(runes))
		masked[0] = runes[0]
		masked[len(runes)-1] = runes[len(runes)-1]
		for j := 1; j < len(runes)-1; j++ {
			masked[j] = '*'
		}
		words[i] = string(masked)
	}
	return strings.Join(words, " ")
}

func renderLines(title, description, companyName, companySigner, ownerSigner string) []string {
	lines := []string{
		"MUTUAL NON-DISCLOSURE AGREEMENT",
		"",
		fmt.Sprintf("Project: %s", title),
		"",
		fmt.Sprintf("This agreement is entered into between %s", companyName),
		fmt.Sprintf("(represented by %s, the \"Receiving Party\")", companySigner),
		fmt.Sprintf("and %s (the \"Disclosing Party\"),", ownerSigner),
		"owner of the project described below.",
		"",
		"Project description:",
	}
	lines = append(lines, wrap(description, maxLineRunes)...)
	lines = append(lines,
		"",
		"1. The Receiving Party shall hold all disclosed project information in",
		"   strict confidence and use it solely to evaluate a potential engagement.",
		"2. Confidential information excludes material that is or becomes public",
		"   through no fault of the Receiving Party.",
		"3. No license or other right is granted by disclosure under this agreement.",
		"4. Obligations survive for three years from the date of signature.",
		"5. On request, the Receiving Party shall return or destroy all copies of",
		"   the disclosed information.",
		"",
		"Signatures:",
		"",
		fmt.Sprintf("Disclosing Party: %s    ______________________", ownerSigner),
		"",
		fmt.Sprintf("Receiving Party:  %s    ______________________", companySigner),
	)
	return lines
}

// wrap breaks text into lines of at most width runes, on word boundaries
func wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{"(no description provided)"}
	}

	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		if len([]rune(current))+1+len([]rune(w)) > width {
			lines = append(lines, current)
			current = w
			continue
		}
		current += " " + w
	}
	lines = append(lines, current)
	return lines
}

// buildPdf emits a minimal single-page PDF. Object order, generation numbers
// and the xref table are fixed; nothing input-independent varies between runs.
func buildPdf(lines []string) []byte {
	var content bytes.Buffer
	content.WriteString("BT\n/F1 11 Tf\n1 0 0 1 56 780 Tm\n14 TL\n")
	for _, line := range lines {
		fmt.Fprintf(&content, "(%s) Tj\nT*\n", escapePdfText(line))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefOffset)

	return buf.Bytes()
}

func escapePdfText(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return replacer.Replace(s)
}
