package dispatcher

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/crypto/blake2b"
)

// ContentHash fingerprints a fetched page body for resource_index
// content-drift detection.
func ContentHash(body []byte) string {
	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// hostOf returns the lowercased host of a URL, or the raw string if it
// fails to parse (feedback domain blocking fails closed on bad input).
func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(raw)
	}
	return strings.ToLower(parsed.Host)
}

// ExtractText converts a fetched body into plain text a claim-extraction
// pass can work with. PDFs are parsed page by page; everything else is
// treated as already-text (html tag stripping is an action-collaborator
// concern this stand-in does not attempt).
func ExtractText(contentType string, body []byte) (string, error) {
	if strings.Contains(contentType, "pdf") {
		return extractPDFText(body)
	}
	return string(body), nil
}

func extractPDFText(body []byte) (string, error) {
	reader := bytes.NewReader(body)
	r, err := pdf.NewReader(reader, int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var buf bytes.Buffer
	totalPages := r.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(content)
		buf.WriteString("\n")
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("pdf contained no extractable text")
	}
	return buf.String(), nil
}
