package util

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxDocumentBytes bounds bill downloads.
const MaxDocumentBytes = 20 << 20

// IsPDF reports whether a download looks like a PDF by content type, URL suffix or magic bytes.
func IsPDF(contentType, url string, head []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	u := strings.ToLower(url)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if strings.HasSuffix(u, ".pdf") {
		return true
	}
	return bytes.HasPrefix(head, []byte("%PDF-"))
}

// FetchDocument downloads url with ctx, returning the body and its content type.
func FetchDocument(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build document request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("download document: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read document: %w", err)
	}
	if len(body) > MaxDocumentBytes {
		return nil, "", ErrDocumentTooLarge
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// ExtractPDFText returns the sanitized plain text of an in-memory PDF.
func ExtractPDFText(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed streams
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("extract pdf text: %v", rec)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	text = SanitizeText(buf.String())
	if text == "" {
		return "", ErrNoExtractableText
	}
	return text, nil
}
