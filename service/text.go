package service

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

func isPDF(filename, mimeType string) bool {
	return strings.Contains(mimeType, "pdf") || strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

func isImage(filename, mimeType string) bool {
	return strings.Contains(mimeType, "image") || imageExts[strings.ToLower(filepath.Ext(filename))]
}

// extractFileText returns the readable text of an uploaded file. Images give
// "" with skipped set; there is no OCR.
func extractFileText(data []byte, filename, mimeType string) (text string, skipped bool, err error) {
	if isPDF(filename, mimeType) {
		pages, err := extractPDFPages(data)
		if err != nil {
			return "", false, err
		}
		return strings.Join(pages, "\n"), false, nil
	}
	if isImage(filename, mimeType) {
		return "", true, nil
	}
	return strings.ToValidUTF8(string(data), ""), false, nil
}

// extractPDFPages returns the plain text of each page in order. Pages that
// cannot be read yield "".
func extractPDFPages(data []byte) (pages []string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
