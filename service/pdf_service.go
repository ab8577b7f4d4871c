package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// PDFService reads the embedded text layer of a PDF locally. It is the last
// resort when remote OCR is unavailable; scanned PDFs have no text layer.
type PDFService struct {
	logger *zap.Logger
}

func NewPDFService(logger *zap.Logger) *PDFService {
	return &PDFService{logger: logger}
}

// ExtractText returns the cleaned text of every page, pages separated by a newline.
func (s *PDFService) ExtractText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var buf strings.Builder
	totalPages := r.NumPage()
	s.logger.Debug("Reading PDF text layer", zap.Int("pages", totalPages))
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			s.logger.Warn("Failed to extract text from page", zap.Int("page", pageNum), zap.Error(err))
			continue // Skip failed pages instead of returning error
		}
		text = cleanText(text)
		if text == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

var textReplacer = strings.NewReplacer(
	"\u0000", "", // Null character
	"\ufffd", "", // Unicode replacement character
	"\u001b", "", // Escape character
	"\r", "", // Carriage return
	"\f", "\n", // Form feed to newline
)

func cleanText(text string) string {
	cleaned := textReplacer.Replace(text)
	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
