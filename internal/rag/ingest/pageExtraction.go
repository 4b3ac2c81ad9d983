package ingest

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

const pageExtractTimeout = 10 * time.Second

// extractPDF joins the plain text of every readable page with a paragraph
// break so the chunker can cut between pages. Unreadable pages are skipped.
func extractPDF(path string, log *logger_i.Logger) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	f, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages := f.NumPage()
	log.Debug("extractPDF", "pages", numPages)
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := protectExtract(page)
		if err != nil {
			log.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(content) != "" {
			pages = append(pages, strings.TrimSpace(content))
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// extractDocxOdtRtf reads .docx, .odt and .rtf files as one block of text.
func extractDocxOdtRtf(path string, log *logger_i.Logger) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	text, err := cat.File(path)
	if err != nil {
		log.Error("Error extracting content from document", "error", err)
		return "", fmt.Errorf("failed to extract document text: %w", err)
	}
	return text, nil
}

// protectExtract bounds a single page read, the pdf reader can spin on
// malformed content streams.
func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageExtractTimeout):
		return "", errors.New("page extraction timed out")
	}
}
