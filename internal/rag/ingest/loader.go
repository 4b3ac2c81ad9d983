package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
)

// LoadDocument reads a source file into a Document for topic.
// Markdown and text are read as is, PDF page by page, and Word, ODT and RTF
// through their plain text.
func LoadDocument(path string, topic string) (commonModels.Document, error) {
	log := logger_i.NewLogger("document_loader").With("path", path, "topic", topic)

	docType := getDocType(path)
	if docType == commonModels.ERR {
		return commonModels.Document{}, ragErrors.Newf(ragErrors.InvalidInput, "load_document", "unsupported document type %q", filepath.Ext(path)).WithTopic(topic)
	}

	content, err := extractText(path, docType, log)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Error("Error extracting document content", "error", err)
		}
		return commonModels.Document{}, ragErrors.New(ragErrors.InvalidInput, "load_document", err).WithTopic(topic)
	}

	return commonModels.Document{
		Topic:               topic,
		Name:                filepath.Base(path),
		Content:             content,
		ContentType:         docType,
		LastIngestTimestamp: time.Now(),
	}, nil
}

func getDocType(docPath string) commonModels.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".odt", ".rtf":
		return commonModels.DOCX
	case ".txt":
		return commonModels.TXT
	case ".md", ".markdown":
		return commonModels.MD
	default:
		return commonModels.ERR
	}
}

func extractText(path string, contentType commonModels.DocType, log *logger_i.Logger) (string, error) {
	switch contentType {
	case commonModels.PDF:
		return extractPDF(path, log)
	case commonModels.DOCX:
		return extractDocxOdtRtf(path, log)
	case commonModels.TXT, commonModels.MD:
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported content type: %s", contentType)
	}
}

// IsSupported reports whether LoadDocument can read the file at path.
func IsSupported(path string) bool {
	return getDocType(path) != commonModels.ERR
}
