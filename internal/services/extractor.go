package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

type DocumentKind int

const (
	DocumentUnknown DocumentKind = iota
	DocumentPDF
	DocumentImage
)

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".tif": {}, ".tiff": {}, ".bmp": {}, ".gif": {}, ".webp": {},
}

// DetectDocumentKind classifies an upload by its declared filename.
func DetectDocumentKind(filename string) DocumentKind {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".pdf" {
		return DocumentPDF
	}
	if _, ok := imageExtensions[ext]; ok {
		return DocumentImage
	}
	return DocumentUnknown
}

type ExtractedText struct {
	Source  string
	Text    string
	UsedOCR bool
	Pages   int
}

type TextExtractor interface {
	// Extract reads the document at filePath and always deletes it before
	// returning, whatever the outcome.
	Extract(ctx context.Context, filename, filePath string) (*ExtractedText, error)
}

type textExtractor struct {
	pdfParser PDFParserService
	renderer  PageRenderer
	ocr       OCREngine
	storage   StorageService
	log       *zap.Logger
}

func NewTextExtractor(
	pdfParser PDFParserService,
	renderer PageRenderer,
	ocr OCREngine,
	storage StorageService,
	log *zap.Logger,
) TextExtractor {
	return &textExtractor{
		pdfParser: pdfParser,
		renderer:  renderer,
		ocr:       ocr,
		storage:   storage,
		log:       log,
	}
}

func (e *textExtractor) Extract(ctx context.Context, filename, filePath string) (*ExtractedText, error) {
	defer func() {
		if err := e.storage.DeleteFile(filePath); err != nil {
			e.log.Warn("⚠️ failed to remove temporary upload", zap.String("path", filePath), zap.Error(err))
		}
	}()

	var (
		result *ExtractedText
		err    error
	)

	switch DetectDocumentKind(filename) {
	case DocumentPDF:
		result, err = e.extractPDF(ctx, filename, filePath)
	case DocumentImage:
		result, err = e.extractImage(ctx, filename, filePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filename)
	}
	if err != nil {
		return nil, err
	}

	result.Text = CleanText(result.Text)
	if result.Text == "" {
		return nil, fmt.Errorf("%w: %s", ErrExtractionFailed, filename)
	}

	e.log.Info("📄 text extracted",
		zap.String("source", filename),
		zap.Int("chars", len(result.Text)),
		zap.Int("pages", result.Pages),
		zap.Bool("ocr", result.UsedOCR),
	)
	return result, nil
}

func (e *textExtractor) extractPDF(ctx context.Context, filename, filePath string) (*ExtractedText, error) {
	pages, err := e.pdfParser.ExtractPages(filePath)
	if err == nil {
		text := strings.Join(pages, "\n")
		if strings.TrimSpace(text) != "" {
			return &ExtractedText{Source: filename, Text: text, Pages: len(pages)}, nil
		}
		e.log.Info("🔍 PDF has no text layer, falling back to OCR", zap.String("source", filename))
	} else {
		e.log.Warn("⚠️ direct PDF extraction failed, falling back to OCR", zap.String("source", filename), zap.Error(err))
	}

	images, cleanup, err := e.renderer.RenderPages(ctx, filePath)
	defer cleanup()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var sb strings.Builder
	for i, imagePath := range images {
		text, err := e.recognizeFile(ctx, imagePath)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrExtractionFailed, i+1, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return &ExtractedText{Source: filename, Text: sb.String(), UsedOCR: true, Pages: len(images)}, nil
}

func (e *textExtractor) extractImage(ctx context.Context, filename, filePath string) (*ExtractedText, error) {
	text, err := e.recognizeFile(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return &ExtractedText{Source: filename, Text: text, UsedOCR: true, Pages: 1}, nil
}

func (e *textExtractor) recognizeFile(ctx context.Context, imagePath string) (string, error) {
	img, err := loadGrayscale(imagePath)
	if err != nil {
		return "", err
	}
	return e.ocr.Recognize(ctx, img)
}
