package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePDFParser struct {
	pages []string
	err   error
}

func (f *fakePDFParser) ExtractPages(string) ([]string, error) {
	return f.pages, f.err
}

type fakeRenderer struct {
	pages     []string
	err       error
	cleanedUp bool
}

func (f *fakeRenderer) RenderPages(context.Context, string) ([]string, func(), error) {
	return f.pages, func() { f.cleanedUp = true }, f.err
}

type fakeOCR struct {
	outputs []string
	calls   int
	gray    bool
}

func (f *fakeOCR) Recognize(_ context.Context, img image.Image) (string, error) {
	f.calls++
	r, g, b, _ := img.At(0, 0).RGBA()
	f.gray = r == g && g == b
	if len(f.outputs) == 0 {
		return "", nil
	}
	out := f.outputs[0]
	f.outputs = f.outputs[1:]
	return out, nil
}

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	img := imaging.New(4, 4, color.NRGBA{R: 200, G: 30, B: 90, A: 255})
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(img, path))
	return path
}

func writeUpload(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 placeholder"), 0600))
	return path
}

func newTestExtractor(dir string, parser PDFParserService, renderer PageRenderer, ocr OCREngine) TextExtractor {
	return NewTextExtractor(parser, renderer, ocr, NewStorageService(dir), zap.NewNop())
}

func TestExtractPDFWithTextLayerSkipsOCR(t *testing.T) {
	dir := t.TempDir()
	path := writeUpload(t, dir, "resume.pdf")
	ocr := &fakeOCR{}
	renderer := &fakeRenderer{}

	ex := newTestExtractor(dir, &fakePDFParser{pages: []string{"Jane Doe", "Python, AWS, Docker"}}, renderer, ocr)
	got, err := ex.Extract(context.Background(), "resume.pdf", path)

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nPython, AWS, Docker", got.Text)
	assert.False(t, got.UsedOCR)
	assert.Equal(t, 2, got.Pages)
	assert.Zero(t, ocr.calls)
	assert.NoFileExists(t, path)
}

func TestExtractScannedPDFFallsBackToOCR(t *testing.T) {
	dir := t.TempDir()
	path := writeUpload(t, dir, "scan.PDF")
	renderer := &fakeRenderer{pages: []string{
		writeImage(t, dir, "page-1.png"),
		writeImage(t, dir, "page-2.png"),
	}}
	ocr := &fakeOCR{outputs: []string{"first page", "second page"}}

	ex := newTestExtractor(dir, &fakePDFParser{pages: []string{"", "  \n"}}, renderer, ocr)
	got, err := ex.Extract(context.Background(), "scan.PDF", path)

	require.NoError(t, err)
	assert.Equal(t, "first page\nsecond page", got.Text)
	assert.True(t, got.UsedOCR)
	assert.Equal(t, 2, ocr.calls)
	assert.True(t, ocr.gray, "pages are converted to grayscale before OCR")
	assert.True(t, renderer.cleanedUp)
	assert.NoFileExists(t, path)
}

func TestExtractPDFParseErrorFallsBackToOCR(t *testing.T) {
	dir := t.TempDir()
	path := writeUpload(t, dir, "broken.pdf")
	renderer := &fakeRenderer{pages: []string{writeImage(t, dir, "page-1.png")}}
	ocr := &fakeOCR{outputs: []string{"recovered"}}

	ex := newTestExtractor(dir, &fakePDFParser{err: errors.New("bad xref")}, renderer, ocr)
	got, err := ex.Extract(context.Background(), "broken.pdf", path)

	require.NoError(t, err)
	assert.Equal(t, "recovered", got.Text)
	assert.NoFileExists(t, path)
}

func TestExtractFailsWhenOCRFindsNothing(t *testing.T) {
	dir := t.TempDir()
	path := writeUpload(t, dir, "blank.pdf")
	renderer := &fakeRenderer{pages: []string{writeImage(t, dir, "page-1.png")}}

	ex := newTestExtractor(dir, &fakePDFParser{pages: []string{""}}, renderer, &fakeOCR{outputs: []string{" \n "}})
	_, err := ex.Extract(context.Background(), "blank.pdf", path)

	require.ErrorIs(t, err, ErrExtractionFailed)
	assert.NoFileExists(t, path)
	assert.True(t, renderer.cleanedUp)
}

func TestExtractRendererFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeUpload(t, dir, "scan.pdf")
	renderer := &fakeRenderer{err: errors.New("pdftoppm missing")}

	ex := newTestExtractor(dir, &fakePDFParser{pages: []string{""}}, renderer, &fakeOCR{})
	_, err := ex.Extract(context.Background(), "scan.pdf", path)

	require.ErrorIs(t, err, ErrExtractionFailed)
	assert.NoFileExists(t, path)
}

func TestExtractImageRunsOCROnce(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "upload.jpg")
	ocr := &fakeOCR{outputs: []string{"  Python developer  "}}

	ex := newTestExtractor(dir, &fakePDFParser{}, &fakeRenderer{}, ocr)
	got, err := ex.Extract(context.Background(), "resume.jpg", path)

	require.NoError(t, err)
	assert.Equal(t, "Python developer", got.Text)
	assert.Equal(t, 1, ocr.calls)
	assert.NoFileExists(t, path)
}

func TestExtractUnsupportedFileStillCleansUp(t *testing.T) {
	dir := t.TempDir()
	path := writeUpload(t, dir, "resume.docx")

	ex := newTestExtractor(dir, &fakePDFParser{}, &fakeRenderer{}, &fakeOCR{})
	_, err := ex.Extract(context.Background(), "resume.docx", path)

	require.ErrorIs(t, err, ErrUnsupportedFile)
	assert.NoFileExists(t, path)
}

func TestDetectDocumentKind(t *testing.T) {
	assert.Equal(t, DocumentPDF, DetectDocumentKind("CV.Pdf"))
	assert.Equal(t, DocumentImage, DetectDocumentKind("scan.jpeg"))
	assert.Equal(t, DocumentImage, DetectDocumentKind("scan.TIFF"))
	assert.Equal(t, DocumentImage, DetectDocumentKind("photo.webp"))
	assert.Equal(t, DocumentUnknown, DetectDocumentKind("notes.txt"))
	assert.Equal(t, DocumentUnknown, DetectDocumentKind("noext"))
}

// 1x1 lossless webp.
const tinyWebP = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func TestExtractWebPImage(t *testing.T) {
	dir := t.TempDir()
	raw, err := base64.StdEncoding.DecodeString(tinyWebP)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "webp", format)
	assert.Equal(t, 1, cfg.Width)

	path := filepath.Join(dir, "photo.webp")
	require.NoError(t, os.WriteFile(path, raw, 0600))
	ocr := &fakeOCR{outputs: []string{"Python developer"}}

	ex := newTestExtractor(dir, &fakePDFParser{}, &fakeRenderer{}, ocr)
	got, err := ex.Extract(context.Background(), "photo.webp", path)

	require.NoError(t, err)
	assert.Equal(t, "Python developer", got.Text)
	assert.Equal(t, 1, ocr.calls)
	assert.NoFileExists(t, path)
}
