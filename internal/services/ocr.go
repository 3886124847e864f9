package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	_ "golang.org/x/image/webp" // registers the webp decoder used by imaging.Open
)

// PageRenderer rasterises every page of a PDF. The returned cleanup func
// removes all rendered images and must always be called.
type PageRenderer interface {
	RenderPages(ctx context.Context, pdfPath string) (pages []string, cleanup func(), err error)
}

// OCREngine turns a (grayscale) page image into text.
type OCREngine interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

type pdftoppmRenderer struct {
	binary string
	dpi    int
}

// NewPdftoppmRenderer renders pages with poppler's pdftoppm.
func NewPdftoppmRenderer(binary string, dpi int) PageRenderer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 200
	}
	return &pdftoppmRenderer{binary: binary, dpi: dpi}
}

func (r *pdftoppmRenderer) RenderPages(ctx context.Context, pdfPath string) ([]string, func(), error) {
	dir, err := os.MkdirTemp("", "jobsync-pages-*")
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to create render dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	cmd := exec.CommandContext(ctx, r.binary, "-r", strconv.Itoa(r.dpi), "-png", pdfPath, filepath.Join(dir, "page"))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, cleanup, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	pages, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to list rendered pages: %w", err)
	}
	// pdftoppm zero-pads page numbers to a common width.
	sort.Strings(pages)

	return pages, cleanup, nil
}

type tesseractEngine struct {
	language string
}

// NewTesseractEngine runs OCR through libtesseract.
func NewTesseractEngine(language string) OCREngine {
	if language == "" {
		language = "eng"
	}
	return &tesseractEngine{language: language}
}

func (t *tesseractEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode page image: %w", err)
	}

	// gosseract clients are not safe for concurrent use, one per call.
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return "", fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to load page image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return text, nil
}

// loadGrayscale opens an image file and converts it to grayscale.
func loadGrayscale(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return imaging.Grayscale(img), nil
}
