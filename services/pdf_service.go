package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"multimodal-rag-platform/internal/logger"
)

// RenderDPI is the rasterization resolution for page images.
const RenderDPI = 200

const renderTimeout = 120 * time.Second

// PDFService converts uploaded PDF bytes into raw text and rasterized page
// images. It owns no state; both operations are pure functions of the input.
type PDFService struct{}

func NewPDFService() *PDFService {
	return &PDFService{}
}

// ExtractText extracts and concatenates per-page text with newline
// separators; pages with no extractable text contribute nothing. Extraction
// is fail-soft: any error yields an empty string, never a failure.
func (s *PDFService) ExtractText(ctx context.Context, content []byte) string {
	text, err := extractTextFromPDF(content)
	if err != nil {
		logger.Warn("Text extraction failed", "error", err)
		return ""
	}
	return text
}

func extractTextFromPDF(content []byte) (text string, err error) {
	// The pdf library panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract text from page", "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		pages = append(pages, pageText)
	}

	return strings.Join(pages, "\n"), nil
}

// RenderPages rasterizes each page at 200 DPI using poppler's pdftoppm,
// returning one image per page in page order.
func (s *PDFService) RenderPages(ctx context.Context, content []byte) ([]image.Image, error) {
	if !hasBinary("pdftoppm") {
		return nil, fmt.Errorf("pdftoppm not available")
	}

	tmpDir, err := os.MkdirTemp("", "pdfrender")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, content, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp pdf: %w", err)
	}

	renderCtx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	cmd := exec.CommandContext(renderCtx, "pdftoppm",
		"-r", strconv.Itoa(RenderDPI), "-png",
		pdfPath, filepath.Join(tmpDir, "page"))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %v, stderr: %s", err, stderr.String())
	}

	pagePaths, err := filepath.Glob(filepath.Join(tmpDir, "page-*.png"))
	if err != nil {
		return nil, fmt.Errorf("failed to list rendered pages: %w", err)
	}

	// pdftoppm zero-pads page numbers, so a lexical sort keeps page order
	sort.Strings(pagePaths)

	images := make([]image.Image, 0, len(pagePaths))
	for _, path := range pagePaths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open rendered page %s: %w", path, err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode rendered page %s: %w", path, err)
		}
		images = append(images, img)
	}

	return images, nil
}

// hasBinary checks if a binary executable exists in PATH
func hasBinary(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
