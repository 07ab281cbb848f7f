package ingest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// ConversionError reports a PDF that could not be rasterized: corrupt input,
// an empty document, or a pdftoppm failure. It marks the failure as a
// problem with the document rather than with the service.
type ConversionError struct {
	Reason string
}

func (e *ConversionError) Error() string {
	return "pdf conversion failed: " + e.Reason
}

// PDFToPPM rasterizes PDFs by shelling out to poppler's pdftoppm.
type PDFToPPM struct {
	// Binary overrides the executable name, for tests. Empty means "pdftoppm".
	Binary string
	// DPI is the render resolution. Zero means 150.
	DPI int
}

// Rasterize writes the PDF to a temp dir, renders one PNG per page, and
// returns the pages ordered by file name. pdftoppm zero-pads page numbers,
// so lexical order is page order.
func (r *PDFToPPM) Rasterize(ctx context.Context, pdf []byte) ([]Page, error) {
	bin := r.Binary
	if bin == "" {
		bin = "pdftoppm"
	}
	dpi := r.DPI
	if dpi == 0 {
		dpi = 150
	}

	dir, err := os.MkdirTemp("", "ingest-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(src, pdf, 0o600); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, bin, "-png", "-r", fmt.Sprint(dpi), src, filepath.Join(dir, "page"))
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, &ConversionError{Reason: strings.TrimSpace(string(out) + " " + err.Error())}
	}

	names, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	pages := make([]Page, 0, len(names))
	for i, name := range names {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		pages = append(pages, Page{Number: i + 1, MIME: "image/png", Data: data})
	}
	if len(pages) == 0 {
		return nil, &ConversionError{Reason: "no pages rendered"}
	}
	return pages, nil
}
