// Package ingest implements the document extraction pipeline: a PDF is
// rasterized into per-page images, each page is transcribed by a vision
// model, and the page texts are concatenated into a single document text.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/caky/go-study-backend/internal/llm"
)

// visionPrompt instructs the model to transcribe a page verbatim, with math
// rendered as LaTeX.
const visionPrompt = `You are extracting content from an academic document page.

Extract ALL text from this page exactly as shown, preserving the original language.

For any mathematical formulas, equations, chemical formulas, or scientific notation:
- Represent them in LaTeX format using $...$ for inline math and $$...$$ for block equations
- Preserve the exact meaning and structure of the formulas

For tables:
- Format them clearly with proper alignment

For bullet points and numbered lists:
- Preserve the structure

Output the extracted content in plain text with LaTeX formulas embedded where appropriate.
Do not add any commentary or explanations - just extract the content as-is.`

// visionMaxTokens caps the transcription of one page.
const visionMaxTokens = 4096

// Page is one rasterized page image.
type Page struct {
	Number int // 1-based
	MIME   string
	Data   []byte
}

// Rasterizer converts a PDF into ordered page images.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte) ([]Page, error)
}

// Result is the outcome of a successful extraction.
type Result struct {
	Text      string
	PageCount int
}

// Pipeline runs the full extraction for one document.
type Pipeline struct {
	Rasterizer Rasterizer
	Completer  llm.Completer
	Model      string
	// PageTimeout bounds each per-page vision call; zero means no extra
	// bound beyond the caller's context.
	PageTimeout time.Duration
}

// Extract rasterizes the PDF and transcribes every page in order. Page
// texts are joined with "--- Page N ---" headers. Any page failure fails
// the whole document; a partial transcript would silently corrupt plan
// generation downstream.
func (p *Pipeline) Extract(ctx context.Context, pdf []byte) (*Result, error) {
	ctx, span := otel.Tracer("ingest").Start(ctx, "Pipeline.Extract")
	defer span.End()

	pages, err := p.Rasterizer.Rasterize(ctx, pdf)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, &ConversionError{Reason: "document produced no pages"}
	}

	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		text, err := p.extractPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page.Number, err)
		}
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", page.Number, text))
	}

	return &Result{
		Text:      strings.Join(parts, "\n\n"),
		PageCount: len(pages),
	}, nil
}

func (p *Pipeline) extractPage(ctx context.Context, page Page) (string, error) {
	if p.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.PageTimeout)
		defer cancel()
	}
	msg := llm.Vision(visionPrompt, llm.DataURL(page.MIME, page.Data))
	return p.Completer.Complete(ctx, p.Model, []llm.Message{msg}, visionMaxTokens)
}
