// Package extractor turns a PDF on disk into raw text. It reads the embedded
// text layer first and falls back to rasterizing pages and running OCR when
// the text layer fails or is too sparse to be real content.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
)

// TextLayer reads the embedded text of a PDF.
type TextLayer interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// PageRenderer rasterizes PDF pages to encoded images.
type PageRenderer interface {
	RenderPages(ctx context.Context, path string, dpi float64, maxPages int) ([][]byte, error)
}

// OCREngine hands out recognition workers. A worker is used for a single
// recognition call and must be closed afterwards.
type OCREngine interface {
	NewWorker(language string) (OCRWorker, error)
}

type OCRWorker interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	Close() error
}

// Method records which strategy produced the text.
type Method string

const (
	MethodTextLayer Method = "text_layer"
	MethodOCR       Method = "ocr"
)

// PageSeparator separates pages in extracted text.
const PageSeparator = "\f"

type Result struct {
	Text   string
	Method Method
	Pages  int
}

type Options struct {
	// ScannedMinChars is the number of non-whitespace characters below which
	// a text layer is treated as a scanned document.
	ScannedMinChars int
	Language        string
	DPI             float64
	MaxPages        int
}

func DefaultOptions() Options {
	return Options{
		ScannedMinChars: 100,
		Language:        "eng",
		DPI:             300,
		MaxPages:        50,
	}
}

type Extractor struct {
	textLayer TextLayer
	renderer  PageRenderer
	ocr       OCREngine
	opts      Options
	log       *slog.Logger
}

func New(textLayer TextLayer, renderer PageRenderer, ocr OCREngine, opts Options, log *slog.Logger) *Extractor {
	def := DefaultOptions()
	if opts.ScannedMinChars < 0 {
		opts.ScannedMinChars = def.ScannedMinChars
	}
	if opts.Language == "" {
		opts.Language = def.Language
	}
	if opts.DPI <= 0 {
		opts.DPI = def.DPI
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = def.MaxPages
	}
	return &Extractor{
		textLayer: textLayer,
		renderer:  renderer,
		ocr:       ocr,
		opts:      opts,
		log:       log,
	}
}

// Extract returns the text of the PDF at path. It fails with *ExtractionError
// when both strategies fail, or *OCRError when the text layer was readable
// but too sparse and OCR then failed.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	text, primaryErr := e.textLayer.ExtractText(ctx, path)

	if !e.needsOCR(text, primaryErr) {
		e.log.Info("text layer extracted",
			"chars", len(text),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return Result{Text: text, Method: MethodTextLayer, Pages: countPages(text)}, nil
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if primaryErr != nil {
		e.log.Warn("text layer failed, falling back to ocr", "error", primaryErr)
	} else {
		e.log.Info("text layer too sparse, falling back to ocr",
			"visible_chars", VisibleLength(text),
			"threshold", e.opts.ScannedMinChars,
		)
	}

	ocrText, pages, ocrErr := e.recognizePDF(ctx, path)
	if ocrErr != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if primaryErr != nil {
			return Result{}, &ExtractionError{Primary: primaryErr, OCR: ocrErr}
		}
		return Result{}, ocrErr
	}

	e.log.Info("ocr extracted",
		"pages", pages,
		"chars", len(ocrText),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Result{Text: ocrText, Method: MethodOCR, Pages: pages}, nil
}

// needsOCR decides between the two strategies: a failed or sparse text layer
// means the document is treated as scanned.
func (e *Extractor) needsOCR(text string, primaryErr error) bool {
	if primaryErr != nil {
		return true
	}
	return VisibleLength(text) < e.opts.ScannedMinChars
}

// recognizePDF renders the document and recognizes every page with one
// worker, which is always closed before returning.
func (e *Extractor) recognizePDF(ctx context.Context, path string) (text string, pages int, err *OCRError) {
	images, rerr := e.renderer.RenderPages(ctx, path, e.opts.DPI, e.opts.MaxPages)
	if rerr != nil {
		return "", 0, &OCRError{Err: fmt.Errorf("render pages: %w", rerr)}
	}
	if len(images) == 0 {
		return "", 0, &OCRError{Err: errors.New("document has no pages")}
	}

	texts, oerr := e.recognize(ctx, images)
	if oerr != nil {
		return "", 0, oerr
	}
	return strings.Join(texts, PageSeparator), len(texts), nil
}

// RecognizeImage runs OCR over a single encoded image (PNG or JPEG).
func (e *Extractor) RecognizeImage(ctx context.Context, image []byte) (string, error) {
	texts, err := e.recognize(ctx, [][]byte{image})
	if err != nil {
		return "", err
	}
	return texts[0], nil
}

func (e *Extractor) recognize(ctx context.Context, images [][]byte) (texts []string, err *OCRError) {
	worker, werr := e.ocr.NewWorker(e.opts.Language)
	if werr != nil {
		return nil, &OCRError{Err: fmt.Errorf("start worker: %w", werr)}
	}
	defer func() {
		if cerr := worker.Close(); cerr != nil {
			e.log.Warn("ocr worker close failed", "error", cerr)
		}
		if r := recover(); r != nil {
			texts, err = nil, &OCRError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	texts = make([]string, 0, len(images))
	for i, img := range images {
		if cerr := ctx.Err(); cerr != nil {
			return nil, &OCRError{Err: cerr}
		}
		text, rerr := worker.Recognize(ctx, img)
		if rerr != nil {
			return nil, &OCRError{Err: fmt.Errorf("page %d: %w", i+1, rerr)}
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// VisibleLength counts the characters of s that are not whitespace.
func VisibleLength(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func countPages(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, PageSeparator) + 1
}
