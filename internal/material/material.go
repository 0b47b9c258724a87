// Package material extracts readable text from teaching materials in the
// common upload formats. Output is flattened into titled sections and passed
// through the same normalization used for analysis.
package material

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgallion1/lessonlens/internal/extractor"
	"github.com/dgallion1/lessonlens/internal/textnorm"
)

// Section is a heading and the text under it. Level is 0 for untitled text
// and 1-6 for headings.
type Section struct {
	Heading string `json:"heading,omitempty"`
	Level   int    `json:"level,omitempty"`
	Text    string `json:"text"`
}

type Material struct {
	Title    string    `json:"title"`
	Format   string    `json:"format"`
	Sections []Section `json:"sections"`
}

// Text joins headings and section bodies with blank lines.
func (m *Material) Text() string {
	var parts []string
	for _, s := range m.Sections {
		if s.Heading != "" {
			parts = append(parts, s.Heading)
		}
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// UnsupportedFormatError is returned for extensions with no reader.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file extension: %q", e.Ext)
}

// PDFExtractor reads a PDF on disk, with OCR fallback.
type PDFExtractor interface {
	Extract(ctx context.Context, path string) (extractor.Result, error)
}

// ImageRecognizer runs OCR over an encoded image.
type ImageRecognizer interface {
	RecognizeImage(ctx context.Context, image []byte) (string, error)
}

var formats = map[string]string{
	".txt":      "text",
	".md":       "markdown",
	".markdown": "markdown",
	".csv":      "csv",
	".html":     "html",
	".htm":      "html",
	".docx":     "docx",
	".pdf":      "pdf",
	".png":      "image",
	".jpg":      "image",
	".jpeg":     "image",
}

// SupportedExtensions lists the accepted extensions in sorted order.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func IsSupported(filename string) bool {
	_, ok := formats[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Reader dispatches on file extension.
type Reader struct {
	pdf    PDFExtractor
	images ImageRecognizer
	tmpDir string
}

func NewReader(pdf PDFExtractor, images ImageRecognizer, tmpDir string) *Reader {
	return &Reader{pdf: pdf, images: images, tmpDir: tmpDir}
}

// Read extracts a Material from src. filename selects the format and, minus
// its extension, becomes the default title.
func (r *Reader) Read(ctx context.Context, src io.Reader, filename string) (*Material, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	format, ok := formats[ext]
	if !ok {
		return nil, &UnsupportedFormatError{Ext: ext}
	}
	title := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	var (
		m   *Material
		err error
	)
	switch format {
	case "text":
		m, err = readText(src, title)
	case "markdown":
		m, err = readMarkdown(src, title)
	case "csv":
		m, err = readCSV(src, title)
	case "html":
		m, err = readHTML(src, title)
	case "docx":
		m, err = readDOCX(src, title)
	case "pdf":
		m, err = r.readPDF(ctx, src, title)
	case "image":
		m, err = r.readImage(ctx, src, title)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", format, err)
	}

	m.Format = format
	normalize(m)
	return m, nil
}

// normalize cleans every string and drops sections left empty.
func normalize(m *Material) {
	m.Title = textnorm.Normalize(m.Title)
	kept := m.Sections[:0]
	for _, s := range m.Sections {
		s.Heading = textnorm.Normalize(s.Heading)
		s.Text = textnorm.Normalize(s.Text)
		if s.Heading == "" && s.Text == "" {
			continue
		}
		kept = append(kept, s)
	}
	m.Sections = kept
	if m.Sections == nil {
		m.Sections = []Section{}
	}
}

// sectionBuilder accumulates paragraphs under the most recent heading.
type sectionBuilder struct {
	sections []Section
	current  Section
	paras    []string
}

func (b *sectionBuilder) heading(level int, text string) {
	b.flush()
	b.current = Section{Heading: text, Level: level}
}

func (b *sectionBuilder) paragraph(text string) {
	if text = strings.TrimSpace(text); text != "" {
		b.paras = append(b.paras, text)
	}
}

func (b *sectionBuilder) flush() {
	b.current.Text = strings.Join(b.paras, "\n\n")
	if b.current.Heading != "" || b.current.Text != "" {
		b.sections = append(b.sections, b.current)
	}
	b.current = Section{}
	b.paras = nil
}

func (b *sectionBuilder) done() []Section {
	b.flush()
	return b.sections
}
