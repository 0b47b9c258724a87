package material

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/lessonlens/internal/extractor"
)

// readPDF stages the upload, runs the PDF extractor and makes one section per
// page.
func (r *Reader) readPDF(ctx context.Context, src io.Reader, title string) (*Material, error) {
	if r.pdf == nil {
		return nil, fmt.Errorf("pdf extraction not configured")
	}

	tmp, err := os.CreateTemp(r.tmpDir, "material-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	res, err := r.pdf.Extract(ctx, tmpPath)
	if err != nil {
		return nil, err
	}

	m := &Material{Title: title}
	for i, page := range strings.Split(res.Text, extractor.PageSeparator) {
		if strings.TrimSpace(page) == "" {
			continue
		}
		m.Sections = append(m.Sections, Section{
			Heading: fmt.Sprintf("Page %d", i+1),
			Text:    page,
		})
	}
	return m, nil
}

func (r *Reader) readImage(ctx context.Context, src io.Reader, title string) (*Material, error) {
	if r.images == nil {
		return nil, fmt.Errorf("image recognition not configured")
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	text, err := r.images.RecognizeImage(ctx, data)
	if err != nil {
		return nil, err
	}
	return &Material{Title: title, Sections: []Section{{Text: text}}}, nil
}
