package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"code.sajari.com/docconv"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFTextLayer reads embedded text with the pure-Go PDF reader and, when that
// fails, optionally with pdftotext through docconv.
type PDFTextLayer struct {
	FallbackPdftotext bool
}

func (l *PDFTextLayer) ExtractText(ctx context.Context, path string) (string, error) {
	text, err := readTextLayer(ctx, path)
	if err == nil || !l.FallbackPdftotext {
		return text, err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	alt, altErr := readPdftotext(path)
	if altErr != nil {
		return "", fmt.Errorf("%w (pdftotext: %v)", err, altErr)
	}
	return alt, nil
}

// readTextLayer walks every page. The reader panics on some malformed
// cross-reference tables, so panics are turned into errors.
func readTextLayer(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf: malformed document: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString(PageSeparator)
		}
		buf.WriteString(pageText)
	}
	return buf.String(), nil
}

func readPdftotext(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	text, _, err := docconv.ConvertPDF(f)
	if err != nil {
		return "", err
	}
	return text, nil
}
