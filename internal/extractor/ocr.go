package extractor

import (
	"context"
	"fmt"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// FitzRenderer rasterizes pages with MuPDF.
type FitzRenderer struct{}

func (FitzRenderer) RenderPages(ctx context.Context, path string, dpi float64, maxPages int) ([][]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}

	images := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImagePNG(i, dpi)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		images = append(images, img)
	}
	return images, nil
}

// TesseractEngine creates Tesseract clients.
type TesseractEngine struct{}

func (TesseractEngine) NewWorker(language string) (OCRWorker, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, err
	}
	return &tesseractWorker{client: client}, nil
}

type tesseractWorker struct {
	client *gosseract.Client
}

func (w *tesseractWorker) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := w.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	return w.client.Text()
}

func (w *tesseractWorker) Close() error {
	return w.client.Close()
}
