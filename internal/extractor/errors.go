package extractor

import "fmt"

// OCRError reports that optical recognition could not produce text.
type OCRError struct {
	Err error
}

func (e *OCRError) Error() string {
	return fmt.Sprintf("ocr failed: %v", e.Err)
}

func (e *OCRError) Unwrap() error { return e.Err }

// ExtractionError reports that both the text layer and OCR failed. Primary
// holds the text-layer failure and OCR the recognition failure.
type ExtractionError struct {
	Primary error
	OCR     *OCRError
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("pdf text extraction failed: text layer: %v; %v", e.Primary, e.OCR)
}

func (e *ExtractionError) Unwrap() []error {
	errs := []error{e.Primary}
	if e.OCR != nil {
		errs = append(errs, e.OCR)
	}
	return errs
}
