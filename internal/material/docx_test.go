package material

import (
	"context"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
)

func TestHeadingStyleLevel(t *testing.T) {
	tests := map[string]int{
		"Heading1":  1,
		"heading 3": 3,
		"HEADING6":  6,
		"Heading7":  0,
		"Heading10": 0,
		"Normal":    0,
		"":          0,
	}
	for style, want := range tests {
		if got := headingStyleLevel(style); got != want {
			t.Errorf("headingStyleLevel(%q) = %d, want %d", style, got, want)
		}
	}
}

func TestParagraphText_JoinsRuns(t *testing.T) {
	para := &docx.Paragraph{Children: []interface{}{
		&docx.Run{Children: []interface{}{&docx.Text{Text: "  Cell "}}},
		&docx.Run{Children: []interface{}{&docx.Text{Text: "division "}}},
	}}
	if got := paragraphText(para); got != "Cell division" {
		t.Errorf("paragraphText = %q", got)
	}
	if got := paragraphStyle(para); got != "" {
		t.Errorf("paragraphStyle = %q, want empty", got)
	}
}

func TestRead_DOCXInvalid(t *testing.T) {
	_, err := NewReader(nil, nil, "").Read(context.Background(), strings.NewReader("not a zip"), "notes.docx")
	if err == nil {
		t.Fatal("expected error for invalid docx")
	}
}
