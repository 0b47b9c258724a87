// Package textnorm cleans raw extracted text into the canonical form fed to
// chunking and analysis: printable ASCII plus newlines, no long whitespace
// runs, no surrounding whitespace.
package textnorm

import (
	"strings"
	"unicode/utf8"
)

var escapes = strings.NewReplacer(
	`\t`, " ",
	`\n`, "\n",
	`\r`, "",
)

// Normalize is total and idempotent. The passes are applied in order and
// repeated until the text stops changing; every pass either shortens the text
// or leaves it untouched, so the loop terminates.
func Normalize(text string) string {
	for {
		next := normalizeOnce(text)
		if next == text {
			return next
		}
		text = next
	}
}

func normalizeOnce(text string) string {
	text = escapes.Replace(text)
	text = collapseWhitespace(text)
	text = stripUnprintable(text)
	return strings.TrimFunc(text, isSpace)
}

// collapseWhitespace replaces every run of three or more whitespace
// characters with a single space. Runs of one or two are kept as-is.
func collapseWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	runStart := -1
	flush := func(end int) {
		if runStart < 0 {
			return
		}
		run := text[runStart:end]
		if utf8.RuneCountInString(run) >= 3 {
			b.WriteByte(' ')
		} else {
			b.WriteString(run)
		}
		runStart = -1
	}

	for i, r := range text {
		if isSpace(r) {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i)
		b.WriteRune(r)
	}
	flush(len(text))
	return b.String()
}

func stripUnprintable(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || (r >= 0x20 && r <= 0x7E) {
			return r
		}
		return -1
	}, text)
}

// isSpace matches the whitespace class used by most regex engines' \s,
// including the Unicode space separators and the byte-order mark.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r',
		0x00A0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A
}
