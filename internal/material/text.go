package material

import (
	"bufio"
	"io"
	"strings"
)

// readText treats blank lines as paragraph breaks and returns one untitled
// section.
func readText(r io.Reader, title string) (*Material, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var b sectionBuilder
	var current []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			b.paragraph(strings.Join(current, "\n"))
			current = current[:0]
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	b.paragraph(strings.Join(current, "\n"))

	return &Material{Title: title, Sections: b.done()}, nil
}
