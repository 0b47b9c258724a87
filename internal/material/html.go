package material

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"nav":      true,
	"footer":   true,
	"header":   true,
	"noscript": true,
}

var blockTags = map[string]bool{
	"p":          true,
	"li":         true,
	"td":         true,
	"th":         true,
	"blockquote": true,
	"pre":        true,
	"dd":         true,
	"dt":         true,
	"figcaption": true,
}

// readHTML uses <title> as the title and h1-h6 as section headings. Text is
// collected from paragraph-like elements only.
func readHTML(r io.Reader, title string) (*Material, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var b sectionBuilder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case skippedTags[n.Data]:
				return
			case n.Data == "title":
				if t := nodeText(n); t != "" {
					title = t
				}
				return
			case headingLevel(n.Data) > 0:
				b.heading(headingLevel(n.Data), nodeText(n))
				return
			case blockTags[n.Data]:
				b.paragraph(nodeText(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return &Material{Title: title, Sections: b.done()}, nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// nodeText returns the visible text under n with whitespace collapsed.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && skippedTags[node.Data] {
			return
		}
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteByte(' ')
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
