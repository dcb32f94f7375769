package extract

import (
	"bytes"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

// Paragraphs returns the text of every <p> element in document order. Each
// paragraph has its whitespace runs collapsed and is trimmed; paragraphs that
// end up empty are dropped.
func Paragraphs(r io.Reader) ([]string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "script", "style", "noscript", "template":
				return
			case "p":
				var b strings.Builder
				collectText(&b, n)
				if text := collapseSpaces(b.String()); text != "" {
					out = append(out, norm.NFC.String(text))
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out, nil
}

// ParagraphText decodes body using the charset declared in contentType (or
// sniffed from the markup), extracts paragraphs and joins them with "\n".
func ParagraphText(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		// Unknown charset label; fall back to treating the bytes as UTF-8.
		r = bytes.NewReader(body)
	}
	paras, err := Paragraphs(r)
	if err != nil {
		return "", err
	}
	return strings.Join(paras, "\n"), nil
}

func collectText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript":
			return
		case "br":
			b.WriteByte(' ')
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
}

// collapseSpaces trims s and folds internal whitespace runs to one space.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
