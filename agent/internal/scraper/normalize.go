package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// nonContent lists elements whose text never reaches the reader.
const nonContent = "script, style, noscript"

// Normalize parses an HTML document from r and returns its visible text,
// whitespace-collapsed, trimmed and lowercased.
//
// Parsing is tolerant: malformed markup yields whatever text the parser could
// recover. An error is returned only when reading r fails.
func Normalize(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find(nonContent).Remove()

	var parts []string
	for _, n := range doc.Nodes {
		collectText(n, &parts)
	}
	return cleanText(strings.Join(parts, " ")), nil
}

// collectText appends the data of every text node under n in document order.
// Comments, doctypes and attributes are ignored.
func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		*parts = append(*parts, n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// cleanText collapses Unicode whitespace runs to one space, trims, and
// lowercases.
func cleanText(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	return cases.Lower(language.Und).String(collapsed)
}
