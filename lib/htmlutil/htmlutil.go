package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node below node.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// TrimText drops non-printable runes and trims the ends, inner
// whitespace (eg. paragraph breaks) is kept.
func TrimText(s string) string {
	var out strings.Builder
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			out.WriteRune(c)
		}
	}
	return strings.TrimSpace(out.String())
}

// CleanText is TrimText that also collapses inner runs of whitespace into
// a single space.
func CleanText(s string) string {
	return innerWhitespace.ReplaceAllString(TrimText(s), " ")
}

// SelectionText returns the cleaned text of the first node in sel, "" when
// sel is empty.
func SelectionText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return CleanText(GetText(sel.Nodes[0]))
}

// SelectionTrimmedText is SelectionText with TrimText, for free text.
func SelectionTrimmedText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return TrimText(GetText(sel.Nodes[0]))
}

// ParseFragment parses an outer html fragment into a document.
func ParseFragment(fragment string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(fragment))
}
