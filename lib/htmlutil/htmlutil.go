package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"dcad-backend/lib/textutil"
)

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

var lineBreakTags = map[string]bool{
	"br": true, "tr": true, "p": true, "div": true, "li": true, "table": true,
}

// TextLines extracts the visible text of a selection as cleaned lines,
// treating <br> and block elements as line breaks. goquery's Text()
// concatenates text nodes with no separator, which glues multi-line
// cells (owner blocks, legal descriptions) into one string.
func TextLines(sel *goquery.Selection) []string {
	var buffer bytes.Buffer
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buffer.WriteString(n.Data)
			return
		}
		breaks := n.Type == html.ElementNode && lineBreakTags[n.Data]
		if breaks {
			buffer.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if breaks {
			buffer.WriteString("\n")
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}

	var out []string
	for _, line := range strings.Split(buffer.String(), "\n") {
		if t := textutil.Clean(line); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// CellText returns the cleaned text of a table cell.
func CellText(sel *goquery.Selection) string {
	return textutil.Clean(sel.Text())
}

// CellTexts returns cleaned text of every node in the selection,
// dropping empty entries.
func CellTexts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		t := textutil.Clean(s.Text())
		if t != "" {
			out = append(out, t)
		}
	})
	return out
}

func isAfter(doc *goquery.Document, target, start *html.Node) bool {
	seenStart := false
	found := false
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n == start {
			seenStart = true
		}
		if n == target && n != start {
			if seenStart {
				found = true
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}
	return found
}

// IsAfter reports whether target comes strictly after start in document
// order.
func IsAfter(doc *goquery.Document, target, start *goquery.Selection) bool {
	if target.Length() == 0 || start.Length() == 0 {
		return false
	}
	return isAfter(doc, target.Nodes[0], start.Nodes[0])
}

// TablesAfter returns up to limit tables that follow the start selection
// in document order and contain at least one cell.
func TablesAfter(doc *goquery.Document, start *goquery.Selection, limit int) []*goquery.Selection {
	if start.Length() == 0 {
		return nil
	}
	startNode := start.Nodes[0]

	var out []*goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		if len(out) >= limit {
			return false
		}
		if t.Find("th, td").Length() == 0 {
			return true
		}
		if isAfter(doc, t.Nodes[0], startNode) {
			out = append(out, t)
		}
		return true
	})
	return out
}

// NextTable returns the first table with cells that follows the start
// selection in document order.
func NextTable(doc *goquery.Document, start *goquery.Selection) *goquery.Selection {
	tables := TablesAfter(doc, start, 1)
	if len(tables) == 0 {
		return nil
	}
	return tables[0]
}
