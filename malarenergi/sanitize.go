package malarenergi

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var removedTags = []string{
	"head",
	"header",
	"script",
	"noscript",
	"iframe",
	"img",
	"path",
}

var removedClasses = []string{
	"user-functions-nav__node",
	"user-functions-nav__link",
	"user-functions-nav",
	"htmlblock",
	"icon-placeholder",
	"social-lang-nav__node",
	"social-lang-nav__link",
	"page-footer",
}

var removedSelector = strings.Join(append(append([]string{}, removedTags...), classSelectors(removedClasses)...), ", ")

func classSelectors(classes []string) []string {
	sels := make([]string, len(classes))
	for i, c := range classes {
		sels[i] = "." + c
	}
	return sels
}

// Sanitize returns a copy of doc stripped of comments, scripts, navigation,
// images and footers, with a UTF-8 charset meta tag as the first child of
// <html>. doc itself is left untouched. Sanitizing a sanitized document
// yields an identical document.
func Sanitize(doc *goquery.Document) (*goquery.Document, error) {
	if doc == nil || len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrStructure)
	}

	clone := doc.Selection.Clone()
	out := goquery.NewDocumentFromNode(clone.Nodes[0])
	out.Url = doc.Url

	root := out.Find("html").First()
	if root.Length() == 0 {
		return nil, fmt.Errorf("%w: document has no <html> element", ErrStructure)
	}

	out.Find(removedSelector).Remove()
	removeComments(out.Nodes[0])
	injectCharset(root.Nodes[0])

	return out, nil
}

func removeComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			removeComments(c)
		}
		c = next
	}
}

func injectCharset(root *html.Node) {
	if isCharsetMeta(root.FirstChild) {
		return
	}
	meta := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Meta,
		Data:     "meta",
		Attr:     []html.Attribute{{Key: "charset", Val: "utf-8"}},
	}
	root.InsertBefore(meta, root.FirstChild)
}

func isCharsetMeta(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || n.DataAtom != atom.Meta {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "charset" && strings.EqualFold(a.Val, "utf-8") {
			return true
		}
	}
	return false
}
