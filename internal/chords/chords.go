// Package chords transposes chord symbols and rewrites the chord nodes of a chord-sheet document.
//
// Only sharp spellings are recognized as roots. Flat-rooted chords such as "Bb" are left as
// written.
package chords

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Scale is the reference ordering of the twelve chromatic roots.
var Scale = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// OriginalAttr holds a chord node's untransposed text.
const OriginalAttr = "data-original"

var chordToken = regexp.MustCompile(`^([A-G](?:#|b)?)(.*)$`)

// Transpose moves the root of token by steps semitones and keeps the suffix ("m7", "sus4", "/G")
// as written. Tokens whose root is not in [Scale] are returned unchanged.
func Transpose(token string, steps int) string {
	m := chordToken.FindStringSubmatch(token)
	if m == nil {
		return token
	}

	idx := indexOf(m[1])
	if idx < 0 {
		return token
	}
	return Scale[mod12(idx+steps)] + m[2]
}

// TransposeLine transposes every whitespace-separated token in s, keeping the spacing.
func TransposeLine(s string, steps int) string {
	return fields.ReplaceAllStringFunc(s, func(tok string) string {
		return Transpose(tok, steps)
	})
}

var fields = regexp.MustCompile(`\S+`)

func indexOf(root string) int {
	for i, name := range Scale {
		if name == root {
			return i
		}
	}
	return -1
}

func mod12(n int) int {
	return (n%12 + 12) % 12
}

// TransposeDocument rewrites the text of every element whose class list contains "chord".
//
// Each node is transposed from its data-original value when present so repeated calls never
// compound; the source text is stored there on first use. Steps of zero restore the originals.
func TransposeDocument(document string, steps int) string {
	return rewrite(document, func(root *html.Node) {
		for _, n := range chordNodes(root) {
			original, ok := attr(n, OriginalAttr)
			if !ok {
				original = text(n)
				n.Attr = append(n.Attr, html.Attribute{Key: OriginalAttr, Val: original})
			}
			setText(n, TransposeLine(original, steps))
		}
	})
}

// StripChords removes every chord node from document.
func StripChords(document string) string {
	return rewrite(document, func(root *html.Node) {
		for _, n := range chordNodes(root) {
			if n.Parent != nil {
				n.Parent.RemoveChild(n)
			}
		}
	})
}

// rewrite parses document, applies fn and renders the result. Fragments are rendered as
// fragments so no html/head/body wrapper is introduced.
func rewrite(document string, fn func(*html.Node)) string {
	if strings.TrimSpace(document) == "" {
		return document
	}

	var buf bytes.Buffer
	if isFullDocument(document) {
		root, err := html.Parse(strings.NewReader(document))
		if err != nil {
			return document
		}
		fn(root)
		if err := html.Render(&buf, root); err != nil {
			return document
		}
		return buf.String()
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(document), body)
	if err != nil {
		return document
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	fn(body)
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return document
		}
	}
	return buf.String()
}

func isFullDocument(document string) bool {
	head := strings.ToLower(strings.TrimSpace(document))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype") || strings.Contains(head, "<html")
}

func chordNodes(root *html.Node) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if isChord(c) {
				found = append(found, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)
	return found
}

func isChord(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	class, _ := attr(n, "class")
	for _, f := range strings.Fields(class) {
		if f == "chord" {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func setText(n *html.Node, s string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}
