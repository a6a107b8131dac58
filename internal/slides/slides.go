package slides

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/desertthunder/songdeck/internal/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type Shape = models.DocumentShape

const (
	ShapeEmpty             = models.ShapeEmpty
	ShapePlainBracketed    = models.ShapePlainBracketed
	ShapeSemanticSectioned = models.ShapeSemanticSectioned
)

// TreeBuilder parses a document into an HTML node tree. [html.Parse] satisfies it.
type TreeBuilder func(r io.Reader) (*html.Node, error)

// Parser extracts slides from documents using a [TreeBuilder].
type Parser struct {
	build TreeBuilder
}

// Option configures a [Parser].
type Option func(*Parser)

// WithTreeBuilder replaces the default x/net/html tree builder.
func WithTreeBuilder(b TreeBuilder) Option {
	return func(p *Parser) {
		if b != nil {
			p.build = b
		}
	}
}

// NewParser creates a [Parser].
func NewParser(opts ...Option) *Parser {
	p := &Parser{build: html.Parse}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Detect reports the shape of document using the default parser.
func Detect(document string) Shape { return defaultParser.Detect(document) }

// Parse returns the slides of document using the default parser.
func Parse(document string) []models.Slide { return defaultParser.Parse(document) }

// ParseDeck returns slides, labels and shape of document using the default parser.
func ParseDeck(document string) models.Deck { return defaultParser.ParseDeck(document) }

// Detect probes the first <pre> container: absent means empty, a <section> inside means sectioned.
func (p *Parser) Detect(document string) Shape {
	_, shape := p.probe(document)
	return shape
}

// Parse returns the slides of document in reading order.
func (p *Parser) Parse(document string) []models.Slide {
	return p.ParseDeck(document).Slides
}

// ParseDeck returns the slides of document together with one label per slide.
func (p *Parser) ParseDeck(document string) models.Deck {
	pre, shape := p.probe(document)

	var deck models.Deck
	switch shape {
	case ShapePlainBracketed:
		deck = parseBracketed(preContent(document, pre))
	case ShapeSemanticSectioned:
		deck = parseSectioned(pre)
	}

	deck.Shape = shape
	if deck.Slides == nil {
		deck.Slides = []models.Slide{}
		deck.Labels = []string{}
	}
	return deck
}

func (p *Parser) probe(document string) (*html.Node, Shape) {
	if strings.TrimSpace(document) == "" {
		return nil, ShapeEmpty
	}

	root, err := p.build(strings.NewReader(document))
	if err != nil || root == nil {
		return nil, ShapeEmpty
	}

	pre := findFirst(root, isElement(atom.Pre))
	if pre == nil {
		return nil, ShapeEmpty
	}
	if findFirst(pre, isElement(atom.Section)) != nil {
		return pre, ShapeSemanticSectioned
	}
	return pre, ShapePlainBracketed
}

var (
	preBlock    = regexp.MustCompile(`(?is)<pre[^>]*>(.*?)</pre>`)
	headingLine = regexp.MustCompile(`^\[.*\]$`)
)

// preContent returns the raw text of the first <pre> block so bracketed slides keep the author's
// markup byte for byte. It falls back to re-rendering the parsed node.
func preContent(document string, pre *html.Node) string {
	if m := preBlock.FindStringSubmatch(document); m != nil {
		return m[1]
	}
	return innerHTML(pre)
}

func parseBracketed(content string) models.Deck {
	var (
		deck   models.Deck
		buffer []string
		label  string
	)

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		deck.Slides = append(deck.Slides, models.Slide("<pre>"+strings.Join(buffer, "\n")+"</pre>"))
		deck.Labels = append(deck.Labels, label)
		buffer, label = nil, ""
	}

	content = strings.ReplaceAll(strings.TrimSpace(content), "\r\n", "\n")
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		heading := headingLine.MatchString(trimmed)

		if !heading && trimmed != "" {
			buffer = append(buffer, line)
			continue
		}

		flush()
		if heading {
			buffer = append(buffer, line)
			label = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
		}
	}
	flush()

	return deck
}

func parseSectioned(pre *html.Node) models.Deck {
	for _, chord := range findAll(pre, hasClass("chord")) {
		detach(chord)
	}

	var deck models.Deck
	for _, section := range findAll(pre, isElement(atom.Section)) {
		label := stripHeadings(section)

		content := strings.TrimSpace(innerHTML(section))
		if content == "" {
			continue
		}
		deck.Slides = append(deck.Slides, wrapLyric(content))
		deck.Labels = append(deck.Labels, label)
	}

	if len(deck.Slides) == 0 {
		if content := strings.TrimSpace(innerHTML(pre)); content != "" {
			deck.Slides = []models.Slide{wrapLyric(content)}
			deck.Labels = []string{""}
		}
	}
	return deck
}

// stripHeadings removes the run of "heading" elements directly before section and returns their
// text in reading order.
func stripHeadings(section *html.Node) string {
	var labels []string
	for prev := previousElement(section); prev != nil && hasClass("heading")(prev); {
		next := previousElement(prev)
		if text := strings.TrimSpace(textContent(prev)); text != "" {
			labels = append([]string{text}, labels...)
		}
		detach(prev)
		prev = next
	}
	return strings.Join(labels, " / ")
}

func wrapLyric(content string) models.Slide {
	return models.Slide(`<div class="lyric-slide"><pre>` + content + `</pre></div>`)
}

// PlainText returns the visible text of a slide with markup removed.
func PlainText(slide models.Slide) string {
	nodes, err := html.ParseFragment(strings.NewReader(string(slide)), &html.Node{
		Type: html.ElementNode, Data: "body", DataAtom: atom.Body,
	})
	if err != nil {
		return string(slide)
	}

	var b strings.Builder
	for _, n := range nodes {
		writeText(&b, n)
	}
	return strings.Trim(b.String(), "\n")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch {
	case n.Type == html.TextNode:
		b.WriteString(n.Data)
	case n.Type == html.ElementNode && n.DataAtom == atom.Br:
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	writeText(&b, n)
	return b.String()
}

func innerHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}

type matcher func(*html.Node) bool

func isElement(a atom.Atom) matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

// hasClass matches elements whose class list contains name.
func hasClass(name string) matcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, attr := range n.Attr {
			if attr.Key == "class" && containsField(attr.Val, name) {
				return true
			}
		}
		return false
	}
}

func containsField(list, name string) bool {
	for _, f := range strings.Fields(list) {
		if f == name {
			return true
		}
	}
	return false
}

// findFirst returns the first descendant of root (in document order) that matches.
func findFirst(root *html.Node, match matcher) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every matching descendant of root in document order.
func findAll(root *html.Node, match matcher) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if match(c) {
				found = append(found, c)
			}
			walk(c)
		}
	}
	walk(root)
	return found
}

func previousElement(n *html.Node) *html.Node {
	for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type == html.ElementNode {
			return prev
		}
	}
	return nil
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
