package slides

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/desertthunder/songdeck/internal/models"
	"golang.org/x/net/html"
)

const bracketed = `<html><body><h1>Above All Powers</h1>
<pre>
[Verse 1]
Above all powers, above all kings
Above all nature and all created things

[Chorus]
Crucified, laid behind a stone
</pre></body></html>`

const sectioned = `<html><body><pre>
<div class="heading">Verse 1</div>
<section class="verse"><span class="chord">G</span>Above all powers
<span class="chord">D/F#</span>above all kings</section>
<div class="heading">Chorus</div>
<section class="chorus"><span class="chord">Em</span>Crucified</section>
<section class="bridge">   </section>
</pre></body></html>`

func TestDetect(t *testing.T) {
	tc := []struct {
		name string
		doc  string
		want Shape
	}{
		{name: "empty", doc: "", want: ShapeEmpty},
		{name: "whitespace", doc: "  \n ", want: ShapeEmpty},
		{name: "no pre", doc: "<p>just prose</p>", want: ShapeEmpty},
		{name: "bracketed", doc: bracketed, want: ShapePlainBracketed},
		{name: "sectioned", doc: sectioned, want: ShapeSemanticSectioned},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.doc); got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBracketedMode(t *testing.T) {
	t.Run("heading attachment", func(t *testing.T) {
		doc := "<pre>[Verse 1]\nline a\n\n[Chorus]\nline b</pre>"
		slides := Parse(doc)

		if len(slides) != 2 {
			t.Fatalf("expected 2 slides, got %d: %q", len(slides), slides)
		}
		if slides[0] != "<pre>[Verse 1]\nline a</pre>" {
			t.Errorf("unexpected first slide %q", slides[0])
		}
		if slides[1] != "<pre>[Chorus]\nline b</pre>" {
			t.Errorf("unexpected second slide %q", slides[1])
		}
	})

	t.Run("heading without blank line still splits", func(t *testing.T) {
		slides := Parse("<pre>[Verse 1]\na\n[Verse 2]\nb</pre>")
		if len(slides) != 2 {
			t.Fatalf("expected 2 slides, got %d", len(slides))
		}
	})

	t.Run("whitespace-only lines split", func(t *testing.T) {
		slides := Parse("<pre>one\n   \ntwo\n\t\nthree</pre>")
		if len(slides) != 3 {
			t.Fatalf("expected 3 slides, got %d: %q", len(slides), slides)
		}
	})

	t.Run("repeated blank lines do not create empty slides", func(t *testing.T) {
		slides := Parse("<pre>one\n\n\n\ntwo</pre>")
		if len(slides) != 2 {
			t.Fatalf("expected 2 slides, got %d: %q", len(slides), slides)
		}
	})

	t.Run("markup inside is kept verbatim", func(t *testing.T) {
		slides := Parse(`<pre class="song">She said &quot;hi&quot; <b>loud</b></pre>`)
		if len(slides) != 1 || slides[0] != `<pre>She said &quot;hi&quot; <b>loud</b></pre>` {
			t.Errorf("unexpected slides %q", slides)
		}
	})

	t.Run("CRLF line endings", func(t *testing.T) {
		slides := Parse("<pre>a\r\n\r\nb</pre>")
		if len(slides) != 2 || slides[0] != "<pre>a</pre>" {
			t.Errorf("unexpected slides %q", slides)
		}
	})

	t.Run("labels", func(t *testing.T) {
		deck := ParseDeck(bracketed)
		if deck.Shape != ShapePlainBracketed {
			t.Errorf("expected bracketed shape, got %v", deck.Shape)
		}
		want := []string{"Verse 1", "Chorus"}
		if len(deck.Labels) != len(want) {
			t.Fatalf("expected %d labels, got %q", len(want), deck.Labels)
		}
		for i := range want {
			if deck.Labels[i] != want[i] {
				t.Errorf("label %d = %q, want %q", i, deck.Labels[i], want[i])
			}
		}
	})
}

func TestSectionedMode(t *testing.T) {
	deck := ParseDeck(sectioned)

	t.Run("one slide per non-blank section", func(t *testing.T) {
		if len(deck.Slides) != 2 {
			t.Fatalf("expected 2 slides, got %d: %q", len(deck.Slides), deck.Slides)
		}
		for _, s := range deck.Slides {
			if !strings.HasPrefix(string(s), `<div class="lyric-slide"><pre>`) || !strings.HasSuffix(string(s), "</pre></div>") {
				t.Errorf("slide not wrapped: %q", s)
			}
		}
	})

	t.Run("chord stripping", func(t *testing.T) {
		for _, s := range deck.Slides {
			if strings.Contains(string(s), "chord") || strings.Contains(string(s), "D/F#") {
				t.Errorf("slide still contains chords: %q", s)
			}
		}
		if !strings.Contains(string(deck.Slides[0]), "Above all powers") || !strings.Contains(string(deck.Slides[0]), "above all kings") {
			t.Errorf("lyrics missing from slide: %q", deck.Slides[0])
		}
	})

	t.Run("heading exclusion", func(t *testing.T) {
		for _, s := range deck.Slides {
			if strings.Contains(string(s), "Verse 1") || strings.Contains(string(s), "Chorus") {
				t.Errorf("heading leaked into slide: %q", s)
			}
		}
		if deck.Labels[0] != "Verse 1" || deck.Labels[1] != "Chorus" {
			t.Errorf("unexpected labels %q", deck.Labels)
		}
	})

	t.Run("section tag is not kept", func(t *testing.T) {
		if strings.Contains(string(deck.Slides[1]), "<section") {
			t.Errorf("section tag leaked: %q", deck.Slides[1])
		}
	})

	t.Run("consecutive headings join", func(t *testing.T) {
		doc := `<pre><p class="heading">Verse 2</p> <p class="heading big">Refrain</p><section>words</section></pre>`
		deck := ParseDeck(doc)
		if len(deck.Labels) != 1 || deck.Labels[0] != "Verse 2 / Refrain" {
			t.Errorf("unexpected labels %q", deck.Labels)
		}
	})

	t.Run("blank sections fall back to whole block", func(t *testing.T) {
		doc := `<pre>Holy holy <span class="chord">C</span>holy<section> </section></pre>`
		slides := Parse(doc)
		if len(slides) != 1 {
			t.Fatalf("expected fallback slide, got %q", slides)
		}
		if strings.Contains(string(slides[0]), "chord") || !strings.Contains(string(slides[0]), "Holy holy holy") {
			t.Errorf("unexpected fallback slide %q", slides[0])
		}
	})
}

func TestParseEdgeCases(t *testing.T) {
	t.Run("empty document has no slides", func(t *testing.T) {
		if slides := Parse(""); len(slides) != 0 {
			t.Errorf("expected no slides, got %q", slides)
		}
	})

	t.Run("no pre container has no slides", func(t *testing.T) {
		deck := ParseDeck("<p>Amazing grace</p>")
		if len(deck.Slides) != 0 || deck.Slides == nil {
			t.Errorf("expected empty non-nil slides, got %#v", deck.Slides)
		}
	})

	t.Run("slide count floor", func(t *testing.T) {
		for _, doc := range []string{bracketed, sectioned, "<pre>x</pre>", "<pre><section>y</section></pre>"} {
			if len(Parse(doc)) < 1 {
				t.Errorf("expected at least one slide for %q", doc)
			}
		}
	})

	t.Run("unclosed markup does not panic", func(t *testing.T) {
		slides := Parse("<pre><section><span class=chord>G</span>lyric")
		if len(slides) != 1 {
			t.Errorf("expected one slide, got %q", slides)
		}
	})
}

func TestWithTreeBuilder(t *testing.T) {
	t.Run("failing builder degrades to empty", func(t *testing.T) {
		p := NewParser(WithTreeBuilder(func(io.Reader) (*html.Node, error) {
			return nil, errors.New("boom")
		}))
		if got := p.Detect(sectioned); got != ShapeEmpty {
			t.Errorf("expected empty shape, got %v", got)
		}
		if slides := p.Parse(sectioned); len(slides) != 0 {
			t.Errorf("expected no slides, got %q", slides)
		}
	})

	t.Run("custom builder is used", func(t *testing.T) {
		calls := 0
		p := NewParser(WithTreeBuilder(func(r io.Reader) (*html.Node, error) {
			calls++
			return html.Parse(r)
		}))
		p.Parse(bracketed)
		if calls != 1 {
			t.Errorf("expected builder to be called once, got %d", calls)
		}
	})
}

func TestPlainText(t *testing.T) {
	tc := []struct {
		slide models.Slide
		want  string
	}{
		{slide: "<pre>[Chorus]\nline b</pre>", want: "[Chorus]\nline b"},
		{slide: `<div class="lyric-slide"><pre>Above &amp; beyond<br>all</pre></div>`, want: "Above & beyond\nall"},
		{slide: "", want: ""},
	}

	for _, tt := range tc {
		if got := PlainText(tt.slide); got != tt.want {
			t.Errorf("PlainText(%q) = %q, want %q", tt.slide, got, tt.want)
		}
	}
}
