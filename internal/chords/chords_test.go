package chords

import (
	"strings"
	"testing"
)

func TestTranspose(t *testing.T) {
	tc := []struct {
		name  string
		token string
		steps int
		want  string
	}{
		{name: "up a tone", token: "C", steps: 2, want: "D"},
		{name: "wraps past B", token: "A#", steps: 3, want: "C#"},
		{name: "negative steps", token: "C", steps: -1, want: "B"},
		{name: "large negative steps", token: "E", steps: -25, want: "D#"},
		{name: "large positive steps", token: "G", steps: 38, want: "A"},
		{name: "suffix kept", token: "Am7sus4", steps: 2, want: "Bm7sus4"},
		{name: "slash bass kept", token: "D/F#", steps: 2, want: "E/F#"},
		{name: "flat root unchanged", token: "Bb", steps: 2, want: "Bb"},
		{name: "flat minor unchanged", token: "Ebm", steps: 5, want: "Ebm"},
		{name: "not a chord", token: "Hallelujah", steps: 1, want: "Hallelujah"},
		{name: "lowercase root", token: "am", steps: 1, want: "am"},
		{name: "empty", token: "", steps: 4, want: ""},
		{name: "zero steps", token: "F#m", steps: 0, want: "F#m"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transpose(tt.token, tt.steps); got != tt.want {
				t.Errorf("Transpose(%q, %d) = %q, want %q", tt.token, tt.steps, got, tt.want)
			}
		})
	}
}

func TestTransposeProperties(t *testing.T) {
	suffixes := []string{"", "m", "7", "maj7", "sus2", "/G", "m7b5"}

	t.Run("round trip", func(t *testing.T) {
		for _, root := range Scale {
			for _, suffix := range suffixes {
				token := root + suffix
				for n := -30; n <= 30; n++ {
					if got := Transpose(Transpose(token, n), -n); got != token {
						t.Fatalf("round trip of %q by %d gave %q", token, n, got)
					}
				}
			}
		}
	})

	t.Run("cyclic over an octave", func(t *testing.T) {
		for _, root := range Scale {
			for _, k := range []int{12, -12, 24} {
				if got := Transpose(root+"m", k); got != root+"m" {
					t.Errorf("Transpose(%q, %d) = %q", root+"m", k, got)
				}
			}
		}
	})
}

func TestTransposeLine(t *testing.T) {
	if got := TransposeLine("G   D/F#  Em", 2); got != "A   E/F#  F#m" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestTransposeDocument(t *testing.T) {
	doc := `<pre><span class="chord">G</span>Above all <span class="chord big">Em7</span>powers</pre>`

	t.Run("rewrites chord text and records originals", func(t *testing.T) {
		got := TransposeDocument(doc, 2)
		if !strings.Contains(got, `data-original="G">A</span>`) {
			t.Errorf("expected first chord transposed to A, got %s", got)
		}
		if !strings.Contains(got, `data-original="Em7">F#m7</span>`) {
			t.Errorf("expected second chord transposed to F#m7, got %s", got)
		}
		if !strings.Contains(got, "Above all ") || strings.Contains(got, "<body>") {
			t.Errorf("lyrics or fragment shape changed: %s", got)
		}
	})

	t.Run("repeated transposition does not compound", func(t *testing.T) {
		once := TransposeDocument(doc, 2)
		twice := TransposeDocument(once, 2)
		if twice != once {
			t.Errorf("expected same output when transposing from originals\nonce:  %s\ntwice: %s", once, twice)
		}

		restored := TransposeDocument(once, 0)
		if !strings.Contains(restored, `data-original="G">G</span>`) {
			t.Errorf("expected zero steps to restore originals, got %s", restored)
		}
	})

	t.Run("full documents keep their wrapper", func(t *testing.T) {
		full := "<!DOCTYPE html><html><head><title>x</title></head><body>" + doc + "</body></html>"
		got := TransposeDocument(full, 1)
		if !strings.HasPrefix(got, "<!DOCTYPE html>") || !strings.Contains(got, ">G#</span>") {
			t.Errorf("unexpected document %s", got)
		}
	})

	t.Run("empty input is returned as is", func(t *testing.T) {
		if got := TransposeDocument("  ", 3); got != "  " {
			t.Errorf("expected input back, got %q", got)
		}
	})
}

func TestStripChords(t *testing.T) {
	got := StripChords(`<pre><span class="chord">G</span>Holy <b class="chord">C</b>ground</pre>`)
	if got != "<pre>Holy ground</pre>" {
		t.Errorf("unexpected output %q", got)
	}
}
