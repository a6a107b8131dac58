// Package slides splits a chord-sheet document into audience slides.
//
// Two document conventions are supported and told apart by [Detect]:
//
//   - bracketed: a single <pre> block of plain lines where "[Verse 1]" style headings and blank
//     lines separate slides. Headings stay attached to the slide they introduce and the text is
//     kept verbatim.
//   - sectioned: a <pre> block whose verses are <section> elements. Chord spans are removed,
//     "heading" siblings become presenter labels, and each non-blank section becomes one slide.
//
// Parsing never fails. A document without a <pre> container produces no slides.
package slides
