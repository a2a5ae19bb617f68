package transcript

import (
	"fmt"
	"html"
	"strings"

	"github.com/verbatim-cli/verbatim/pkg/timefmt"
)

// Serialize renders the document into the requested encoding. The encoding
// is a pure function of the output kind; no other branching happens here.
func Serialize(doc *Document, kind OutputKind) (string, error) {
	switch kind {
	case OutputRich:
		return renderHTML(doc), nil
	case OutputPlain:
		return renderPlain(doc), nil
	case OutputSubtitle:
		return renderWebVTT(doc), nil
	default:
		return "", fmt.Errorf("unknown output kind %q", kind)
	}
}

// The rich output document shell. Kept byte-compatible with transcripts
// produced by editors that expect the qrichtext style block.
const htmlHeader = `<!DOCTYPE HTML PUBLIC "-//W3C//DTD HTML 4.0//EN" "http://www.w3.org/TR/REC-html40/strict.dtd">
<html >
<head >
<meta charset="UTF-8" />
<meta name="qrichtext" content="1" />
<style type="text/css" >
p, li { white-space: pre-wrap; }
</style>
<style type="text/css" >
 p { font-size: 0.9em; }
 .MsoNormal { font-family: "Arial"; font-weight: 400; font-style: normal; font-size: 0.9em; }
 @page WordSection1 {mso-line-numbers-restart: continuous; mso-line-numbers-count-by: 1; mso-line-numbers-start: 1; }
 div.WordSection1 {page:WordSection1;}
</style>
</head>
<body style="font-family: 'Arial'; font-weight: 400; font-style: normal" >
`

func renderHTML(doc *Document) string {
	var b strings.Builder
	b.WriteString(htmlHeader)
	b.WriteString("<div >\n")
	for _, p := range doc.Paragraphs {
		b.WriteString(renderParagraphHTML(p))
		b.WriteString("\n")
	}
	b.WriteString("</div>\n</body>\n</html>")
	return b.String()
}

func renderParagraphHTML(p *Paragraph) string {
	var b strings.Builder
	switch {
	case p.Bold:
		b.WriteString(`<p style="font-weight: 600" >`)
	default:
		b.WriteString("<p >")
	}
	for _, n := range p.Nodes {
		switch node := n.(type) {
		case Anchor:
			fmt.Fprintf(&b, `<a name="ts_%d_%d_%s" >%s</a>`,
				node.Range.StartMS, node.Range.EndMS, node.Speaker, html.EscapeString(node.Text))
		case TextRun:
			text := html.EscapeString(node.Text)
			switch {
			case p.Muted:
				b.WriteString(`<span style="color: #909090; font-size: 0.8em" >` + text + "</span>")
			case node.Color != "":
				b.WriteString(`<span style="color: ` + node.Color + `" >` + text + "</span>")
			default:
				b.WriteString(text)
			}
		}
	}
	b.WriteString("</p>")
	return b.String()
}

// renderPlain renders each paragraph as a newline-surrounded block, which
// leaves interior paragraphs separated by one blank line.
func renderPlain(doc *Document) string {
	var b strings.Builder
	for _, p := range doc.Paragraphs {
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(p.Text()))
		b.WriteString("\n")
	}
	return "\n" + strings.TrimSpace(b.String()) + "\n"
}

// vttEscape HTML-escapes cue text and collapses double line breaks, which
// would otherwise terminate the cue early.
func vttEscape(s string) string {
	s = html.EscapeString(s)
	for strings.Contains(s, "\n\n") {
		s = strings.ReplaceAll(s, "\n\n", "\n")
	}
	return s
}

// renderWebVTT renders the cue track: the literal WEBVTT header carrying
// the title, a NOTE block with the attribution line, a NOTE naming the
// media source, then one numbered cue per anchor with a voice tag. The
// speaker is never also prefixed into the cue text.
func renderWebVTT(doc *Document) string {
	var b strings.Builder

	title, attribution := "", ""
	if len(doc.Paragraphs) > 0 {
		title = doc.Paragraphs[0].Text()
	}
	if len(doc.Paragraphs) > 1 {
		attribution = doc.Paragraphs[1].Text()
	}

	b.WriteString("WEBVTT " + vttEscape(title) + "\n\n")
	b.WriteString(vttEscape("NOTE\n\n"+attribution+"\n") + "\n\n")
	b.WriteString("NOTE media: " + doc.SourcePath + "\n\n")

	for i, a := range doc.Anchors() {
		fmt.Fprintf(&b, "%d\n%s --> %s\n<v %s>%s\n\n",
			i+1,
			timefmt.FormatWebVTT(a.Range.StartMS),
			timefmt.FormatWebVTT(a.Range.EndMS),
			a.Speaker,
			strings.TrimLeft(vttEscape(a.Text), " \t\n"))
	}
	return b.String()
}
