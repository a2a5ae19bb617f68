package transcript

// The document tree is a small closed set of typed nodes. Serializers walk
// it; nothing else branches on node kinds.

// Node is one inline element inside a paragraph.
type Node interface {
	isNode()
}

// Anchor binds a text span to its absolute time range and speaker. It is
// the unit referenced by timestamp links in rich output and the source of
// subtitle cues.
type Anchor struct {
	Range   TimeRange
	Speaker string
	Text    string
}

func (Anchor) isNode() {}

// TextRun is plain inline text, optionally colored in rich output
// (timestamp markers use this).
type TextRun struct {
	Text  string
	Color string
}

func (TextRun) isNode() {}

// Paragraph is an ordered sequence of inline nodes. Style distinguishes the
// document header from content paragraphs.
type Paragraph struct {
	Nodes []Node

	// Bold marks the title paragraph.
	Bold bool

	// Muted marks the attribution paragraph (small, gray in rich output).
	Muted bool
}

// Text returns the concatenated plain text of the paragraph.
func (p *Paragraph) Text() string {
	out := ""
	for _, n := range p.Nodes {
		switch node := n.(type) {
		case Anchor:
			out += node.Text
		case TextRun:
			out += node.Text
		}
	}
	return out
}

// Append adds a node to the paragraph.
func (p *Paragraph) Append(n Node) {
	p.Nodes = append(p.Nodes, n)
}

// Document is the assembled transcript: an ordered sequence of paragraphs.
// Anchors appear in non-decreasing absolute start order.
type Document struct {
	// SourcePath is the original media path named in the attribution line.
	SourcePath string

	// Title is the document header text (source file stem).
	Title string

	Paragraphs []*Paragraph
}

// Anchors returns every anchor in document order.
func (d *Document) Anchors() []Anchor {
	var anchors []Anchor
	for _, p := range d.Paragraphs {
		for _, n := range p.Nodes {
			if a, ok := n.(Anchor); ok {
				anchors = append(anchors, a)
			}
		}
	}
	return anchors
}
