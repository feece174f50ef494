package generator

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// FlattenMarkdown strips the markdown structure a model may wrap its story
// in and returns plain paragraphs separated by blank lines. Headings and
// list items become paragraphs of their own; emphasis markers disappear.
func FlattenMarkdown(s string) string {
	src := []byte(s)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var blocks []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindParagraph, ast.KindHeading, ast.KindTextBlock:
			if t := strings.TrimSpace(inlineText(n, src)); t != "" {
				blocks = append(blocks, t)
			}
			return ast.WalkSkipChildren, nil
		case ast.KindCodeBlock, ast.KindFencedCodeBlock:
			if t := strings.TrimSpace(rawLines(n, src)); t != "" {
				blocks = append(blocks, t)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	if len(blocks) == 0 {
		return strings.TrimSpace(s)
	}
	return strings.Join(blocks, "\n\n")
}

// inlineText collects the text content of a block node.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.HardLineBreak() {
				b.WriteByte('\n')
			} else if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// rawLines collects the raw source lines of a code block.
func rawLines(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}

// CleanTitle normalizes a title reply: surrounding whitespace, leading
// heading markers, and wrapping quotation marks are removed.
func CleanTitle(s string) string {
	t := strings.TrimSpace(s)
	t = strings.TrimSpace(strings.TrimLeft(t, "#"))
	pairs := [][2]string{
		{`"`, `"`},
		{"'", "'"},
		{"“", "”"},
		{"‘", "’"},
		{"«", "»"},
	}
	for changed := true; changed; {
		changed = false
		for _, q := range pairs {
			if len(t) > len(q[0])+len(q[1]) && strings.HasPrefix(t, q[0]) && strings.HasSuffix(t, q[1]) {
				t = strings.TrimSpace(t[len(q[0]) : len(t)-len(q[1])])
				changed = true
			}
		}
	}
	return t
}
