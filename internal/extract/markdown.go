package extract

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownText drops emphasis and heading markup and keeps the text of each
// top level block. Raw HTML is kept verbatim and link targets follow their
// label.
func markdownText(ctx context.Context, data []byte) (string, error) {
	if err := validUTF8(data); err != nil {
		return "", err
	}
	reader := text.NewReader(data)
	doc := goldmark.New().Parser().Parse(reader)

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var txt string
		switch n := node.(type) {
		case *ast.FencedCodeBlock:
			txt = blockLines(n, data)
		case *ast.CodeBlock:
			txt = blockLines(n, data)
		case *ast.HTMLBlock:
			txt = htmlBlockText(n, data)
		default:
			txt = extractText(n, data)
		}
		if txt != "" {
			blocks = append(blocks, txt)
		}
	}
	return strings.Join(blocks, "\n"), nil
}

func blockLines(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		sb.Write(line.Value(source))
	}
	return strings.TrimSpace(sb.String())
}

func htmlBlockText(n *ast.HTMLBlock, source []byte) string {
	var sb strings.Builder
	sb.WriteString(blockLines(n, source))
	if n.HasClosure() {
		sb.WriteByte('\n')
		sb.Write(n.ClosureLine.Value(source))
	}
	return strings.TrimSpace(sb.String())
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if link, ok := node.(*ast.Link); ok && len(link.Destination) > 0 {
				sb.WriteString(" (")
				sb.Write(link.Destination)
				sb.WriteByte(')')
			}
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.RawHTML:
			for i := 0; i < t.Segments.Len(); i++ {
				seg := t.Segments.At(i)
				sb.Write(seg.Value(source))
			}
		case *ast.AutoLink:
			sb.Write(t.URL(source))
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			sb.WriteString(blockLines(t, source))
			sb.WriteByte('\n')
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			sb.WriteString(htmlBlockText(t, source))
			sb.WriteByte('\n')
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
