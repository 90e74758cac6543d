// Package markdown renders Markdown documents to the plain prose used for
// style profiling.
package markdown

import (
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// ToPlainText returns the prose of md. Code blocks and raw HTML are dropped;
// block elements are separated by blank lines so sentence statistics are not
// skewed by headings running into paragraphs.
func ToPlainText(md []byte) string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse(md)

	var sb strings.Builder
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		switch n := node.(type) {
		case *ast.CodeBlock, *ast.HTMLBlock, *ast.HTMLSpan:
			return ast.SkipChildren
		case *ast.Text:
			if entering {
				sb.Write(n.Literal)
			}
		case *ast.Code:
			if entering {
				sb.Write(n.Literal)
			}
		case *ast.Softbreak:
			sb.WriteByte(' ')
		case *ast.Hardbreak:
			sb.WriteByte('\n')
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.BlockQuote, *ast.TableRow:
			if !entering {
				sb.WriteString("\n\n")
			}
		case *ast.TableCell:
			if !entering {
				sb.WriteByte(' ')
			}
		}
		return ast.GoToNext
	})
	return strings.TrimSpace(sb.String())
}
