// Package goldmark locates the JSON payload in markdown-wrapped model output
// using goldmark for parsing.
package goldmark

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractJSON returns the content of the first fenced code block whose info
// string is empty or "json". An unterminated fence extends to the end of
// the text, so a block still being streamed is returned as far as it goes.
// Without such a block the trimmed text is returned unchanged.
func ExtractJSON(src string) string {
	if !strings.Contains(src, "```") && !strings.Contains(src, "~~~") {
		return strings.TrimSpace(src)
	}
	source := []byte(src)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var (
		found bool
		buf   bytes.Buffer
	)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if lang := strings.ToLower(string(block.Language(source))); lang != "" && lang != "json" {
			return ast.WalkSkipChildren, nil
		}
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(source))
		}
		found = true
		return ast.WalkStop, nil
	})
	if !found {
		return strings.TrimSpace(src)
	}
	return strings.TrimSpace(buf.String())
}
