package sbpatch

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type codeBlock struct {
	Lang    string
	Content string
}

// ExtractDiff pulls the first diff fence out of markdown input so a
// whole LLM reply can be pasted as-is. Input carrying no diff fence
// passes through unchanged, so a raw unified diff works too.
func ExtractDiff(source string) string {
	blocks, err := extractCodeBlocks([]byte(source))
	if err != nil {
		return source
	}
	for _, b := range blocks {
		if b.Lang == "diff" || b.Lang == "patch" {
			return strings.Trim(b.Content, "\n")
		}
	}
	return source
}

func extractCodeBlocks(source []byte) ([]codeBlock, error) {
	var blocks []codeBlock
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var block codeBlock
		if fenced.Info != nil {
			block.Lang = string(fenced.Info.Text(source))
		}

		var content bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		block.Content = content.String()

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}
	return blocks, nil
}
