package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/xxxsen/alimtalk/internal/model"
)

const (
	maxChunkTokens = 400
	minChunkRunes  = 50
)

// ChunkMarkdown splits a policy document into sections on h1/h2 headings.
// Long sections are split again once they pass maxChunkTokens.
func ChunkMarkdown(ctx context.Context, name string, markdown []byte) []model.PolicyChunk {
	logger := logutil.GetLogger(ctx)
	reader := text.NewReader(markdown)
	doc := goldmark.New().Parser().Parse(reader)
	source := reader.Source()

	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	category := ClassifyFile(name)

	var (
		chunks  []model.PolicyChunk
		parts   []string
		tokens  int
		heading string
		seq     int
	)
	flush := func() {
		if len(parts) == 0 {
			return
		}
		content := strings.Join(parts, "\n\n")
		if heading != "" {
			content = heading + "\n" + content
		}
		parts = nil
		tokens = 0
		if len([]rune(content)) < minChunkRunes {
			logger.Debug("skip short chunk", zap.String("file", name), zap.String("heading", heading))
			return
		}
		seq++
		chunks = append(chunks, model.PolicyChunk{
			ID:       fmt.Sprintf("%s_%03d", stem, seq),
			Category: category,
			Text:     content,
		})
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			txt := extractText(n, source)
			if n.Level <= 2 {
				flush()
				heading = txt
				continue
			}
			parts = append(parts, txt)
			tokens += estimateTokens(txt)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			var sb strings.Builder
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				sb.Write(line.Value(source))
			}
			code := strings.TrimSpace(sb.String())
			if code == "" {
				continue
			}
			if tokens+estimateTokens(code) > maxChunkTokens {
				flush()
			}
			parts = append(parts, code)
			tokens += estimateTokens(code)
		default:
			txt := extractText(n, source)
			if txt == "" {
				continue
			}
			t := estimateTokens(txt)
			if tokens+t > maxChunkTokens {
				flush()
			}
			parts = append(parts, txt)
			tokens += t
		}
	}
	flush()
	logger.Debug("markdown chunked", zap.String("file", name), zap.Int("chunks", len(chunks)))
	return chunks
}

// estimateTokens counts one token per non-ASCII rune plus one per word.
func estimateTokens(s string) int {
	count := 0
	for _, r := range s {
		if r > 127 {
			count++
		}
	}
	count += len(strings.Fields(s))
	if count == 0 && len(s) > 0 {
		return 1
	}
	return count
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		if node.Kind() == ast.KindListItem && sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
