package metrics

import (
	"strings"

	"github.com/aiai-labs/funcgraph/internal/parser"
)

// LinesOfCodeCalculator counts total lines, blank lines, comment lines, and code lines.
type LinesOfCodeCalculator struct{}

func (c *LinesOfCodeCalculator) Calculate(source string, language parser.Language) map[MetricType]int {
	lines := strings.Split(source, "\n")
	// Trim trailing empty line from final newline.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	total := len(lines)

	var blank, comment int
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			blank++
			continue
		}

		if inBlock {
			comment++
			if blockCommentEnd(language, trimmed, true) {
				inBlock = false
			}
			continue
		}

		if isBlockCommentStart(language, trimmed) {
			comment++
			if !blockCommentEnd(language, trimmed, false) {
				inBlock = true
			}
			continue
		}

		if isLineComment(language, trimmed) {
			comment++
		}
	}

	code := total - blank - comment
	if code < 0 {
		code = 0
	}

	return map[MetricType]int{
		LinesOfCode:  total,
		BlankLines:   blank,
		CommentLines: comment,
		CodeLines:    code,
	}
}

func isLineComment(lang parser.Language, trimmed string) bool {
	if lang == parser.LangPython {
		return strings.HasPrefix(trimmed, "#")
	}
	return strings.HasPrefix(trimmed, "//")
}

// isBlockCommentStart checks if a trimmed line opens a multi-line comment.
// Python docstrings count as comments.
func isBlockCommentStart(lang parser.Language, trimmed string) bool {
	if lang == parser.LangPython {
		return strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "'''")
	}
	return strings.HasPrefix(trimmed, "/*")
}

// blockCommentEnd checks if a trimmed line closes a multi-line comment.
// With insideBlock false it checks whether the opening line closes itself.
func blockCommentEnd(lang parser.Language, trimmed string, insideBlock bool) bool {
	if lang == parser.LangPython {
		closes := strings.HasSuffix(trimmed, `"""`) || strings.HasSuffix(trimmed, "'''")
		if insideBlock {
			return closes
		}
		return closes && len(trimmed) > 3
	}
	if insideBlock {
		return strings.Contains(trimmed, "*/")
	}
	return strings.HasSuffix(trimmed, "*/") && strings.Contains(trimmed, "/*")
}
