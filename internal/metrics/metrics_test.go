package metrics

import (
	"testing"

	"github.com/aiai-labs/funcgraph/internal/graph"
	"github.com/aiai-labs/funcgraph/internal/parser"
)

func TestCyclomaticComplexityPython(t *testing.T) {
	src := `def classify(x):
    if x > 0 and x < 10:
        return "small"
    elif x >= 10:
        return "big"
    else:
        return "neg"
`
	calc := &CyclomaticComplexityCalculator{}
	m := calc.Calculate(src, parser.LangPython)
	// baseline 1 + if + and + elif + else = 5
	if m[CyclomaticComplexity] != 5 {
		t.Errorf("expected complexity 5, got %v", m[CyclomaticComplexity])
	}
}

func TestCyclomaticComplexityTypeScript(t *testing.T) {
	src := `function f(a, b) {
  if (a && b) { return 1; }
  for (const x of a) { if (x ?? b) continue; }
  return a || b;
}
`
	calc := &CyclomaticComplexityCalculator{}
	// baseline 1 + if*2 + && + for + ?? + || = 7
	for _, lang := range []parser.Language{parser.LangTypeScript, parser.LangJavaScript} {
		m := calc.Calculate(src, lang)
		if m[CyclomaticComplexity] != 7 {
			t.Errorf("%s: expected complexity 7, got %v", lang, m[CyclomaticComplexity])
		}
	}
}

func TestCyclomaticComplexityUnsupported(t *testing.T) {
	calc := &CyclomaticComplexityCalculator{}
	m := calc.Calculate("if x > 0 {\n}\n", parser.Language("go"))
	if m[CyclomaticComplexity] != 1 {
		t.Errorf("unsupported language should return baseline 1, got %v", m[CyclomaticComplexity])
	}
}

func TestLinesOfCodePython(t *testing.T) {
	src := `def hello():
    """Say hello.

    Twice.
    """
    # greet
    print("hello")

    print("hello")
`
	calc := &LinesOfCodeCalculator{}
	m := calc.Calculate(src, parser.LangPython)

	if m[LinesOfCode] != 9 {
		t.Errorf("expected 9 total lines, got %v", m[LinesOfCode])
	}
	if m[BlankLines] != 2 {
		t.Errorf("expected 2 blank lines, got %v", m[BlankLines])
	}
	// three docstring lines + # greet
	if m[CommentLines] != 4 {
		t.Errorf("expected 4 comment lines, got %v", m[CommentLines])
	}
	if m[CodeLines] != 3 {
		t.Errorf("expected 3 code lines, got %v", m[CodeLines])
	}
}

func TestLinesOfCodeTypeScript(t *testing.T) {
	src := `function f() {
  /**
   * Doc.
   */
  // line
  return 1; /* trailing */
}
`
	calc := &LinesOfCodeCalculator{}
	m := calc.Calculate(src, parser.LangTypeScript)

	if m[LinesOfCode] != 7 {
		t.Errorf("expected 7 total lines, got %v", m[LinesOfCode])
	}
	if m[BlankLines] != 0 {
		t.Errorf("expected 0 blank lines, got %v", m[BlankLines])
	}
	if m[CommentLines] != 4 {
		t.Errorf("expected 4 comment lines, got %v", m[CommentLines])
	}
	if m[CodeLines] != 3 {
		t.Errorf("expected 3 code lines, got %v", m[CodeLines])
	}
}

func TestTodoCounter(t *testing.T) {
	src := `# TODO: implement
# FIXME: broken
# hack around it
def f():
    pass  # todo later
`
	calc := &TodoCounter{}
	m := calc.Calculate(src, parser.LangPython)
	if m[TodoCount] != 2 {
		t.Errorf("expected 2 TODOs, got %v", m[TodoCount])
	}
	if m[FixmeCount] != 1 {
		t.Errorf("expected 1 FIXME, got %v", m[FixmeCount])
	}
	if m[HackCount] != 1 {
		t.Errorf("expected 1 HACK, got %v", m[HackCount])
	}
}

func TestCompositeCalculator(t *testing.T) {
	src := "def main():\n    # TODO: refactor\n    if True:\n        return\n"
	m := NewCompositeCalculator().Calculate(src, parser.LangPython)

	expectedKeys := []MetricType{
		CyclomaticComplexity,
		LinesOfCode, BlankLines, CommentLines, CodeLines,
		TodoCount, FixmeCount, HackCount,
	}
	for _, k := range expectedKeys {
		if _, ok := m[k]; !ok {
			t.Errorf("missing metric %s in composite result", k)
		}
	}
	if m[CyclomaticComplexity] != 2 {
		t.Errorf("expected complexity 2, got %v", m[CyclomaticComplexity])
	}
	if m[TodoCount] != 1 {
		t.Errorf("expected 1 TODO, got %v", m[TodoCount])
	}
}

func TestAnnotate(t *testing.T) {
	fn := &graph.Function{
		Name:       "main",
		FilePath:   "/src/app.py",
		LineStart:  1,
		LineEnd:    4,
		SourceCode: "def main():\n    if True:\n        return\n",
	}
	fn.SetMetadata("owner", "core")

	NewCompositeCalculator().Annotate(fn, parser.LangPython)

	if fn.Metadata["owner"] != "core" {
		t.Errorf("existing metadata overwritten: %v", fn.Metadata)
	}
	if fn.Metadata[string(CyclomaticComplexity)] != 2 {
		t.Errorf("cyclomatic_complexity = %v", fn.Metadata[string(CyclomaticComplexity)])
	}
	if fn.Metadata[string(LinesOfCode)] != 3 {
		t.Errorf("lines_of_code = %v", fn.Metadata[string(LinesOfCode)])
	}
}

func TestAnnotateSkipsEmptySource(t *testing.T) {
	fn := &graph.Function{Name: "stub", FilePath: "/src/app.py", LineStart: 1, LineEnd: 1}
	NewCompositeCalculator().Annotate(fn, parser.LangPython)
	if len(fn.Metadata) != 0 {
		t.Errorf("expected no metadata, got %v", fn.Metadata)
	}
}
