package typescript

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aiai-labs/funcgraph/internal/graph"
	"github.com/aiai-labs/funcgraph/internal/parser"
)

const serviceSource = `import { readFile } from 'fs';
import { helper } from './helper';

/**
 * Loads the agent configuration.
 * @param path location of the file
 */
export function loadConfig(path: string): Config {
  // default location
  const DEFAULT_PATH = "config/agent.json";
  let retries = 3;
  const { name, model } = parse(path ?? DEFAULT_PATH);
  return helper(name, model);
}

function parse(p: string) {
  return JSON.parse(p);
}

export const buildPrompt = (user: string) => {
  const template = ` + "`You are an assistant for ${user}.`" + `;
  return template;
};

const shout = s => s.toUpperCase();

export default function () {
  const svc = new AgentService();
  svc.run();
  obj.method();
  loadConfig("settings.yaml");
}

class AgentService {
  private cache = new Map();

  handle = (input: string) => {
    return this.run(input);
  };

  run(input?: string) {
    return buildPrompt(input ?? "");
  }
}
`

func mustParse(t *testing.T, path, src string, session *parser.Session) (*TypeScriptParser, *parser.Unit) {
	t.Helper()
	p := NewParser()
	unit, err := p.ParseSource(context.Background(), path, []byte(src), session)
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	t.Cleanup(unit.Close)
	return p, unit
}

func findFunction(fns []*graph.Function, name string) *graph.Function {
	for _, fn := range fns {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

func callees(calls []parser.Call, caller string) map[string]bool {
	out := make(map[string]bool)
	for _, c := range calls {
		if c.Caller.Name == caller {
			out[c.Callee.Name] = true
		}
	}
	return out
}

func TestExtractFunctions(t *testing.T) {
	p, unit := mustParse(t, "/src/service.ts", serviceSource, parser.NewSession())
	fns, err := p.ExtractFunctions(unit)
	if err != nil {
		t.Fatalf("ExtractFunctions: %v", err)
	}

	want := map[string]string{
		"loadConfig":  "loadConfig(path: string)",
		"parse":       "parse(p: string)",
		"buildPrompt": "buildPrompt(user: string)",
		"shout":       "shout(s)",
		"default":     "default()",
		"handle":      "handle(input: string)",
		"run":         "run(input?: string)",
	}
	if len(fns) != len(want) {
		names := make([]string, len(fns))
		for i, fn := range fns {
			names[i] = fn.Name
		}
		t.Fatalf("expected %d functions, got %d: %v", len(want), len(fns), names)
	}
	for name, sig := range want {
		fn := findFunction(fns, name)
		if fn == nil {
			t.Errorf("function %s not extracted", name)
			continue
		}
		if fn.Signature != sig {
			t.Errorf("%s signature = %q, want %q", name, fn.Signature, sig)
		}
	}

	load := findFunction(fns, "loadConfig")
	if load.LineStart != 8 || load.LineEnd != 14 {
		t.Errorf("loadConfig span = %d-%d, want 8-14", load.LineStart, load.LineEnd)
	}
	build := findFunction(fns, "buildPrompt")
	if build.LineStart != 20 || build.LineEnd != 23 {
		t.Errorf("buildPrompt span = %d-%d, want 20-23", build.LineStart, build.LineEnd)
	}
	if unit.Session.Len() != len(want) {
		t.Errorf("session recorded %d functions, want %d", unit.Session.Len(), len(want))
	}
}

func TestIdentifyFunctionCalls(t *testing.T) {
	p, unit := mustParse(t, "/src/service.ts", serviceSource, parser.NewSession())
	fns, err := p.ExtractFunctions(unit)
	if err != nil {
		t.Fatalf("ExtractFunctions: %v", err)
	}
	calls, err := p.IdentifyFunctionCalls(unit, fns)
	if err != nil {
		t.Fatalf("IdentifyFunctionCalls: %v", err)
	}

	load := callees(calls, "loadConfig")
	if !load["parse"] || len(load) != 1 {
		t.Errorf("loadConfig callees = %v, want only parse", load)
	}

	def := callees(calls, "default")
	if !def["run"] || !def["loadConfig"] {
		t.Errorf("default callees = %v, want run and loadConfig", def)
	}
	// obj.method() has no function named method to bind to.
	if def["method"] {
		t.Error("obj.method() must not produce an edge")
	}

	if got := callees(calls, "handle"); !got["run"] {
		t.Errorf("handle callees = %v, want run via this.run()", got)
	}
	if got := callees(calls, "run"); !got["buildPrompt"] {
		t.Errorf("run callees = %v, want buildPrompt", got)
	}
}

func TestCrossFileCallsUseSession(t *testing.T) {
	session := parser.NewSession()
	p, helperUnit := mustParse(t, "/src/helper.ts", "export function helper(a: string, b: string) {\n  return a + b;\n}\n", session)
	if _, err := p.ExtractFunctions(helperUnit); err != nil {
		t.Fatalf("ExtractFunctions(helper): %v", err)
	}

	_, unit := mustParse(t, "/src/service.ts", serviceSource, session)
	fns, err := p.ExtractFunctions(unit)
	if err != nil {
		t.Fatalf("ExtractFunctions: %v", err)
	}
	calls, err := p.IdentifyFunctionCalls(unit, fns)
	if err != nil {
		t.Fatalf("IdentifyFunctionCalls: %v", err)
	}

	var found *parser.Call
	for i := range calls {
		if calls[i].Caller.Name == "loadConfig" && calls[i].Callee.Name == "helper" {
			found = &calls[i]
		}
	}
	if found == nil {
		t.Fatal("expected loadConfig -> helper through the session index")
	}
	if found.Callee.FilePath != "/src/helper.ts" {
		t.Errorf("callee file = %s", found.Callee.FilePath)
	}

	// A fresh session must not see helper.
	_, isolated := mustParse(t, "/src/service.ts", serviceSource, parser.NewSession())
	fns2, _ := p.ExtractFunctions(isolated)
	calls2, _ := p.IdentifyFunctionCalls(isolated, fns2)
	for _, c := range calls2 {
		if c.Callee.Name == "helper" {
			t.Error("session state leaked between runs")
		}
	}
}

func TestExtractFunctionContext(t *testing.T) {
	p, unit := mustParse(t, "/src/service.ts", serviceSource, parser.NewSession())
	fns, err := p.ExtractFunctions(unit)
	if err != nil {
		t.Fatalf("ExtractFunctions: %v", err)
	}

	load := findFunction(fns, "loadConfig")
	if err := p.ExtractFunctionContext(unit, load); err != nil {
		t.Fatalf("ExtractFunctionContext: %v", err)
	}
	if load.Docstring != "Loads the agent configuration.\n@param path location of the file" {
		t.Errorf("docstring = %q", load.Docstring)
	}
	if len(load.Comments) != 1 || load.Comments[0].Text != "default location" || load.Comments[0].Line != 9 {
		t.Errorf("comments = %+v", load.Comments)
	}
	if len(load.FileReferences) != 1 || load.FileReferences[0].Path != "config/agent.json" {
		t.Errorf("file references = %+v", load.FileReferences)
	}

	consts := map[string]string{}
	for _, c := range load.Constants {
		consts[c.Name] = c.Value
	}
	if consts["DEFAULT_PATH"] != `"config/agent.json"` {
		t.Errorf("constants = %+v", load.Constants)
	}

	vars := map[string]*string{}
	for _, v := range load.Variables {
		vars[v.Name] = v.Value
	}
	if v := vars["retries"]; v == nil || *v != "3" {
		t.Errorf("retries variable = %+v", load.Variables)
	}
	for _, name := range []string{"name", "model"} {
		if v, ok := vars[name]; !ok || v != nil {
			t.Errorf("destructured %s should be recorded without value: %+v", name, load.Variables)
		}
	}

	build := findFunction(fns, "buildPrompt")
	if err := p.ExtractFunctionContext(unit, build); err != nil {
		t.Fatalf("ExtractFunctionContext: %v", err)
	}
	if len(build.StringLiterals) != 1 || build.StringLiterals[0].Text != "You are an assistant for ${user}." {
		t.Errorf("template literal = %+v", build.StringLiterals)
	}
	for _, c := range build.Constants {
		if c.Name == "buildPrompt" {
			t.Error("the declaration binding the function must not be recorded as its own constant")
		}
	}
	if build.SourceCode == "" || build.Docstring != "" {
		t.Errorf("unexpected source/docstring: %q / %q", build.SourceCode, build.Docstring)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExtractImports(t *testing.T) {
	root := t.TempDir()
	entry := filepath.Join(root, "src", "index.ts")
	writeFile(t, entry, `import { a } from './a';
import b from "./lib";
import express from 'express';
export { c } from '../shared/c.js';
const data = require('./data.json');
async function lazy() {
  const mod = await import('./lazy');
  return mod;
}
import { missing } from './missing';
`)
	writeFile(t, filepath.Join(root, "src", "a.ts"), "")
	writeFile(t, filepath.Join(root, "src", "lib", "index.tsx"), "")
	writeFile(t, filepath.Join(root, "shared", "c.js"), "")
	writeFile(t, filepath.Join(root, "src", "data.json"), "{}")
	writeFile(t, filepath.Join(root, "src", "lazy.mjs"), "")

	p := NewParser()
	unit, err := p.ParseFile(context.Background(), entry, parser.NewSession())
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	defer unit.Close()

	imports, err := p.ExtractImports(unit)
	if err != nil {
		t.Fatalf("ExtractImports: %v", err)
	}
	want := []string{
		filepath.Join(root, "src", "a.ts"),
		filepath.Join(root, "src", "lib", "index.tsx"),
		filepath.Join(root, "shared", "c.js"),
		filepath.Join(root, "src", "data.json"),
		filepath.Join(root, "src", "lazy.mjs"),
	}
	if len(imports) != len(want) {
		t.Fatalf("imports = %v, want %v", imports, want)
	}
	for i := range want {
		if imports[i] != want[i] {
			t.Errorf("import %d = %s, want %s", i, imports[i], want[i])
		}
	}
}

func TestJSXUsesTSXGrammar(t *testing.T) {
	src := "export function App() {\n  return <div onClick={() => track()}>hi</div>;\n}\n\nfunction track() {}\n"
	p, unit := mustParse(t, "/src/App.jsx", src, parser.NewSession())
	if unit.Language != parser.LangJavaScript {
		t.Errorf("Language = %s, want javascript", unit.Language)
	}
	fns, err := p.ExtractFunctions(unit)
	if err != nil {
		t.Fatalf("ExtractFunctions: %v", err)
	}
	if len(fns) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(fns))
	}
	calls, _ := p.IdentifyFunctionCalls(unit, fns)
	if !callees(calls, "App")["track"] {
		t.Error("expected App -> track")
	}
}

func TestTypeAnnotationsAreNotStringLiterals(t *testing.T) {
	src := "function greet(name: string): string {\n  return name + \"!\";\n}\n"
	p, unit := mustParse(t, "/src/greet.ts", src, parser.NewSession())
	fns, err := p.ExtractFunctions(unit)
	if err != nil {
		t.Fatalf("ExtractFunctions: %v", err)
	}
	greet := findFunction(fns, "greet")
	if err := p.ExtractFunctionContext(unit, greet); err != nil {
		t.Fatalf("ExtractFunctionContext: %v", err)
	}
	if len(greet.StringLiterals) != 1 || greet.StringLiterals[0].Text != "!" {
		t.Errorf("string literals = %+v, want only \"!\"", greet.StringLiterals)
	}
}
