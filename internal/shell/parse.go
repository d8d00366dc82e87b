// Package shell turns a raw command string into a normalized pipeline view
// for the command rules: segment executables, normalized flags, pipe shape.
// Parsing uses mvdan.cc/sh's bash dialect with a lexical fallback, so matching
// stays robust against flag reordering and sudo wrapping without becoming a
// full static analyzer.
package shell

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Segment is one command within a pipeline.
type Segment struct {
	Raw        string
	Executable string
	Args       []string
	// Flags is normalized: short flags split per character, long flags
	// stored without dashes, "--flag=value" keyed by name.
	Flags map[string]string
}

// HasFlag reports whether the segment carries any of the given flag names
// (short form per character or long form).
func (s Segment) HasFlag(names ...string) bool {
	for _, n := range names {
		if _, ok := s.Flags[n]; ok {
			return true
		}
	}
	return false
}

// HasArg reports whether any positional argument equals one of the values.
func (s Segment) HasArg(values ...string) bool {
	for _, a := range s.Args {
		for _, v := range values {
			if a == v {
				return true
			}
		}
	}
	return false
}

// Pipeline is the parsed form of one command line.
type Pipeline struct {
	Segments []Segment
	// Operators[i] sits between Segments[i] and Segments[i+1]: "|", "&&",
	// "||" or ";".
	Operators []string
}

// PipedInto reports whether a segment whose executable is in sources is piped
// directly into a segment whose executable is in sinks.
func (p *Pipeline) PipedInto(sources, sinks []string) bool {
	for i, op := range p.Operators {
		if op != "|" || i+1 >= len(p.Segments) {
			continue
		}
		if contains(sources, p.Segments[i].Executable) && contains(sinks, p.Segments[i+1].Executable) {
			return true
		}
	}
	return false
}

// Each calls fn for every segment.
func (p *Pipeline) Each(fn func(Segment)) {
	for _, seg := range p.Segments {
		fn(seg)
	}
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// Parse converts a command line into a Pipeline. It never fails: input the
// bash parser rejects goes through a simple pipe-splitting fallback.
func Parse(command string) *Pipeline {
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return fallbackParse(command)
	}

	p := &Pipeline{}
	walkStmts(p, file.Stmts)
	if len(p.Segments) == 0 {
		return fallbackParse(command)
	}
	return p
}

// walkStmts walks a statement list, separating consecutive statements with
// ";" so Operators stays index-paired with Segments.
func walkStmts(p *Pipeline, stmts []*syntax.Stmt) {
	for _, s := range stmts {
		walkSep(p, s, ";")
	}
}

// walkSep appends op ahead of the statement's segments, and drops it again
// when the statement contributes none. An operator is only pushed when the
// slices are currently balanced, so nested lists cannot double-separate.
func walkSep(p *Pipeline, stmt *syntax.Stmt, op string) {
	pushed := false
	if len(p.Segments) > 0 && len(p.Operators) == len(p.Segments)-1 {
		p.Operators = append(p.Operators, op)
		pushed = true
	}
	before := len(p.Segments)
	walkStmt(p, stmt)
	if pushed && len(p.Segments) == before {
		p.Operators = p.Operators[:len(p.Operators)-1]
	}
}

func walkStmt(p *Pipeline, stmt *syntax.Stmt) {
	if stmt == nil || stmt.Cmd == nil {
		return
	}
	switch cmd := stmt.Cmd.(type) {
	case *syntax.CallExpr:
		p.Segments = append(p.Segments, callToSegment(cmd))
	case *syntax.BinaryCmd:
		walkStmt(p, cmd.X)
		walkSep(p, cmd.Y, binaryOp(cmd.Op))
	case *syntax.Subshell:
		walkStmts(p, cmd.Stmts)
	case *syntax.Block:
		walkStmts(p, cmd.Stmts)
	case *syntax.IfClause:
		walkIf(p, cmd)
	case *syntax.WhileClause:
		walkStmts(p, cmd.Cond)
		walkStmts(p, cmd.Do)
	case *syntax.ForClause:
		walkStmts(p, cmd.Do)
	case *syntax.CaseClause:
		for _, item := range cmd.Items {
			walkStmts(p, item.Stmts)
		}
	case *syntax.FuncDecl:
		walkStmt(p, cmd.Body)
	}
}

func walkIf(p *Pipeline, cmd *syntax.IfClause) {
	walkStmts(p, cmd.Cond)
	walkStmts(p, cmd.Then)
	if cmd.Else != nil {
		walkIf(p, cmd.Else)
	}
}

func binaryOp(op syntax.BinCmdOperator) string {
	switch op {
	case syntax.Pipe, syntax.PipeAll:
		return "|"
	case syntax.AndStmt:
		return "&&"
	case syntax.OrStmt:
		return "||"
	default:
		return ";"
	}
}

func callToSegment(call *syntax.CallExpr) Segment {
	words := make([]string, 0, len(call.Args))
	for _, w := range call.Args {
		words = append(words, wordText(w))
	}
	return buildSegment(words)
}

func wordText(w *syntax.Word) string {
	var sb strings.Builder
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				if lit, ok := inner.(*syntax.Lit); ok {
					sb.WriteString(lit.Value)
				}
			}
		case *syntax.ParamExp:
			sb.WriteString("$" + p.Param.Value)
		case *syntax.CmdSubst:
			sb.WriteString("$(…)")
		}
	}
	return sb.String()
}

// buildSegment normalizes one word list: sudo is transparent, short flags are
// split per character, long flags lose their dashes.
func buildSegment(words []string) Segment {
	seg := Segment{Flags: make(map[string]string), Raw: strings.Join(words, " ")}
	if len(words) == 0 {
		return seg
	}

	rest := words
	seg.Executable = baseName(rest[0])
	rest = rest[1:]
	if seg.Executable == "sudo" {
		for len(rest) > 0 && strings.HasPrefix(rest[0], "-") {
			rest = rest[1:]
		}
		if len(rest) > 0 {
			seg.Executable = baseName(rest[0])
			rest = rest[1:]
		}
	}

	for _, w := range rest {
		switch {
		case strings.HasPrefix(w, "--") && len(w) > 2:
			name := w[2:]
			if eq := strings.Index(name, "="); eq >= 0 {
				seg.Flags[name[:eq]] = name[eq+1:]
			} else {
				seg.Flags[name] = ""
			}
		case strings.HasPrefix(w, "-") && len(w) > 1:
			for _, ch := range w[1:] {
				seg.Flags[string(ch)] = ""
			}
		default:
			seg.Args = append(seg.Args, w)
		}
	}
	return seg
}

func baseName(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 && i+1 < len(s) {
		return s[i+1:]
	}
	return s
}

// fallbackParse handles input the bash parser rejects: split on pipes, then
// whitespace.
func fallbackParse(command string) *Pipeline {
	p := &Pipeline{}
	parts := strings.Split(command, "|")
	for i, part := range parts {
		words := strings.Fields(part)
		if len(words) == 0 {
			continue
		}
		p.Segments = append(p.Segments, buildSegment(words))
		if i < len(parts)-1 {
			p.Operators = append(p.Operators, "|")
		}
	}
	return p
}
