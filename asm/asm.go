// Package asm implements the line-oriented XR-32 assembler of spec §5:
// one mnemonic per line, labels, a two-pass label-resolving linker, and
// .equ constants whose values may reference compile-time $(...)
// starlark expressions, grounded on ucapp's assembler.go.
package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/notbonzo-com/XR-32/cpu"
)

// Program is the result of a successful Assemble: a sequence of encoded
// instruction words in source order.
type Program struct {
	Words []cpu.Word
}

// Binary lays the program out as a flat byte image, little-endian per
// word. Label addresses are counted from 0, so a program that uses a
// label as an absolute target (JMP, JAL, CALL) runs as written only when
// the image is loaded at address 0.
func (p *Program) Binary() []byte {
	out := make([]byte, len(p.Words)*8)
	for i, w := range p.Words {
		u := uint64(w)
		for b := 0; b < 8; b++ {
			out[i*8+b] = byte(u >> (8 * b))
		}
	}
	return out
}

// pendingLine is one not-yet-encoded source line, captured during pass
// one once its address is known.
type pendingLine struct {
	lineNo int
	addr   uint32
	mnem   string
	ops    []string
}

// Assembler holds the symbol tables accumulated across a single
// Assemble call: .equ constants and jump labels. Both are consulted by
// operand resolution; $(...) expressions see only the .equ constants.
type Assembler struct {
	Verbose bool

	Equate map[string]uint32
	Label  map[string]uint32
}

// New returns an assembler with empty symbol tables.
func New() *Assembler {
	return &Assembler{
		Equate: make(map[string]uint32),
		Label:  make(map[string]uint32),
	}
}

var parenExpr = regexp.MustCompile(`\$\([^()]*\)`)

// evalExpr runs a compile-time $(...) expression through starlark, with
// every known .equ constant available as a predefined integer.
func (a *Assembler) evalExpr(expr string) (uint32, error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, value := range a.Equate {
		pred[key] = starlark.MakeInt(int(value))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	rc, ok := dict["rc"]
	if !ok {
		return 0, ErrSyntax
	}
	n, ok := rc.(starlark.Int)
	if !ok {
		return 0, ErrSyntax
	}
	v, ok := n.Int64()
	if !ok {
		return 0, ErrSyntax
	}
	return uint32(v), nil
}

// expandExprs replaces every $(...) substring of line with its evaluated
// decimal value.
func (a *Assembler) expandExprs(line string) (string, error) {
	var evalErr error
	out := parenExpr.ReplaceAllStringFunc(line, func(m string) string {
		v, err := a.evalExpr(m[2 : len(m)-1])
		if err != nil {
			evalErr = err
			return m
		}
		return fmt.Sprintf("%d", v)
	})
	if evalErr != nil {
		return "", evalErr
	}
	return out, nil
}

// tokenize strips comments (';' to end of line), splits on whitespace
// and commas, and drops empty tokens.
func tokenize(line string) []string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.ReplaceAll(line, ",", " ")
	fields := strings.Fields(line)
	return fields
}

// Assemble runs the full two-pass assembly of a source listing: pass one
// walks every line to learn label addresses and .equ constants, pass
// two resolves operands (now that every label is known) and encodes.
func (a *Assembler) Assemble(source string) (*Program, error) {
	lines := strings.Split(source, "\n")
	pending := make([]pendingLine, 0, len(lines))
	addr := uint32(0)

	for i, raw := range lines {
		lineNo := i + 1
		expanded, err := a.expandExprs(raw)
		if err != nil {
			return nil, &ErrLine{Line: lineNo, Err: err}
		}

		toks := tokenize(expanded)
		for len(toks) > 0 && strings.HasSuffix(toks[0], ":") {
			label := strings.TrimSuffix(toks[0], ":")
			if _, dup := a.Label[label]; dup {
				return nil, &ErrLine{Line: lineNo, Err: ErrLabelDuplicate}
			}
			a.Label[label] = addr
			toks = toks[1:]
		}
		if len(toks) == 0 {
			continue
		}

		if toks[0] == ".equ" {
			if len(toks) != 3 {
				return nil, &ErrLine{Line: lineNo, Err: ErrSyntax}
			}
			if _, dup := a.Equate[toks[1]]; dup {
				return nil, &ErrLine{Line: lineNo, Err: ErrEquateDuplicate}
			}
			v, err := a.resolveValue(toks[2])
			if err != nil {
				return nil, &ErrLine{Line: lineNo, Err: err}
			}
			a.Equate[toks[1]] = v
			continue
		}

		pending = append(pending, pendingLine{
			lineNo: lineNo,
			addr:   addr,
			mnem:   strings.ToUpper(toks[0]),
			ops:    toks[1:],
		})
		addr += 8
	}

	prog := &Program{Words: make([]cpu.Word, 0, len(pending))}
	for _, pl := range pending {
		inst, err := a.encode(pl)
		if err != nil {
			return nil, &ErrLine{Line: pl.lineNo, Err: err}
		}
		word, err := cpu.Encode(inst)
		if err != nil {
			return nil, &ErrLine{Line: pl.lineNo, Err: err}
		}
		if a.Verbose {
			fmt.Printf("xr32asm: %#08x: %s\n", pl.addr, inst.String())
		}
		prog.Words = append(prog.Words, word)
	}
	return prog, nil
}

// AssembleLine assembles a single already-linked instruction line, with
// no label or .equ support, for REPL-style one-shot encoding.
func (a *Assembler) AssembleLine(line string) (cpu.Instruction, error) {
	toks := tokenize(line)
	if len(toks) == 0 {
		return cpu.Instruction{}, ErrSyntax
	}
	return a.encode(pendingLine{mnem: strings.ToUpper(toks[0]), ops: toks[1:]})
}

// resolveValue resolves a known .equ constant, a known label, or a
// decimal/hex literal, in that order. When pass two of Assemble runs,
// every label and equate has been collected, so a token that is neither
// a number nor a known name is reported as an undefined label, not a
// generic syntax error. A .equ value is resolved during pass one and so
// sees only the labels and equates defined above it.
func (a *Assembler) resolveValue(tok string) (uint32, error) {
	if v, ok := a.Equate[tok]; ok {
		return v, nil
	}
	if v, ok := a.Label[tok]; ok {
		return v, nil
	}
	n, err := strconv.ParseInt(tok, 0, 64)
	if err != nil {
		un, uerr := strconv.ParseUint(tok, 0, 32)
		if uerr != nil {
			return 0, fmt.Errorf("%w: %s", ErrLabelMissing, tok)
		}
		return uint32(un), nil
	}
	return uint32(n), nil
}

var regName = func() map[string]uint8 {
	m := make(map[string]uint8, 32)
	for i := 0; i < 32; i++ {
		m[fmt.Sprintf("r%d", i)] = uint8(i)
	}
	return m
}()

func parseReg(tok string) (uint8, bool) {
	r, ok := regName[strings.ToLower(tok)]
	return r, ok
}
