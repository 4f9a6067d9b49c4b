// Package ddf reads and writes companion variable-definition files.
//
// A companion file is line oriented. Blank lines and lines starting with '#'
// are ignored; every other line declares one variable:
//
//	name "label" Type Width(n)
//
// The first token is the name and the second, when present, the label
// (double quotes allow spaces). Later tokens may carry a type keyword
// (Text, Double, Date, Boolean, Categorical, ...), a Width(n) token, or the
// combined form Type(n). Anything missing stays Unknown/0.
package ddf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/format"
	"github.com/arloliu/mddup/section"
)

const maxLineSize = 1 << 20

// LineError describes a skipped companion line.
type LineError struct {
	Line int // 1-based
	Text string
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e LineError) Unwrap() error { return e.Err }

// Definitions is the parsed content of a companion file.
type Definitions struct {
	Variables []section.Variable
	// Skipped lists malformed lines that were ignored.
	Skipped []LineError
}

// Names returns the variable names in declaration order.
func (d *Definitions) Names() []string {
	names := make([]string, len(d.Variables))
	for i := range d.Variables {
		names[i] = d.Variables[i].Name
	}

	return names
}

// ParseFile parses the companion file at path.
//
// Returns ErrFileNotFound when the file does not exist and ErrIO for any
// other open or read failure. Malformed lines never fail the parse.
func ParseFile(path string) (*Definitions, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrFileNotFound, err, "open companion file")
		}

		return nil, errs.Wrap(errs.ErrIO, err, "open companion file")
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads variable declarations from r.
func Parse(r io.Reader) (*Definitions, error) {
	defs := &Definitions{}
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		v, err := ParseLine(line)
		if err == nil {
			if _, dup := seen[v.Name]; dup {
				err = fmt.Errorf("%w: duplicate variable %q", errs.ErrParse, v.Name)
			}
		}
		if err != nil {
			defs.Skipped = append(defs.Skipped, LineError{Line: lineNo, Text: line, Err: err})
			continue
		}

		seen[v.Name] = struct{}{}
		v.Position = uint32(len(defs.Variables)) //nolint:gosec
		defs.Variables = append(defs.Variables, v)
	}

	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrIO, err, "read companion file")
	}

	return defs, nil
}

// ParseLine parses a single non-comment declaration line.
// Position is left zero; Parse assigns it.
func ParseLine(line string) (section.Variable, error) {
	tokens, err := tokenize(line)
	if err != nil {
		return section.Variable{}, err
	}
	if len(tokens) == 0 {
		return section.Variable{}, fmt.Errorf("%w: empty declaration", errs.ErrParse)
	}

	v := section.Variable{Name: tokens[0].text, Type: format.TypeUnknown}
	if v.Name == "" {
		return section.Variable{}, fmt.Errorf("%w: empty variable name", errs.ErrParse)
	}
	if len(tokens) > 1 {
		v.Label = tokens[1].text
	}

	typed := false
	for _, tok := range tokens[min(2, len(tokens)):] {
		if tok.quoted {
			continue
		}

		word, arg, hasArg := splitCall(tok.text)
		if strings.EqualFold(word, "width") && hasArg {
			w, err := parseWidth(arg)
			if err != nil {
				return section.Variable{}, err
			}
			v.Width = w

			continue
		}

		if typed {
			continue
		}
		if vt, ok := format.ParseVariableType(word); ok {
			v.Type = vt
			typed = true
			if hasArg {
				w, err := parseWidth(arg)
				if err != nil {
					return section.Variable{}, err
				}
				v.Width = w
			}
		}
	}

	return v, nil
}

type token struct {
	text   string
	quoted bool
}

// tokenize splits on whitespace, keeping double-quoted runs together.
func tokenize(line string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(line) {
		switch {
		case line[i] == ' ' || line[i] == '\t':
			i++
		case line[i] == '"':
			end := strings.IndexByte(line[i+1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated quote", errs.ErrParse)
			}
			tokens = append(tokens, token{text: line[i+1 : i+1+end], quoted: true})
			i += end + 2
		default:
			start := i
			for i < len(line) && line[i] != ' ' && line[i] != '\t' {
				i++
			}
			tokens = append(tokens, token{text: line[start:i]})
		}
	}

	return tokens, nil
}

// splitCall splits "Word(arg)" into its parts.
func splitCall(s string) (word, arg string, ok bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return s, "", false
	}

	return s[:open], s[open+1 : len(s)-1], true
}

func parseWidth(s string) (uint32, error) {
	w, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: width %q", errs.ErrParse, s)
	}

	return uint32(w), nil
}
