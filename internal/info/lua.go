package info

import (
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// The dist.info notation is a restricted subset of Lua: top-level
// `key = value` assignments (with `_G['key']` for non-identifier keys) or a
// single `return <table>` expression, values being quoted strings, long
// strings, numbers, booleans and table constructors. Nothing is evaluated;
// the parser below accepts exactly this subset and nothing else, so loaded
// text has no way to reach ambient state.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokPunct // one of = { } [ ] , ;
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

type lexer struct {
	src []byte
	off int
}

func (l *lexer) errorf(format string, args ...interface{}) error {
	line := 1 + strings.Count(string(l.src[:l.off]), "\n")
	return xerrors.Errorf("line %d: "+format, append([]interface{}{line}, args...)...)
}

func (l *lexer) skipSpace() {
	for l.off < len(l.src) {
		c := l.src[l.off]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			l.off++
			continue
		}
		// -- line comment
		if c == '-' && l.off+1 < len(l.src) && l.src[l.off+1] == '-' {
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.off++
			}
			continue
		}
		break
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.off
	if l.off >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}
	c := l.src[l.off]
	switch {
	case c == '[' && l.off+1 < len(l.src) && l.src[l.off+1] == '[':
		// long string, no escapes
		end := strings.Index(string(l.src[l.off+2:]), "]]")
		if end < 0 {
			return token{}, l.errorf("unterminated long string")
		}
		text := string(l.src[l.off+2 : l.off+2+end])
		l.off += 2 + end + 2
		return token{kind: tokString, text: text, pos: start}, nil
	case c == '"' || c == '\'':
		quote := c
		l.off++
		var sb strings.Builder
		for {
			if l.off >= len(l.src) {
				return token{}, l.errorf("unterminated string")
			}
			ch := l.src[l.off]
			if ch == quote {
				l.off++
				break
			}
			if ch == '\\' {
				l.off++
				if l.off >= len(l.src) {
					return token{}, l.errorf("unterminated escape")
				}
				switch e := l.src[l.off]; e {
				case 'n':
					sb.WriteByte('\n')
				case 't':
					sb.WriteByte('\t')
				case 'r':
					sb.WriteByte('\r')
				case '"', '\'', '\\':
					sb.WriteByte(e)
				default:
					return token{}, l.errorf("unsupported escape \\%c", e)
				}
				l.off++
				continue
			}
			sb.WriteByte(ch)
			l.off++
		}
		return token{kind: tokString, text: sb.String(), pos: start}, nil
	case c >= '0' && c <= '9', c == '-' && l.off+1 < len(l.src) && l.src[l.off+1] >= '0' && l.src[l.off+1] <= '9':
		end := l.off + 1
		for end < len(l.src) && (l.src[end] >= '0' && l.src[end] <= '9' || l.src[end] == '.' || l.src[end] == 'e' || l.src[end] == 'E' || l.src[end] == '+' || l.src[end] == '-') {
			end++
		}
		text := string(l.src[l.off:end])
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, l.errorf("bad number %q", text)
		}
		l.off = end
		return token{kind: tokNumber, text: text, num: n, pos: start}, nil
	case isIdentStart(c):
		end := l.off + 1
		for end < len(l.src) && isIdentPart(l.src[end]) {
			end++
		}
		text := string(l.src[l.off:end])
		l.off = end
		return token{kind: tokIdent, text: text, pos: start}, nil
	case c == '=' || c == '{' || c == '}' || c == '[' || c == ']' || c == ',' || c == ';':
		l.off++
		return token{kind: tokPunct, text: string(c), pos: start}, nil
	}
	return token{}, l.errorf("unexpected character %q", c)
}

type parser struct {
	lex  *lexer
	tok  token
	peek *token
}

func newParser(src []byte) (*parser, error) {
	p := &parser{lex: &lexer{src: src}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	if p.peek != nil {
		p.tok, p.peek = *p.peek, nil
		return nil
	}
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) peekTok() (token, error) {
	if p.peek == nil {
		tok, err := p.lex.next()
		if err != nil {
			return token{}, err
		}
		p.peek = &tok
	}
	return *p.peek, nil
}

func (p *parser) expectPunct(text string) error {
	if p.tok.kind != tokPunct || p.tok.text != text {
		return p.lex.errorf("expected %q, got %q", text, p.tok.text)
	}
	return p.advance()
}

// value parses the value starting at the current token and leaves the parser
// on the following token.
func (p *parser) value() (Value, error) {
	switch p.tok.kind {
	case tokString:
		s := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return s, nil
	case tokNumber:
		n := p.tok.num
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, nil
	case tokIdent:
		switch p.tok.text {
		case "true", "false":
			b := p.tok.text == "true"
			if err := p.advance(); err != nil {
				return nil, err
			}
			return b, nil
		}
		return nil, p.lex.errorf("unexpected identifier %q in value position", p.tok.text)
	case tokPunct:
		if p.tok.text == "{" {
			return p.table()
		}
	}
	return nil, p.lex.errorf("unexpected token %q in value position", p.tok.text)
}

// table parses a { ... } constructor. The opening brace is the current token.
func (p *parser) table() (*Table, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	t := &Table{}
	for {
		if p.tok.kind == tokPunct && p.tok.text == "}" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return t, nil
		}
		if p.tok.kind == tokEOF {
			return nil, p.lex.errorf("unterminated table")
		}
		switch {
		case p.tok.kind == tokPunct && p.tok.text == "[":
			// ["key"] = value — but [[...]] long strings were consumed by the
			// lexer already, so a lone '[' here is always a keyed field.
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tokString {
				return nil, p.lex.errorf("expected string key after '['")
			}
			key := p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			if err := p.expectPunct("="); err != nil {
				return nil, err
			}
			val, err := p.value()
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, KV{Key: key, Val: val})
		case p.tok.kind == tokIdent && p.tok.text != "true" && p.tok.text != "false":
			// ident = value
			key := p.tok.text
			next, err := p.peekTok()
			if err != nil {
				return nil, err
			}
			if next.kind == tokPunct && next.text == "=" {
				if err := p.advance(); err != nil { // onto '='
					return nil, err
				}
				if err := p.advance(); err != nil { // past '='
					return nil, err
				}
				val, err := p.value()
				if err != nil {
					return nil, err
				}
				t.Fields = append(t.Fields, KV{Key: key, Val: val})
			} else {
				return nil, p.lex.errorf("unexpected identifier %q in table", key)
			}
		default:
			val, err := p.value()
			if err != nil {
				return nil, err
			}
			t.List = append(t.List, val)
		}
		if p.tok.kind == tokPunct && (p.tok.text == "," || p.tok.text == ";") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
}

// assignments parses the top-level of a dist.info file: a sequence of
// `key = value` and `_G['key'] = value` bindings.
func (p *parser) assignments() ([]KV, error) {
	var out []KV
	for p.tok.kind != tokEOF {
		var key string
		switch {
		case p.tok.kind == tokIdent && p.tok.text == "_G":
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct("["); err != nil {
				return nil, err
			}
			if p.tok.kind != tokString {
				return nil, p.lex.errorf("expected string key in _G[...]")
			}
			key = p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
		case p.tok.kind == tokIdent:
			key = p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
		default:
			return nil, p.lex.errorf("expected assignment, got %q", p.tok.text)
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, KV{Key: key, Val: val})
	}
	return out, nil
}

func decodeDistInfo(t *Table) (*DistInfo, error) {
	d := &DistInfo{}
	str := func(v Value) string {
		s, _ := v.(string)
		return s
	}
	for _, kv := range t.Fields {
		switch kv.Key {
		case "name":
			d.Name = str(kv.Val)
		case "version":
			// Published manifests carry bare numeric versions (version = 2).
			if n, ok := kv.Val.(float64); ok {
				d.Version = strconv.FormatFloat(n, 'f', -1, 64)
			} else {
				d.Version = str(kv.Val)
			}
		case "arch":
			d.Arch = str(kv.Val)
		case "type":
			d.Type = str(kv.Val)
		case "desc":
			d.Desc = str(kv.Val)
		case "author":
			d.Author = str(kv.Val)
		case "maintainer":
			d.Maintainer = str(kv.Val)
		case "license":
			d.License = str(kv.Val)
		case "url":
			d.URL = str(kv.Val)
		case "message":
			d.Message = str(kv.Val)
		case "path":
			d.Path = str(kv.Val)
		case "depends", "conflicts", "provides":
			sub, ok := kv.Val.(*Table)
			if !ok {
				if s, isStr := kv.Val.(string); isStr {
					// A single bare constraint without braces is tolerated.
					sub = &Table{List: []Value{s}}
				} else {
					return nil, xerrors.Errorf("field %q is not a table", kv.Key)
				}
			}
			switch kv.Key {
			case "depends":
				d.Depends = sub
			case "conflicts":
				d.Conflicts = sub
			case "provides":
				d.Provides = sub
			}
		case "files":
			sub, ok := kv.Val.(*Table)
			if !ok {
				return nil, xerrors.New("field \"files\" is not a table")
			}
			d.Files = StringList(sub)
		}
		// unknown keys are ignored: authors own the schema, the manager
		// only reads what it understands
	}
	return d, nil
}

// ParseDistInfo loads one dist.info file.
func ParseDistInfo(src []byte) (*DistInfo, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	kvs, err := p.assignments()
	if err != nil {
		return nil, err
	}
	return decodeDistInfo(&Table{Fields: kvs})
}

// ParseManifest loads a dist.manifest file: a single `return { ... }`
// expression, tolerating (and expecting) the historical trailing `true`
// sentinel.
func ParseManifest(src []byte) ([]*DistInfo, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokIdent || p.tok.text != "return" {
		return nil, xerrors.New("manifest must start with 'return'")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	root, err := p.table()
	if err != nil {
		return nil, err
	}
	// the sentinel
	if p.tok.kind == tokIdent && p.tok.text == "true" {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.kind != tokEOF {
		return nil, xerrors.Errorf("trailing data %q after manifest", p.tok.text)
	}
	var out []*DistInfo
	for i, v := range root.List {
		t, ok := v.(*Table)
		if !ok {
			return nil, xerrors.Errorf("manifest entry %d is not a table", i)
		}
		d, err := decodeDistInfo(t)
		if err != nil {
			return nil, xerrors.Errorf("manifest entry %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}
