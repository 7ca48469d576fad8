package logengine

import "strings"

// Token is one positional field of a log line. Delim records how the field
// was enclosed: 0 for a bare field, '"' for a quoted one, '[' for a bracketed one.
// Token 为日志行中的一个位置字段，Delim 记录字段的包裹方式。
type Token struct {
	Value string
	Delim byte
}

// Quoted reports whether the field was enclosed in double quotes.
func (t Token) Quoted() bool { return t.Delim == '"' }

// Bracketed reports whether the field was enclosed in square brackets.
func (t Token) Bracketed() bool { return t.Delim == '[' }

// Tokenizer splits log lines into positional fields without regex.
// Quoted fields may contain spaces and \" escapes, bracketed fields may contain spaces.
// Tokenizer 以字节扫描方式切分日志行，支持引号和方括号字段。
type Tokenizer struct{}

// NewTokenizer creates a new Tokenizer instance.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// Tokenize splits s into fields, appending to buf to minimize allocation.
// An unterminated quote or bracket swallows the rest of the line.
// Tokenize 将 s 切分为字段，未闭合的引号或括号吞并行尾剩余部分。
func (t *Tokenizer) Tokenize(s string, buf []Token) []Token {
	tokens := buf[:0]
	i := 0
	for i < len(s) {
		c := s[i]
		if isSpace(c) {
			i++
			continue
		}
		switch c {
		case '"':
			val, next := scanQuoted(s, i+1)
			tokens = append(tokens, Token{Value: val, Delim: '"'})
			i = next
		case '[':
			end := strings.IndexByte(s[i+1:], ']')
			if end < 0 {
				tokens = append(tokens, Token{Value: s[i+1:], Delim: '['})
				return tokens
			}
			tokens = append(tokens, Token{Value: s[i+1 : i+1+end], Delim: '['})
			i = i + 1 + end + 1
		default:
			start := i
			for i < len(s) && !isSpace(s[i]) {
				i++
			}
			tokens = append(tokens, Token{Value: s[start:i]})
		}
	}
	return tokens
}

// scanQuoted reads a quoted field starting just after the opening quote and
// returns its unescaped value and the index after the closing quote.
func scanQuoted(s string, start int) (string, int) {
	escaped := false
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '\\':
			escaped = true
			i++
		case '"':
			if !escaped {
				return s[start:i], i + 1
			}
			return unescape(s[start:i]), i + 1
		}
	}
	if escaped {
		return unescape(s[start:]), len(s)
	}
	return s[start:], len(s)
}

// unescape resolves \" and \\ only. Other sequences such as \x16 are kept verbatim.
func unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}
