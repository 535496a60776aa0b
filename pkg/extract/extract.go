// Package extract pulls structured values out of raw model completions.
//
// An output Spec describes the shape the completion must contain: HTML-style
// tags, fenced markdown code blocks, sequences, and greedy repetitions.
// Specs like Seq{Star{Tag{"a"}}, CodeBlock{}, Tag{"a"}} are not supported
// because repetition is greedy and never backtracks.
package extract

import (
	"fmt"
	"strings"
)

// ParseError reports that text did not match an output spec at Pos.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s at %d", e.Msg, e.Pos) }

// IsParse reports whether err is a ParseError.
func IsParse(err error) bool {
	_, ok := err.(*ParseError)
	return ok
}

// Match is one successful spec match within text. Value is a string for Tag
// and CodeBlock, and a []any for Seq, Star, and Plus.
type Match struct {
	Start int
	End   int
	Value any
}

// Spec matches structured content in model output. The set of
// implementations is closed: Tag, CodeBlock, Seq, Star, Plus.
type Spec interface {
	match(text string, pos int) (Match, error)
}

// Tag matches an HTML-style <name>...</name> pair and yields the content
// between the tags.
type Tag struct {
	Name string
}

func (t Tag) match(text string, pos int) (Match, error) {
	open := "<" + t.Name + ">"
	close := "</" + t.Name + ">"

	i := strings.Index(text[pos:], open)
	if i < 0 {
		return Match{}, &ParseError{Pos: pos, Msg: "expected opening tag " + open}
	}
	start := pos + i
	contentStart := start + len(open)
	j := strings.Index(text[contentStart:], close)
	if j < 0 {
		return Match{}, &ParseError{Pos: contentStart, Msg: "expected closing tag " + close}
	}
	closePos := contentStart + j
	return Match{Start: start, End: closePos + len(close), Value: text[contentStart:closePos]}, nil
}

// CodeBlock matches a fenced markdown code block and yields the code. The
// info string after the opening fence is discarded. A closing fence at the
// very end of the text without a preceding newline is accepted.
type CodeBlock struct{}

func (CodeBlock) match(text string, pos int) (Match, error) {
	const fence = "```"
	i := strings.Index(text[pos:], fence)
	if i < 0 {
		return Match{}, &ParseError{Pos: pos, Msg: "expected markdown code fence ```"}
	}
	start := pos + i
	afterOpen := start + len(fence)
	nl := strings.Index(text[afterOpen:], "\n")
	if nl < 0 {
		return Match{}, &ParseError{Pos: afterOpen, Msg: "unterminated code block (no newline after opening fence)"}
	}
	codeStart := afterOpen + nl + 1

	var codeEnd, end int
	if k := strings.Index(text[codeStart:], "\n"+fence); k >= 0 {
		codeEnd = codeStart + k
		end = codeEnd + 1 + len(fence)
	} else if k := strings.Index(text[codeStart:], fence); k >= 0 {
		codeEnd = codeStart + k
		end = codeEnd + len(fence)
	} else {
		return Match{}, &ParseError{Pos: codeStart, Msg: "unterminated code block (missing closing fence ```)"}
	}
	return Match{Start: start, End: end, Value: text[codeStart:codeEnd]}, nil
}

// Seq matches each part in order, starting where the previous part ended,
// and yields the parts' values as a []any.
type Seq struct {
	Parts []Spec
}

func (s Seq) match(text string, pos int) (Match, error) {
	cur := pos
	values := make([]any, 0, len(s.Parts))
	start, end := pos, pos
	for i, part := range s.Parts {
		m, err := part.match(text, cur)
		if err != nil {
			return Match{}, err
		}
		if i == 0 {
			start = m.Start
		}
		values = append(values, m.Value)
		end = m.End
		cur = m.End
	}
	return Match{Start: start, End: end, Value: values}, nil
}

// matchRep greedily matches inner until it fails or stops advancing.
func matchRep(inner Spec, text string, pos, min int) (Match, error) {
	cur := pos
	var values []any
	start := -1
	lastEnd := pos
	for {
		m, err := inner.match(text, cur)
		if err != nil {
			break
		}
		if m.End <= cur {
			break
		}
		if start < 0 {
			start = m.Start
		}
		values = append(values, m.Value)
		lastEnd = m.End
		cur = m.End
	}
	if len(values) < min {
		return Match{}, &ParseError{Pos: pos,
			Msg: fmt.Sprintf("expected at least %d occurrence(s), got %d", min, len(values))}
	}
	if start < 0 {
		start = pos
	}
	if values == nil {
		values = []any{}
	}
	return Match{Start: start, End: lastEnd, Value: values}, nil
}

// Star matches inner zero or more times (greedy).
type Star struct {
	Inner Spec
}

func (s Star) match(text string, pos int) (Match, error) {
	return matchRep(s.Inner, text, pos, 0)
}

// Plus matches inner one or more times (greedy).
type Plus struct {
	Inner Spec
}

func (p Plus) match(text string, pos int) (Match, error) {
	return matchRep(p.Inner, text, pos, 1)
}

// Parse matches spec against text from the beginning and returns the
// matched value.
func Parse(spec Spec, text string) (any, error) {
	m, err := spec.match(text, 0)
	if err != nil {
		return nil, err
	}
	return m.Value, nil
}
