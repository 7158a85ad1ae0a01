// Package partialjson turns a truncated JSON object text into the longest
// syntactically valid object that can be recovered from it.
package partialjson

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

type objectState int

const (
	expectKey objectState = iota
	expectColon
	expectValue
	afterValue
)

type frame struct {
	array bool
	state objectState
}

// Complete closes s, a prefix of a JSON object, and returns the result.
// Unterminated string values are kept up to the last whole character.
// Unterminated keys, numbers and literals are dropped back to the last
// complete member. ok is false when no root object has been opened yet.
func Complete(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	for _, c := range s[:start] {
		if !isSpace(c) {
			return "", false
		}
	}

	var (
		stack    []frame
		safeCut  int
		safeTail string
		done     bool
	)

	markSafe := func(end int) {
		safeCut = end
		safeTail = closers(stack)
	}

	// valueEnded updates the parent container after a complete value.
	valueEnded := func(end int) {
		if len(stack) == 0 {
			done = true
			markSafe(end)
			return
		}
		top := &stack[len(stack)-1]
		if !top.array {
			top.state = afterValue
		}
		markSafe(end)
	}

	i := start
	for i < len(s) && !done {
		c := s[i]
		switch {
		case isSpace(rune(c)):
			i++

		case c == '{':
			stack = append(stack, frame{state: expectKey})
			i++
			if len(stack) == 1 {
				markSafe(i)
			}

		case c == '[':
			stack = append(stack, frame{array: true})
			i++

		case c == '}' || c == ']':
			if len(stack) == 0 {
				return finish(s, safeCut, safeTail)
			}
			stack = stack[:len(stack)-1]
			i++
			valueEnded(i)

		case c == ',':
			if len(stack) > 0 && !stack[len(stack)-1].array {
				stack[len(stack)-1].state = expectKey
			}
			i++

		case c == ':':
			if len(stack) > 0 && !stack[len(stack)-1].array {
				stack[len(stack)-1].state = expectValue
			}
			i++

		case c == '"':
			end, closed := scanString(s, i)
			isKey := len(stack) > 0 && !stack[len(stack)-1].array && stack[len(stack)-1].state == expectKey
			if !closed {
				if isKey {
					return finish(s, safeCut, safeTail)
				}
				body := trimIncomplete(s[i+1:])
				return s[:i+1] + body + `"` + closers(stack), true
			}
			i = end
			if isKey {
				stack[len(stack)-1].state = expectColon
			} else {
				valueEnded(i)
			}

		default:
			// numbers, true, false, null
			j := i
			for j < len(s) && !isDelimiter(s[j]) {
				j++
			}
			if j == len(s) {
				return finish(s, safeCut, safeTail)
			}
			i = j
			valueEnded(i)
		}
	}

	return finish(s, safeCut, safeTail)
}

func finish(s string, cut int, tail string) (string, bool) {
	if cut == 0 {
		return "", false
	}
	return s[:cut] + tail, true
}

func closers(stack []frame) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].array {
			b.WriteByte(']')
		} else {
			b.WriteByte('}')
		}
	}
	return b.String()
}

// scanString returns the index just past the closing quote of the string
// starting at s[start], or closed=false when the input ends first.
func scanString(s string, start int) (int, bool) {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i + 1, true
		}
	}
	return len(s), false
}

// trimIncomplete drops a dangling escape sequence, a partial UTF-8 rune or a
// high surrogate still waiting for its low half from the end of an
// unterminated string body.
func trimIncomplete(body string) string {
	for k := 0; k < utf8.UTFMax-1 && body != ""; k++ {
		r, size := utf8.DecodeLastRuneInString(body)
		if r != utf8.RuneError || size != 1 {
			break
		}
		body = body[:len(body)-1]
	}

	if idx := strings.LastIndexByte(body, '\\'); idx >= 0 && escapes(body, idx) {
		rest := body[idx+1:]
		switch {
		case rest == "":
			body = body[:idx]
		case rest[0] == 'u' && len(rest) < 5:
			body = body[:idx]
		}
	}

	// \uD83D alone decodes to U+FFFD and would be rewritten once \uDE00 lands.
	if n := len(body); n >= 6 && body[n-6] == '\\' && body[n-5] == 'u' && escapes(body, n-6) && highSurrogate(body[n-4:]) {
		body = body[:n-6]
	}
	return body
}

// escapes reports whether the backslash at idx starts an escape, i.e. the
// backslash run ending at idx has odd length.
func escapes(body string, idx int) bool {
	run := 0
	for k := idx; k >= 0 && body[k] == '\\'; k-- {
		run++
	}
	return run%2 == 1
}

func highSurrogate(hex string) bool {
	v, err := strconv.ParseUint(hex, 16, 16)
	return err == nil && v >= 0xD800 && v <= 0xDBFF
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDelimiter(c byte) bool {
	return c == ',' || c == '}' || c == ']' || c == ':' || isSpace(rune(c))
}
