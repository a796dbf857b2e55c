package query

import (
	"fmt"
	"strings"
)

type token struct {
	text   string
	negate bool
}

// tokenize splits a query on unquoted whitespace. Double quotes group text
// anywhere inside a token (note:"Chinese Basic"); \" is a literal quote and
// every other backslash is kept so regular expressions survive.
func tokenize(input string) ([]token, error) {
	var (
		tokens  []token
		buf     strings.Builder
		inQuote bool
		started bool
		negate  bool
	)

	flush := func() {
		if started {
			tokens = append(tokens, token{text: buf.String(), negate: negate})
		}
		buf.Reset()
		started = false
		negate = false
	}

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\' && i+1 < len(runes) && runes[i+1] == '"':
			buf.WriteRune('"')
			started = true
			i++
		case r == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		case !inQuote && r == '-' && !started && !negate:
			negate = true
		default:
			buf.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote in %q", ErrSyntax, input)
	}
	if negate && !started {
		return nil, fmt.Errorf("%w: dangling '-' in %q", ErrSyntax, input)
	}
	flush()
	return tokens, nil
}

// Quote wraps a term in double quotes so it survives tokenizing intact.
func Quote(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `\"`) + `"`
}
