// Package query parses and evaluates the subset of the flashcard search
// language used by clozekit's jobs.
//
// Supported terms, implicitly joined with AND and negated with a leading '-':
//
//	word              field content contains word (case-insensitive, * wildcard)
//	note:Name         note type name (glob)
//	tag:name          tag (glob, case-insensitive, matches child tags)
//	tag:none          note without tags
//	is:suspended      a card of the note is suspended
//	-is:suspended     a card of the note is not suspended
//	re:expr           a field matches the regular expression
//	nid:1,2           note IDs
//	mid:123           note type ID
//	Field:value       field equals value (* and _ wildcards)
//	Field:            field is empty
//	Field:re:expr     field matches the regular expression
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/clozekit/pkg/core"
)

var (
	// ErrSyntax reports a malformed query.
	ErrSyntax = errors.New("invalid search query")
	// ErrUnsupported reports a search term clozekit does not evaluate.
	ErrUnsupported = errors.New("unsupported search term")
)

// Keys of the host search language that do not apply to notes here.
var unsupportedKeys = map[string]bool{
	"deck": true, "card": true, "flag": true, "prop": true,
	"rated": true, "added": true, "edited": true, "introduced": true,
	"dupe": true, "preset": true, "cid": true,
}

type kind int

const (
	kindText kind = iota
	kindNote
	kindTag
	kindNoTags
	kindSuspended
	kindRegexp
	kindNoteIDs
	kindTypeID
	kindFieldEquals
	kindFieldEmpty
	kindFieldRegexp
)

type term struct {
	kind   kind
	negate bool
	field  string
	value  string
	re     *regexp.Regexp
	ids    map[core.NoteID]bool
	typeID core.NoteTypeID
}

// Query is a parsed search.
type Query struct {
	raw   string
	terms []term
}

// Parse parses a search query. The empty query matches every note.
func Parse(input string) (*Query, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	q := &Query{raw: input}
	for _, tok := range tokens {
		t, err := parseTerm(tok)
		if err != nil {
			return nil, err
		}
		q.terms = append(q.terms, t)
	}
	return q, nil
}

// MustParse is like Parse but panics on error.
func MustParse(input string) *Query {
	q, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return q
}

func (q *Query) String() string {
	return q.raw
}

func parseTerm(tok token) (term, error) {
	t := term{negate: tok.negate}
	text := tok.text

	key, value, found := strings.Cut(text, ":")
	if !found {
		t.kind = kindText
		re, err := wildcard(text, false)
		if err != nil {
			return t, err
		}
		t.re = re
		return t, nil
	}

	switch lower := strings.ToLower(key); {
	case lower == "note":
		t.kind = kindNote
		t.value = strings.ToLower(value)
	case lower == "tag":
		if strings.EqualFold(value, "none") {
			t.kind = kindNoTags
			break
		}
		t.kind = kindTag
		t.value = strings.ToLower(value)
	case lower == "is":
		if !strings.EqualFold(value, "suspended") {
			return t, fmt.Errorf("%w: is:%s", ErrUnsupported, value)
		}
		t.kind = kindSuspended
	case lower == "re":
		re, err := regexp.Compile("(?i)" + value)
		if err != nil {
			return t, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		t.kind = kindRegexp
		t.re = re
	case lower == "nid":
		t.kind = kindNoteIDs
		t.ids = make(map[core.NoteID]bool)
		for _, s := range strings.Split(value, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return t, fmt.Errorf("%w: nid:%s", ErrSyntax, value)
			}
			t.ids[core.NoteID(id)] = true
		}
	case lower == "mid":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return t, fmt.Errorf("%w: mid:%s", ErrSyntax, value)
		}
		t.kind = kindTypeID
		t.typeID = core.NoteTypeID(id)
	case unsupportedKeys[lower]:
		return t, fmt.Errorf("%w: %s", ErrUnsupported, text)
	case key == "":
		return t, fmt.Errorf("%w: missing field name in %q", ErrSyntax, text)
	default:
		t.field = key
		switch {
		case value == "":
			t.kind = kindFieldEmpty
		case strings.HasPrefix(strings.ToLower(value), "re:"):
			re, err := regexp.Compile("(?i)" + value[3:])
			if err != nil {
				return t, fmt.Errorf("%w: %v", ErrSyntax, err)
			}
			t.kind = kindFieldRegexp
			t.re = re
		default:
			re, err := wildcard(value, true)
			if err != nil {
				return t, err
			}
			t.kind = kindFieldEquals
			t.re = re
		}
	}
	return t, nil
}

// wildcard translates * (any run) and _ (one character) into an expression;
// anchored expressions must match the whole field.
func wildcard(s string, anchored bool) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?is)")
	if anchored {
		b.WriteString("^")
	}
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\' && i+1 < len(runes) && (runes[i+1] == '*' || runes[i+1] == '_'):
			b.WriteString(regexp.QuoteMeta(string(runes[i+1])))
			i++
		case r == '*':
			b.WriteString(".*")
		case r == '_' && anchored:
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if anchored {
		b.WriteString("$")
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return re, nil
}

// Match reports whether note n of type nt satisfies every term.
func (q *Query) Match(nt core.NoteType, n core.Note) bool {
	for _, t := range q.terms {
		if !t.match(nt, n) {
			return false
		}
	}
	return true
}

func (t term) match(nt core.NoteType, n core.Note) bool {
	// Suspension is a card property: the negation applies to each card.
	if t.kind == kindSuspended {
		if t.negate {
			return n.HasActiveCard()
		}
		return n.Suspended()
	}
	return t.eval(nt, n) != t.negate
}

func (t term) eval(nt core.NoteType, n core.Note) bool {
	switch t.kind {
	case kindText:
		for _, v := range n.Fields {
			if t.re.MatchString(v) {
				return true
			}
		}
		return false
	case kindNote:
		return globMatch(t.value, strings.ToLower(nt.Name))
	case kindTag:
		for _, tag := range n.Tags {
			tag = strings.ToLower(tag)
			if globMatch(t.value, tag) || strings.HasPrefix(tag, t.value+"::") {
				return true
			}
		}
		return false
	case kindNoTags:
		return len(n.Tags) == 0
	case kindRegexp:
		for _, v := range n.Fields {
			if t.re.MatchString(v) {
				return true
			}
		}
		return false
	case kindNoteIDs:
		return t.ids[n.ID]
	case kindTypeID:
		return n.TypeID == t.typeID
	case kindFieldEmpty, kindFieldEquals, kindFieldRegexp:
		v, ok := fieldValue(nt, n, t.field)
		if !ok {
			return false
		}
		if t.kind == kindFieldEmpty {
			return v == ""
		}
		return t.re.MatchString(v)
	}
	return false
}

// fieldValue looks a field up by case-insensitive name.
func fieldValue(nt core.NoteType, n core.Note, name string) (string, bool) {
	for _, f := range nt.Fields {
		if strings.EqualFold(f.Name, name) {
			if f.Ord < len(n.Fields) {
				return n.Fields[f.Ord], true
			}
			return "", true
		}
	}
	return "", false
}

func globMatch(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}
