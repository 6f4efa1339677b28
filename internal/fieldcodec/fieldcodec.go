// Package fieldcodec implements the positional field contract used to persist
// sheet entities: each entity declares an ordered list of typed fields and is
// saved as one string token per non-skip field.
package fieldcodec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind controls how a field is converted to and from its token.
type Kind uint8

const (
	Plain Kind = iota // token used as is
	List              // comma-joined
	Bool              // "True" or anything else
	Skip              // never serialized, rebuilt as a default
)

// ErrShortRecord indicates fewer tokens than the schema requires.
var ErrShortRecord = errors.New("not enough fields")

// Field is one named, typed position in a schema.
type Field struct {
	Name string
	Kind Kind
}

// Schema is the ordered field list of an entity.
type Schema []Field

// Width returns the number of tokens a record of this schema occupies.
func (s Schema) Width() int {
	n := 0
	for _, f := range s {
		if f.Kind != Skip {
			n++
		}
	}
	return n
}

// Record holds decoded field values keyed by field name.
type Record struct {
	plain map[string]string
	lists map[string][]string
	bools map[string]bool
}

// NewRecord returns an empty record for building a save.
func NewRecord() *Record {
	return &Record{
		plain: make(map[string]string),
		lists: make(map[string][]string),
		bools: make(map[string]bool),
	}
}

// Decode consumes one token per non-skip field, in declared order. Extra
// tokens are an error so that misaligned lines do not load silently.
func (s Schema) Decode(tokens []string) (*Record, error) {
	if len(tokens) < s.Width() {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrShortRecord, s.Width(), len(tokens))
	}
	if len(tokens) > s.Width() {
		return nil, fmt.Errorf("too many fields: want %d, got %d", s.Width(), len(tokens))
	}

	r := NewRecord()
	i := 0
	for _, f := range s {
		switch f.Kind {
		case Skip:
			continue
		case List:
			r.lists[f.Name] = splitList(tokens[i])
		case Bool:
			r.bools[f.Name] = tokens[i] == "True"
		default:
			r.plain[f.Name] = tokens[i]
		}
		i++
	}
	return r, nil
}

// Encode produces the ordered tokens for r. Missing values encode as empty.
func (s Schema) Encode(r *Record) []string {
	out := make([]string, 0, s.Width())
	for _, f := range s {
		switch f.Kind {
		case Skip:
			continue
		case List:
			out = append(out, strings.Join(r.lists[f.Name], ","))
		case Bool:
			out = append(out, FormatBool(r.bools[f.Name]))
		default:
			out = append(out, r.plain[f.Name])
		}
	}
	return out
}

func splitList(tok string) []string {
	if tok == "" {
		return nil
	}
	return strings.Split(tok, ",")
}

// FormatBool renders b the way Bool fields are matched.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func (r *Record) Set(name, v string)              { r.plain[name] = v }
func (r *Record) SetList(name string, v []string) { r.lists[name] = v }
func (r *Record) SetBool(name string, v bool)     { r.bools[name] = v }

func (r *Record) Get(name string) string     { return r.plain[name] }
func (r *Record) List(name string) []string { return r.lists[name] }
func (r *Record) Bool(name string) bool     { return r.bools[name] }

// Int parses a plain field as a base-10 integer.
func (r *Record) Int(name string) (int64, error) {
	v, err := strconv.ParseInt(r.plain[name], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", name, err)
	}
	return v, nil
}
