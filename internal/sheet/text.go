package sheet

import (
	"fmt"
	"strings"

	"github.com/udisondev/charsheet/internal/fieldcodec"
)

// TextFields is the persisted layout of a Text.
var TextFields = fieldcodec.Schema{
	{Name: "name", Kind: fieldcodec.Plain},
	{Name: "text", Kind: fieldcodec.Plain},
}

const previewLen = 50

// Text is a named free-form note. Newlines are kept escaped as `\n` so the
// value always fits in one field.
type Text struct {
	name string
	text string
}

// NewText returns a note with text trimmed and newlines escaped.
func NewText(name, text string) *Text {
	t := &Text{name: name}
	t.Set(text)
	return t
}

func (t *Text) Name() string { return t.name }

// Raw returns the escaped text.
func (t *Text) Raw() string { return t.text }

// Set replaces the text.
func (t *Text) Set(text string) {
	t.text = strings.ReplaceAll(strings.TrimSpace(text), "\n", `\n`)
}

// Full returns the text with real newlines.
func (t *Text) Full() string {
	return strings.ReplaceAll(t.text, `\n`, "\n")
}

// String returns a one-line preview truncated to 50 characters.
func (t *Text) String() string {
	text := "[BLANK]"
	if t.text != "" {
		text = strings.ReplaceAll(t.text, `\n`, " | ")
	}
	if r := []rune(text); len(r) > previewLen {
		text = string(r[:previewLen]) + "..."
	}
	return t.name + ": " + text
}

// Save returns the persisted tokens of t.
func (t *Text) Save() []string {
	r := fieldcodec.NewRecord()
	r.Set("name", t.name)
	r.Set("text", t.text)
	return TextFields.Encode(r)
}

// LoadText rebuilds a note from saved tokens.
func LoadText(tokens []string) (*Text, error) {
	r, err := TextFields.Decode(tokens)
	if err != nil {
		return nil, fmt.Errorf("decoding text: %w", err)
	}
	return &Text{name: r.Get("name"), text: r.Get("text")}, nil
}
