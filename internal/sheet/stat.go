package sheet

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/udisondev/charsheet/internal/fieldcodec"
	"github.com/udisondev/charsheet/internal/formula"
)

// StatFields is the persisted layout of a Stat.
var StatFields = fieldcodec.Schema{
	{Name: "name", Kind: fieldcodec.Plain},
	{Name: "original", Kind: fieldcodec.Plain},
	{Name: "text", Kind: fieldcodec.Plain},
	{Name: "bonuses", Kind: fieldcodec.Skip},
	{Name: "protected", Kind: fieldcodec.Bool},
	{Name: "updated", Kind: fieldcodec.Plain},
}

// Stat is a named value computed from a formula over other stats plus bonuses.
//
// A Stat is created detached; Character.AddStat resolves its formula and
// registers its dependency edges.
type Stat struct {
	name      string
	original  string
	text      string
	protected bool
	updated   time.Time

	expr     *formula.Expr
	attached bool

	// bonus type -> bonus names, in attach order
	bonuses map[string][]string

	uses   map[string]struct{}
	usedby map[string]struct{}
	normal int64
	value  int64
	root   bool
	leaf   bool
}

// NewStat returns a detached stat. An empty formula means "0". Names starting
// with an underscore are protected by default.
func NewStat(name, formulaText string) *Stat {
	if strings.TrimSpace(formulaText) == "" {
		formulaText = "0"
	}
	return &Stat{
		name:      name,
		original:  formulaText,
		protected: strings.HasPrefix(name, "_"),
		updated:   time.Now().UTC(),
		bonuses:   make(map[string][]string),
		uses:      make(map[string]struct{}),
		usedby:    make(map[string]struct{}),
		root:      true,
		leaf:      true,
	}
}

func (s *Stat) Name() string         { return s.name }
func (s *Stat) Formula() string      { return s.original }
func (s *Stat) Text() string         { return s.text }
func (s *Stat) Protected() bool      { return s.protected }
func (s *Stat) Updated() time.Time   { return s.updated }
func (s *Stat) Attached() bool       { return s.attached }
func (s *Stat) Normal() int64        { return s.normal }
func (s *Stat) Value() int64         { return s.value }
func (s *Stat) Root() bool           { return s.root }
func (s *Stat) Leaf() bool           { return s.leaf }
func (s *Stat) Uses() []string       { return sortedKeys(s.uses) }
func (s *Stat) UsedBy() []string     { return sortedKeys(s.usedby) }
func (s *Stat) SetText(text string)  { s.text = text }
func (s *Stat) SetProtected(p bool)  { s.protected = p }
func (s *Stat) BonusTypes() []string { return slices.Sorted(maps.Keys(s.bonuses)) }

// Resolved returns the formula with references resolved to canonical form.
// A detached stat returns its original text.
func (s *Stat) Resolved() string {
	if s.expr == nil {
		return s.original
	}
	return s.expr.String()
}

// SetFormula replaces the formula of a detached stat. Attached stats change
// formula through Character.SetFormula so the graph stays consistent.
func (s *Stat) SetFormula(text string) error {
	if s.attached {
		return newError(ErrAttached, s.name, "use Character.SetFormula on an attached stat")
	}
	if strings.TrimSpace(text) == "" {
		text = "0"
	}
	s.original = text
	s.updated = time.Now().UTC()
	return nil
}

// CopyOptions selects the fields Copy changes; nil pointers keep the original.
type CopyOptions struct {
	Name    *string
	Formula *string
	Text    *string
}

// Copy returns a new detached stat with the same fields, except those set in opts.
func (s *Stat) Copy(opts CopyOptions) *Stat {
	name, text, f := s.name, s.text, s.original
	if opts.Name != nil {
		name = *opts.Name
	}
	if opts.Formula != nil {
		f = *opts.Formula
	}
	if opts.Text != nil {
		text = *opts.Text
	}
	c := NewStat(name, f)
	c.text = text
	c.protected = s.protected
	c.updated = s.updated
	return c
}

// attr implements the @ references.
func (s *Stat) attr(name string) (int64, bool) {
	switch name {
	case "protected":
		return boolValue(s.protected), true
	case "root":
		return boolValue(s.root), true
	case "leaf":
		return boolValue(s.leaf), true
	}
	return 0, false
}

// readsAttrs reports whether the formula reads any @ reference.
func (s *Stat) readsAttrs() bool {
	return s.expr != nil && slices.ContainsFunc(s.expr.Refs(), func(r formula.Ref) bool {
		return r.Kind == formula.RefAttr
	})
}

func (s *Stat) addBonus(b *Bonus) {
	s.bonuses[b.typ] = append(s.bonuses[b.typ], b.name)
}

func (s *Stat) delBonus(b *Bonus) {
	names := slices.DeleteFunc(s.bonuses[b.typ], func(n string) bool { return n == b.name })
	if len(names) == 0 {
		delete(s.bonuses, b.typ)
		return
	}
	s.bonuses[b.typ] = names
}

// detach restores the pre-attachment state.
func (s *Stat) detach() {
	s.expr = nil
	s.attached = false
	s.uses = make(map[string]struct{})
	s.usedby = make(map[string]struct{})
	s.bonuses = make(map[string][]string)
	s.normal, s.value = 0, 0
	s.root, s.leaf = true, true
}

// Save returns the persisted tokens of s.
func (s *Stat) Save() []string {
	r := fieldcodec.NewRecord()
	r.Set("name", s.name)
	r.Set("original", s.original)
	r.Set("text", s.text)
	r.SetBool("protected", s.protected)
	r.Set("updated", s.updated.Format(time.RFC3339Nano))
	return StatFields.Encode(r)
}

// LoadStat rebuilds a detached stat from saved tokens.
func LoadStat(tokens []string) (*Stat, error) {
	r, err := StatFields.Decode(tokens)
	if err != nil {
		return nil, fmt.Errorf("decoding stat: %w", err)
	}
	s := NewStat(r.Get("name"), r.Get("original"))
	s.text = r.Get("text")
	s.protected = r.Bool("protected")
	if u := r.Get("updated"); u != "" {
		t, err := time.Parse(time.RFC3339Nano, u)
		if err != nil {
			return nil, fmt.Errorf("decoding stat %s updated: %w", s.name, err)
		}
		s.updated = t
	}
	return s, nil
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func sortedKeys(m map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(m))
}
