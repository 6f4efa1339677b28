package sheet

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/udisondev/charsheet/internal/dice"
	"github.com/udisondev/charsheet/internal/fieldcodec"
)

// BonusFields is the persisted layout of a Bonus.
var BonusFields = fieldcodec.Schema{
	{Name: "name", Kind: fieldcodec.Plain},
	{Name: "value", Kind: fieldcodec.Plain},
	{Name: "stats", Kind: fieldcodec.List},
	{Name: "typ", Kind: fieldcodec.Plain},
	{Name: "condition", Kind: fieldcodec.Plain},
	{Name: "text", Kind: fieldcodec.Plain},
	{Name: "active", Kind: fieldcodec.Bool},
}

// DefaultBonusType is used when a bonus is created without a type.
const DefaultBonusType = "none"

// Bonus is a typed numeric modifier applied to one or more stats.
type Bonus struct {
	name      string
	amount    dice.Expr
	stats     []string
	typ       string
	condition string
	text      string
	active    bool
	last      bool

	// rolled is the resolved amount; fixed until Character.Reroll
	rolled   int64
	usedby   map[string]struct{}
	attached bool
}

// BonusOption configures NewBonus.
type BonusOption func(*bonusConfig)

type bonusConfig struct {
	typ       string
	condition string
	text      string
	active    *bool
}

func WithType(typ string) BonusOption       { return func(c *bonusConfig) { c.typ = typ } }
func WithCondition(cond string) BonusOption { return func(c *bonusConfig) { c.condition = cond } }
func WithText(text string) BonusOption      { return func(c *bonusConfig) { c.text = text } }

// WithActive sets the initial state explicitly, overriding the default of
// "inactive when conditional".
func WithActive(active bool) BonusOption {
	return func(c *bonusConfig) { c.active = &active }
}

// NewBonus returns a detached bonus. value is an integer or a dice expression.
func NewBonus(name, value string, stats []string, opts ...BonusOption) (*Bonus, error) {
	if name == "" {
		return nil, errors.New("bonus name is required")
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("bonus %s: at least one stat is required", name)
	}
	amount, err := dice.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("bonus %s value: %w", name, err)
	}

	cfg := bonusConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	typ := strings.ToLower(strings.TrimSpace(cfg.typ))
	if typ == "" {
		typ = DefaultBonusType
	}

	active := cfg.condition == ""
	if cfg.active != nil {
		active = *cfg.active
	}

	return &Bonus{
		name:      name,
		amount:    amount,
		stats:     uniq(stats),
		typ:       typ,
		condition: cfg.condition,
		text:      cfg.text,
		active:    active,
		last:      active,
		rolled:    amount.Min(),
		usedby:    make(map[string]struct{}),
	}, nil
}

func (b *Bonus) Name() string        { return b.name }
func (b *Bonus) Amount() string      { return b.amount.String() }
func (b *Bonus) Stats() []string     { return slices.Clone(b.stats) }
func (b *Bonus) Type() string        { return b.typ }
func (b *Bonus) Condition() string   { return b.condition }
func (b *Bonus) Text() string        { return b.text }
func (b *Bonus) Active() bool        { return b.active }
func (b *Bonus) Last() bool          { return b.last }
func (b *Bonus) Attached() bool      { return b.attached }
func (b *Bonus) UsedBy() []string    { return sortedKeys(b.usedby) }
func (b *Bonus) Conditional() bool   { return b.condition != "" }
func (b *Bonus) SetText(text string) { b.text = text }

// Value returns the resolved amount used for stacking.
func (b *Bonus) Value() int64 { return b.rolled }

// IsDice reports whether the amount is randomized.
func (b *Bonus) IsDice() bool { return !b.amount.Static() }

// locked reports whether the policy forbids switching this bonus off.
func (b *Bonus) locked(p Policy) bool {
	return !b.Conditional() && p.Permanent(b.typ)
}

func (b *Bonus) dropStat(name string) {
	b.stats = slices.DeleteFunc(b.stats, func(s string) bool { return s == name })
}

// Save returns the persisted tokens of b.
func (b *Bonus) Save() []string {
	r := fieldcodec.NewRecord()
	r.Set("name", b.name)
	r.Set("value", b.amount.String())
	r.SetList("stats", b.stats)
	r.Set("typ", b.typ)
	r.Set("condition", b.condition)
	r.Set("text", b.text)
	r.SetBool("active", b.active)
	return BonusFields.Encode(r)
}

// LoadBonus rebuilds a detached bonus from saved tokens.
func LoadBonus(tokens []string) (*Bonus, error) {
	r, err := BonusFields.Decode(tokens)
	if err != nil {
		return nil, fmt.Errorf("decoding bonus: %w", err)
	}
	return NewBonus(r.Get("name"), r.Get("value"), r.List("stats"),
		WithType(r.Get("typ")),
		WithCondition(r.Get("condition")),
		WithText(r.Get("text")),
		WithActive(r.Bool("active")),
	)
}

// uniq drops repeated names, keeping the first occurrence.
func uniq(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
