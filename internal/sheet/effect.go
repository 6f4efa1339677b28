package sheet

import (
	"errors"
	"fmt"
	"slices"

	"github.com/udisondev/charsheet/internal/duration"
	"github.com/udisondev/charsheet/internal/fieldcodec"
)

// EffectFields is the persisted layout of an Effect. The duration is stored as
// fixed round counts so loading never re-reads stats.
var EffectFields = fieldcodec.Schema{
	{Name: "name", Kind: fieldcodec.Plain},
	{Name: "bonuses", Kind: fieldcodec.List},
	{Name: "duration", Kind: fieldcodec.Plain},
	{Name: "rounds", Kind: fieldcodec.Plain},
	{Name: "text", Kind: fieldcodec.Plain},
	{Name: "active", Kind: fieldcodec.Plain},
	{Name: "last", Kind: fieldcodec.Skip},
}

// Activity is the tri-state switch of an Effect.
type Activity uint8

const (
	Auto      Activity = iota // follows the duration
	ForcedOn                  // on regardless of duration
	ForcedOff                 // off regardless of duration
)

func (a Activity) String() string {
	switch a {
	case ForcedOn:
		return "+"
	case ForcedOff:
		return "-"
	default:
		return "="
	}
}

// ParseActivity is the inverse of Activity.String.
func ParseActivity(s string) (Activity, error) {
	switch s {
	case "=", "":
		return Auto, nil
	case "+":
		return ForcedOn, nil
	case "-":
		return ForcedOff, nil
	}
	return Auto, fmt.Errorf("invalid effect state %q", s)
}

func activityOf(on bool) Activity {
	if on {
		return ForcedOn
	}
	return ForcedOff
}

// Effect groups bonuses under one duration and switches them together.
// Bonuses are referenced by name and may be shared between effects.
type Effect struct {
	name     string
	bonuses  []string
	duration *duration.Duration
	text     string
	active   Activity
	last     Activity
	attached bool
}

// NewEffect returns a detached effect. A nil duration never expires.
func NewEffect(name string, bonuses []string, d *duration.Duration, text string, active Activity) (*Effect, error) {
	if name == "" {
		return nil, errors.New("effect name is required")
	}
	if len(bonuses) == 0 {
		return nil, fmt.Errorf("effect %s: at least one bonus is required", name)
	}
	if d == nil {
		d = duration.Infinite()
	}
	return &Effect{
		name:     name,
		bonuses:  slices.Clone(bonuses),
		duration: d,
		text:     text,
		active:   active,
		last:     active,
	}, nil
}

func (e *Effect) Name() string                 { return e.name }
func (e *Effect) Bonuses() []string            { return slices.Clone(e.bonuses) }
func (e *Effect) Duration() *duration.Duration { return e.duration }
func (e *Effect) Text() string                 { return e.text }
func (e *Effect) State() Activity              { return e.active }
func (e *Effect) Last() Activity               { return e.last }
func (e *Effect) Attached() bool               { return e.attached }

// IsActive returns the explicit state when set, otherwise whether the
// duration is still running.
func (e *Effect) IsActive() bool {
	switch e.active {
	case ForcedOn:
		return true
	case ForcedOff:
		return false
	}
	return !e.duration.Expired()
}

func (e *Effect) dropBonus(name string) {
	e.bonuses = slices.DeleteFunc(e.bonuses, func(b string) bool { return b == name })
}

// Save returns the persisted tokens of e.
func (e *Effect) Save() []string {
	r := fieldcodec.NewRecord()
	r.Set("name", e.name)
	r.SetList("bonuses", e.bonuses)
	r.Set("duration", fmt.Sprint(e.duration.Original()))
	r.Set("rounds", fmt.Sprint(e.duration.Rounds()))
	r.Set("text", e.text)
	r.Set("active", e.active.String())
	return EffectFields.Encode(r)
}

// LoadEffect rebuilds a detached effect from saved tokens.
func LoadEffect(tokens []string) (*Effect, error) {
	r, err := EffectFields.Decode(tokens)
	if err != nil {
		return nil, fmt.Errorf("decoding effect: %w", err)
	}
	original, err := r.Int("duration")
	if err != nil {
		return nil, fmt.Errorf("decoding effect %s: %w", r.Get("name"), err)
	}
	rounds, err := r.Int("rounds")
	if err != nil {
		return nil, fmt.Errorf("decoding effect %s: %w", r.Get("name"), err)
	}
	active, err := ParseActivity(r.Get("active"))
	if err != nil {
		return nil, fmt.Errorf("decoding effect %s: %w", r.Get("name"), err)
	}
	return NewEffect(r.Get("name"), r.List("bonuses"), duration.Restore(original, rounds), r.Get("text"), active)
}
