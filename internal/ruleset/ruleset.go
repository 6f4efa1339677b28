// Package ruleset loads game-system definitions: which bonus types exist,
// which stack, which are permanent, and the stats every new character starts with.
package ruleset

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/charsheet/internal/sheet"
)

//go:embed systems/*.yaml
var builtinFS embed.FS

var ErrUnknownSystem = errors.New("unknown game system")

// StatDef is a stat every character of the system starts with.
type StatDef struct {
	Name    string `yaml:"name"`
	Formula string `yaml:"formula"`
	Text    string `yaml:"text"`
}

// System is one game-system definition.
type System struct {
	Name       string    `yaml:"name"`
	BonusTypes []string  `yaml:"bonus_types"`
	Stacking   []string  `yaml:"stacking"`
	Permanent  []string  `yaml:"permanent"`
	Stats      []StatDef `yaml:"stats"`
}

// Parse decodes and validates a system definition.
func Parse(data []byte) (System, error) {
	var s System
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing system: %w", err)
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Load reads a system definition from a YAML file.
func Load(path string) (System, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return System{}, fmt.Errorf("reading system %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return s, fmt.Errorf("system %s: %w", path, err)
	}
	return s, nil
}

// Files lists the *.yaml and *.yml files of dir in name order.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading systems dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// Builtin returns an embedded system by name.
func Builtin(name string) (System, error) {
	data, err := builtinFS.ReadFile("systems/" + name + ".yaml")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return System{}, fmt.Errorf("%w: %s", ErrUnknownSystem, name)
		}
		return System{}, fmt.Errorf("reading builtin system %s: %w", name, err)
	}
	return Parse(data)
}

// Builtins returns the names of the embedded systems.
func Builtins() []string {
	entries, _ := builtinFS.ReadDir("systems")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	return names
}

func (s *System) normalize() {
	for _, list := range []*[]string{&s.BonusTypes, &s.Stacking, &s.Permanent} {
		for i, t := range *list {
			(*list)[i] = strings.ToLower(strings.TrimSpace(t))
		}
	}
}

// Validate checks names and that stacking and permanent types are known.
func (s System) Validate() error {
	if s.Name == "" {
		return errors.New("system name is required")
	}
	if len(s.BonusTypes) > 0 {
		for _, t := range slices.Concat(s.Stacking, s.Permanent) {
			if !slices.Contains(s.BonusTypes, t) {
				return fmt.Errorf("system %s: type %q is not in bonus_types", s.Name, t)
			}
		}
	}
	seen := make(map[string]bool, len(s.Stats))
	for _, st := range s.Stats {
		if st.Name == "" {
			return fmt.Errorf("system %s: stat without name", s.Name)
		}
		if seen[st.Name] {
			return fmt.Errorf("system %s: duplicate stat %s", s.Name, st.Name)
		}
		seen[st.Name] = true
	}
	return nil
}

// Policy returns the bonus policy of the system.
func (s System) Policy() sheet.Rules {
	return sheet.NewRules(s.BonusTypes, s.Stacking, s.Permanent)
}

// NewCharacter returns a character with every stat of the system attached in
// declaration order.
func (s System) NewCharacter(name string, opts ...sheet.Option) (*sheet.Character, error) {
	c := sheet.New(name, s.Policy(), opts...)
	for _, def := range s.Stats {
		st := sheet.NewStat(def.Name, def.Formula)
		st.SetText(def.Text)
		if err := c.AddStat(st); err != nil {
			return nil, fmt.Errorf("system %s: %w", s.Name, err)
		}
	}
	return c, nil
}
