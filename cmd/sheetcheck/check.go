package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/charsheet/internal/ruleset"
	"github.com/udisondev/charsheet/internal/sheet"
)

// source is one system to check: a file or a built-in.
type source struct {
	label string
	load  func() (ruleset.System, error)
}

// collectSources returns the files named on the command line, or else every
// file in dir followed by the built-in systems.
func collectSources(files []string, dir string) ([]source, error) {
	if len(files) == 0 && dir != "" {
		found, err := ruleset.Files(dir)
		if err != nil {
			return nil, err
		}
		files = found
	}

	var sources []source
	for _, f := range files {
		sources = append(sources, source{label: f, load: func() (ruleset.System, error) { return ruleset.Load(f) }})
	}
	if len(sources) > 0 {
		return sources, nil
	}
	for _, name := range ruleset.Builtins() {
		sources = append(sources, source{label: "builtin:" + name, load: func() (ruleset.System, error) { return ruleset.Builtin(name) }})
	}
	return sources, nil
}

type report struct {
	source    string
	system    ruleset.System
	character *sheet.Character
	roots     int
	leaves    int
	lines     []string
}

func (r *report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s (%s): %d stats, %d roots, %d leaves\n",
		r.system.Name, r.source, len(r.lines), r.roots, r.leaves)
	for _, l := range r.lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

// checkAll checks every source with at most workers running at once. Reports
// keep source order.
func checkAll(ctx context.Context, sources []source, workers int) ([]*report, error) {
	reports := make([]*report, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := check(src)
			if err != nil {
				return fmt.Errorf("checking %s: %w", src.label, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func check(src source) (*report, error) {
	sys, err := src.load()
	if err != nil {
		return nil, err
	}
	c, err := sys.NewCharacter(sys.Name)
	if err != nil {
		return nil, err
	}

	r := &report{source: src.label, system: sys, character: c}
	for _, name := range c.StatNames() {
		st, _ := c.Stat(name)
		if st.Root() {
			r.roots++
		}
		if st.Leaf() {
			r.leaves++
		}
		line, err := c.StatLine(name, false)
		if err != nil {
			return nil, err
		}
		r.lines = append(r.lines, line)
	}

	slog.Debug("system checked", "system", sys.Name, "source", src.label, "stats", len(r.lines))
	return r, nil
}
