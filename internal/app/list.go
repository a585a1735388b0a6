package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rajubeparybd/gulp-compiler/internal/pathspec"
	"github.com/rajubeparybd/gulp-compiler/internal/task"
)

// PrintTasks writes the task table to w, followed by a warning for every
// built-in watch pattern that can never see its step's inputs.
func (a *App) PrintTasks(w io.Writer) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"NAME", "KIND", "MEMBERS", "DESCRIPTION"})

	for _, name := range a.registry.Names() {
		t, err := a.registry.Lookup(name)
		if err != nil {
			return err
		}
		var members []string
		if g, ok := t.(*task.Group); ok {
			for _, m := range g.Members() {
				members = append(members, m.Name())
			}
		}
		tw.AppendRow(table.Row{name, string(t.Kind()), strings.Join(members, ", "), a.registry.Description(name)})
	}

	if _, err := fmt.Fprintln(w, tw.Render()); err != nil {
		return err
	}
	for _, warning := range a.watchWarnings() {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warning); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) watchWarnings() []string {
	m := a.model
	pairs := []struct {
		name         string
		watch, input string
	}{
		{"css", m.Style.Watch, m.Style.Entry},
		{"js", m.Script.Watch, m.Script.Entry},
		{"images", m.Images.Watch, m.Images.Src},
	}

	var warnings []string
	for _, p := range pairs {
		watch, err1 := pathspec.Parse(p.watch)
		input, err2 := pathspec.Parse(p.input)
		if err1 != nil || err2 != nil {
			continue
		}
		if !pathspec.Overlaps(watch, input) {
			warnings = append(warnings, fmt.Sprintf("%s: watch pattern %q does not cover input %q", p.name, p.watch, p.input))
		}
	}
	return warnings
}
