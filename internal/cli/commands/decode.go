package commands

import (
	"sort"
	"strconv"

	"github.com/conduit-lang/rtti/internal/cli/ui"
	"github.com/conduit-lang/rtti/pkg/rtti"
	"github.com/conduit-lang/rtti/pkg/serial"
	"github.com/spf13/cobra"
)

// graphSummary counts the objects reachable from a decoded root
type graphSummary struct {
	Root    string         `json:"root"`
	Objects int            `json:"objects"`
	Values  int            `json:"values"`
	ByType  map[string]int `json:"by_type"`
}

// summarize walks references and inline values from root. Every object is
// counted once.
func summarize(root rtti.Reflectable) (*graphSummary, error) {
	s := &graphSummary{ByType: make(map[string]int)}
	if rtti.IsNil(root) {
		return s, nil
	}
	s.Root = root.RTTI().Name()

	seen := make(map[rtti.Reflectable]bool)
	var walk func(obj rtti.Reflectable, inline bool) error
	visit := func(v any, inline bool) error {
		r, ok := v.(rtti.Reflectable)
		if !ok || rtti.IsNil(r) {
			return nil
		}
		return walk(r, inline)
	}
	walk = func(obj rtti.Reflectable, inline bool) error {
		if seen[obj] {
			return nil
		}
		seen[obj] = true

		td := obj.RTTI()
		s.ByType[td.Name()]++
		if inline {
			s.Values++
		} else {
			s.Objects++
		}

		for _, f := range td.AllFields() {
			cat := f.Category()
			if cat != rtti.CategoryReference && cat != rtti.CategoryValue {
				continue
			}
			value := cat == rtti.CategoryValue
			if !f.IsArray() {
				v, err := f.Get(obj)
				if err != nil {
					return err
				}
				if err := visit(v, value); err != nil {
					return err
				}
				continue
			}
			n, err := f.ArraySize(obj)
			if err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				v, err := f.GetAt(obj, i)
				if err != nil {
					return err
				}
				if err := visit(v, value); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(root, false); err != nil {
		return nil, err
	}
	return s, nil
}

// NewDecodeCommand creates the decode command
func NewDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode a stream into objects and summarize the graph",
		Long: `Decode a stream with the registered types, running migrations and
post-deserialize hooks, and summarize the resulting object graph.

Use - to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			root, err := serial.Unmarshal(data, env.serialOptions()...)
			if err != nil {
				return err
			}
			summary, err := summarize(root)
			if err != nil {
				return err
			}
			return renderSummary(cmd, env, summary)
		},
	}
}

func renderSummary(cmd *cobra.Command, env *environment, s *graphSummary) error {
	out := cmd.OutOrStdout()
	if env.json() {
		return ui.WriteJSON(out, s)
	}

	kv := ui.NewKeyValueTable(out, noColor)
	kv.AddRow("Root", s.Root)
	kv.AddRow("Objects", strconv.Itoa(s.Objects))
	kv.AddRow("Values", strconv.Itoa(s.Values))
	kv.Render()

	names := make([]string, 0, len(s.ByType))
	for name := range s.ByType {
		names = append(names, name)
	}
	sort.Strings(names)

	table := ui.NewTable(out, noColor, "Type", "Count")
	for _, name := range names {
		table.AddRow(name, strconv.Itoa(s.ByType[name]))
	}
	table.Render()
	return nil
}
