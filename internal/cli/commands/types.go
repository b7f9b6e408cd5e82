package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conduit-lang/rtti/internal/cli/ui"
	"github.com/conduit-lang/rtti/pkg/rtti"
	"github.com/spf13/cobra"
)

type typeInfo struct {
	ID         uint32      `json:"id"`
	Name       string      `json:"name"`
	Version    uint16      `json:"version"`
	Bases      []string    `json:"bases,omitempty"`
	Migrations []uint16    `json:"migrations_from,omitempty"`
	Fields     []fieldInfo `json:"fields"`
}

type fieldInfo struct {
	ID       uint16 `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Array    bool   `json:"array"`
	Weak     bool   `json:"weak,omitempty"`
	GoType   string `json:"go_type"`
	Declared string `json:"declared_on"`
}

func describeType(td *rtti.TypeDescriptor) typeInfo {
	info := typeInfo{ID: td.ID(), Name: td.Name(), Version: td.Version()}
	for _, b := range td.Bases() {
		info.Bases = append(info.Bases, b.Name())
	}
	for _, m := range td.Migrations() {
		info.Migrations = append(info.Migrations, m.From)
	}
	for _, f := range td.AllFields() {
		fi := fieldInfo{
			ID:       f.ID(),
			Name:     f.Name(),
			Category: f.Category().String(),
			Array:    f.IsArray(),
			Weak:     f.IsWeakRef(),
			GoType:   f.ElemType().String(),
		}
		if owner := f.Owner(); owner != nil {
			fi.Declared = owner.Name()
		}
		info.Fields = append(info.Fields, fi)
	}
	return info
}

// NewTypesCommand creates the types command
func NewTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types [name]",
		Short: "List registered types or show one type's fields",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			registry := rtti.Default()

			if len(args) == 0 {
				return listTypes(cmd, env, registry)
			}

			td, ok := registry.ByName(args[0])
			if !ok {
				var names []string
				for _, t := range registry.Types() {
					names = append(names, t.Name())
				}
				fmt.Fprint(cmd.ErrOrStderr(), ui.TypeNotFound(args[0], names).Format(noColor))
				return fmt.Errorf("type %q is not registered", args[0])
			}
			return showType(cmd, env, td)
		},
	}
}

func listTypes(cmd *cobra.Command, env *environment, registry *rtti.Registry) error {
	types := registry.Types()
	if env.json() {
		infos := make([]typeInfo, 0, len(types))
		for _, td := range types {
			infos = append(infos, describeType(td))
		}
		return ui.WriteJSON(cmd.OutOrStdout(), infos)
	}

	table := ui.NewTable(cmd.OutOrStdout(), noColor, "ID", "Name", "Version", "Fields", "Base")
	for _, td := range types {
		var bases []string
		for _, b := range td.Bases() {
			bases = append(bases, b.Name())
		}
		table.AddRow(
			fmt.Sprintf("0x%08x", td.ID()),
			td.Name(),
			strconv.Itoa(int(td.Version())),
			strconv.Itoa(td.NumFields()),
			strings.Join(bases, ", "),
		)
	}
	table.Render()
	return nil
}

func showType(cmd *cobra.Command, env *environment, td *rtti.TypeDescriptor) error {
	info := describeType(td)
	out := cmd.OutOrStdout()
	if env.json() {
		return ui.WriteJSON(out, info)
	}

	ui.Header(out, td.String(), noColor)
	kv := ui.NewKeyValueTable(out, noColor)
	kv.AddRow("ID", fmt.Sprintf("0x%08x", info.ID))
	kv.AddRow("Version", strconv.Itoa(int(info.Version)))
	if len(info.Bases) > 0 {
		kv.AddRow("Bases", strings.Join(info.Bases, ", "))
	}
	if len(info.Migrations) > 0 {
		from := make([]string, len(info.Migrations))
		for i, v := range info.Migrations {
			from[i] = "v" + strconv.Itoa(int(v))
		}
		kv.AddRow("Migrates", strings.Join(from, ", "))
	}
	kv.Render()
	fmt.Fprintln(out)

	table := ui.NewTable(out, noColor, "ID", "Name", "Category", "Array", "Weak", "Go type", "Declared on")
	for _, f := range info.Fields {
		table.AddRow(
			strconv.Itoa(int(f.ID)),
			f.Name,
			f.Category,
			yesNo(f.Array),
			yesNo(f.Weak),
			f.GoType,
			f.Declared,
		)
	}
	table.Render()
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
