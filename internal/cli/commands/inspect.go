package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conduit-lang/rtti/internal/cli/ui"
	"github.com/conduit-lang/rtti/pkg/serial"
	"github.com/spf13/cobra"
)

// NewInspectCommand creates the inspect command
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the records and fields of a stream without decoding it",
		Long: `Show the records and fields of a stream without building any object.

Records whose type is not registered are still listed. Use - to read stdin.`,
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

			info, err := serial.Inspect(data, env.serialOptions()...)
			if err != nil {
				return err
			}
			if env.json() {
				return ui.WriteJSON(cmd.OutOrStdout(), info)
			}
			renderStream(cmd, info)
			return nil
		},
	}
}

func renderStream(cmd *cobra.Command, info *serial.StreamInfo) {
	out := cmd.OutOrStdout()

	kv := ui.NewKeyValueTable(out, noColor)
	kv.AddRow("Format", "v"+strconv.FormatUint(info.FormatVersion, 10))
	kv.AddRow("Records", strconv.Itoa(len(info.Records)))
	kv.Render()

	for _, rec := range info.Records {
		name := rec.TypeName
		if !rec.Known {
			name = fmt.Sprintf("unknown type 0x%08x", rec.TypeID)
		}
		fmt.Fprintln(out)
		ui.Header(out, fmt.Sprintf("#%d %s v%d", rec.Index, name, rec.Version), noColor)
		for _, base := range rec.Bases {
			bname := base.TypeName
			if bname == "" {
				bname = fmt.Sprintf("0x%08x", base.TypeID)
			}
			fmt.Fprintf(out, "  base %s v%d (%d fields)\n", bname, base.Version, base.Fields)
		}

		table := ui.NewTable(out, noColor, "ID", "Name", "Category", "Array", "Count", "Refs")
		for _, f := range rec.Fields {
			kind := f.Kind
			if f.Weak {
				kind += " (weak)"
			}
			refs := make([]string, len(f.Refs))
			for i, r := range f.Refs {
				if r < 0 {
					refs[i] = "nil"
				} else {
					refs[i] = "#" + strconv.Itoa(r)
				}
			}
			table.AddRow(
				strconv.Itoa(int(f.ID)),
				f.Name,
				kind,
				yesNo(f.Array),
				strconv.Itoa(f.Count),
				strings.Join(refs, " "),
			)
		}
		table.Render()
	}
}
