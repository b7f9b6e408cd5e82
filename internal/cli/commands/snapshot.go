package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/conduit-lang/rtti/internal/cli/ui"
	"github.com/conduit-lang/rtti/internal/snapshot"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewSnapshotCommand creates the snapshot command group
func NewSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Store and retrieve streams in the configured backend",
		Long: `Store and retrieve streams in the backend selected by store.backend.

Snapshots record the root type, record count and a blake2b checksum that is
verified whenever a snapshot is loaded.`,
	}

	cmd.AddCommand(newSnapshotSaveCommand())
	cmd.AddCommand(newSnapshotLoadCommand())
	cmd.AddCommand(newSnapshotListCommand())
	cmd.AddCommand(newSnapshotDeleteCommand())
	return cmd
}

func newSnapshotSaveCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Store a stream as a new snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = args[0]
			}

			snap, err := snapshot.FromStream(data, name, env.serialOptions()...)
			if err != nil {
				return err
			}

			store, err := env.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Put(cmd.Context(), snap); err != nil {
				return err
			}

			if env.json() {
				return ui.WriteJSON(cmd.OutOrStdout(), snap)
			}
			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Saved snapshot %s (%s, %d records)", snap.ID, snap.RootType, snap.Records), noColor)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Snapshot name (default: the file name)")
	return cmd
}

func newSnapshotLoadCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "load <id>",
		Short: "Load, verify and decode a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid snapshot id %q: %w", args[0], err)
			}

			store, err := env.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			root, err := snapshot.Restore(snap, env.serialOptions()...)
			if err != nil {
				return err
			}

			if output != "" {
				if err := writeOutput(cmd.OutOrStdout(), output, snap.Payload); err != nil {
					return err
				}
				if output == "-" {
					return nil
				}
			}

			summary, err := summarize(root)
			if err != nil {
				return err
			}
			return renderSummary(cmd, env, summary)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Also write the stream to a file, or - for stdout")
	return cmd
}

func newSnapshotListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			store, err := env.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if env.json() {
				if list == nil {
					list = []*snapshot.Snapshot{}
				}
				return ui.WriteJSON(cmd.OutOrStdout(), list)
			}

			table := ui.NewTable(cmd.OutOrStdout(), noColor, "ID", "Name", "Root", "Records", "Created", "Checksum")
			for _, s := range list {
				table.AddRow(
					s.ID.String(),
					s.Name,
					s.RootType,
					strconv.Itoa(s.Records),
					s.CreatedAt.Local().Format(time.DateTime),
					s.Checksum[:min(12, len(s.Checksum))],
				)
			}
			table.Render()
			return nil
		},
	}
}

func newSnapshotDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete snapshots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}

			ids := make([]uuid.UUID, len(args))
			for i, arg := range args {
				if ids[i], err = uuid.Parse(arg); err != nil {
					return fmt.Errorf("invalid snapshot id %q: %w", arg, err)
				}
			}

			if !yes {
				confirmed := false
				prompt := &survey.Confirm{
					Message: fmt.Sprintf("Delete %d snapshot(s)?", len(ids)),
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			store, err := env.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), ids...); err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Deleted %d snapshot(s)", len(ids)), noColor)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
