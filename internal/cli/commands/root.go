package commands

import (
	"os"
	"runtime"

	"github.com/conduit-lang/rtti/internal/cli/ui"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

var (
	// Global flags
	configPath   string
	outputFormat string
	noColor      bool
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rtti",
		Short: "Inspect and round-trip reflectable object graphs",
		Long: `rtti works with object graph streams produced by the serial package.

It lists the registered types and their fields, writes the sample widget
scene, inspects and decodes streams, and keeps snapshots in the store
selected by rtti.yaml (memory, sqlite, postgres or redis).`,
		Example: `  # List registered types
  rtti types

  # Show the fields of one type
  rtti types Button

  # Write the sample scene and look inside it
  rtti encode -o scene.rtg
  rtti inspect scene.rtg --format json

  # Store a stream and list stored snapshots
  rtti snapshot save scene.rtg --name demo
  rtti snapshot list`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			_, err := ui.ParseFormat(outputFormat)
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./rtti.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: json or table")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewTypesCommand())
	rootCmd.AddCommand(NewEncodeCommand())
	rootCmd.AddCommand(NewInspectCommand())
	rootCmd.AddCommand(NewDecodeCommand())
	rootCmd.AddCommand(NewSnapshotCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			kv := ui.NewKeyValueTable(cmd.OutOrStdout(), noColor)
			kv.AddRow("rtti version", Version)
			kv.AddRow("Git commit", GitCommit)
			kv.AddRow("Build date", BuildDate)
			kv.AddRow("Go version", goVer)
			kv.Render()
		},
	}
}

// Execute runs the root command and reports failures as diagnostics
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		ui.WriteError(os.Stderr, err, noColor)
		return err
	}
	return nil
}
