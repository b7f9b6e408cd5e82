package commands

import (
	"fmt"

	"github.com/conduit-lang/rtti/internal/cli/ui"
	"github.com/conduit-lang/rtti/internal/scene"
	"github.com/conduit-lang/rtti/pkg/serial"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewEncodeCommand creates the encode command
func NewEncodeCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Write the sample widget scene as a stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}

			data, err := serial.Marshal(scene.Demo(), env.serialOptions()...)
			if err != nil {
				return err
			}
			info, err := serial.Inspect(data)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), output, data); err != nil {
				return err
			}
			env.logger.Debug("scene encoded", zap.String("output", output), zap.Int("bytes", len(data)))

			if output == "-" {
				return nil
			}
			if env.json() {
				return ui.WriteJSON(cmd.OutOrStdout(), map[string]any{
					"file":    output,
					"bytes":   len(data),
					"records": len(info.Records),
				})
			}
			ui.WriteSuccess(cmd.OutOrStdout(),
				fmt.Sprintf("Wrote %s (%d records, %d bytes)", output, len(info.Records), len(data)), noColor)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "scene.rtg", "Output file, or - for stdout")
	return cmd
}
