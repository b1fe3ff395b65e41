package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand 运维命令入口，所有检查都走和线上相同的编排
func NewRootCommand(backend Backend) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pos-ops",
		Short: "PushOrShame operator tools",
		Long: `Operator tools for the daily accountability engine.

Every check runs through the same orchestrator as the scheduler and the app,
so re-running a command for a day that is already committed is harmless.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewCheckCommand(opts, backend))
	cmd.AddCommand(NewBatchCommand(opts, backend))
	cmd.AddCommand(NewTokenCommand(opts, backend))

	return cmd
}
