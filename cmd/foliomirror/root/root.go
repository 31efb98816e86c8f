package root

import (
	"github.com/flarebyte/folio-mirror/cmd/foliomirror/diagnose"
	"github.com/flarebyte/folio-mirror/cmd/foliomirror/run"
	"github.com/flarebyte/folio-mirror/cmd/foliomirror/version"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for foliomirror.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foliomirror",
		Short: "Mirror the attachments of an Odoo project, found by folio, into a local folder tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Show help when no subcommand is provided.
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Subcommands
	cmd.AddCommand(version.VersionCmd)
	cmd.AddCommand(run.Cmd)
	cmd.AddCommand(diagnose.Cmd)

	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}
