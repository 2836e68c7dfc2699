package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/feoweb/feo/pkg/feo"
	"github.com/spf13/cobra"
)

// BuildInfo identifies a build. Empty fields are filled from the Go build
// information when available.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewAppCommand returns the root command for app: run, routes, render,
// check and version.
func NewAppCommand(app *feo.App, info BuildInfo) *cobra.Command {
	root := &cobra.Command{
		Use:   app.Name(),
		Short: fmt.Sprintf("Manage the %s application", app.Name()),
		Long: fmt.Sprintf(`Manage the %s application.

Use "run" to start the development server on http://127.0.0.1:5000.
Settings come from .feoenv/.env files, FEO_* environment variables,
a --config file and command flags, in increasing precedence.`, app.Name()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addJSONFlag(root)

	root.AddCommand(
		newRunCommand(app),
		newRoutesCommand(app),
		newRenderCommand(app),
		newCheckCommand(app),
		newVersionCommand(app.Name(), info),
	)
	return root
}

// NewToolCommand returns the root command of the standalone feo tool.
func NewToolCommand(info BuildInfo) *cobra.Command {
	root := &cobra.Command{
		Use:   "feo",
		Short: "feo works with template directories",
		Long: `feo renders and checks templates without an application.

Templates are read from --dir, "templates" by default.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addJSONFlag(root)

	root.AddCommand(
		newRenderCommand(nil),
		newCheckCommand(nil),
		newVersionCommand("feo", info),
	)
	return root
}

func addJSONFlag(root *cobra.Command) {
	root.PersistentFlags().Bool("json", false, "Output command results in JSON format")
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// Run executes the application command with the process arguments and
// returns the exit code.
func Run(app *feo.App, info BuildInfo) int {
	return execute(NewAppCommand(app, info), os.Args[1:], os.Stdout, os.Stderr)
}

// Main runs the feo tool and returns the exit code.
func Main() int {
	return execute(NewToolCommand(BuildInfo{}), os.Args[1:], os.Stdout, os.Stderr)
}

func execute(root *cobra.Command, args []string, stdout, stderr io.Writer) int {
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}
