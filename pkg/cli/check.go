package cli

import (
	"fmt"

	"github.com/feoweb/feo/pkg/cli/internal/output"
	"github.com/feoweb/feo/pkg/cli/internal/parse"
	"github.com/feoweb/feo/pkg/config"
	"github.com/feoweb/feo/pkg/feo"
	"github.com/feoweb/feo/pkg/template"
	"github.com/spf13/cobra"
)

const defaultCheckPattern = "**/*.html"

// CheckResult is the outcome of parsing one template.
type CheckResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func newCheckCommand(app *feo.App) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "check [patterns]",
		Short: "Parse templates and report syntax errors",
		Long: `Parse every template matching the patterns and report syntax errors.

Patterns are comma separated doublestar globs relative to the templates
directory. The default is "` + defaultCheckPattern + `".`,
		Example: `  check
  check "**/*.html,**/*.txt"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patterns := []string{defaultCheckPattern}
			if len(args) == 1 {
				patterns = parse.SplitTrim(args[0], ",")
			}

			set := templateSet(dir)
			if app != nil {
				set = app.Templates()
			}
			results, err := checkTemplates(set, patterns)
			if err != nil {
				return err
			}
			return printCheck(cmd, results)
		},
	}
	if app == nil {
		cmd.Flags().StringVarP(&dir, "dir", "d", config.DefaultTemplatesDir, "Templates directory")
	}
	return cmd
}

func checkTemplates(set *template.Set, patterns []string) ([]CheckResult, error) {
	seen := make(map[string]bool)
	var results []CheckResult
	for _, pattern := range patterns {
		names, err := set.Names(pattern)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true

			res := CheckResult{Name: name, OK: true}
			if _, err := set.Get(name); err != nil {
				res.OK = false
				res.Error = err.Error()
			}
			results = append(results, res)
		}
	}
	if len(results) == 0 {
		return nil, ErrNoTemplates
	}
	return results, nil
}

func printCheck(cmd *cobra.Command, results []CheckResult) error {
	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}

	if jsonOutput(cmd) {
		if err := output.JSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, r := range results {
			if r.OK {
				fmt.Fprintf(w, "ok    %s\n", r.Name)
			} else {
				fmt.Fprintf(w, "FAIL  %s\n      %s\n", r.Name, r.Error)
			}
		}
		fmt.Fprintf(w, "%d templates, %d with errors\n", len(results), failed)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrTemplateErrors, failed, len(results))
	}
	return nil
}
