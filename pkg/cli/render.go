package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/feoweb/feo/pkg/cli/internal/flags"
	"github.com/feoweb/feo/pkg/config"
	"github.com/feoweb/feo/pkg/feo"
	"github.com/feoweb/feo/pkg/template"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type renderOptions struct {
	dir      string
	data     flags.KeyValues
	dataFile string
	inline   bool
	output   string
}

// newRenderCommand renders through app when it is set, otherwise through a
// template set read from --dir.
func newRenderCommand(app *feo.App) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template",
		Long: `Render a template and print the result.

Values from --data-file (YAML or JSON) are merged with --data pairs, which
win. --data values are parsed as YAML scalars or lists, so n=3 is a number
and tags=[a,b] is a list.`,
		Example: `  render index.html --data title=Home --data users=[ann,bob]
  render --inline '{{ name | upper }}' --data name=feo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := loadData(opts.dataFile, opts.data)
			if err != nil {
				return err
			}

			out, err := render(app, opts, args[0], data)
			if err != nil {
				return err
			}

			if opts.output != "" {
				if err := os.WriteFile(opts.output, []byte(out), 0o644); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				return nil
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}

	f := cmd.Flags()
	if app == nil {
		f.StringVarP(&opts.dir, "dir", "d", config.DefaultTemplatesDir, "Templates directory")
	}
	f.Var(&opts.data, "data", "Template variable as key=value (repeatable)")
	f.StringVarP(&opts.dataFile, "data-file", "f", "", "YAML or JSON file with template variables")
	f.BoolVar(&opts.inline, "inline", false, "Treat the argument as template source instead of a name")
	f.StringVarP(&opts.output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func render(app *feo.App, opts *renderOptions, arg string, data map[string]any) (string, error) {
	switch {
	case app != nil && opts.inline:
		return app.Templates().RenderString(arg, data)
	case app != nil:
		return app.RenderTemplate(arg, data)
	}

	set := templateSet(opts.dir)
	if opts.inline {
		return set.RenderString(arg, data)
	}
	return set.Render(arg, data)
}

func templateSet(dir string) *template.Set {
	return template.NewSet(os.DirFS(dir))
}

// loadData merges the data file with the key=value pairs.
func loadData(path string, pairs flags.KeyValues) (map[string]any, error) {
	data := make(map[string]any)
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file: %w", err)
		}
		if strings.TrimSpace(string(raw)) != "" {
			if err := yaml.Unmarshal(raw, &data); err != nil {
				return nil, fmt.Errorf("failed to parse data file %s: %w", path, err)
			}
		}
	}
	for k, v := range pairs {
		data[k] = scalar(v)
	}
	return data, nil
}

// scalar decodes v as a YAML value, falling back to the raw string.
func scalar(v string) any {
	var out any
	if err := yaml.Unmarshal([]byte(v), &out); err != nil || out == nil {
		return v
	}
	switch out.(type) {
	case map[string]any:
		return v
	}
	return out
}
