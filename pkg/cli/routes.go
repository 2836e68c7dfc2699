package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/feoweb/feo/pkg/cli/internal/output"
	"github.com/feoweb/feo/pkg/feo"
	"github.com/spf13/cobra"
)

func newRoutesCommand(app *feo.App) *cobra.Command {
	var sortBy string
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Show the routes of the application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			routes, err := sortRoutes(app.Routes(), sortBy)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return output.JSON(cmd.OutOrStdout(), routes)
			}
			if len(routes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No routes were registered.")
				return nil
			}

			w := output.Table(cmd.OutOrStdout())
			fmt.Fprintln(w, "Endpoint\tMethods\tRule")
			fmt.Fprintln(w, "--------\t-------\t----")
			for _, r := range routes {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Endpoint, strings.Join(r.Methods, ", "), r.Rule)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&sortBy, "sort", "s", "endpoint", "Sort by endpoint, methods, rule or match (registration order)")
	return cmd
}

func sortRoutes(routes []feo.Route, by string) ([]feo.Route, error) {
	var key func(feo.Route) string
	switch by {
	case "endpoint":
		key = func(r feo.Route) string { return r.Endpoint }
	case "methods":
		key = func(r feo.Route) string { return strings.Join(r.Methods, ",") }
	case "rule":
		key = func(r feo.Route) string { return r.Rule }
	case "match":
		return routes, nil
	default:
		return nil, fmt.Errorf("unknown sort key %q: use endpoint, methods, rule or match", by)
	}
	slices.SortStableFunc(routes, func(a, b feo.Route) int {
		return strings.Compare(key(a), key(b))
	})
	return routes, nil
}
