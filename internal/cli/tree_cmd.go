package cli

import (
	"fmt"

	"github.com/alexanderramin/choicetree/internal/cli/formatter"
	"github.com/alexanderramin/choicetree/internal/search"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newTreeCmd(app *App, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Manage and show tree versions",
	}

	cmd.AddCommand(
		newTreeListCmd(app),
		newTreeCreateCmd(app),
		newTreeShowCmd(app, opts),
	)

	return cmd
}

func newTreeListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tree versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := app.Trees.ListVersions(cmd.Context())
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tree versions found.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatVersionList(versions))
			return nil
		},
	}
}

func newTreeCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty tree version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.Trees.CreateVersion(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created tree %s [%s]\n", v.Name, formatter.ShortID(v.ID))
			return nil
		},
	}
}

func newTreeShowCmd(app *App, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the catalog tree; ◆ marks items that parent rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd.Context(), app, opts)
			if err != nil {
				return err
			}
			search.Clear(ws.Tree)
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Header(ws.Version.Name))
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatCatalog(ws.Tree))
			return nil
		},
	}
}

// filterValue adapts search.Filter to a pflag.Value so bad levels are
// rejected while flags are parsed.
type filterValue struct {
	filter search.Filter
}

var _ pflag.Value = (*filterValue)(nil)

func (f *filterValue) String() string { return string(f.filter) }

func (f *filterValue) Set(s string) error {
	parsed, err := search.ParseFilter(s)
	if err != nil {
		return err
	}
	f.filter = parsed
	return nil
}

func (f *filterValue) Type() string { return "level" }

func newSearchCmd(app *App, opts *rootOptions) *cobra.Command {
	filter := &filterValue{filter: search.FilterAll}

	cmd := &cobra.Command{
		Use:   "search [KEYWORD]",
		Short: "Search the catalog tree by label",
		Long: "Search the catalog tree by label. A hit at the filtered level shows\n" +
			"everything beneath it; ancestors of hits are opened.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd.Context(), app, opts)
			if err != nil {
				return err
			}
			keyword := ""
			if len(args) == 1 {
				keyword = args[0]
			}

			res := search.Run(ws.Tree, keyword, filter.filter)
			out := cmd.OutOrStdout()
			if !res.NoResults() {
				fmt.Fprint(out, formatter.FormatCatalog(ws.Tree))
			}
			fmt.Fprintln(out, formatter.FormatSearchSummary(res.Keyword, string(res.Filter), res.Count))
			return nil
		},
	}

	cmd.Flags().Var(filter, "filter", "Level to match: all, group, subgroup, point, choice")

	return cmd
}
