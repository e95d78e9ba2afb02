package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/CTAG07/philterz/pkg/templating"
	"github.com/spf13/cobra"
)

func tagsCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the Django tags and filters available to templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Only the registry is needed, so no template directory is loaded.
			tm, err := templating.NewTemplateManager(state.logger, state.config.Templates, nil, "")
			if err != nil {
				return err
			}
			reg := tm.Registry()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TAG\tKIND\tARGS\tFUNC")
			for _, info := range tagInfos(reg) {
				args := fmt.Sprint(info.Args)
				if info.Args < 0 {
					args = "any"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Name, info.Kind, args, info.Func)
			}
			fmt.Fprintln(tw)

			filters := reg.Filters()
			names := make([]string, 0, len(filters))
			for name := range filters {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Fprintln(tw, "FILTER\tFUNC")
			for _, name := range names {
				fmt.Fprintf(tw, "%s\t%s\n", name, filters[name])
			}
			return tw.Flush()
		},
	}
}
