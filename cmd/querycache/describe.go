package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func describeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [data-access-id]",
		Short: "List data accesses or show the properties of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintf(out, "settings %s\n", s.engine.ID())
				for _, id := range s.engine.IDs() {
					fmt.Fprintln(out, id)
				}
				return nil
			}

			da, err := s.engine.Get(args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PROPERTY\tTYPE\tPLACEMENT")
			for _, p := range da.Interface() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.Type, p.Placement)
			}
			return tw.Flush()
		},
	}
}
