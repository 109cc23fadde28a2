package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog models or stored documents",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "models",
			Short: "List the model IDs in the catalog",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ids, err := a.svc.Models(cmd.Context())
				if err != nil {
					return err
				}
				for _, id := range ids {
					if _, err := fmt.Fprintln(a.stdout, id); err != nil {
						return err
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "documents [PREFIX]",
			Short: "List document keys, sizes and content types",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				prefix := ""
				if len(args) == 1 {
					prefix = args[0]
				}
				infos, err := a.docs.List(cmd.Context(), prefix)
				if err != nil {
					return err
				}
				for _, info := range infos {
					if _, err := fmt.Fprintf(a.stdout, "%s\t%d\t%s\n", info.Key, info.Size, info.ContentType); err != nil {
						return err
					}
				}
				return nil
			},
		},
	)
	return cmd
}
