package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fluxcore/internal/blob"
)

func newImportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy documents from the document store into the catalog",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "model KEY",
			Short: "Import a model document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				model, err := blob.LoadModel(cmd.Context(), a.docs, args[0])
				if err != nil {
					return err
				}
				if err := a.svc.ImportModel(cmd.Context(), model); err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.stdout, "imported model %s\n", model.ID)
				return err
			},
		},
		&cobra.Command{
			Use:   "solution MODEL_ID NAME KEY",
			Short: "Import a solution document under NAME",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				sol, err := blob.LoadSolution(cmd.Context(), a.docs, args[2])
				if err != nil {
					return err
				}
				if err := a.svc.ImportSolution(cmd.Context(), args[0], args[1], sol); err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.stdout, "imported solution %s/%s\n", args[0], args[1])
				return err
			},
		},
		&cobra.Command{
			Use:   "variability MODEL_ID NAME KEY",
			Short: "Import a flux variability document under NAME",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				res, err := blob.LoadVariability(cmd.Context(), a.docs, args[2])
				if err != nil {
					return err
				}
				if err := a.svc.ImportVariability(cmd.Context(), args[0], args[1], res); err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.stdout, "imported variability %s/%s\n", args[0], args[1])
				return err
			},
		},
	)
	return cmd
}
