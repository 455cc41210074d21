package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

func newBorrowerCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "borrower",
		Short: "Manage the borrower roster",
	}

	var fields library.BorrowerFields
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a borrower",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.lib.Borrowers().Insert(cmd.Context(), fields)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added borrower '%s' with ID %d\n", fields.Name, id)
			return nil
		},
	}
	add.Flags().StringVar(&fields.Name, "name", "", "full name (required)")
	add.Flags().StringVar(&fields.Email, "email", "", "email address, unique (required)")
	add.Flags().StringVar(&fields.Phone, "phone", "", "phone number")
	add.Flags().StringVar(&fields.Address, "address", "", "postal address")

	list := &cobra.Command{
		Use:   "list",
		Short: "List all borrowers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			borrowers, err := a.lib.Borrowers().List(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), borrowers)
			}
			printBorrowers(cmd.OutOrStdout(), borrowers)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a borrower",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("borrower", args[0])
			if err != nil {
				return err
			}
			removed, err := a.lib.Borrowers().DeleteByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			reportDelete(cmd, "borrower", id, removed)
			return nil
		},
	}

	cmd.AddCommand(add, list, del)
	return cmd
}
