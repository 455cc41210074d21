package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

func newBookCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage the book catalog",
	}

	var fields library.BookFields
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.lib.Books().Insert(cmd.Context(), fields)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added book ID %d\n", id)
			return nil
		},
	}
	add.Flags().StringVar(&fields.Title, "title", "", "book title (required)")
	add.Flags().StringVar(&fields.Author, "author", "", "book author (required)")
	add.Flags().StringVar(&fields.Genre, "genre", "", "genre")
	add.Flags().StringVar(&fields.PublicationDate, "published", "", "publication date, YYYY-MM-DD")
	add.Flags().StringVar(&fields.ISBN, "isbn", "", "ISBN")

	list := &cobra.Command{
		Use:   "list",
		Short: "List all books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.lib.Books().List(cmd.Context())
			if err != nil {
				return err
			}
			return a.showBooks(cmd, books)
		},
	}

	search := &cobra.Command{
		Use:   "search [term]",
		Short: "Find books whose title or author contains term, ignoring case",
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := a.lib.Books().Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return a.showBooks(cmd, books)
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			removed, err := a.lib.Books().DeleteByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			reportDelete(cmd, "book", id, removed)
			return nil
		},
	}

	cmd.AddCommand(add, list, search, del)
	return cmd
}

func (a *app) showBooks(cmd *cobra.Command, books []library.Book) error {
	if a.jsonOutput {
		return printJSON(cmd.OutOrStdout(), books)
	}
	printBooks(cmd.OutOrStdout(), books)
	return nil
}

func reportDelete(cmd *cobra.Command, kind string, id int64, removed bool) {
	if removed {
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s ID %d\n", kind, id)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "No %s with ID %d\n", kind, id)
}
