package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

const (
	dateLayout   = "2006-01-02"
	loanDuration = 14 * 24 * time.Hour
)

func newCheckoutCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Check books out and in",
	}

	var checkoutDate, dueDate string
	out := &cobra.Command{
		Use:   "out <book-id> <borrower-id>",
		Short: "Check a book out to a borrower",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			borrowerID, err := parseID("borrower", args[1])
			if err != nil {
				return err
			}

			start, due := loanDates(time.Now(), checkoutDate, dueDate)
			id, err := a.lib.CheckOut(cmd.Context(), bookID, borrowerID, start, due)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Checkout %d: book %d to borrower %d, due %s\n", id, bookID, borrowerID, due)
			return nil
		},
	}
	out.Flags().StringVar(&checkoutDate, "date", "", "checkout date, YYYY-MM-DD (default today)")
	out.Flags().StringVar(&dueDate, "due", "", "due date, YYYY-MM-DD (default two weeks after checkout)")

	var returnDate string
	ret := &cobra.Command{
		Use:   "return <checkout-id>",
		Short: "Close an open checkout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("checkout", args[0])
			if err != nil {
				return err
			}
			date := returnDate
			if date == "" {
				date = time.Now().Format(dateLayout)
			}
			if err := a.lib.ReturnBook(cmd.Context(), id, date); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Checkout %d returned on %s\n", id, date)
			return nil
		},
	}
	ret.Flags().StringVar(&returnDate, "date", "", "return date, YYYY-MM-DD (default today)")

	remove := &cobra.Command{
		Use:   "remove <checkout-id>",
		Short: "Delete a checkout record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("checkout", args[0])
			if err != nil {
				return err
			}
			removed, err := a.lib.RemoveCheckout(cmd.Context(), id)
			if err != nil {
				return err
			}
			reportDelete(cmd, "checkout", id, removed)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all checkouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checkouts, err := a.lib.Checkouts().List(cmd.Context())
			if err != nil {
				return err
			}
			return a.showCheckouts(cmd, checkouts)
		},
	}

	var asOf string
	overdue := &cobra.Command{
		Use:   "overdue",
		Short: "List open checkouts past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date := asOf
			if date == "" {
				date = time.Now().Format(dateLayout)
			}
			checkouts, err := a.lib.Overdue(cmd.Context(), date)
			if err != nil {
				return err
			}
			return a.showCheckouts(cmd, checkouts)
		},
	}
	overdue.Flags().StringVar(&asOf, "as-of", "", "reference date, YYYY-MM-DD (default today)")

	cmd.AddCommand(out, ret, remove, list, overdue)
	return cmd
}

func (a *app) showCheckouts(cmd *cobra.Command, checkouts []library.Checkout) error {
	if a.jsonOutput {
		return printJSON(cmd.OutOrStdout(), checkouts)
	}
	printCheckouts(cmd.OutOrStdout(), checkouts)
	return nil
}

// loanDates fills in today and a two week loan for dates left empty.
func loanDates(now time.Time, checkoutDate, dueDate string) (string, string) {
	if checkoutDate == "" {
		checkoutDate = now.Format(dateLayout)
	}
	if dueDate == "" {
		start, err := time.Parse(dateLayout, checkoutDate)
		if err != nil {
			start = now
		}
		dueDate = start.Add(loanDuration).Format(dateLayout)
	}
	return checkoutDate, dueDate
}
