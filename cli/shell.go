package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

func newShellCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive prompt over the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sh := &shell{
				ctx: cmd.Context(),
				lib: a.lib,
				sc:  bufio.NewScanner(cmd.InOrStdin()),
				out: cmd.OutOrStdout(),
			}
			sh.run()
			return nil
		},
	}
}

type shell struct {
	ctx context.Context
	lib *library.LibraryManager
	sc  *bufio.Scanner
	out io.Writer
}

func (s *shell) run() {
	fmt.Fprintln(s.out, "Welcome to the library catalog!")
	s.help()

	for {
		fmt.Fprint(s.out, "\n> ")
		if !s.sc.Scan() {
			break
		}

		switch strings.TrimSpace(s.sc.Text()) {
		case "":
		case "add book":
			s.addBook()
		case "add borrower":
			s.addBorrower()
		case "list books":
			s.listBooks()
		case "list borrowers":
			s.listBorrowers()
		case "search book":
			s.searchBooks()
		case "delete book":
			s.deleteRecord("book", s.lib.Books().DeleteByID)
		case "delete borrower":
			s.deleteRecord("borrower", s.lib.Borrowers().DeleteByID)
		case "checkout":
			s.checkout()
		case "return":
			s.returnBook()
		case "remove checkout":
			s.deleteRecord("checkout", s.lib.RemoveCheckout)
		case "list checkouts":
			s.listCheckouts()
		case "overdue":
			s.overdue()
		case "help":
			s.help()
		case "exit", "quit":
			fmt.Fprintln(s.out, "Goodbye!")
			return
		default:
			fmt.Fprintln(s.out, "Unknown command. Type 'help' for the list of commands.")
		}
	}
}

func (s *shell) help() {
	fmt.Fprintln(s.out, "Available commands:")
	fmt.Fprintln(s.out, "  Books: add book, list books, search book, delete book")
	fmt.Fprintln(s.out, "  Borrowers: add borrower, list borrowers, delete borrower")
	fmt.Fprintln(s.out, "  Circulation: checkout, return, remove checkout, list checkouts, overdue")
	fmt.Fprintln(s.out, "  System: help, exit")
}

// ask prints label and reads one trimmed line. ok is false once input is exhausted.
func (s *shell) ask(label string) (string, bool) {
	fmt.Fprint(s.out, label+": ")
	if !s.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.sc.Text()), true
}

func (s *shell) askID(kind string) (int64, bool) {
	raw, ok := s.ask(strings.ToUpper(kind[:1]) + kind[1:] + " ID")
	if !ok {
		return 0, false
	}
	id, err := parseID(kind, raw)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return 0, false
	}
	return id, true
}

// askAll reads the labels in order and stops at the first exhausted read.
func (s *shell) askAll(labels ...string) ([]string, bool) {
	answers := make([]string, 0, len(labels))
	for _, label := range labels {
		v, ok := s.ask(label)
		if !ok {
			return nil, false
		}
		answers = append(answers, v)
	}
	return answers, true
}

func (s *shell) addBook() {
	v, ok := s.askAll("Title", "Author", "Genre (optional)", "Publication date (optional)", "ISBN (optional)")
	if !ok {
		return
	}
	id, err := s.lib.Books().Insert(s.ctx, library.BookFields{
		Title:           v[0],
		Author:          v[1],
		Genre:           v[2],
		PublicationDate: v[3],
		ISBN:            v[4],
	})
	if err != nil {
		fmt.Fprintf(s.out, "Error adding book: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Added book ID %d\n", id)
}

func (s *shell) addBorrower() {
	v, ok := s.askAll("Name", "Email", "Phone (optional)", "Address (optional)")
	if !ok {
		return
	}
	id, err := s.lib.Borrowers().Insert(s.ctx, library.BorrowerFields{
		Name:    v[0],
		Email:   v[1],
		Phone:   v[2],
		Address: v[3],
	})
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Added borrower '%s' with ID %d\n", v[0], id)
}

func (s *shell) listBooks() {
	books, err := s.lib.Books().List(s.ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	printBooks(s.out, books)
}

func (s *shell) listBorrowers() {
	borrowers, err := s.lib.Borrowers().List(s.ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	printBorrowers(s.out, borrowers)
}

func (s *shell) searchBooks() {
	query, ok := s.ask("Query")
	if !ok {
		return
	}
	books, err := s.lib.Books().Search(s.ctx, query)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if len(books) == 0 {
		fmt.Fprintf(s.out, "No books found matching '%s'.\n", query)
		return
	}
	fmt.Fprintf(s.out, "Found %d book(s) matching '%s':\n", len(books), query)
	printBooks(s.out, books)
}

func (s *shell) deleteRecord(kind string, del func(context.Context, int64) (bool, error)) {
	id, ok := s.askID(kind)
	if !ok {
		return
	}
	removed, err := del(s.ctx, id)
	if err != nil {
		fmt.Fprintf(s.out, "Error deleting %s: %v\n", kind, err)
		return
	}
	if removed {
		fmt.Fprintf(s.out, "Deleted %s ID %d\n", kind, id)
		return
	}
	fmt.Fprintf(s.out, "No %s with ID %d\n", kind, id)
}

func (s *shell) checkout() {
	bookID, ok := s.askID("book")
	if !ok {
		return
	}
	borrowerID, ok := s.askID("borrower")
	if !ok {
		return
	}
	v, ok := s.askAll("Checkout date (Enter for today)", "Due date (Enter for two weeks)")
	if !ok {
		return
	}

	start, due := loanDates(time.Now(), v[0], v[1])
	id, err := s.lib.CheckOut(s.ctx, bookID, borrowerID, start, due)
	if err != nil {
		fmt.Fprintf(s.out, "Error checking out book: %v\n", err)
		return
	}

	fmt.Fprintf(s.out, "Book '%s' checked out to %s, due %s (checkout ID %d)\n",
		s.bookTitle(bookID), s.borrowerName(borrowerID), due, id)
}

// bookTitle falls back to the id when the book cannot be read.
func (s *shell) bookTitle(id int64) string {
	book, err := s.lib.Books().Get(s.ctx, id)
	if err != nil {
		return fmt.Sprintf("ID %d", id)
	}
	return book.Title
}

func (s *shell) borrowerName(id int64) string {
	borrower, err := s.lib.Borrowers().Get(s.ctx, id)
	if err != nil {
		return fmt.Sprintf("borrower ID %d", id)
	}
	return borrower.Name
}

func (s *shell) returnBook() {
	id, ok := s.askID("checkout")
	if !ok {
		return
	}
	date, ok := s.ask("Return date (Enter for today)")
	if !ok {
		return
	}
	if date == "" {
		date = time.Now().Format(dateLayout)
	}

	if err := s.lib.ReturnBook(s.ctx, id, date); err != nil {
		fmt.Fprintf(s.out, "Error returning book: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "Book is now available for checkout")
}

func (s *shell) listCheckouts() {
	checkouts, err := s.lib.Checkouts().List(s.ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	printCheckouts(s.out, checkouts)
}

func (s *shell) overdue() {
	asOf, ok := s.ask("As of (Enter for today)")
	if !ok {
		return
	}
	if asOf == "" {
		asOf = time.Now().Format(dateLayout)
	}
	checkouts, err := s.lib.Overdue(s.ctx, asOf)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	printCheckouts(s.out, checkouts)
}
