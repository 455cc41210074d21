package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/term"

	"library-catalog/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultWidth = 120
	minWidth     = 60
)

// terminalWidth reports the width of w if it is a terminal, defaultWidth otherwise.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	if width < minWidth {
		return minWidth
	}
	return width
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func printBooks(w io.Writer, books []library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books in library.")
		return
	}

	// ID, Available and ISBN are fixed; title, author and genre share the rest 3:2:1.
	width := terminalWidth(w)
	flex := width - (5 + 10 + 14 + 6)
	titleW, authorW := flex/2, flex/3
	genreW := flex - titleW - authorW

	fmt.Fprintf(w, "%-5s %-*s %-*s %-*s %-14s %s\n", "ID", titleW, "Title", authorW, "Author", genreW, "Genre", "ISBN", "Available")
	fmt.Fprintln(w, strings.Repeat("-", width))
	for _, b := range books {
		fmt.Fprintf(w, "%-5d %-*s %-*s %-*s %-14s %s\n",
			b.ID,
			titleW, truncateString(b.Title, titleW),
			authorW, truncateString(b.Author, authorW),
			genreW, truncateString(b.Genre, genreW),
			truncateString(b.ISBN, 14),
			yesNo(b.Available))
	}
}

func printBorrowers(w io.Writer, borrowers []library.Borrower) {
	if len(borrowers) == 0 {
		fmt.Fprintln(w, "No borrowers registered.")
		return
	}

	width := terminalWidth(w)
	flex := width - (5 + 15 + 4)
	nameW, emailW := flex/3, flex/3
	addrW := flex - nameW - emailW

	fmt.Fprintf(w, "%-5s %-*s %-*s %-15s %s\n", "ID", nameW, "Name", emailW, "Email", "Phone", "Address")
	fmt.Fprintln(w, strings.Repeat("-", width))
	for _, b := range borrowers {
		fmt.Fprintf(w, "%-5d %-*s %-*s %-15s %s\n",
			b.ID,
			nameW, truncateString(b.Name, nameW),
			emailW, truncateString(b.Email, emailW),
			truncateString(b.Phone, 15),
			truncateString(b.Address, addrW))
	}
}

func printCheckouts(w io.Writer, checkouts []library.Checkout) {
	if len(checkouts) == 0 {
		fmt.Fprintln(w, "No checkouts.")
		return
	}

	fmt.Fprintf(w, "%-5s %-8s %-8s %-12s %-12s %s\n", "ID", "Book", "Borrower", "Checked out", "Due", "Returned")
	fmt.Fprintln(w, strings.Repeat("-", 62))
	for _, c := range checkouts {
		returned := "-"
		if c.ReturnDate != nil {
			returned = *c.ReturnDate
		}
		fmt.Fprintf(w, "%-5d %-8d %-8d %-12s %-12s %s\n",
			c.ID, c.BookID, c.BorrowerID, c.CheckoutDate, c.DueDate, returned)
	}
}

// truncateString shortens s to at most maxLength runes, marking the cut with "...".
func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(r[:maxLength])
	}
	return string(r[:maxLength-3]) + "..."
}
