package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-catalog/config"
	"library-catalog/library"
)

// run executes one libcat invocation against dbPath and returns its stdout.
func run(t *testing.T, dbPath, stdin string, args ...string) (string, error) {
	t.Helper()

	root, a := newRootCommand()

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--db", dbPath, "--log-level", "error"}, args...))

	err := executeAndClose(context.Background(), root, a)
	assert.Nil(t, a.lib, "database closed after the command")
	return out.String(), err
}

func testDB(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvStrictRefs, "")
	return filepath.Join(t.TempDir(), "library.db")
}

func TestBookCommands(t *testing.T) {
	db := testDB(t)

	out, err := run(t, db, "", "book", "add", "--title", "Clean Code", "--author", "Robert C. Martin", "--isbn", "9780132350884")
	require.NoError(t, err)
	assert.Equal(t, "Added book ID 1\n", out)

	_, err = run(t, db, "", "book", "add", "--title", "Dune", "--author", "Frank Herbert")
	require.NoError(t, err)

	out, err = run(t, db, "", "book", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Clean Code")
	assert.Contains(t, out, "Dune")

	out, err = run(t, db, "", "--json", "book", "search", "HERBERT")
	require.NoError(t, err)
	var books []library.Book
	require.NoError(t, json.Unmarshal([]byte(out), &books))
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)

	out, err = run(t, db, "", "book", "delete", "2")
	require.NoError(t, err)
	assert.Equal(t, "Deleted book ID 2\n", out)

	out, err = run(t, db, "", "book", "delete", "2")
	require.NoError(t, err)
	assert.Equal(t, "No book with ID 2\n", out)
}

func TestBookAddRequiresTitleAndAuthor(t *testing.T) {
	_, err := run(t, testDB(t), "", "book", "add", "--title", "  ")

	var verr *library.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"title", "author"}, verr.Fields)
}

func TestCheckoutCommands(t *testing.T) {
	db := testDB(t)

	_, err := run(t, db, "", "book", "add", "--title", "Dune", "--author", "Frank Herbert")
	require.NoError(t, err)
	_, err = run(t, db, "", "borrower", "add", "--name", "Jane Smith", "--email", "jane.smith@example.com")
	require.NoError(t, err)

	out, err := run(t, db, "", "checkout", "out", "1", "1", "--date", "2024-02-01")
	require.NoError(t, err)
	assert.Equal(t, "Checkout 1: book 1 to borrower 1, due 2024-02-15\n", out)

	_, err = run(t, db, "", "checkout", "out", "1", "1")
	require.ErrorIs(t, err, library.ErrBookUnavailable)

	out, err = run(t, db, "", "--json", "checkout", "overdue", "--as-of", "2024-03-01")
	require.NoError(t, err)
	var overdue []library.Checkout
	require.NoError(t, json.Unmarshal([]byte(out), &overdue))
	assert.Len(t, overdue, 1)

	out, err = run(t, db, "", "checkout", "return", "1", "--date", "2024-02-10")
	require.NoError(t, err)
	assert.Equal(t, "Checkout 1 returned on 2024-02-10\n", out)

	out, err = run(t, db, "", "checkout", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-02-10")

	out, err = run(t, db, "", "checkout", "remove", "1")
	require.NoError(t, err)
	assert.Equal(t, "Deleted checkout ID 1\n", out)
}

func TestInvalidIDArgument(t *testing.T) {
	_, err := run(t, testDB(t), "", "book", "delete", "abc")
	require.EqualError(t, err, "invalid book ID: abc")
}

func TestStrictRefsFlag(t *testing.T) {
	db := testDB(t)

	_, err := run(t, db, "", "book", "add", "--title", "Dune", "--author", "Frank Herbert")
	require.NoError(t, err)
	_, err = run(t, db, "", "borrower", "add", "--name", "Jane", "--email", "jane@example.com")
	require.NoError(t, err)
	_, err = run(t, db, "", "checkout", "out", "1", "1")
	require.NoError(t, err)

	_, err = run(t, db, "", "--strict-refs", "book", "delete", "1")
	require.ErrorIs(t, err, library.ErrReference)

	out, err := run(t, db, "", "book", "delete", "1")
	require.NoError(t, err)
	assert.Equal(t, "Deleted book ID 1\n", out)
}

func TestShellSession(t *testing.T) {
	input := strings.Join([]string{
		"add book", "The Hobbit", "J.R.R. Tolkien", "Fantasy", "1937-09-21", "",
		"add borrower", "Bilbo", "bilbo@example.com", "", "",
		"checkout", "1", "1", "2024-02-01", "2024-02-15",
		"search book", "tolkien",
		"return", "1", "2024-02-10",
		"bogus",
		"exit",
	}, "\n") + "\n"

	out, err := run(t, testDB(t), input, "shell")
	require.NoError(t, err)

	assert.Contains(t, out, "Added book ID 1")
	assert.Contains(t, out, "Added borrower 'Bilbo' with ID 1")
	assert.Contains(t, out, "Book 'The Hobbit' checked out to Bilbo, due 2024-02-15 (checkout ID 1)")
	assert.Contains(t, out, "Found 1 book(s) matching 'tolkien'")
	assert.Contains(t, out, "Book is now available for checkout")
	assert.Contains(t, out, "Unknown command.")
	assert.True(t, strings.HasSuffix(out, "Goodbye!\n"))
}

func TestShellStopsAtEndOfInput(t *testing.T) {
	out, err := run(t, testDB(t), "add book\nOnly a title\n", "shell")
	require.NoError(t, err)
	assert.NotContains(t, out, "Added book")
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "short", max: 10, want: "short"},
		{in: "exactly10!", max: 10, want: "exactly10!"},
		{in: "The Lord of the Rings", max: 10, want: "The Lor..."},
		{in: "Ærøskøbing Bibliotek", max: 8, want: "Ærøsk..."},
		{in: "abcdef", max: 2, want: "ab"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncateString(tt.in, tt.max), tt.in)
	}
}

func TestLoanDates(t *testing.T) {
	start, due := loanDates(mustDate(t, "2024-01-20"), "", "")
	assert.Equal(t, "2024-01-20", start)
	assert.Equal(t, "2024-02-03", due)

	start, due = loanDates(mustDate(t, "2024-01-20"), "2024-03-01", "2024-03-05")
	assert.Equal(t, "2024-03-01", start)
	assert.Equal(t, "2024-03-05", due)
}

func TestPrintBooksUsesDefaultWidthOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	printBooks(&buf, []library.Book{{ID: 1, Title: strings.Repeat("x", 200), Author: "A", Available: true}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Repeat("-", defaultWidth), lines[1])
	assert.Contains(t, lines[2], "...")
	assert.True(t, strings.HasSuffix(lines[2], "Yes"))
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	require.NoError(t, err)
	return d
}

func TestFailedCommandStillClosesDatabase(t *testing.T) {
	root, a := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--db", testDB(t), "--log-level", "error", "checkout", "return", "7", "--date", "2024-01-01"})

	err := executeAndClose(context.Background(), root, a)
	require.ErrorIs(t, err, library.ErrNotFound)
	assert.Nil(t, a.lib)
}

func TestShellNamesFallBackToIDs(t *testing.T) {
	ctx := context.Background()
	lib, err := library.NewLibraryManager(testDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = lib.Close() })
	require.NoError(t, lib.Provision(ctx))

	bookID, err := lib.Books().Insert(ctx, library.BookFields{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	s := &shell{ctx: ctx, lib: lib}
	assert.Equal(t, "Dune", s.bookTitle(bookID))
	assert.Equal(t, "ID 99", s.bookTitle(99))
	assert.Equal(t, "borrower ID 42", s.borrowerName(42))
}
