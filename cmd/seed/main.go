// Command seed loads a sample catalog, roster and checkout history into a library database.
package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"library-catalog/config"
	"library-catalog/library"
)

// errNotEmpty stops a second seed from duplicating the catalog.
var errNotEmpty = errors.New("database already holds records, use --reset to start over")

//go:embed sample_data.json
var sampleData []byte

// sampleCheckout refers to books and borrowers by their 1-based position in the data set.
type sampleCheckout struct {
	Book         int    `json:"book"`
	Borrower     int    `json:"borrower"`
	CheckoutDate string `json:"checkout_date"`
	DueDate      string `json:"due_date"`
	ReturnDate   string `json:"return_date"`
}

type dataSet struct {
	Books     []library.BookFields     `json:"books"`
	Borrowers []library.BorrowerFields `json:"borrowers"`
	Checkouts []sampleCheckout         `json:"checkouts"`
}

type summary struct {
	Books, Borrowers, Checkouts, Returned int
}

func main() {
	var reset bool

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Load the sample data set into the library database",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load(".env")
			if db, _ := cmd.Flags().GetString("db"); db != "" {
				cfg.DBPath = db
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))

			if reset {
				removeDatabaseFiles(cmd, cfg.DBPath)
			}

			var data dataSet
			if err := jsoniter.Unmarshal(sampleData, &data); err != nil {
				return fmt.Errorf("decode sample data: %w", err)
			}

			lib, err := library.NewLibraryManager(cfg.DBPath, library.WithLogger(logger))
			if err != nil {
				return err
			}
			defer lib.Close()

			if err := lib.Provision(cmd.Context()); err != nil {
				return err
			}

			sum, err := seed(cmd.Context(), lib, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s: %d books, %d borrowers, %d checkouts (%d returned)\n",
				cfg.DBPath, sum.Books, sum.Borrowers, sum.Checkouts, sum.Returned)
			return nil
		},
	}
	cmd.Flags().String("db", "", "SQLite database file (env "+config.EnvDB+")")
	cmd.Flags().BoolVar(&reset, "reset", false, "delete the database files before seeding")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func removeDatabaseFiles(cmd *cobra.Command, dbPath string) {
	for _, file := range []string{dbPath, dbPath + "-shm", dbPath + "-wal"} {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not remove %s: %v\n", file, err)
		}
	}
}

// seed inserts the data set into an empty database. Checkouts go through the coordinator so every
// book's availability matches its checkout history; returned checkouts are opened and then closed.
// Each record is its own transaction: a failure part way leaves the rows inserted so far, and a
// rerun then needs --reset.
func seed(ctx context.Context, lib *library.LibraryManager, data dataSet) (summary, error) {
	var sum summary

	if err := requireEmpty(ctx, lib); err != nil {
		return sum, err
	}

	bookIDs := make([]int64, len(data.Books))
	for i, b := range data.Books {
		id, err := lib.Books().Insert(ctx, b)
		if err != nil {
			return sum, fmt.Errorf("book %q: %w", b.Title, err)
		}
		bookIDs[i] = id
		sum.Books++
	}

	borrowerIDs := make([]int64, len(data.Borrowers))
	for i, b := range data.Borrowers {
		id, err := lib.Borrowers().Insert(ctx, b)
		if err != nil {
			return sum, fmt.Errorf("borrower %q: %w", b.Email, err)
		}
		borrowerIDs[i] = id
		sum.Borrowers++
	}

	for i, c := range data.Checkouts {
		if c.Book < 1 || c.Book > len(bookIDs) || c.Borrower < 1 || c.Borrower > len(borrowerIDs) {
			return sum, fmt.Errorf("checkout %d: %w: book %d, borrower %d not in data set", i+1, library.ErrReference, c.Book, c.Borrower)
		}

		id, err := lib.CheckOut(ctx, bookIDs[c.Book-1], borrowerIDs[c.Borrower-1], c.CheckoutDate, c.DueDate)
		if err != nil {
			return sum, fmt.Errorf("checkout %d: %w", i+1, err)
		}
		sum.Checkouts++

		if c.ReturnDate == "" {
			continue
		}
		if err := lib.ReturnBook(ctx, id, c.ReturnDate); err != nil {
			return sum, fmt.Errorf("return checkout %d: %w", i+1, err)
		}
		sum.Returned++
	}

	return sum, nil
}

func requireEmpty(ctx context.Context, lib *library.LibraryManager) error {
	books, err := lib.Books().List(ctx)
	if err != nil {
		return err
	}
	borrowers, err := lib.Borrowers().List(ctx)
	if err != nil {
		return err
	}
	checkouts, err := lib.Checkouts().List(ctx)
	if err != nil {
		return err
	}
	if len(books)+len(borrowers)+len(checkouts) > 0 {
		return errNotEmpty
	}
	return nil
}
