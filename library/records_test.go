package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAssignsUniqueIDsAndListReturnsThem(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)

	first, err := mgr.Books().Insert(ctx, BookFields{
		Title:           "Clean Code",
		Author:          "Robert C. Martin",
		Genre:           "Technology",
		PublicationDate: "2008-08-01",
		ISBN:            "978-0132350884",
	})
	require.NoError(t, err)
	second := givenBook(t, mgr, "Design Patterns", "Gang of Four")
	assert.NotEqual(t, first, second)

	books, err := mgr.Books().List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, Book{
		ID:              first,
		Title:           "Clean Code",
		Author:          "Robert C. Martin",
		Genre:           "Technology",
		PublicationDate: "2008-08-01",
		ISBN:            "978-0132350884",
		Available:       true,
	}, books[0])
	assert.Equal(t, second, books[1].ID)
	assert.Empty(t, books[1].Genre, "absent optional text reads back empty")
}

func TestIDsAreNotReusedAfterDelete(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)

	first := givenBook(t, mgr, "A", "B")
	removed, err := mgr.Books().DeleteByID(ctx, first)
	require.NoError(t, err)
	require.True(t, removed)

	second := givenBook(t, mgr, "C", "D")
	assert.Greater(t, second, first)
}

func TestDeleteByIDIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)
	borrowerID := givenBorrower(t, mgr, "Alice")

	removed, err := mgr.Borrowers().DeleteByID(ctx, borrowerID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = mgr.Borrowers().DeleteByID(ctx, borrowerID)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = mgr.Books().DeleteByID(ctx, 12345)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestBorrowerEmailIsUnique(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)

	_, err := mgr.Borrowers().Insert(ctx, BorrowerFields{Name: "John Doe", Email: "john.doe@email.com"})
	require.NoError(t, err)

	_, err = mgr.Borrowers().Insert(ctx, BorrowerFields{Name: "Johnny", Email: "john.doe@email.com"})
	assert.ErrorIs(t, err, ErrUniqueConstraint)

	// Exact match only.
	_, err = mgr.Borrowers().Insert(ctx, BorrowerFields{Name: "John", Email: "John.Doe@email.com"})
	require.NoError(t, err)

	borrowers, err := mgr.Borrowers().List(ctx)
	require.NoError(t, err)
	assert.Len(t, borrowers, 2)
}

func TestInsertValidation(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)

	tests := []struct {
		name   string
		insert func() error
		fields []string
	}{
		{
			name: "book without title and author",
			insert: func() error {
				_, err := mgr.Books().Insert(ctx, BookFields{Genre: "Fiction"})
				return err
			},
			fields: []string{"title", "author"},
		},
		{
			name: "book with blank title",
			insert: func() error {
				_, err := mgr.Books().Insert(ctx, BookFields{Title: "   ", Author: "Someone"})
				return err
			},
			fields: []string{"title"},
		},
		{
			name: "borrower without email",
			insert: func() error {
				_, err := mgr.Borrowers().Insert(ctx, BorrowerFields{Name: "Alice"})
				return err
			},
			fields: []string{"email"},
		},
		{
			name: "empty checkout",
			insert: func() error {
				_, err := mgr.Checkouts().Insert(ctx, CheckoutFields{})
				return err
			},
			fields: []string{"book_id", "borrower_id", "checkout_date", "due_date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.insert()
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.fields, verr.Fields)
		})
	}

	books, err := mgr.Books().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestCheckoutInsertRejectsMissingReferences(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)
	bookID := givenBook(t, mgr, "Book", "Author")
	borrowerID := givenBorrower(t, mgr, "Alice")

	_, err := mgr.Checkouts().Insert(ctx, CheckoutFields{BookID: 999, BorrowerID: borrowerID, CheckoutDate: "2024-01-01", DueDate: "2024-02-01"})
	assert.ErrorIs(t, err, ErrReference)

	_, err = mgr.Checkouts().Insert(ctx, CheckoutFields{BookID: bookID, BorrowerID: 999, CheckoutDate: "2024-01-01", DueDate: "2024-02-01"})
	assert.ErrorIs(t, err, ErrReference)

	returned := "2024-01-10"
	id, err := mgr.Checkouts().Insert(ctx, CheckoutFields{BookID: bookID, BorrowerID: borrowerID, CheckoutDate: "2024-01-01", DueDate: "2024-02-01", ReturnDate: &returned})
	require.NoError(t, err)

	checkouts, err := mgr.Checkouts().List(ctx)
	require.NoError(t, err)
	require.Len(t, checkouts, 1)
	assert.Equal(t, id, checkouts[0].ID)
	require.NotNil(t, checkouts[0].ReturnDate)
	assert.Equal(t, returned, *checkouts[0].ReturnDate)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)
	cleanCode := givenBook(t, mgr, "Clean Code", "Robert C. Martin")
	givenBook(t, mgr, "1984", "George Orwell")

	for _, term := range []string{"clean", "martin", "CODE", "c. mar"} {
		books, err := mgr.Books().Search(ctx, term)
		require.NoError(t, err, term)
		require.Len(t, books, 1, term)
		assert.Equal(t, cleanCode, books[0].ID, term)
	}

	books, err := mgr.Books().Search(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.NotNil(t, books)

	books, err = mgr.Books().Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)
	givenBook(t, mgr, "100% Go", "Anon")
	givenBook(t, mgr, "Plain", "Writer")

	books, err := mgr.Books().Search(ctx, "%")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "100% Go", books[0].Title)
}

func TestSearchFoldsNonASCIICase(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)
	id := givenBook(t, mgr, "Über den Wolken", "Émile Zola")

	books, err := mgr.Books().Search(ctx, "über")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, id, books[0].ID)

	books, err = mgr.Books().Search(ctx, "ÉMILE")
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestGetReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)
	borrowerID := givenBorrower(t, mgr, "Alice")

	borrower, err := mgr.Borrowers().Get(ctx, borrowerID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", borrower.Name)

	_, err = mgr.Borrowers().Get(ctx, borrowerID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletingReferencedRecordsLeavesDanglingCheckout(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)
	bookID := givenBook(t, mgr, "Book", "Author")
	borrowerID := givenBorrower(t, mgr, "Alice")
	checkoutID, err := mgr.CheckOut(ctx, bookID, borrowerID, "2024-01-01", "2024-02-01")
	require.NoError(t, err)

	removed, err := mgr.Books().DeleteByID(ctx, bookID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = mgr.Borrowers().DeleteByID(ctx, borrowerID)
	require.NoError(t, err)
	assert.True(t, removed)

	co, err := mgr.Checkouts().Get(ctx, checkoutID)
	require.NoError(t, err)
	assert.Equal(t, bookID, co.BookID)

	// Returning the orphaned checkout still closes it.
	require.NoError(t, mgr.ReturnBook(ctx, checkoutID, "2024-01-05"))
}

func TestStrictReferencesGuardDeletes(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t, WithStrictReferences())
	bookID := givenBook(t, mgr, "Book", "Author")
	borrowerID := givenBorrower(t, mgr, "Alice")
	checkoutID, err := mgr.CheckOut(ctx, bookID, borrowerID, "2024-01-01", "2024-02-01")
	require.NoError(t, err)

	_, err = mgr.Books().DeleteByID(ctx, bookID)
	assert.ErrorIs(t, err, ErrReference)
	_, err = mgr.Borrowers().DeleteByID(ctx, borrowerID)
	assert.ErrorIs(t, err, ErrReference)

	removed, err := mgr.RemoveCheckout(ctx, checkoutID)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = mgr.Books().DeleteByID(ctx, bookID)
	require.NoError(t, err)
	assert.True(t, removed)
}
