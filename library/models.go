package library

import "github.com/doug-martin/goqu/v9"

// Book represents catalog metadata and current availability of a book.
// Available is owned by the checkout coordinator; inserts always start it at true.
type Book struct {
	ID              int64  `db:"id" json:"id"`
	Title           string `db:"title" json:"title"`
	Author          string `db:"author" json:"author"`
	Genre           string `db:"genre" json:"genre"`
	PublicationDate string `db:"publication_date" json:"publication_date"`
	ISBN            string `db:"isbn" json:"isbn"`
	Available       bool   `db:"available" json:"available"`
}

// Borrower represents a registered library borrower. Email is unique.
type Borrower struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Email   string `db:"email" json:"email"`
	Phone   string `db:"phone" json:"phone"`
	Address string `db:"address" json:"address"`
}

// Checkout links a book to a borrower. A nil ReturnDate means the book is still out.
type Checkout struct {
	ID           int64   `db:"id" json:"id"`
	BookID       int64   `db:"book_id" json:"book_id"`
	BorrowerID   int64   `db:"borrower_id" json:"borrower_id"`
	CheckoutDate string  `db:"checkout_date" json:"checkout_date"`
	DueDate      string  `db:"due_date" json:"due_date"`
	ReturnDate   *string `db:"return_date" json:"return_date"`
}

// Open reports whether the checkout has not been returned yet.
func (c Checkout) Open() bool { return c.ReturnDate == nil }

// BookFields is the input accepted by the book store's Insert.
type BookFields struct {
	Title           string `json:"title" validate:"notblank"`
	Author          string `json:"author" validate:"notblank"`
	Genre           string `json:"genre"`
	PublicationDate string `json:"publication_date"`
	ISBN            string `json:"isbn"`
}

func (f BookFields) row() goqu.Record {
	return goqu.Record{
		colTitle:           f.Title,
		colAuthor:          f.Author,
		colGenre:           nullable(f.Genre),
		colPublicationDate: nullable(f.PublicationDate),
		colISBN:            nullable(f.ISBN),
		colAvailable:       1,
	}
}

// BorrowerFields is the input accepted by the borrower store's Insert.
type BorrowerFields struct {
	Name    string `json:"name" validate:"notblank"`
	Email   string `json:"email" validate:"notblank"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (f BorrowerFields) row() goqu.Record {
	return goqu.Record{
		colName:    f.Name,
		colEmail:   f.Email,
		colPhone:   nullable(f.Phone),
		colAddress: nullable(f.Address),
	}
}

// CheckoutFields is the input accepted by the checkout store's Insert.
type CheckoutFields struct {
	BookID       int64   `json:"book_id" validate:"required"`
	BorrowerID   int64   `json:"borrower_id" validate:"required"`
	CheckoutDate string  `json:"checkout_date" validate:"notblank"`
	DueDate      string  `json:"due_date" validate:"notblank"`
	ReturnDate   *string `json:"return_date,omitempty"`
}

// open reports whether the row will be stored without a return date.
func (f CheckoutFields) open() bool { return f.ReturnDate == nil || *f.ReturnDate == "" }

func (f CheckoutFields) row() goqu.Record {
	var returned any
	if f.ReturnDate != nil {
		returned = nullable(*f.ReturnDate)
	}
	return goqu.Record{
		colBookID:       f.BookID,
		colBorrowerID:   f.BorrowerID,
		colCheckoutDate: f.CheckoutDate,
		colDueDate:      f.DueDate,
		colReturnDate:   returned,
	}
}

// nullable stores empty optional text as NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
