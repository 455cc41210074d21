package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"library-catalog/library"
)

type idResponse struct {
	ID int64 `json:"id"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

type checkOutRequest struct {
	BookID       int64  `json:"book_id"`
	BorrowerID   int64  `json:"borrower_id"`
	CheckoutDate string `json:"checkout_date"`
	DueDate      string `json:"due_date"`
}

type returnRequest struct {
	ReturnDate string `json:"return_date"`
}

// ------------------ Books ------------------

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.lib.Books().List(r.Context())
	s.respond(w, http.StatusOK, books, err)
}

func (s *Server) searchBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.lib.Books().Search(r.Context(), r.URL.Query().Get("q"))
	s.respond(w, http.StatusOK, books, err)
}

func (s *Server) createBook(w http.ResponseWriter, r *http.Request) {
	var fields library.BookFields
	if !s.decode(w, r, &fields) {
		return
	}
	id, err := s.lib.Books().Insert(r.Context(), fields)
	s.respond(w, http.StatusCreated, idResponse{ID: id}, err)
}

func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	book, err := s.lib.Books().Get(r.Context(), id)
	s.respond(w, http.StatusOK, book, err)
}

func (s *Server) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	removed, err := s.lib.Books().DeleteByID(r.Context(), id)
	s.respond(w, http.StatusOK, deleteResponse{Deleted: removed}, err)
}

// ------------------ Borrowers ------------------

func (s *Server) listBorrowers(w http.ResponseWriter, r *http.Request) {
	borrowers, err := s.lib.Borrowers().List(r.Context())
	s.respond(w, http.StatusOK, borrowers, err)
}

func (s *Server) createBorrower(w http.ResponseWriter, r *http.Request) {
	var fields library.BorrowerFields
	if !s.decode(w, r, &fields) {
		return
	}
	id, err := s.lib.Borrowers().Insert(r.Context(), fields)
	s.respond(w, http.StatusCreated, idResponse{ID: id}, err)
}

func (s *Server) getBorrower(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	borrower, err := s.lib.Borrowers().Get(r.Context(), id)
	s.respond(w, http.StatusOK, borrower, err)
}

func (s *Server) deleteBorrower(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	removed, err := s.lib.Borrowers().DeleteByID(r.Context(), id)
	s.respond(w, http.StatusOK, deleteResponse{Deleted: removed}, err)
}

// ------------------ Checkouts ------------------

func (s *Server) listCheckouts(w http.ResponseWriter, r *http.Request) {
	checkouts, err := s.lib.Checkouts().List(r.Context())
	s.respond(w, http.StatusOK, checkouts, err)
}

func (s *Server) listOverdue(w http.ResponseWriter, r *http.Request) {
	checkouts, err := s.lib.Overdue(r.Context(), r.URL.Query().Get("as_of"))
	s.respond(w, http.StatusOK, checkouts, err)
}

func (s *Server) getCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	checkout, err := s.lib.Checkouts().Get(r.Context(), id)
	s.respond(w, http.StatusOK, checkout, err)
}

func (s *Server) checkOut(w http.ResponseWriter, r *http.Request) {
	var req checkOutRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.lib.CheckOut(r.Context(), req.BookID, req.BorrowerID, req.CheckoutDate, req.DueDate)
	s.respond(w, http.StatusCreated, idResponse{ID: id}, err)
}

func (s *Server) returnBook(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req returnRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.lib.ReturnBook(r.Context(), id, req.ReturnDate); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	removed, err := s.lib.RemoveCheckout(r.Context(), id)
	s.respond(w, http.StatusOK, deleteResponse{Deleted: removed}, err)
}

// ------------------ Helpers ------------------

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid id %q", raw)})
		return 0, false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, status int, body any, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	status := statusFor(err)

	var verr *library.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err.Error())
	}
	s.writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, library.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrUniqueConstraint), errors.Is(err, library.ErrBookUnavailable):
		return http.StatusConflict
	case errors.Is(err, library.ErrReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, library.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("could not encode response", "error", err.Error())
	}
}
