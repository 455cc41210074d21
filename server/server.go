// Package server exposes the library core over HTTP with JSON bodies.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"

	"library-catalog/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const requestTimeout = 15 * time.Second

// Server routes HTTP requests to the record stores and the checkout coordinator.
type Server struct {
	lib    *library.LibraryManager
	logger *slog.Logger
}

func New(lib *library.LibraryManager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{lib: lib, logger: logger}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Route("/books", func(r chi.Router) {
		r.Get("/", s.listBooks)
		r.Post("/", s.createBook)
		r.Get("/search", s.searchBooks)
		r.Get("/{id}", s.getBook)
		r.Delete("/{id}", s.deleteBook)
	})

	r.Route("/borrowers", func(r chi.Router) {
		r.Get("/", s.listBorrowers)
		r.Post("/", s.createBorrower)
		r.Get("/{id}", s.getBorrower)
		r.Delete("/{id}", s.deleteBorrower)
	})

	r.Route("/checkouts", func(r chi.Router) {
		r.Get("/", s.listCheckouts)
		r.Post("/", s.checkOut)
		r.Get("/overdue", s.listOverdue)
		r.Get("/{id}", s.getCheckout)
		r.Post("/{id}/return", s.returnBook)
		r.Delete("/{id}", s.removeCheckout)
	})

	return r
}
