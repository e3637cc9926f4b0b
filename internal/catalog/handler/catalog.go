package handler

import (
	"github.com/julienschmidt/httprouter"
)

// CatalogHandler bundles the user, book and genre handlers behind one route
// registration.
type CatalogHandler struct {
	users  *UserHandler
	books  *BookHandler
	genres *GenreHandler
}

func NewCatalogHandler(users *UserHandler, books *BookHandler, genres *GenreHandler) *CatalogHandler {
	return &CatalogHandler{
		users:  users,
		books:  books,
		genres: genres,
	}
}

func (h *CatalogHandler) RegisterRoutes(router *httprouter.Router) {
	h.users.RegisterRoutes(router)
	h.books.RegisterRoutes(router)
	h.genres.RegisterRoutes(router)
}
