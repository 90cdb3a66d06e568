package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/circulate/internal/database/catalog"
	"github.com/openshelf/circulate/internal/entities"
)

// BooksController serves the catalogue endpoints.
type BooksController struct {
	catalog *catalog.Repository
}

func NewBooksController(catalogRepo *catalog.Repository) *BooksController {
	return &BooksController{catalog: catalogRepo}
}

// List handles GET /api/books with filtering, sorting and pagination.
func (controller *BooksController) List(c *gin.Context) {
	params := catalog.ListParams{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Sort:     c.DefaultQuery("sort", "title"),
		Order:    c.DefaultQuery("order", "asc"),
		Page:     intQuery(c, "page", 1),
		PerPage:  intQuery(c, "per_page", catalog.DefaultPerPage),
	}

	books, total, err := controller.catalog.List(params)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	c.JSON(http.StatusOK, PageResponse{
		Items:   books,
		Total:   total,
		Page:    params.Page,
		PerPage: params.PerPage,
	})
}

type createBookRequest struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	Publisher       string `json:"publisher"`
	YearPublished   int    `json:"year_published"`
	Category        string `json:"category"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

// Create handles POST /api/books.
func (controller *BooksController) Create(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book := &entities.Book{
		Title:           req.Title,
		Author:          req.Author,
		Publisher:       req.Publisher,
		YearPublished:   req.YearPublished,
		Category:        req.Category,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.AvailableCopies,
	}

	id, err := controller.catalog.Create(book)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrTitleRequired),
			errors.Is(err, catalog.ErrAuthorRequired),
			errors.Is(err, catalog.ErrInvalidCopies):
			respondBadRequest(c, err.Error())
		default:
			respondInternalError(c, err, "create book")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Get handles GET /api/books/:id.
func (controller *BooksController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.catalog.GetByID(id)
	if err != nil {
		respondNotFound(c, "book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Delete handles DELETE /api/books/:id.
func (controller *BooksController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.catalog.Delete(id); err != nil {
		respondInternalError(c, err, "delete book")
		return
	}
	respondSuccess(c, "book deleted")
}

// Categories handles GET /api/books/categories, for filter dropdowns.
func (controller *BooksController) Categories(c *gin.Context) {
	categories, err := controller.catalog.Categories()
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
