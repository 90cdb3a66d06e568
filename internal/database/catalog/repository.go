// Package catalog provides database operations for book records and
// their copy-availability counters.
//
// Availability counters are mutated here but only ever called from the
// loan ledger, inside the ledger's own transactions.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/openshelf/circulate/internal/entities"
)

// MaxPerPage caps the page size for book listings.
const MaxPerPage = 100

// DefaultPerPage is used when the caller does not specify a page size.
const DefaultPerPage = 10

var (
	ErrTitleRequired  = errors.New("title is required")
	ErrAuthorRequired = errors.New("author is required")
	ErrInvalidCopies  = errors.New("available copies must be between 0 and total copies")
)

// sortColumns is the closed set of sortable fields for listings,
// mapped to their column names. Caller input never reaches SQL directly.
var sortColumns = map[string]string{
	"title":            "title",
	"author":           "author",
	"publisher":        "publisher",
	"year_published":   "year_published",
	"category":         "category",
	"available_copies": "available_copies",
	"total_copies":     "total_copies",
	"id":               "id",
}

// ListParams controls filtering, sorting and pagination of book listings.
type ListParams struct {
	Query    string // free-text match on title/author/publisher/category
	Category string // exact category match
	Sort     string
	Order    string // "asc" or "desc"
	Page     int
	PerPage  int
}

func (p *ListParams) normalize() {
	if _, ok := sortColumns[p.Sort]; !ok {
		p.Sort = "title"
	}
	if !strings.EqualFold(p.Order, "desc") {
		p.Order = "asc"
	} else {
		p.Order = "desc"
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
}

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create validates and inserts a new book, returning its ID.
func (r *Repository) Create(book *entities.Book) (uint, error) {
	if strings.TrimSpace(book.Title) == "" {
		return 0, ErrTitleRequired
	}
	if strings.TrimSpace(book.Author) == "" {
		return 0, ErrAuthorRequired
	}
	if book.TotalCopies < 0 || book.AvailableCopies < 0 || book.AvailableCopies > book.TotalCopies {
		return 0, ErrInvalidCopies
	}
	if err := r.db.Create(book).Error; err != nil {
		return 0, fmt.Errorf("failed to create book: %w", err)
	}
	return book.ID, nil
}

// List returns one page of books matching the params plus the total
// match count before pagination.
func (r *Repository) List(p ListParams) ([]entities.Book, int64, error) {
	p.normalize()

	q := r.db.Model(&entities.Book{})
	if p.Query != "" {
		like := "%" + p.Query + "%"
		q = q.Where("title LIKE ? OR author LIKE ? OR publisher LIKE ? OR category LIKE ?",
			like, like, like, like)
	}
	if p.Category != "" {
		q = q.Where("category = ?", p.Category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	var books []entities.Book
	err := q.Order(sortColumns[p.Sort] + " " + strings.ToUpper(p.Order)).
		Limit(p.PerPage).
		Offset((p.Page - 1) * p.PerPage).
		Find(&books).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list books: %w", err)
	}
	return books, total, nil
}

// GetByID retrieves a single book.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// Delete removes a book row. Open loans referencing the book are left
// in place; the ledger keeps the reference by identifier only.
func (r *Repository) Delete(id uint) error {
	return r.db.Delete(&entities.Book{}, id).Error
}

// Categories returns all distinct non-blank categories in
// alphabetical order, for populating filter dropdowns.
func (r *Repository) Categories() ([]string, error) {
	var categories []string
	err := r.db.Model(&entities.Book{}).
		Where("category IS NOT NULL AND TRIM(category) != ''").
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// DecreaseAvailable decrements a book's available counter by one,
// floored at zero. The update is conditional so the counter can never
// go negative, even under concurrent callers.
func (r *Repository) DecreaseAvailable(tx *gorm.DB, id uint) (bool, error) {
	res := tx.Model(&entities.Book{}).
		Where("id = ? AND available_copies > 0", id).
		UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncreaseAvailable increments a book's available counter by one,
// capped at total_copies so the availability invariant holds even if
// a ledger row was deleted while its loan was open.
func (r *Repository) IncreaseAvailable(tx *gorm.DB, id uint) (bool, error) {
	res := tx.Model(&entities.Book{}).
		Where("id = ? AND available_copies < total_copies", id).
		UpdateColumn("available_copies", gorm.Expr("available_copies + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
