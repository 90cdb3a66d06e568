package catalog

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/circulate/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository, func()) {
	t.Helper()
	dbPath := "./test_catalog_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Book{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return db, repo, cleanup
}

func createTestBook(t *testing.T, repo *Repository, title, author, category string, total, available int) uint {
	t.Helper()
	id, err := repo.Create(&entities.Book{
		Title:           title,
		Author:          author,
		Category:        category,
		TotalCopies:     total,
		AvailableCopies: available,
	})
	require.NoError(t, err)
	return id
}

func TestRepository_Create(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	t.Run("creates a valid book", func(t *testing.T) {
		id := createTestBook(t, repo, "The Go Programming Language", "Donovan", "Programming", 3, 3)
		assert.NotZero(t, id)

		book, err := repo.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, "The Go Programming Language", book.Title)
		assert.Equal(t, 3, book.AvailableCopies)
	})

	t.Run("rejects missing title", func(t *testing.T) {
		_, err := repo.Create(&entities.Book{Author: "Anonymous", TotalCopies: 1, AvailableCopies: 1})
		assert.ErrorIs(t, err, ErrTitleRequired)
	})

	t.Run("rejects missing author", func(t *testing.T) {
		_, err := repo.Create(&entities.Book{Title: "Untitled", TotalCopies: 1, AvailableCopies: 1})
		assert.ErrorIs(t, err, ErrAuthorRequired)
	})

	t.Run("rejects available above total", func(t *testing.T) {
		_, err := repo.Create(&entities.Book{Title: "Oops", Author: "A", TotalCopies: 1, AvailableCopies: 2})
		assert.ErrorIs(t, err, ErrInvalidCopies)
	})

	t.Run("rejects negative copies", func(t *testing.T) {
		_, err := repo.Create(&entities.Book{Title: "Oops", Author: "A", TotalCopies: -1, AvailableCopies: -1})
		assert.ErrorIs(t, err, ErrInvalidCopies)
	})
}

func TestRepository_List(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	createTestBook(t, repo, "Dune", "Herbert", "Sci-Fi", 3, 3)
	createTestBook(t, repo, "Foundation", "Asimov", "Sci-Fi", 2, 2)
	createTestBook(t, repo, "Clean Code", "Martin", "Programming", 1, 1)

	t.Run("lists everything by default", func(t *testing.T) {
		books, total, err := repo.List(ListParams{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, books, 3)
		// Default sort is title ascending.
		assert.Equal(t, "Clean Code", books[0].Title)
	})

	t.Run("free-text filter matches author", func(t *testing.T) {
		books, total, err := repo.List(ListParams{Query: "Asimov"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, books, 1)
		assert.Equal(t, "Foundation", books[0].Title)
	})

	t.Run("category filter is exact", func(t *testing.T) {
		books, total, err := repo.List(ListParams{Category: "Sci-Fi"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, books, 2)
	})

	t.Run("sorts descending on allow-listed field", func(t *testing.T) {
		books, _, err := repo.List(ListParams{Sort: "total_copies", Order: "desc"})
		require.NoError(t, err)
		assert.Equal(t, "Dune", books[0].Title)
	})

	t.Run("unknown sort field falls back to title", func(t *testing.T) {
		books, _, err := repo.List(ListParams{Sort: "robert'); DROP TABLE books;--"})
		require.NoError(t, err)
		assert.Equal(t, "Clean Code", books[0].Title)
	})

	t.Run("paginates with total count intact", func(t *testing.T) {
		books, total, err := repo.List(ListParams{Page: 2, PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, books, 1)
	})

	t.Run("caps page size", func(t *testing.T) {
		_, _, err := repo.List(ListParams{PerPage: 10000})
		require.NoError(t, err)

		p := ListParams{PerPage: 10000}
		p.normalize()
		assert.Equal(t, MaxPerPage, p.PerPage)
	})
}

func TestRepository_Categories(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	createTestBook(t, repo, "Dune", "Herbert", "Sci-Fi", 1, 1)
	createTestBook(t, repo, "Foundation", "Asimov", "Sci-Fi", 1, 1)
	createTestBook(t, repo, "Clean Code", "Martin", "Programming", 1, 1)
	createTestBook(t, repo, "Unsorted", "Nobody", "", 1, 1)

	categories, err := repo.Categories()
	require.NoError(t, err)
	assert.Equal(t, []string{"Programming", "Sci-Fi"}, categories)
}

func TestRepository_AvailabilityCounters(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	id := createTestBook(t, repo, "Dune", "Herbert", "Sci-Fi", 2, 1)

	t.Run("decrease stops at zero", func(t *testing.T) {
		ok, err := repo.DecreaseAvailable(db, id)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.DecreaseAvailable(db, id)
		require.NoError(t, err)
		assert.False(t, ok)

		book, err := repo.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, 0, book.AvailableCopies)
	})

	t.Run("increase stops at total", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			ok, err := repo.IncreaseAvailable(db, id)
			require.NoError(t, err)
			assert.True(t, ok)
		}

		ok, err := repo.IncreaseAvailable(db, id)
		require.NoError(t, err)
		assert.False(t, ok)

		book, err := repo.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, 2, book.AvailableCopies)
	})
}

func TestRepository_Delete(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	id := createTestBook(t, repo, "Dune", "Herbert", "Sci-Fi", 1, 1)
	require.NoError(t, repo.Delete(id))

	_, err := repo.GetByID(id)
	assert.Error(t, err)
}
