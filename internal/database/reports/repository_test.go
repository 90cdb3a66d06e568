package reports

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/circulate/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository, func()) {
	t.Helper()
	dbPath := "./test_reports_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Book{}, &entities.Member{}, &entities.Transaction{})
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return db, NewRepository(db), cleanup
}

func createTestBook(t *testing.T, db *gorm.DB, title, author, category string, total, available int) *entities.Book {
	t.Helper()
	book := &entities.Book{
		Title:           title,
		Author:          author,
		Category:        category,
		TotalCopies:     total,
		AvailableCopies: available,
	}
	require.NoError(t, db.Create(book).Error)
	return book
}

func createTestMember(t *testing.T, db *gorm.DB, name string) *entities.Member {
	t.Helper()
	member := &entities.Member{FullName: name}
	require.NoError(t, db.Create(member).Error)
	return member
}

func createTestLoan(t *testing.T, db *gorm.DB, memberID, bookID uint, issued time.Time, returned *time.Time) *entities.Transaction {
	t.Helper()
	txn := &entities.Transaction{
		MemberID:   memberID,
		BookID:     bookID,
		IssueDate:  issued,
		ReturnDate: returned,
	}
	require.NoError(t, db.Create(txn).Error)
	return txn
}

func daysAgo(n int) time.Time {
	return time.Now().AddDate(0, 0, -n)
}

func TestNewDateRange(t *testing.T) {
	t.Run("defaults to the last 30 days", func(t *testing.T) {
		rng := NewDateRange(time.Time{}, time.Time{})
		assert.Equal(t, dayEnd(time.Now()), rng.End)
		assert.Equal(t, dayStart(time.Now().AddDate(0, 0, -DefaultRangeDays)), rng.Start)
	})

	t.Run("swaps an inverted range", func(t *testing.T) {
		a := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
		b := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)
		rng := NewDateRange(a, b)
		assert.True(t, rng.Start.Before(rng.End))
		assert.Equal(t, dayStart(b), rng.Start)
		assert.Equal(t, dayEnd(a), rng.End)
	})

	t.Run("spans whole days", func(t *testing.T) {
		d := time.Date(2025, 3, 5, 14, 30, 0, 0, time.Local)
		rng := NewDateRange(d, d)
		assert.Equal(t, 0, rng.Start.Hour())
		assert.Equal(t, 23, rng.End.Hour())
	})
}

func TestRepository_Summary(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db, "Dune", "Herbert", "Sci-Fi", 3, 2)
	member := createTestMember(t, db, "Jane Tester")

	returned := daysAgo(2)
	createTestLoan(t, db, member.ID, book.ID, daysAgo(5), &returned)
	createTestLoan(t, db, member.ID, book.ID, daysAgo(1), nil)
	// Outside the default range.
	createTestLoan(t, db, member.ID, book.ID, daysAgo(60), nil)

	summary, err := repo.Summary(NewDateRange(time.Time{}, time.Time{}), 5)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.Totals.Books)
	assert.Equal(t, int64(1), summary.Totals.Members)
	assert.Equal(t, int64(2), summary.Totals.Issued)
	assert.Equal(t, int64(1), summary.Totals.Returned)
	assert.Equal(t, int64(2), summary.Totals.ActiveLoans)

	require.NotEmpty(t, summary.Recent)
	assert.Equal(t, "Jane Tester", summary.Recent[0].MemberName)
	assert.Equal(t, "Dune", summary.Recent[0].BookTitle)
}

func TestRepository_Popular(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	dune := createTestBook(t, db, "Dune", "Herbert", "Sci-Fi", 5, 5)
	foundation := createTestBook(t, db, "Foundation", "Asimov", "Sci-Fi", 3, 3)
	cleanCode := createTestBook(t, db, "Clean Code", "Martin", "Programming", 2, 2)
	member := createTestMember(t, db, "Jane Tester")

	for i := 0; i < 3; i++ {
		createTestLoan(t, db, member.ID, dune.ID, daysAgo(i+1), nil)
	}
	createTestLoan(t, db, member.ID, foundation.ID, daysAgo(2), nil)
	// Outside the range: must not count.
	createTestLoan(t, db, member.ID, cleanCode.ID, daysAgo(45), nil)

	rng := NewDateRange(time.Time{}, time.Time{})

	t.Run("ranks by issue count", func(t *testing.T) {
		ranked, err := repo.Popular(PopularParams{Range: rng})
		require.NoError(t, err)
		require.Len(t, ranked, 2)
		assert.Equal(t, "Dune", ranked[0].Title)
		assert.Equal(t, 3, ranked[0].Count)
		assert.Equal(t, "Foundation", ranked[1].Title)
		assert.Equal(t, 1, ranked[1].Count)
	})

	t.Run("applies free-text filter", func(t *testing.T) {
		ranked, err := repo.Popular(PopularParams{Range: rng, Query: "Asimov"})
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, "Foundation", ranked[0].Title)
	})

	t.Run("applies category filter and limit", func(t *testing.T) {
		ranked, err := repo.Popular(PopularParams{Range: rng, Category: "Sci-Fi", Limit: 1})
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, "Dune", ranked[0].Title)
	})

	t.Run("sorts by title ascending", func(t *testing.T) {
		ranked, err := repo.Popular(PopularParams{Range: rng, Sort: "title", Order: "asc"})
		require.NoError(t, err)
		require.Len(t, ranked, 2)
		assert.Equal(t, "Dune", ranked[0].Title)
	})
}

func TestRepository_Categories(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	createTestBook(t, db, "Dune", "Herbert", "Sci-Fi", 4, 3)
	createTestBook(t, db, "Foundation", "Asimov", "Sci-Fi", 2, 0)
	createTestBook(t, db, "Clean Code", "Martin", "Programming", 2, 2)
	createTestBook(t, db, "Mystery Zine", "Nobody", "", 1, 1)
	createTestBook(t, db, "Blank Zine", "Nobody", "   ", 1, 0)

	t.Run("groups with an Uncategorized bucket", func(t *testing.T) {
		stats, total, err := repo.Categories(CategoryParams{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, stats, 3)

		byName := map[string]CategoryStats{}
		sum := 0
		for _, s := range stats {
			byName[s.Category] = s
			sum += s.Total
		}
		// Per-category totals add up to the overall book count.
		assert.Equal(t, 5, sum)

		uncat := byName["Uncategorized"]
		assert.Equal(t, 2, uncat.Total)
		assert.Equal(t, 1, uncat.Available)
		assert.Equal(t, 1, uncat.Authors)
		assert.InDelta(t, 50.0, uncat.AvailabilityPct, 0.001)

		scifi := byName["Sci-Fi"]
		assert.Equal(t, 2, scifi.Total)
		assert.Equal(t, 3, scifi.Available)
		assert.Equal(t, 2, scifi.Authors)
		assert.InDelta(t, 150.0, scifi.AvailabilityPct, 0.001)
	})

	t.Run("filters by substring", func(t *testing.T) {
		stats, total, err := repo.Categories(CategoryParams{Query: "Prog"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, stats, 1)
		assert.Equal(t, "Programming", stats[0].Category)
	})

	t.Run("sorts and paginates", func(t *testing.T) {
		stats, total, err := repo.Categories(CategoryParams{Sort: "total", Order: "desc", Page: 1, PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, stats, 2)
		assert.GreaterOrEqual(t, stats[0].Total, stats[1].Total)
	})
}

func TestRepository_Overdue(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	dune := createTestBook(t, db, "Dune", "Herbert", "Sci-Fi", 5, 5)
	foundation := createTestBook(t, db, "Foundation", "Asimov", "Sci-Fi", 3, 3)
	jane := createTestMember(t, db, "Jane Tester")
	omar := createTestMember(t, db, "Omar Reader")

	now := time.Now()
	issuedDaysAgo := func(n int) time.Time {
		return now.Add(-time.Duration(n)*24*time.Hour - time.Hour)
	}

	createTestLoan(t, db, jane.ID, dune.ID, issuedDaysAgo(13), nil)       // not overdue yet
	createTestLoan(t, db, jane.ID, foundation.ID, issuedDaysAgo(15), nil) // overdue
	createTestLoan(t, db, omar.ID, dune.ID, issuedDaysAgo(20), nil)       // overdue
	returned := now
	createTestLoan(t, db, omar.ID, dune.ID, issuedDaysAgo(40), &returned) // closed, never overdue

	t.Run("applies the whole-day threshold", func(t *testing.T) {
		loans, total, err := repo.Overdue(OverdueParams{Days: 14}, now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, loans, 2)
		// Default sort: most overdue first.
		assert.Equal(t, "Omar Reader", loans[0].MemberName)
		assert.Equal(t, 20, loans[0].DaysOverdue)
		assert.Equal(t, "Foundation", loans[1].BookTitle)
		assert.Equal(t, 15, loans[1].DaysOverdue)
	})

	t.Run("filters by member name", func(t *testing.T) {
		loans, total, err := repo.Overdue(OverdueParams{Days: 14, Query: "Jane"}, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, loans, 1)
		assert.Equal(t, "Foundation", loans[0].BookTitle)
	})

	t.Run("sorts by issue date ascending", func(t *testing.T) {
		loans, _, err := repo.Overdue(OverdueParams{Days: 14, Sort: "issue_date", Order: "asc"}, now)
		require.NoError(t, err)
		require.Len(t, loans, 2)
		assert.Equal(t, 20, loans[0].DaysOverdue)
	})

	t.Run("paginates past the end", func(t *testing.T) {
		loans, total, err := repo.Overdue(OverdueParams{Days: 14, Page: 5, PerPage: 10}, now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Empty(t, loans)
	})

	t.Run("lower threshold pulls in younger loans", func(t *testing.T) {
		_, total, err := repo.Overdue(OverdueParams{Days: 10}, now)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("threshold floor is one day", func(t *testing.T) {
		_, total, err := repo.Overdue(OverdueParams{Days: 0}, now)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})
}

func TestRepository_TimeSeries(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db, "Dune", "Herbert", "Sci-Fi", 5, 5)
	member := createTestMember(t, db, "Jane Tester")

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2025, 6, 7, 0, 0, 0, 0, time.Local)

	issue := func(day int) time.Time {
		return time.Date(2025, 6, day, 10, 0, 0, 0, time.Local)
	}
	ret3 := issue(3)
	createTestLoan(t, db, member.ID, book.ID, issue(1), &ret3)
	createTestLoan(t, db, member.ID, book.ID, issue(1), nil)
	createTestLoan(t, db, member.ID, book.ID, issue(5), nil)
	// Outside the range.
	createTestLoan(t, db, member.ID, book.ID, time.Date(2025, 6, 20, 10, 0, 0, 0, time.Local), nil)

	series, err := repo.TimeSeries(NewDateRange(start, end))
	require.NoError(t, err)

	// Dense: one labelled point per calendar day, in order.
	require.Len(t, series.Labels, 7)
	assert.Equal(t, "2025-06-01", series.Labels[0])
	assert.Equal(t, "2025-06-07", series.Labels[6])

	assert.Equal(t, []int{2, 0, 0, 0, 1, 0, 0}, series.Issued)
	assert.Equal(t, []int{0, 0, 1, 0, 0, 0, 0}, series.Returned)
}

func TestRepository_Dashboard(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	dune := createTestBook(t, db, "Dune", "Herbert", "Sci-Fi", 5, 5)
	foundation := createTestBook(t, db, "Foundation", "Asimov", "Sci-Fi", 3, 3)
	member := createTestMember(t, db, "Jane Tester")

	createTestLoan(t, db, member.ID, dune.ID, daysAgo(3), nil)
	createTestLoan(t, db, member.ID, dune.ID, daysAgo(2), nil)
	returned := daysAgo(1)
	createTestLoan(t, db, member.ID, foundation.ID, daysAgo(4), &returned)

	dashboard, err := repo.Dashboard(5)
	require.NoError(t, err)

	assert.Equal(t, int64(2), dashboard.TotalBooks)
	assert.Equal(t, int64(1), dashboard.TotalMembers)
	assert.Equal(t, int64(2), dashboard.ActiveLoans)

	require.NotEmpty(t, dashboard.PopularBooks)
	assert.Equal(t, "Dune", dashboard.PopularBooks[0].Title)
	assert.Equal(t, 2, dashboard.PopularBooks[0].Count)

	require.Len(t, dashboard.RecentTransactions, 3)
	assert.Equal(t, "Dune", dashboard.RecentTransactions[0].BookTitle)
}
