// Package reports implements the read-side aggregations: dashboard
// summary, popularity ranking, category statistics, overdue listing
// and the daily issue/return time series.
//
// Everything in this package is read-only; no query here ever writes
// to books, members or transactions.
package reports

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/openshelf/circulate/internal/entities"
)

const (
	// DefaultRangeDays is the default report window when the caller
	// supplies no dates: the last 30 days through now.
	DefaultRangeDays = 30

	// DefaultOverdueDays is the default overdue threshold.
	DefaultOverdueDays = 14

	// MaxLimit caps popularity limits and page sizes.
	MaxLimit = 100

	defaultPerPage      = 10
	defaultPopularLimit = 20
)

// categoryExpr normalizes blank and null categories into the
// synthetic "Uncategorized" bucket. Used both for grouping and for
// the group label.
const categoryExpr = "COALESCE(NULLIF(TRIM(category), ''), 'Uncategorized')"

// DateRange is an inclusive day range. Construct via NewDateRange so
// defaults and normalization apply.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds a report range. Zero values default to the last
// DefaultRangeDays days through now; an inverted range is swapped.
// The result spans whole days: Start is truncated to midnight and End
// extended to the last instant of its day.
func NewDateRange(start, end time.Time) DateRange {
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -DefaultRangeDays)
	}
	if end.Before(start) {
		start, end = end, start
	}
	return DateRange{Start: dayStart(start), End: dayEnd(end)}
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dayEnd(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// Repository runs the reporting queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// --- Summary ---

// RecentLoan is one row of the recent-activity feed.
type RecentLoan struct {
	MemberName string    `json:"member"`
	BookTitle  string    `json:"book"`
	IssueDate  time.Time `json:"issue_date"`
}

// Totals holds the headline counters of the summary report.
type Totals struct {
	Books       int64 `json:"books"`
	Members     int64 `json:"members"`
	Issued      int64 `json:"issued"`
	Returned    int64 `json:"returned"`
	ActiveLoans int64 `json:"activeLoans"`
}

// Summary is the dashboard summary report.
type Summary struct {
	Range  DateRange    `json:"range"`
	Totals Totals       `json:"totals"`
	Recent []RecentLoan `json:"recent"`
}

// Summary computes headline totals for the range plus the
// recentLimit most-recently-issued loans.
func (r *Repository) Summary(rng DateRange, recentLimit int) (*Summary, error) {
	if recentLimit < 1 {
		recentLimit = 5
	}

	s := &Summary{Range: rng}

	if err := r.db.Model(&entities.Book{}).Count(&s.Totals.Books).Error; err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}
	if err := r.db.Model(&entities.Member{}).Count(&s.Totals.Members).Error; err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}
	err := r.db.Model(&entities.Transaction{}).
		Where("issue_date BETWEEN ? AND ?", rng.Start, rng.End).
		Count(&s.Totals.Issued).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count issued loans: %w", err)
	}
	err = r.db.Model(&entities.Transaction{}).
		Where("return_date BETWEEN ? AND ?", rng.Start, rng.End).
		Count(&s.Totals.Returned).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count returned loans: %w", err)
	}
	err = r.db.Model(&entities.Transaction{}).
		Where("return_date IS NULL").
		Count(&s.Totals.ActiveLoans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active loans: %w", err)
	}

	err = r.db.Model(&entities.Transaction{}).
		Select("members.full_name AS member_name, books.title AS book_title, transactions.issue_date").
		Joins("JOIN members ON members.id = transactions.member_id").
		Joins("JOIN books ON books.id = transactions.book_id").
		Order("transactions.issue_date DESC").
		Limit(recentLimit).
		Scan(&s.Recent).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent loans: %w", err)
	}
	return s, nil
}

// --- Popularity ranking ---

var popularSortColumns = map[string]string{
	"count":            "count",
	"title":            "title",
	"available_copies": "available_copies",
	"total_copies":     "total_copies",
}

// PopularParams controls the popularity ranking.
type PopularParams struct {
	Range    DateRange
	Query    string // free-text match on title/author/publisher/category
	Category string // exact category match
	Sort     string
	Order    string
	Limit    int
}

// PopularBook is one ranked row: a book plus its issue count within
// the range.
type PopularBook struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Publisher       string `json:"publisher,omitempty"`
	Category        string `json:"category,omitempty"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	Count           int    `json:"count"`
}

// Popular ranks books by how often they were issued within the range.
// Books with no issues in range do not appear.
func (r *Repository) Popular(p PopularParams) ([]PopularBook, error) {
	sortCol, ok := popularSortColumns[p.Sort]
	if !ok {
		sortCol = "count"
	}
	order := "DESC"
	if strings.EqualFold(p.Order, "asc") {
		order = "ASC"
	}
	if p.Limit < 1 {
		p.Limit = defaultPopularLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	q := r.db.Model(&entities.Transaction{}).
		Select("books.id, books.title, books.author, books.publisher, books.category, "+
			"books.total_copies, books.available_copies, COUNT(*) AS count").
		Joins("JOIN books ON books.id = transactions.book_id").
		Where("transactions.issue_date BETWEEN ? AND ?", p.Range.Start, p.Range.End)
	if p.Query != "" {
		like := "%" + p.Query + "%"
		q = q.Where("books.title LIKE ? OR books.author LIKE ? OR books.publisher LIKE ? OR books.category LIKE ?",
			like, like, like, like)
	}
	if p.Category != "" {
		q = q.Where("books.category = ?", p.Category)
	}

	var ranked []PopularBook
	err := q.Group("books.id").
		Order(sortCol + " " + order).
		Limit(p.Limit).
		Scan(&ranked).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank books: %w", err)
	}
	return ranked, nil
}

// --- Category statistics ---

var categorySortColumns = map[string]string{
	"category":         "category",
	"total":            "total",
	"available":        "available",
	"authors":          "authors",
	"availability_pct": "availability_pct",
}

// CategoryParams controls the category statistics page.
type CategoryParams struct {
	Query   string // category substring filter
	Sort    string
	Order   string
	Page    int
	PerPage int
}

// CategoryStats is the aggregate row for one category.
type CategoryStats struct {
	Category        string  `json:"category"`
	Total           int     `json:"total"`
	Available       int     `json:"available"`
	Authors         int     `json:"authors"`
	AvailabilityPct float64 `json:"availability_pct"`
}

// Categories groups books by category and aggregates per-category
// counts. Blank and null categories land in the "Uncategorized"
// bucket. Returns one page of rows plus the total category count.
func (r *Repository) Categories(p CategoryParams) ([]CategoryStats, int64, error) {
	sortCol, ok := categorySortColumns[p.Sort]
	if !ok {
		sortCol = "category"
	}
	order := "ASC"
	if strings.EqualFold(p.Order, "desc") {
		order = "DESC"
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > MaxLimit {
		p.PerPage = MaxLimit
	}

	base := func() *gorm.DB {
		q := r.db.Model(&entities.Book{})
		if p.Query != "" {
			q = q.Where("category LIKE ?", "%"+p.Query+"%")
		}
		return q
	}

	var total int64
	countQ := base().Select(categoryExpr + " AS category").Group(categoryExpr)
	if err := r.db.Table("(?) AS grouped", countQ).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count categories: %w", err)
	}

	var stats []CategoryStats
	err := base().
		Select(categoryExpr+" AS category, "+
			"COUNT(*) AS total, "+
			"SUM(COALESCE(available_copies, 0)) AS available, "+
			"COUNT(DISTINCT COALESCE(author, '')) AS authors, "+
			"ROUND(SUM(COALESCE(available_copies, 0)) * 100.0 / COUNT(*), 2) AS availability_pct").
		Group(categoryExpr).
		Order(sortCol + " " + order).
		Limit(p.PerPage).
		Offset((p.Page - 1) * p.PerPage).
		Scan(&stats).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to aggregate categories: %w", err)
	}

	for i := range stats {
		if stats[i].Total == 0 {
			stats[i].AvailabilityPct = 0
		}
	}
	return stats, total, nil
}

// --- Overdue report ---

// OverdueParams controls the overdue listing.
type OverdueParams struct {
	Query   string // substring match on member name or book title
	Days    int    // overdue threshold in whole days
	Sort    string // days_overdue, member, book or issue_date
	Order   string
	Page    int
	PerPage int
}

// OverdueLoan is one open loan past the threshold.
type OverdueLoan struct {
	TransactionID uint      `json:"transaction_id"`
	MemberID      uint      `json:"member_id"`
	MemberName    string    `json:"member_name"`
	BookID        uint      `json:"book_id"`
	BookTitle     string    `json:"book_title"`
	IssueDate     time.Time `json:"issue_date"`
	DaysOverdue   int       `json:"days_overdue"`
}

// Overdue lists open loans whose age in whole days exceeds the
// threshold. Elapsed time is truncated to whole days, so with the
// default threshold of 14 a loan issued 14.9 days ago is not yet
// overdue while one issued 15 days ago is. A threshold below one day
// is clamped to one.
func (r *Repository) Overdue(p OverdueParams, now time.Time) ([]OverdueLoan, int64, error) {
	if p.Days < 1 {
		p.Days = 1
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > MaxLimit {
		p.PerPage = MaxLimit
	}
	if now.IsZero() {
		now = time.Now()
	}

	q := r.db.Model(&entities.Transaction{}).
		Select("transactions.id AS transaction_id, " +
			"members.id AS member_id, members.full_name AS member_name, " +
			"books.id AS book_id, books.title AS book_title, " +
			"transactions.issue_date").
		Joins("JOIN members ON members.id = transactions.member_id").
		Joins("JOIN books ON books.id = transactions.book_id").
		Where("transactions.return_date IS NULL")
	if p.Query != "" {
		like := "%" + p.Query + "%"
		q = q.Where("members.full_name LIKE ? OR books.title LIKE ?", like, like)
	}

	var open []OverdueLoan
	if err := q.Scan(&open).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load open loans: %w", err)
	}

	overdue := open[:0]
	for _, loan := range open {
		days := int(now.Sub(loan.IssueDate).Hours() / 24)
		if days > p.Days {
			loan.DaysOverdue = days
			overdue = append(overdue, loan)
		}
	}

	sortOverdue(overdue, p.Sort, strings.EqualFold(p.Order, "asc"))

	total := int64(len(overdue))
	start := (p.Page - 1) * p.PerPage
	if start >= len(overdue) {
		return []OverdueLoan{}, total, nil
	}
	end := start + p.PerPage
	if end > len(overdue) {
		end = len(overdue)
	}
	return overdue[start:end], total, nil
}

func sortOverdue(loans []OverdueLoan, field string, asc bool) {
	less := func(i, j int) bool {
		switch field {
		case "member":
			return loans[i].MemberName < loans[j].MemberName
		case "book":
			return loans[i].BookTitle < loans[j].BookTitle
		case "issue_date":
			return loans[i].IssueDate.Before(loans[j].IssueDate)
		default: // days_overdue
			return loans[i].DaysOverdue < loans[j].DaysOverdue
		}
	}
	sort.SliceStable(loans, func(i, j int) bool {
		if asc {
			return less(i, j)
		}
		return less(j, i)
	})
}

// --- Time series ---

// TimeSeries holds dense per-day issue and return counts: one entry
// per calendar day in the range, in order, including zero days.
type TimeSeries struct {
	Labels   []string `json:"labels"`
	Issued   []int    `json:"issued"`
	Returned []int    `json:"returned"`
}

const dayLabel = "2006-01-02"

// TimeSeries counts issues and returns per calendar day across the
// whole range. Day bucketing happens on time.Time values, never on
// string prefixes.
func (r *Repository) TimeSeries(rng DateRange) (*TimeSeries, error) {
	var issueDates []time.Time
	err := r.db.Model(&entities.Transaction{}).
		Where("issue_date BETWEEN ? AND ?", rng.Start, rng.End).
		Pluck("issue_date", &issueDates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load issue dates: %w", err)
	}

	var returnDates []time.Time
	err = r.db.Model(&entities.Transaction{}).
		Where("return_date IS NOT NULL AND return_date BETWEEN ? AND ?", rng.Start, rng.End).
		Pluck("return_date", &returnDates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load return dates: %w", err)
	}

	issued := bucketByDay(issueDates)
	returned := bucketByDay(returnDates)

	series := &TimeSeries{}
	for day := rng.Start; !day.After(rng.End); day = day.AddDate(0, 0, 1) {
		label := day.Format(dayLabel)
		series.Labels = append(series.Labels, label)
		series.Issued = append(series.Issued, issued[label])
		series.Returned = append(series.Returned, returned[label])
	}
	return series, nil
}

func bucketByDay(dates []time.Time) map[string]int {
	buckets := make(map[string]int, len(dates))
	for _, d := range dates {
		buckets[d.Local().Format(dayLabel)]++
	}
	return buckets
}

// --- Dashboard ---

// TitleCount pairs a book title with its all-time issue count.
type TitleCount struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

// Dashboard is the at-a-glance payload for the landing page.
type Dashboard struct {
	TotalBooks         int64        `json:"totalBooks"`
	TotalMembers       int64        `json:"totalMembers"`
	ActiveLoans        int64        `json:"activeLoans"`
	PopularBooks       []TitleCount `json:"popularBooks"`
	RecentTransactions []RecentLoan `json:"recentTransactions"`
}

// Dashboard computes overall totals, the top most-issued books of all
// time and the most recent loans.
func (r *Repository) Dashboard(topLimit int) (*Dashboard, error) {
	if topLimit < 1 {
		topLimit = 5
	}

	d := &Dashboard{}
	if err := r.db.Model(&entities.Book{}).Count(&d.TotalBooks).Error; err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}
	if err := r.db.Model(&entities.Member{}).Count(&d.TotalMembers).Error; err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}
	err := r.db.Model(&entities.Transaction{}).
		Where("return_date IS NULL").
		Count(&d.ActiveLoans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active loans: %w", err)
	}

	err = r.db.Model(&entities.Transaction{}).
		Select("books.title, COUNT(*) AS count").
		Joins("JOIN books ON books.id = transactions.book_id").
		Group("books.id").
		Order("count DESC").
		Limit(topLimit).
		Scan(&d.PopularBooks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank popular books: %w", err)
	}

	err = r.db.Model(&entities.Transaction{}).
		Select("members.full_name AS member_name, books.title AS book_title, transactions.issue_date").
		Joins("JOIN members ON members.id = transactions.member_id").
		Joins("JOIN books ON books.id = transactions.book_id").
		Order("transactions.issue_date DESC").
		Limit(topLimit).
		Scan(&d.RecentTransactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent loans: %w", err)
	}
	return d, nil
}
