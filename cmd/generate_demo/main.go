// Command generate_demo creates a demo database with a sample
// catalogue, members and loan history so the reports have something to
// show.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/openshelf/circulate/internal/database"
	"github.com/openshelf/circulate/internal/database/catalog"
	"github.com/openshelf/circulate/internal/database/ledger"
	"github.com/openshelf/circulate/internal/database/members"
	"github.com/openshelf/circulate/internal/entities"
)

const defaultDemoDatabasePath = "./demo/demo.db"

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	catalogRepo := catalog.NewRepository(db.DB)
	membersRepo := members.NewRepository(db.DB)
	ledgerRepo := ledger.NewRepository(db.DB, catalogRepo)

	bookIDs := createBooks(catalogRepo)
	memberIDs := createMembers(membersRepo)
	createLoans(ledgerRepo, bookIDs, memberIDs)

	log.Println("Demo database generated successfully!")
}

func createBooks(repo *catalog.Repository) []uint {
	books := []entities.Book{
		{Title: "Meditations", Author: "Marcus Aurelius", Publisher: "Penguin Classics", YearPublished: 180, Category: "Philosophy", TotalCopies: 4, AvailableCopies: 4},
		{Title: "Letters from a Stoic", Author: "Seneca", Publisher: "Penguin Classics", YearPublished: 65, Category: "Philosophy", TotalCopies: 3, AvailableCopies: 3},
		{Title: "The Republic", Author: "Plato", Publisher: "Oxford World's Classics", YearPublished: 1888, Category: "Philosophy", TotalCopies: 2, AvailableCopies: 2},
		{Title: "On the Origin of Species", Author: "Charles Darwin", Publisher: "John Murray", YearPublished: 1859, Category: "Science", TotalCopies: 3, AvailableCopies: 3},
		{Title: "Frankenstein", Author: "Mary Shelley", Publisher: "Lackington, Hughes", YearPublished: 1818, Category: "Fiction", TotalCopies: 5, AvailableCopies: 5},
		{Title: "Pride and Prejudice", Author: "Jane Austen", Publisher: "T. Egerton", YearPublished: 1813, Category: "Fiction", TotalCopies: 6, AvailableCopies: 6},
		{Title: "War and Peace", Author: "Leo Tolstoy", Publisher: "The Russian Messenger", YearPublished: 1869, Category: "Fiction", TotalCopies: 3, AvailableCopies: 3},
		{Title: "Crime and Punishment", Author: "Fyodor Dostoevsky", Publisher: "The Russian Messenger", YearPublished: 1866, Category: "Fiction", TotalCopies: 4, AvailableCopies: 4},
		{Title: "The Picture of Dorian Gray", Author: "Oscar Wilde", Publisher: "Lippincott's", YearPublished: 1890, Category: "Fiction", TotalCopies: 2, AvailableCopies: 2},
		{Title: "The Art of War", Author: "Sun Tzu", Publisher: "Luzac & Co.", YearPublished: 1910, Category: "Strategy", TotalCopies: 2, AvailableCopies: 2},
		// A couple of uncatalogued donations.
		{Title: "Local History Pamphlet", Author: "Various", TotalCopies: 1, AvailableCopies: 1},
	}

	var ids []uint
	for i := range books {
		id, err := repo.Create(&books[i])
		if err != nil {
			log.Printf("Failed to save book %s: %v", books[i].Title, err)
			continue
		}
		log.Printf("Saved: %s by %s (%d copies)", books[i].Title, books[i].Author, books[i].TotalCopies)
		ids = append(ids, id)
	}
	return ids
}

func createMembers(repo *members.Repository) []uint {
	now := time.Now()
	joined := func(monthsAgo int) *time.Time {
		t := now.AddDate(0, -monthsAgo, 0)
		return &t
	}

	people := []entities.Member{
		{FullName: "Ada Lovelace", Email: "ada@example.com", Phone: "555-0101", City: "London", MemberType: "regular", MembershipDate: joined(14), TermsAgreed: true},
		{FullName: "Grace Hopper", Email: "grace@example.com", Phone: "555-0102", City: "Arlington", MemberType: "regular", MembershipDate: joined(9), TermsAgreed: true},
		{FullName: "Alan Turing", Email: "alan@example.com", City: "Manchester", MemberType: "student", Institution: "University of Manchester", MembershipDate: joined(6), TermsAgreed: true},
		{FullName: "Katherine Johnson", Email: "katherine@example.com", Phone: "555-0104", MemberType: "regular", MembershipDate: joined(3), TermsAgreed: true},
		{FullName: "Claude Shannon", Email: "claude@example.com", MemberType: "student", Institution: "MIT", MembershipDate: joined(1), TermsAgreed: true},
	}

	var ids []uint
	for i := range people {
		id, err := repo.Create(&people[i])
		if err != nil {
			log.Printf("Failed to save member %s: %v", people[i].FullName, err)
			continue
		}
		log.Printf("Registered member: %s", people[i].FullName)
		ids = append(ids, id)
	}
	return ids
}

// createLoans issues a spread of backdated loans and returns some of
// them, leaving a few open and a couple overdue.
func createLoans(repo *ledger.Repository, bookIDs, memberIDs []uint) {
	if len(bookIDs) < 6 || len(memberIDs) < 5 {
		log.Println("Not enough demo records to create loans")
		return
	}

	now := time.Now()
	loans := []struct {
		member   int
		book     int
		daysAgo  int
		returned bool
	}{
		{member: 0, book: 5, daysAgo: 28, returned: true},
		{member: 0, book: 0, daysAgo: 21, returned: true},
		{member: 1, book: 5, daysAgo: 25, returned: true},
		{member: 1, book: 4, daysAgo: 18, returned: false}, // overdue
		{member: 2, book: 0, daysAgo: 16, returned: false}, // overdue
		{member: 2, book: 3, daysAgo: 12, returned: true},
		{member: 3, book: 5, daysAgo: 10, returned: false},
		{member: 3, book: 7, daysAgo: 7, returned: true},
		{member: 4, book: 0, daysAgo: 5, returned: false},
		{member: 4, book: 6, daysAgo: 2, returned: false},
	}

	for _, l := range loans {
		txn, err := repo.Issue(memberIDs[l.member], bookIDs[l.book], now.AddDate(0, 0, -l.daysAgo))
		if err != nil {
			log.Printf("Failed to issue demo loan: %v", err)
			continue
		}
		if l.returned {
			if _, err := repo.Return(txn.ID); err != nil {
				log.Printf("Failed to return demo loan %d: %v", txn.ID, err)
			}
		}
	}
	log.Printf("Created %d demo loans", len(loans))
}
