package entities

import (
	"time"
)

// Book is a catalogue record together with its copy counters.
// AvailableCopies is only ever changed by the loan ledger and stays
// within [0, TotalCopies].
type Book struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"index;size:512" json:"title"`
	Author          string    `gorm:"index;size:256" json:"author"`
	Publisher       string    `gorm:"size:256" json:"publisher,omitempty"`
	YearPublished   int       `json:"year_published,omitempty"`
	Category        string    `gorm:"index;size:128" json:"category,omitempty"`
	TotalCopies     int       `gorm:"not null" json:"total_copies"`
	AvailableCopies int       `gorm:"not null" json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Member is a library patron. FullName is the only required field;
// everything else is optional profile data.
type Member struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	FullName              string     `gorm:"size:256;not null" json:"full_name"`
	FirstName             string     `gorm:"size:128" json:"first_name,omitempty"`
	LastName              string     `gorm:"size:128" json:"last_name,omitempty"`
	Email                 string     `gorm:"size:255" json:"email,omitempty"`
	Phone                 string     `gorm:"size:64" json:"phone,omitempty"`
	Address               string     `gorm:"size:512" json:"address,omitempty"`
	DateOfBirth           *time.Time `json:"date_of_birth,omitempty"`
	Gender                string     `gorm:"size:32" json:"gender,omitempty"`
	City                  string     `gorm:"size:128" json:"city,omitempty"`
	State                 string     `gorm:"size:128" json:"state,omitempty"`
	PostalCode            string     `gorm:"size:32" json:"postal_code,omitempty"`
	MemberType            string     `gorm:"size:64" json:"member_type,omitempty"`
	MembershipDate        *time.Time `json:"membership_date,omitempty"`
	Institution           string     `gorm:"size:256" json:"institution,omitempty"`
	EmergencyContactName  string     `gorm:"size:256" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string     `gorm:"size:64" json:"emergency_contact_phone,omitempty"`
	Notes                 string     `json:"notes,omitempty"`
	TermsAgreed           bool       `json:"terms_agreed"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Transaction is a single loan. A nil ReturnDate means the loan is
// still open; ReturnDate is written exactly once, on return.
type Transaction struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	MemberID   uint       `gorm:"index;not null" json:"member_id"`
	BookID     uint       `gorm:"index;not null" json:"book_id"`
	IssueDate  time.Time  `gorm:"index;not null" json:"issue_date"`
	ReturnDate *time.Time `gorm:"index" json:"return_date,omitempty"`

	Member Member `gorm:"foreignKey:MemberID" json:"-"`
	Book   Book   `gorm:"foreignKey:BookID" json:"-"`
}

// Open reports whether the loan has not been returned yet.
func (t Transaction) Open() bool {
	return t.ReturnDate == nil
}

// User is a librarian account for the web UI.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:100" json:"username"`
	PasswordHash string    `gorm:"size:128" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
