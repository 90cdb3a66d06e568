// Package members provides database operations for library member
// profiles.
package members

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/openshelf/circulate/internal/entities"
)

// ErrNameRequired is returned when neither a full name nor a
// first/last name pair is supplied.
var ErrNameRequired = errors.New("full name is required")

// Repository handles all member database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create validates and inserts a new member, returning its ID.
// When FullName is blank it is derived from the trimmed first and
// last names; a member with no usable name at all is rejected.
func (r *Repository) Create(member *entities.Member) (uint, error) {
	member.FirstName = strings.TrimSpace(member.FirstName)
	member.LastName = strings.TrimSpace(member.LastName)
	member.FullName = strings.TrimSpace(member.FullName)
	if member.FullName == "" {
		member.FullName = strings.TrimSpace(member.FirstName + " " + member.LastName)
	}
	if member.FullName == "" {
		return 0, ErrNameRequired
	}

	if err := r.db.Create(member).Error; err != nil {
		return 0, fmt.Errorf("failed to create member: %w", err)
	}
	return member.ID, nil
}

// GetAll returns every member, newest first.
func (r *Repository) GetAll() ([]entities.Member, error) {
	var members []entities.Member
	err := r.db.Order("id DESC").Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// GetByID retrieves a single member.
func (r *Repository) GetByID(id uint) (*entities.Member, error) {
	var member entities.Member
	if err := r.db.First(&member, id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateContact updates the four core contact fields of a member.
// Returns gorm.ErrRecordNotFound for an unknown ID.
func (r *Repository) UpdateContact(id uint, fullName, email, phone, address string) error {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return ErrNameRequired
	}
	res := r.db.Model(&entities.Member{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"full_name": fullName,
			"email":     email,
			"phone":     phone,
			"address":   address,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update member: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a member row. Loans referencing the member are left
// in place.
func (r *Repository) Delete(id uint) error {
	return r.db.Delete(&entities.Member{}, id).Error
}
