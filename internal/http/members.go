package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/openshelf/circulate/internal/database/members"
	"github.com/openshelf/circulate/internal/entities"
)

// MembersController serves the membership endpoints.
type MembersController struct {
	members *members.Repository
}

func NewMembersController(membersRepo *members.Repository) *MembersController {
	return &MembersController{members: membersRepo}
}

// List handles GET /api/members.
func (controller *MembersController) List(c *gin.Context) {
	all, err := controller.members.GetAll()
	if err != nil {
		respondInternalError(c, err, "list members")
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": all, "count": len(all)})
}

type createMemberRequest struct {
	FullName              string `json:"full_name"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone"`
	Address               string `json:"address"`
	DateOfBirth           string `json:"date_of_birth"`
	Gender                string `json:"gender"`
	City                  string `json:"city"`
	State                 string `json:"state"`
	PostalCode            string `json:"postal_code"`
	MemberType            string `json:"member_type"`
	MembershipDate        string `json:"membership_date"`
	Institution           string `json:"institution"`
	EmergencyContactName  string `json:"emergency_contact_name"`
	EmergencyContactPhone string `json:"emergency_contact_phone"`
	Notes                 string `json:"notes"`
	TermsAgreed           bool   `json:"terms_agreed"`
}

// Create handles POST /api/members.
func (controller *MembersController) Create(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	member := &entities.Member{
		FullName:              req.FullName,
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		Email:                 req.Email,
		Phone:                 req.Phone,
		Address:               req.Address,
		DateOfBirth:           optionalDate(req.DateOfBirth),
		Gender:                req.Gender,
		City:                  req.City,
		State:                 req.State,
		PostalCode:            req.PostalCode,
		MemberType:            req.MemberType,
		MembershipDate:        optionalDate(req.MembershipDate),
		Institution:           req.Institution,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		Notes:                 req.Notes,
		TermsAgreed:           req.TermsAgreed,
	}

	id, err := controller.members.Create(member)
	if err != nil {
		if errors.Is(err, members.ErrNameRequired) {
			respondBadRequest(c, err.Error())
			return
		}
		respondInternalError(c, err, "create member")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type updateMemberRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Update handles PUT /api/members/:id for the core contact fields.
func (controller *MembersController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	err := controller.members.UpdateContact(id, req.FullName, req.Email, req.Phone, req.Address)
	if err != nil {
		switch {
		case errors.Is(err, members.ErrNameRequired):
			respondBadRequest(c, err.Error())
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondNotFound(c, "member")
		default:
			respondInternalError(c, err, "update member")
		}
		return
	}
	respondSuccess(c, "member updated")
}

// Delete handles DELETE /api/members/:id.
func (controller *MembersController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.members.Delete(id); err != nil {
		respondInternalError(c, err, "delete member")
		return
	}
	respondSuccess(c, "member deleted")
}
