package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/openshelf/circulate/internal/config"
	"github.com/openshelf/circulate/internal/database/users"
)

// Handlers serves login/logout and first-run registration.
type Handlers struct {
	users          *users.Repository
	sessionManager *SessionManager
	config         config.Auth
}

func NewHandlers(usersRepo *users.Repository, sessionManager *SessionManager, cfg config.Auth) *Handlers {
	return &Handlers{
		users:          usersRepo,
		sessionManager: sessionManager,
		config:         cfg,
	}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a librarian account. Only allowed while no account
// exists yet (first-run setup) or for an authenticated librarian.
func (h *Handlers) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	count, err := h.users.Count()
	if err != nil {
		log.Printf("Failed to count users: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if count > 0 && h.sessionManager.GetUserID(c.Request) == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "registration requires an authenticated librarian"})
		return
	}

	hash, err := HashPassword(req.Password, h.config.BcryptCost)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Create(req.Username, hash)
	if err != nil {
		if errors.Is(err, users.ErrUsernameTaken) || errors.Is(err, users.ErrUsernameRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("Failed to create user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	log.Printf("Created librarian account %q", user.Username)
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "username": user.Username})
}

// Login verifies credentials and establishes a session.
func (h *Handlers) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := h.users.GetByUsername(req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		log.Printf("Failed to load user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if err := CheckPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := h.sessionManager.CreateSession(c.Request, user); err != nil {
		log.Printf("Failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": user.ID, "username": user.Username})
}

// Logout destroys the current session.
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.sessionManager.DestroySession(c.Request); err != nil {
		log.Printf("Failed to destroy session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Session reports who is logged in, for the frontend to render the
// user menu, and hands out the CSRF token for subsequent mutating
// requests. A session whose account no longer exists reads as
// unauthenticated.
func (h *Handlers) Session(c *gin.Context) {
	payload := gin.H{"authenticated": false}
	if token := GetCSRFToken(c); token != "" {
		payload["csrf_token"] = token
	}

	userID := h.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		c.JSON(http.StatusOK, payload)
		return
	}
	if _, err := h.users.GetByID(userID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load session user: %v", err)
		}
		c.JSON(http.StatusOK, payload)
		return
	}

	payload["authenticated"] = true
	payload["id"] = userID
	payload["username"] = h.sessionManager.GetUsername(c.Request)
	c.JSON(http.StatusOK, payload)
}
