package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"regexp"   // Regular expressions
	"strings"  // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library

	"event_wallet/internal/apperr" // Service errors
	"event_wallet/internal/domain" // Domain models
	"event_wallet/internal/utils"  // JWT helpers
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z]+$`) // Alphabetic usernames only

// Credentials is the body of register and login
type Credentials struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// AuthResponse carries the issued access token
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

func isValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

func isValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 15 // 8-15 characters
}

// RegisterHandler creates a user. The wallet is created on first use.
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Credentials
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if !isValidUsername(req.Username) {
			badRequest(c, "Username must be alphabetic only")
			return
		}
		if !isValidPassword(req.Password) {
			badRequest(c, "Password must be 8-15 characters")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, err)
			return
		}
		// Lowercase username to keep it unique regardless of case
		user := domain.User{Username: strings.ToLower(req.Username), Password: string(hash), Role: domain.RoleUser}
		if err := db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respondError(c, apperr.WithMessage(apperr.ErrConflict, "Username already exists"))
				return
			}
			respondError(c, apperr.Persistence(err))
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":  user.ID,       // New user
			"username": user.Username, // Normalized username
		}).Info("User registered")
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "id": user.ID})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Credentials
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		user, err := checkPassword(db.WithContext(c.Request.Context()), "username = ?", strings.ToLower(req.Username), req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		token, err := utils.GenerateJWT(user.ID, user.Role, jwtSecret)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}

// checkPassword loads the user matching query and compares password with the
// stored hash. Unknown users and wrong passwords are indistinguishable.
func checkPassword(db *gorm.DB, query string, arg any, password string) (*domain.User, error) {
	invalid := apperr.WithMessage(apperr.ErrUnauthorized, "Invalid credentials")
	var user domain.User
	if err := db.Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, apperr.Persistence(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalid
	}
	return &user, nil
}
