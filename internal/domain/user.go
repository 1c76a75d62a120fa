package domain

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User Model
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`                                        // Primary key
	Username string `gorm:"unique;not null;size:64" json:"username"`                     // Unique username
	Password string `gorm:"not null" json:"-"`                                           // Hashed password
	Role     string `gorm:"default:user;size:16" json:"role"`                            // Role: user or admin
	Wallet   Wallet `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"wallet"` // One-to-one relationship with Wallet
}
