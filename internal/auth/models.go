package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Operator roles.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleIssuer = "issuer"
	RoleViewer = "viewer"
)

// Operator is a human or service account allowed to drive ledger operations
// on behalf of an on-ledger address.
type Operator struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Address      string    `json:"address" gorm:"size:42;not null;index"`
	Role         string    `json:"role" gorm:"not null;default:'viewer'"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Operator) TableName() string { return "operators" }

func (o *Operator) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Claims is the JWT payload issued at login. Address is the on-ledger
// identity every mutating endpoint acts as.
type Claims struct {
	OperatorID uuid.UUID `json:"operator_id"`
	Address    string    `json:"address"`
	Role       string    `json:"role"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Address  string `json:"address" binding:"required"`
	Role     string `json:"role"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Address   string    `json:"address"`
	Role      string    `json:"role"`
}
