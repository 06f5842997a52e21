package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

const tokenTTL = 30 * time.Minute

// Service issues and validates operator tokens.
type Service struct {
	db     *gorm.DB
	secret []byte
	logger *zap.Logger
}

func NewService(db *gorm.DB, secret string, logger *zap.Logger) *Service {
	return &Service{db: db, secret: []byte(secret), logger: logger}
}

// Register creates an operator account bound to an on-ledger address.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Operator, error) {
	addr, err := ledger.ParseAddress(req.Address)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = RoleViewer
	}
	switch role {
	case RoleOwner, RoleAdmin, RoleIssuer, RoleViewer:
	default:
		return nil, ledger.ErrOutOfRange
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	op := &Operator{
		Email:        req.Email,
		PasswordHash: string(hash),
		Address:      addr.String(),
		Role:         role,
	}
	if err := s.db.WithContext(ctx).Create(op).Error; err != nil {
		return nil, fmt.Errorf("create operator: %w", err)
	}
	return op, nil
}

// Login verifies credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var op Operator
	err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&op).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)) != nil {
		return nil, ledger.ErrUnauthorized
	}

	expiresAt := time.Now().Add(tokenTTL)
	claims := Claims{
		OperatorID: op.ID,
		Address:    op.Address,
		Role:       op.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Address:   op.Address,
		Role:      op.Role,
	}, nil
}

// ValidateToken parses and verifies a token string.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}
