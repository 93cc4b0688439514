package service

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"webmail/models"
	"webmail/storage"
	"webmail/utils"
)

const minPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Claims is the JWT payload identifying an authenticated user.
type Claims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// RegisterRequest is the account creation input.
type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// AuthService handles registration, login and token issuance.
type AuthService struct {
	users  *storage.UserStore
	secret string
	expiry time.Duration
}

// NewAuthService creates an auth service.
func NewAuthService(users *storage.UserStore, secret string, expiry time.Duration) *AuthService {
	return &AuthService{users: users, secret: secret, expiry: expiry}
}

// Register creates an account and returns it with a fresh token.
func (s *AuthService) Register(req RegisterRequest) (*models.User, string, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	if !emailPattern.MatchString(req.Email) {
		return nil, "", utils.BadRequestError("invalid email address", nil)
	}
	if len(req.Username) < 3 || len(req.Username) > 30 {
		return nil, "", utils.BadRequestError("username must be 3-30 characters", nil)
	}
	if len(req.Password) < minPasswordLength {
		return nil, "", utils.BadRequestError("password must be at least 8 characters", nil)
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, "", utils.BadRequestError("first and last name are required", nil)
	}

	if _, err := s.users.GetByEmail(req.Email); err == nil {
		return nil, "", utils.ConflictError("user already exists", nil)
	}

	user := &models.User{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	}
	if err := s.users.Create(user, req.Password); err != nil {
		return nil, "", utils.InternalServerError("failed to create user", err)
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, "", utils.InternalServerError("failed to issue token", err)
	}
	return user, token, nil
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(email, password string) (*models.User, string, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", utils.UnauthorizedError("invalid credentials", nil)
		}
		return nil, "", err
	}
	if !user.IsActive {
		return nil, "", utils.ForbiddenError("account is deactivated", nil)
	}
	if !s.users.VerifyPassword(user, password) {
		return nil, "", utils.UnauthorizedError("invalid credentials", nil)
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, "", utils.InternalServerError("failed to issue token", err)
	}
	return user, token, nil
}

// GetProfile returns the account for an authenticated user ID.
func (s *AuthService) GetProfile(userID string) (*models.User, error) {
	user, err := s.users.Get(userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, utils.NotFoundError("user not found", err)
		}
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password before replacing it.
func (s *AuthService) ChangePassword(userID, current, next string) error {
	user, err := s.GetProfile(userID)
	if err != nil {
		return err
	}
	if !s.users.VerifyPassword(user, current) {
		return utils.UnauthorizedError("current password is incorrect", nil)
	}
	if len(next) < minPasswordLength {
		return utils.BadRequestError("password must be at least 8 characters", nil)
	}
	return s.users.UpdatePassword(userID, next)
}

// ProfileUpdate is a partial profile patch; empty fields are left alone.
type ProfileUpdate struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
}

// UpdateProfile applies the non-empty fields of upd to the caller's
// account. Email is immutable; it keys the login index.
func (s *AuthService) UpdateProfile(userID string, upd ProfileUpdate) (*models.User, error) {
	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	if first := strings.TrimSpace(upd.FirstName); first != "" {
		user.FirstName = first
	}
	if last := strings.TrimSpace(upd.LastName); last != "" {
		user.LastName = last
	}
	if username := strings.TrimSpace(upd.Username); username != "" {
		if len(username) < 3 || len(username) > 30 {
			return nil, utils.BadRequestError("username must be 3-30 characters", nil)
		}
		user.Username = username
	}

	if err := s.users.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns all active accounts (admin only, checked by the
// caller).
func (s *AuthService) ListUsers() ([]*models.User, error) {
	users, err := s.users.List()
	if err != nil {
		return nil, err
	}
	active := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u.IsActive {
			active = append(active, u)
		}
	}
	return active, nil
}

// SetUserActive activates or deactivates an account (admin only, checked
// by the caller). Deactivated users cannot log in; existing tokens are
// not revoked.
func (s *AuthService) SetUserActive(userID string, active bool) error {
	if err := s.users.SetActive(userID, active); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return utils.NotFoundError("user not found", err)
		}
		return err
	}
	return nil
}

// UserStats summarizes the user base alongside the caller's own quota.
type UserStats struct {
	TotalUsers           int     `json:"totalUsers"`
	ActiveUsers          int     `json:"activeUsers"`
	UserQuota            int64   `json:"userQuota"`
	UsedQuota            int64   `json:"usedQuota"`
	QuotaUsagePercentage float64 `json:"quotaUsagePercentage"`
}

// GetUserStats returns account counts and the caller's quota usage.
func (s *AuthService) GetUserStats(userID string) (*UserStats, error) {
	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.List()
	if err != nil {
		return nil, err
	}

	stats := &UserStats{
		UserQuota:            user.EmailQuota,
		UsedQuota:            user.UsedQuota,
		QuotaUsagePercentage: user.QuotaUsagePercentage(),
	}
	for _, u := range users {
		stats.TotalUsers++
		if u.IsActive {
			stats.ActiveUsers++
		}
	}
	return stats, nil
}

// SetUserQuota adjusts a user's quota ceiling (admin only, checked by
// the caller).
func (s *AuthService) SetUserQuota(userID string, quotaBytes int64) error {
	if err := s.users.SetQuota(userID, quotaBytes); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return utils.NotFoundError("user not found", err)
		}
		return utils.BadRequestError("invalid quota", err)
	}
	return nil
}

// GenerateToken signs an HS256 JWT for the user.
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// ValidateToken parses and verifies a token string.
func ValidateToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
