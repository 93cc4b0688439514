package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"golang.org/x/crypto/bcrypt"

	"webmail/models"
)

// userRecord is the persisted form of a user. The hash is excluded from
// API JSON via its model tag, so persistence carries it separately.
type userRecord struct {
	*models.User
	PasswordHash string `json:"passwordHash"`
}

// UserStore persists accounts in bbolt. A secondary index bucket maps
// email address to user ID for login lookups.
type UserStore struct {
	db           *bbolt.DB
	defaultQuota int64
}

// NewUserStore creates a user store over an initialized database.
func NewUserStore(db *bbolt.DB, defaultQuota int64) *UserStore {
	if defaultQuota <= 0 {
		defaultQuota = models.DefaultEmailQuota
	}
	return &UserStore{db: db, defaultQuota: defaultQuota}
}

// Create registers a user, hashing the password and assigning defaults.
func (s *UserStore) Create(user *models.User, password string) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashed)

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true
	if user.EmailQuota == 0 {
		user.EmailQuota = s.defaultQuota
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		idx := tx.Bucket([]byte(userIndexBucket))
		if idx.Get([]byte(user.Email)) != nil {
			return fmt.Errorf("user %s already exists", user.Email)
		}
		if err := idx.Put([]byte(user.Email), []byte(user.ID)); err != nil {
			return err
		}
		return putUser(tx, user)
	})
}

// Get retrieves a user by ID.
func (s *UserStore) Get(userID string) (*models.User, error) {
	var user *models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		user, err = getUser(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmail retrieves a user by email address.
func (s *UserStore) GetByEmail(email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user *models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(userIndexBucket)).Get([]byte(email))
		if id == nil {
			return ErrNotFound
		}
		var err error
		user, err = getUser(tx, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Update rewrites an existing user, preserving immutable fields.
func (s *UserStore) Update(user *models.User) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		existing, err := getUser(tx, user.ID)
		if err != nil {
			return err
		}
		user.CreatedAt = existing.CreatedAt
		if user.PasswordHash == "" {
			user.PasswordHash = existing.PasswordHash
		}
		user.UpdatedAt = time.Now()
		return putUser(tx, user)
	})
}

// UpdatePassword replaces a user's password hash.
func (s *UserStore) UpdatePassword(userID, newPassword string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}
		user.PasswordHash = string(hashed)
		user.UpdatedAt = time.Now()
		return putUser(tx, user)
	})
}

// VerifyPassword checks a candidate password against the stored hash.
func (s *UserStore) VerifyPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// SetQuota sets a user's quota ceiling (admin operation).
func (s *UserStore) SetQuota(userID string, quotaBytes int64) error {
	if quotaBytes < 0 || quotaBytes > models.MaxEmailQuota {
		return fmt.Errorf("quota out of range: %d", quotaBytes)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}
		user.EmailQuota = quotaBytes
		user.UpdatedAt = time.Now()
		return putUser(tx, user)
	})
}

// SetActive toggles an account's active flag (admin operation).
func (s *UserStore) SetActive(userID string, active bool) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}
		user.IsActive = active
		user.UpdatedAt = time.Now()
		return putUser(tx, user)
	})
}

// List returns all users.
func (s *UserStore) List() ([]*models.User, error) {
	var users []*models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(userBucket)).ForEach(func(k, v []byte) error {
			var user models.User
			if err := json.Unmarshal(v, &user); err != nil {
				return fmt.Errorf("corrupt user record %s: %w", k, err)
			}
			users = append(users, &user)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func getUser(tx *bbolt.Tx, userID string) (*models.User, error) {
	data := tx.Bucket([]byte(userBucket)).Get([]byte(userID))
	if data == nil {
		return nil, ErrNotFound
	}
	rec := userRecord{User: &models.User{}}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("corrupt user record %s: %w", userID, err)
	}
	rec.User.PasswordHash = rec.PasswordHash
	return rec.User, nil
}

func putUser(tx *bbolt.Tx, user *models.User) error {
	data, err := json.Marshal(userRecord{User: user, PasswordHash: user.PasswordHash})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	return tx.Bucket([]byte(userBucket)).Put([]byte(user.ID), data)
}
