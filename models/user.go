package models

import "time"

// DefaultEmailQuota is the storage ceiling for new users (1 GiB).
const DefaultEmailQuota = 1024 * 1024 * 1024

// MaxEmailQuota caps admin-assigned quotas (10 GiB).
const MaxEmailQuota = 10 * 1024 * 1024 * 1024

// User is an account holder. Quota fields form the storage ledger:
// EmailQuota is the ceiling in bytes, UsedQuota the running counter.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	IsActive     bool      `json:"isActive"`
	IsAdmin      bool      `json:"isAdmin"`
	EmailQuota   int64     `json:"emailQuota"`
	UsedQuota    int64     `json:"usedQuota"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FullName returns the display name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// HasQuota reports whether requiredBytes more can be stored without
// crossing the ceiling.
func (u *User) HasQuota(requiredBytes int64) bool {
	return u.UsedQuota+requiredBytes <= u.EmailQuota
}

// UpdateQuota applies a delta to the used counter, clamping at zero.
// Negative deltas are legal (corrective adjustments); permanent delete
// never issues one.
func (u *User) UpdateQuota(deltaBytes int64) {
	u.UsedQuota += deltaBytes
	if u.UsedQuota < 0 {
		u.UsedQuota = 0
	}
}

// QuotaUsagePercentage returns used quota as a percentage of the ceiling.
func (u *User) QuotaUsagePercentage() float64 {
	if u.EmailQuota <= 0 {
		return 0
	}
	return float64(u.UsedQuota) / float64(u.EmailQuota) * 100
}
