package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"webmail/models"
)

var (
	// ErrNotFound is returned when a record is absent or owned by
	// someone else.
	ErrNotFound = errors.New("not found")
	// ErrQuotaExceeded is returned by CreateWithQuota before anything
	// is written.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// EmailQuery selects, orders and windows a user's messages.
// Zero-value fields are ignored; flag filters use pointers so "unset"
// and "false" stay distinct.
type EmailQuery struct {
	Folder         string
	IsRead         *bool
	IsStarred      *bool
	IsSpam         *bool
	Labels         []string // matches messages carrying any of these
	HasAttachments *bool
	Search         string // case-insensitive substring over subject/text/html
	SortBy         string // receivedAt (default), sentAt, subject, from
	SortOrder      string // desc (default) or asc
	Page           int
	Limit          int
}

// EmailStore persists messages in bbolt. Keys are composite
// "userID/messageID" so one cursor prefix scan covers a mailbox.
type EmailStore struct {
	db *bbolt.DB
}

// NewEmailStore creates an email store over an initialized database.
func NewEmailStore(db *bbolt.DB) *EmailStore {
	return &EmailStore{db: db}
}

func emailKey(userID, messageID string) []byte {
	return []byte(userID + "/" + messageID)
}

// Create stores a message without touching the owner's quota ledger.
// Used for inbound mail and tests; outbound mail goes through
// CreateWithQuota.
func (s *EmailStore) Create(email *models.Email) error {
	now := time.Now()
	email.CreatedAt = now
	email.UpdatedAt = now

	return s.db.Update(func(tx *bbolt.Tx) error {
		return putEmail(tx, email)
	})
}

// CreateWithQuota checks the owner's quota, stores the message and
// charges the ledger inside a single write transaction. bbolt serializes
// writers, so concurrent sends cannot race the counter past the ceiling;
// on ErrQuotaExceeded nothing has been written.
func (s *EmailStore) CreateWithQuota(email *models.Email) error {
	now := time.Now()
	email.CreatedAt = now
	email.UpdatedAt = now
	size := email.Size()

	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := getUser(tx, email.UserID)
		if err != nil {
			return err
		}
		if !user.HasQuota(size) {
			return ErrQuotaExceeded
		}

		if err := putEmail(tx, email); err != nil {
			return err
		}

		user.UpdateQuota(size)
		user.UpdatedAt = now
		return putUser(tx, user)
	})
}

// Get retrieves a message by owner and ID.
func (s *EmailStore) Get(userID, messageID string) (*models.Email, error) {
	var email models.Email
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(emailBucket)).Get(emailKey(userID, messageID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &email)
	})
	if err != nil {
		return nil, err
	}
	return &email, nil
}

// Update rewrites an existing message.
func (s *EmailStore) Update(email *models.Email) error {
	email.UpdatedAt = time.Now()
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(emailBucket))
		key := emailKey(email.UserID, email.MessageID)
		if b.Get(key) == nil {
			return ErrNotFound
		}
		data, err := json.Marshal(email)
		if err != nil {
			return fmt.Errorf("failed to marshal email: %w", err)
		}
		return b.Put(key, data)
	})
}

// Delete removes a message permanently. The owner's quota is not
// released; the ledger only ever grows on send.
func (s *EmailStore) Delete(userID, messageID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(emailBucket))
		key := emailKey(userID, messageID)
		if b.Get(key) == nil {
			return ErrNotFound
		}
		return b.Delete(key)
	})
}

// ListAll returns every message a user owns, unordered.
func (s *EmailStore) ListAll(userID string) ([]*models.Email, error) {
	var emails []*models.Email
	err := s.db.View(func(tx *bbolt.Tx) error {
		return s.scan(tx, userID, func(email *models.Email) {
			emails = append(emails, email)
		})
	})
	if err != nil {
		return nil, err
	}
	return emails, nil
}

// Query runs a filtered, sorted, paginated listing. The returned total
// counts messages matching the filters; the search term narrows the
// returned items but not the total.
func (s *EmailStore) Query(userID string, q EmailQuery) ([]*models.Email, int, error) {
	var matched []*models.Email
	total := 0

	err := s.db.View(func(tx *bbolt.Tx) error {
		return s.scan(tx, userID, func(email *models.Email) {
			if !matchesFilter(email, q) {
				return
			}
			total++
			if q.Search == "" || matchesSearch(email, q.Search) {
				matched = append(matched, email)
			}
		})
	})
	if err != nil {
		return nil, 0, err
	}

	sortEmails(matched, q.SortBy, q.SortOrder)

	// No limit means no windowing.
	if q.Limit <= 0 {
		return matched, total, nil
	}
	if q.Page < 1 {
		q.Page = 1
	}
	start := (q.Page - 1) * q.Limit
	if start >= len(matched) {
		return []*models.Email{}, total, nil
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// scan walks all messages of one user via a cursor prefix scan.
func (s *EmailStore) scan(tx *bbolt.Tx, userID string, fn func(*models.Email)) error {
	c := tx.Bucket([]byte(emailBucket)).Cursor()
	prefix := []byte(userID + "/")
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var email models.Email
		if err := json.Unmarshal(v, &email); err != nil {
			return fmt.Errorf("corrupt email record %s: %w", k, err)
		}
		fn(&email)
	}
	return nil
}

func putEmail(tx *bbolt.Tx, email *models.Email) error {
	data, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}
	return tx.Bucket([]byte(emailBucket)).Put(emailKey(email.UserID, email.MessageID), data)
}

func matchesFilter(email *models.Email, q EmailQuery) bool {
	if q.Folder != "" && string(email.Folder) != q.Folder {
		return false
	}
	if q.IsRead != nil && email.IsRead != *q.IsRead {
		return false
	}
	if q.IsStarred != nil && email.IsStarred != *q.IsStarred {
		return false
	}
	if q.IsSpam != nil && email.IsSpam != *q.IsSpam {
		return false
	}
	if q.HasAttachments != nil && email.HasAttachments() != *q.HasAttachments {
		return false
	}
	if len(q.Labels) > 0 {
		any := false
		for _, l := range q.Labels {
			if email.HasLabel(l) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}

func matchesSearch(email *models.Email, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(email.Subject), term) ||
		strings.Contains(strings.ToLower(email.Text), term) ||
		strings.Contains(strings.ToLower(email.HTML), term)
}

func sortEmails(emails []*models.Email, sortBy, sortOrder string) {
	asc := sortOrder == "asc"
	less := func(a, b *models.Email) bool {
		switch sortBy {
		case "sentAt":
			at, bt := time.Time{}, time.Time{}
			if a.SentAt != nil {
				at = *a.SentAt
			}
			if b.SentAt != nil {
				bt = *b.SentAt
			}
			return at.Before(bt)
		case "subject":
			return strings.ToLower(a.Subject) < strings.ToLower(b.Subject)
		case "from":
			return strings.ToLower(a.From) < strings.ToLower(b.From)
		default: // receivedAt
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
	}
	sort.SliceStable(emails, func(i, j int) bool {
		if asc {
			return less(emails[i], emails[j])
		}
		return less(emails[j], emails[i])
	})
}
