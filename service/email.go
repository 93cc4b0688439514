package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"webmail/models"
	"webmail/storage"
	"webmail/utils"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100

	statsTTL = 30 * time.Second
)

// messageIDDomain is the host part of generated message IDs.
const messageIDDomain = "webmail.local"

// SendRequest is the input to SendEmail. Either Text or HTML must be set.
type SendRequest struct {
	To      []string `json:"to"`
	Cc      []string `json:"cc,omitempty"`
	Bcc     []string `json:"bcc,omitempty"`
	Subject string   `json:"subject"`
	Text    string   `json:"text,omitempty"`
	HTML    string   `json:"html,omitempty"`
}

// SendResult identifies a sent message.
type SendResult struct {
	MessageID string    `json:"messageId"`
	SentAt    time.Time `json:"sentAt"`
}

// UpdatePatch is a partial update; nil fields are left untouched.
type UpdatePatch struct {
	IsRead    *bool    `json:"isRead,omitempty"`
	IsStarred *bool    `json:"isStarred,omitempty"`
	Folder    *string  `json:"folder,omitempty"`
	Labels    []string `json:"labels,omitempty"`
}

// EmailStats summarizes a mailbox.
type EmailStats struct {
	TotalEmails            int     `json:"totalEmails"`
	UnreadEmails           int     `json:"unreadEmails"`
	SpamEmails             int     `json:"spamEmails"`
	SentEmails             int     `json:"sentEmails"`
	StarredEmails          int     `json:"starredEmails"`
	StorageUsed            int64   `json:"storageUsed"`
	StorageLimit           int64   `json:"storageLimit"`
	StorageUsagePercentage float64 `json:"storageUsagePercentage"`
}

// MailboxService orchestrates the lifecycle engine, the stores and the
// optional SMTP relay into request-shaped operations. Each operation is a
// transaction boundary at the single-message grain; there is no
// atomicity across messages.
type MailboxService struct {
	emails *storage.EmailStore
	users  *storage.UserStore
	relay  *Relay // nil disables outbound relaying
	stats  *utils.TTLCache
	log    *utils.Logger
}

// NewMailboxService creates a mailbox service. relay may be nil.
func NewMailboxService(emails *storage.EmailStore, users *storage.UserStore, relay *Relay) *MailboxService {
	return &MailboxService{
		emails: emails,
		users:  users,
		relay:  relay,
		stats:  utils.NewTTLCache(time.Minute),
		log:    utils.Log.WithField("component", "mailbox"),
	}
}

// SendEmail validates quota, builds the message, scores it for spam,
// persists it with the quota charge in one transaction and finally hands
// it to the relay. Relay failures are logged, never surfaced; by the time
// the relay runs the message is already in the sent folder.
func (s *MailboxService) SendEmail(userID string, req SendRequest, attachments []models.Attachment) (*SendResult, error) {
	user, err := s.users.Get(userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, utils.NotFoundError("User not found", err)
		}
		return nil, err
	}

	if err := validateSendRequest(req); err != nil {
		return nil, err
	}

	now := time.Now()
	email := &models.Email{
		MessageID:   fmt.Sprintf("<%s@%s>", uuid.New().String(), messageIDDomain),
		UserID:      user.ID,
		From:        user.Email,
		To:          parseRecipients(req.To),
		Cc:          parseRecipients(req.Cc),
		Bcc:         parseRecipients(req.Bcc),
		Subject:     strings.TrimSpace(req.Subject),
		Text:        req.Text,
		HTML:        utils.SanitizeHTML(req.HTML),
		Attachments: attachments,
		Labels:      []string{},
		Folder:      models.FolderSent,
		ReceivedAt:  now,
		SentAt:      &now,
	}

	result := utils.DetectSpam(email)
	email.SetSpamScore(result.Score)
	if result.IsSpam {
		s.log.Warn("outbound message scored as spam: id=%s score=%.2f reasons=%v",
			email.MessageID, result.Score, result.Reasons)
	}

	// Quota check, message put and ledger charge share one write
	// transaction; a failed check leaves no partial write.
	if err := s.emails.CreateWithQuota(email); err != nil {
		if errors.Is(err, storage.ErrQuotaExceeded) {
			return nil, utils.QuotaExceededError("Email quota exceeded")
		}
		if errors.Is(err, storage.ErrNotFound) {
			return nil, utils.NotFoundError("User not found", err)
		}
		return nil, err
	}
	s.stats.Delete(userID)

	if s.relay != nil {
		if err := s.relay.Send(email); err != nil {
			s.log.Error("relay failed for %s: %v", email.MessageID, err)
		}
	}

	return &SendResult{MessageID: email.MessageID, SentAt: now}, nil
}

// GetEmails lists a mailbox with filters, search, sorting and pagination.
// Limits are capped at 100; defaults are page 1, limit 20, receivedAt
// descending.
func (s *MailboxService) GetEmails(userID string, q storage.EmailQuery) (*models.PaginatedEmails, error) {
	if q.Page < 1 {
		q.Page = defaultPage
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.SortBy == "" {
		q.SortBy = "receivedAt"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}

	items, total, err := s.emails.Query(userID, q)
	if err != nil {
		return nil, err
	}
	return &models.PaginatedEmails{
		Items:      items,
		Pagination: models.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// GetEmailByID fetches a single message and, as a deliberate side effect,
// marks it read if it was unread. Reading mutates state; a second fetch
// returns the message unchanged.
func (s *MailboxService) GetEmailByID(userID, messageID string) (*models.Email, error) {
	email, err := s.getOwned(userID, messageID)
	if err != nil {
		return nil, err
	}
	if !email.IsRead {
		email.MarkRead()
		if err := s.emails.Update(email); err != nil {
			return nil, err
		}
		s.stats.Delete(userID)
	}
	return email, nil
}

// UpdateEmail applies a partial patch through the lifecycle engine and
// persists the result.
func (s *MailboxService) UpdateEmail(userID, messageID string, patch UpdatePatch) (*models.Email, error) {
	email, err := s.getOwned(userID, messageID)
	if err != nil {
		return nil, err
	}

	if patch.Folder != nil && !models.ValidFolder(*patch.Folder) {
		return nil, utils.BadRequestError(fmt.Sprintf("invalid folder: %s", *patch.Folder), nil)
	}

	if patch.IsRead != nil {
		if *patch.IsRead {
			email.MarkRead()
		} else {
			email.MarkUnread()
		}
	}
	if patch.IsStarred != nil {
		email.SetStarred(*patch.IsStarred)
	}
	if patch.Folder != nil {
		email.MoveToFolder(models.Folder(*patch.Folder))
	}
	if patch.Labels != nil {
		email.SetLabels(patch.Labels)
	}

	if err := s.emails.Update(email); err != nil {
		return nil, err
	}
	s.stats.Delete(userID)
	return email, nil
}

// DeleteEmail is a soft delete: the message moves to trash.
func (s *MailboxService) DeleteEmail(userID, messageID string) error {
	email, err := s.getOwned(userID, messageID)
	if err != nil {
		return err
	}
	email.MoveToFolder(models.FolderTrash)
	if err := s.emails.Update(email); err != nil {
		return err
	}
	s.stats.Delete(userID)
	return nil
}

// PermanentlyDeleteEmail removes the message from storage. The quota
// ledger is not credited; used quota only ever grows on send.
func (s *MailboxService) PermanentlyDeleteEmail(userID, messageID string) error {
	if err := s.emails.Delete(userID, messageID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return utils.NotFoundError("Email not found", err)
		}
		return err
	}
	s.stats.Delete(userID)
	return nil
}

// MarkAsSpam stamps a fixed spam score of 0.8 (or 0.0 to clear). The
// heuristic is not re-run and the folder does not move, so IsSpam and
// Folder can diverge here; callers wanting the folder to follow must
// issue a separate move.
func (s *MailboxService) MarkAsSpam(userID, messageID string, isSpam bool) (*models.Email, error) {
	email, err := s.getOwned(userID, messageID)
	if err != nil {
		return nil, err
	}
	if isSpam {
		email.SetSpamScore(0.8)
	} else {
		email.SetSpamScore(0.0)
	}
	if err := s.emails.Update(email); err != nil {
		return nil, err
	}
	s.stats.Delete(userID)
	return email, nil
}

// UpdateEmailLabels replaces the label set.
func (s *MailboxService) UpdateEmailLabels(userID, messageID string, labels []string) (*models.Email, error) {
	email, err := s.getOwned(userID, messageID)
	if err != nil {
		return nil, err
	}
	email.SetLabels(labels)
	if err := s.emails.Update(email); err != nil {
		return nil, err
	}
	return email, nil
}

// GetEmailAttachments returns the attachment descriptors of a message.
func (s *MailboxService) GetEmailAttachments(userID, messageID string) ([]models.Attachment, error) {
	email, err := s.getOwned(userID, messageID)
	if err != nil {
		return nil, err
	}
	return email.Attachments, nil
}

// GetEmailsByFolder lists a folder newest first, unpaginated.
func (s *MailboxService) GetEmailsByFolder(userID, folder string) ([]*models.Email, error) {
	if !models.ValidFolder(folder) {
		return nil, utils.BadRequestError(fmt.Sprintf("invalid folder: %s", folder), nil)
	}
	items, _, err := s.emails.Query(userID, storage.EmailQuery{
		Folder:    folder,
		SortBy:    "receivedAt",
		SortOrder: "desc",
	})
	return items, err
}

// SearchEmails returns all messages matching the term, newest first.
func (s *MailboxService) SearchEmails(userID, term string) ([]*models.Email, error) {
	items, _, err := s.emails.Query(userID, storage.EmailQuery{
		Search:    term,
		SortBy:    "receivedAt",
		SortOrder: "desc",
	})
	return items, err
}

// GetEmailStats computes mailbox statistics, cached briefly per user.
func (s *MailboxService) GetEmailStats(userID string) (*EmailStats, error) {
	if cached, ok := s.stats.Get(userID); ok {
		return cached.(*EmailStats), nil
	}

	user, err := s.users.Get(userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, utils.NotFoundError("User not found", err)
		}
		return nil, err
	}

	emails, err := s.emails.ListAll(userID)
	if err != nil {
		return nil, err
	}

	stats := &EmailStats{StorageLimit: user.EmailQuota}
	for _, e := range emails {
		stats.TotalEmails++
		if !e.IsRead {
			stats.UnreadEmails++
		}
		if e.IsSpam {
			stats.SpamEmails++
		}
		if e.Folder == models.FolderSent {
			stats.SentEmails++
		}
		if e.IsStarred {
			stats.StarredEmails++
		}
		stats.StorageUsed += e.Size()
	}
	if stats.StorageLimit > 0 {
		stats.StorageUsagePercentage = float64(stats.StorageUsed) / float64(stats.StorageLimit) * 100
	}

	s.stats.Set(userID, stats, statsTTL)
	return stats, nil
}

// BulkUpdateEmails applies the patch to each message independently and
// concurrently. Per-item failures are logged and swallowed; the batch
// never aborts and the caller learns only how many items were attempted.
func (s *MailboxService) BulkUpdateEmails(userID string, messageIDs []string, patch UpdatePatch) int {
	var g errgroup.Group
	for _, id := range messageIDs {
		id := id
		g.Go(func() error {
			if _, err := s.UpdateEmail(userID, id, patch); err != nil {
				s.log.Error("bulk update failed for %s: %v", id, err)
			}
			return nil
		})
	}
	g.Wait()
	return len(messageIDs)
}

// BulkDeleteEmails soft-deletes each message independently with the same
// best-effort contract as BulkUpdateEmails.
func (s *MailboxService) BulkDeleteEmails(userID string, messageIDs []string) int {
	var g errgroup.Group
	for _, id := range messageIDs {
		id := id
		g.Go(func() error {
			if err := s.DeleteEmail(userID, id); err != nil {
				s.log.Error("bulk delete failed for %s: %v", id, err)
			}
			return nil
		})
	}
	g.Wait()
	return len(messageIDs)
}

// getOwned fetches a message scoped to its owner; a message owned by
// another user is indistinguishable from an absent one.
func (s *MailboxService) getOwned(userID, messageID string) (*models.Email, error) {
	email, err := s.emails.Get(userID, messageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, utils.NotFoundError("Email not found", err)
		}
		return nil, err
	}
	return email, nil
}

func validateSendRequest(req SendRequest) error {
	if len(parseRecipients(req.To)) == 0 {
		return utils.BadRequestError("at least one recipient is required", nil)
	}
	if strings.TrimSpace(req.Subject) == "" {
		return utils.BadRequestError("subject is required", nil)
	}
	if len(req.Subject) > models.MaxSubjectLength {
		return utils.BadRequestError("subject too long", nil)
	}
	if req.Text == "" && req.HTML == "" {
		return utils.BadRequestError("either text or html body is required", nil)
	}
	return nil
}

// parseRecipients trims entries and drops empties.
func parseRecipients(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}
