package models

import "time"

// Folder is a mail folder name. The set is closed; anything else is a
// validation error at the API boundary.
type Folder string

const (
	FolderInbox   Folder = "inbox"
	FolderSent    Folder = "sent"
	FolderDrafts  Folder = "drafts"
	FolderTrash   Folder = "trash"
	FolderSpam    Folder = "spam"
	FolderArchive Folder = "archive"
)

// Folders lists every valid folder.
var Folders = []Folder{FolderInbox, FolderSent, FolderDrafts, FolderTrash, FolderSpam, FolderArchive}

// ValidFolder reports whether name is one of the known folders.
func ValidFolder(name string) bool {
	for _, f := range Folders {
		if string(f) == name {
			return true
		}
	}
	return false
}

// SpamThreshold is the spam score at or above which a message counts as spam.
const SpamThreshold = 0.7

// MaxSubjectLength bounds the subject line.
const MaxSubjectLength = 500

// Attachment describes a stored attachment. The bytes themselves live in
// the upload store; only the descriptor travels with the message.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Path        string `json:"path"`
	Checksum    string `json:"checksum"`
}

// Email is a stored mail message owned by exactly one user.
//
// Folder is the authoritative classification. IsTrash and IsSpam normally
// track it (MoveToFolder keeps them in sync) but SetSpamScore updates
// IsSpam without touching Folder, so the two can diverge. That divergence
// is inherited behavior, not an accident; callers that need the folder to
// follow must also call MoveToFolder.
type Email struct {
	MessageID   string       `json:"messageId"`
	UserID      string       `json:"userId"`
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Cc          []string     `json:"cc,omitempty"`
	Bcc         []string     `json:"bcc,omitempty"`
	Subject     string       `json:"subject"`
	Text        string       `json:"text,omitempty"`
	HTML        string       `json:"html,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	IsRead    bool `json:"isRead"`
	IsStarred bool `json:"isStarred"`
	IsSpam    bool `json:"isSpam"`
	IsTrash   bool `json:"isTrash"`

	Labels    []string `json:"labels"`
	Folder    Folder   `json:"folder"`
	SpamScore float64  `json:"spamScore"`

	ReceivedAt time.Time  `json:"receivedAt"`
	SentAt     *time.Time `json:"sentAt,omitempty"`

	ThreadID string `json:"threadId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarkRead marks the message read. Nothing else changes.
func (e *Email) MarkRead() {
	e.IsRead = true
}

// MarkUnread marks the message unread.
func (e *Email) MarkUnread() {
	e.IsRead = false
}

// SetStarred sets the star flag. Stars are independent of folder.
func (e *Email) SetStarred(starred bool) {
	e.IsStarred = starred
}

// MoveToFolder moves the message and keeps the derived flags consistent:
// trash forces IsTrash, spam forces IsSpam, and every other folder clears
// both. Moving out of spam or trash therefore silently un-flags the
// message — folder wins.
func (e *Email) MoveToFolder(folder Folder) {
	e.Folder = folder
	switch folder {
	case FolderTrash:
		e.IsTrash = true
	case FolderSpam:
		e.IsSpam = true
	default:
		e.IsTrash = false
		e.IsSpam = false
	}
}

// SetLabels replaces the label set wholesale, dropping duplicates.
// Callers wanting add/remove semantics use AddLabel/RemoveLabel.
func (e *Email) SetLabels(labels []string) {
	e.Labels = nil
	for _, l := range labels {
		e.AddLabel(l)
	}
}

// AddLabel adds a label if not already present.
func (e *Email) AddLabel(label string) {
	for _, l := range e.Labels {
		if l == label {
			return
		}
	}
	e.Labels = append(e.Labels, label)
}

// RemoveLabel removes a label; absent labels are a no-op.
func (e *Email) RemoveLabel(label string) {
	for i, l := range e.Labels {
		if l == label {
			e.Labels = append(e.Labels[:i], e.Labels[i+1:]...)
			return
		}
	}
}

// HasLabel reports whether the message carries the label.
func (e *Email) HasLabel(label string) bool {
	for _, l := range e.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// SetSpamScore clamps score to [0,1], stores it and derives IsSpam from
// the threshold. The folder is deliberately left alone — this is the one
// mutation where IsSpam and Folder can drift apart.
func (e *Email) SetSpamScore(score float64) {
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	e.SpamScore = score
	e.IsSpam = score >= SpamThreshold
}

// InJunk reports whether the authoritative folder is one of the junk
// folders. This is the derivation view of IsSpam/IsTrash; compare it
// against the flags to detect drift introduced by SetSpamScore.
func (e *Email) InJunk() bool {
	return e.Folder == FolderSpam || e.Folder == FolderTrash
}

// HasAttachments reports whether the message carries attachments.
func (e *Email) HasAttachments() bool {
	return len(e.Attachments) > 0
}

// Size is the content-byte accounting used by the quota ledger: text plus
// HTML plus attachment payload bytes. Not a wire size.
func (e *Email) Size() int64 {
	size := int64(len(e.Text)) + int64(len(e.HTML))
	for _, att := range e.Attachments {
		size += att.Size
	}
	return size
}
