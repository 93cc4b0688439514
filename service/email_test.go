package service

import (
	"fmt"
	"strings"
	"testing"

	"webmail/models"
	"webmail/storage"
	"webmail/utils"
)

type fixture struct {
	mailbox *MailboxService
	emails  *storage.EmailStore
	users   *storage.UserStore
	user    *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.InitDB(t.TempDir())
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := storage.NewUserStore(db, 0)
	emails := storage.NewEmailStore(db)

	user := &models.User{Email: "alice@example.com", Username: "alice", FirstName: "Alice", LastName: "Smith"}
	if err := users.Create(user, "password123"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	return &fixture{
		mailbox: NewMailboxService(emails, users, nil),
		emails:  emails,
		users:   users,
		user:    user,
	}
}

func (f *fixture) seed(t *testing.T, messageID string, mutate func(*models.Email)) *models.Email {
	t.Helper()
	e := &models.Email{
		MessageID: messageID,
		UserID:    f.user.ID,
		From:      "someone@example.com",
		To:        []string{f.user.Email},
		Subject:   "seeded",
		Text:      "seeded body",
		Labels:    []string{},
		Folder:    models.FolderInbox,
	}
	if mutate != nil {
		mutate(e)
	}
	if err := f.emails.Create(e); err != nil {
		t.Fatalf("seed %s: %v", messageID, err)
	}
	return e
}

func TestSendEmail(t *testing.T) {
	f := newFixture(t)

	result, err := f.mailbox.SendEmail(f.user.ID, SendRequest{
		To:      []string{"bob@example.com"},
		Subject: "greetings",
		Text:    "hello bob",
	}, nil)
	if err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
	if result.MessageID == "" || result.SentAt.IsZero() {
		t.Fatalf("incomplete result: %+v", result)
	}

	sent, err := f.emails.Get(f.user.ID, result.MessageID)
	if err != nil {
		t.Fatalf("fetch sent message: %v", err)
	}
	if sent.Folder != models.FolderSent {
		t.Errorf("Folder = %q, want sent", sent.Folder)
	}
	if sent.From != f.user.Email {
		t.Errorf("From = %q, want %q", sent.From, f.user.Email)
	}
	if sent.SentAt == nil {
		t.Error("SentAt not set")
	}

	u, _ := f.users.Get(f.user.ID)
	if u.UsedQuota != sent.Size() {
		t.Errorf("UsedQuota = %d, want %d", u.UsedQuota, sent.Size())
	}
}

func TestSendEmailValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		req  SendRequest
	}{
		{name: "no recipients", req: SendRequest{Subject: "s", Text: "b"}},
		{name: "blank recipients", req: SendRequest{To: []string{"  "}, Subject: "s", Text: "b"}},
		{name: "no subject", req: SendRequest{To: []string{"x@example.com"}, Text: "b"}},
		{name: "no body", req: SendRequest{To: []string{"x@example.com"}, Subject: "s"}},
		{
			name: "subject too long",
			req: SendRequest{
				To:      []string{"x@example.com"},
				Subject: strings.Repeat("a", models.MaxSubjectLength+1),
				Text:    "b",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.mailbox.SendEmail(f.user.ID, tc.req, nil); err == nil {
				t.Error("want validation error, got nil")
			}
		})
	}
}

func TestSendEmailQuotaExceededFailsFast(t *testing.T) {
	f := newFixture(t)
	if err := f.users.SetQuota(f.user.ID, 10); err != nil {
		t.Fatalf("SetQuota: %v", err)
	}

	_, err := f.mailbox.SendEmail(f.user.ID, SendRequest{
		To:      []string{"bob@example.com"},
		Subject: "big",
		Text:    strings.Repeat("x", 100),
	}, nil)
	if !utils.IsQuotaExceeded(err) {
		t.Fatalf("err = %v, want quota exceeded", err)
	}

	// Nothing was persisted and the ledger is untouched.
	emails, err := f.emails.ListAll(f.user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(emails) != 0 {
		t.Errorf("persisted %d messages on failed send", len(emails))
	}
	u, _ := f.users.Get(f.user.ID)
	if u.UsedQuota != 0 {
		t.Errorf("UsedQuota = %d, want 0", u.UsedQuota)
	}
}

func TestSendEmailScoresSpam(t *testing.T) {
	f := newFixture(t)

	to := make([]string, 15)
	for i := range to {
		to[i] = fmt.Sprintf("v%d@example.com", i)
	}
	result, err := f.mailbox.SendEmail(f.user.ID, SendRequest{
		To:      to,
		Subject: "FREE MONEY NOW CLICK HERE",
		Text:    "ACT NOW",
	}, nil)
	if err != nil {
		t.Fatalf("SendEmail: %v", err)
	}

	sent, _ := f.emails.Get(f.user.ID, result.MessageID)
	if !sent.IsSpam {
		t.Errorf("IsSpam = false, score = %v", sent.SpamScore)
	}
	// Scoring never reroutes the message; it still lands in sent.
	if sent.Folder != models.FolderSent {
		t.Errorf("Folder = %q, want sent", sent.Folder)
	}
}

func TestGetEmailByIDMarksRead(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "m1", nil)

	got, err := f.mailbox.GetEmailByID(f.user.ID, "m1")
	if err != nil {
		t.Fatalf("GetEmailByID: %v", err)
	}
	if !got.IsRead {
		t.Error("first fetch did not mark read")
	}

	// Second fetch observes the message already read, no further change.
	again, err := f.mailbox.GetEmailByID(f.user.ID, "m1")
	if err != nil {
		t.Fatalf("second GetEmailByID: %v", err)
	}
	if !again.IsRead {
		t.Error("second fetch lost read state")
	}
	if !again.UpdatedAt.Equal(got.UpdatedAt) {
		t.Error("second fetch rewrote the message")
	}
}

func TestGetEmailByIDOwnership(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "m1", nil)

	other := &models.User{Email: "eve@example.com", Username: "eve", FirstName: "E", LastName: "V"}
	if err := f.users.Create(other, "password123"); err != nil {
		t.Fatal(err)
	}

	_, err := f.mailbox.GetEmailByID(other.ID, "m1")
	if !utils.IsNotFound(err) {
		t.Errorf("foreign fetch err = %v, want not found", err)
	}
}

func TestUpdateEmailPatch(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "m1", nil)

	boolPtr := func(b bool) *bool { return &b }
	strPtr := func(s string) *string { return &s }

	got, err := f.mailbox.UpdateEmail(f.user.ID, "m1", UpdatePatch{
		IsRead:    boolPtr(true),
		IsStarred: boolPtr(true),
		Folder:    strPtr("archive"),
		Labels:    []string{"work", "later"},
	})
	if err != nil {
		t.Fatalf("UpdateEmail: %v", err)
	}
	if !got.IsRead || !got.IsStarred {
		t.Errorf("flags not applied: %+v", got)
	}
	if got.Folder != models.FolderArchive {
		t.Errorf("Folder = %q, want archive", got.Folder)
	}
	if len(got.Labels) != 2 {
		t.Errorf("Labels = %v", got.Labels)
	}

	// Invalid folder is rejected before anything is touched.
	if _, err := f.mailbox.UpdateEmail(f.user.ID, "m1", UpdatePatch{Folder: strPtr("outbox")}); err == nil {
		t.Error("invalid folder accepted")
	}

	// Empty patch is a no-op, not an error.
	if _, err := f.mailbox.UpdateEmail(f.user.ID, "m1", UpdatePatch{}); err != nil {
		t.Errorf("empty patch: %v", err)
	}
}

func TestDeleteEmailIsSoft(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "m1", nil)

	if err := f.mailbox.DeleteEmail(f.user.ID, "m1"); err != nil {
		t.Fatalf("DeleteEmail: %v", err)
	}

	got, err := f.emails.Get(f.user.ID, "m1")
	if err != nil {
		t.Fatalf("message gone after soft delete: %v", err)
	}
	if got.Folder != models.FolderTrash || !got.IsTrash {
		t.Errorf("after delete: folder=%q isTrash=%v", got.Folder, got.IsTrash)
	}
}

func TestPermanentDeleteKeepsQuota(t *testing.T) {
	f := newFixture(t)

	result, err := f.mailbox.SendEmail(f.user.ID, SendRequest{
		To:      []string{"bob@example.com"},
		Subject: "bye",
		Text:    "short-lived",
	}, nil)
	if err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
	before, _ := f.users.Get(f.user.ID)

	if err := f.mailbox.PermanentlyDeleteEmail(f.user.ID, result.MessageID); err != nil {
		t.Fatalf("PermanentlyDeleteEmail: %v", err)
	}

	if _, err := f.emails.Get(f.user.ID, result.MessageID); err == nil {
		t.Error("message survived permanent delete")
	}
	// Used quota is not credited back on delete.
	after, _ := f.users.Get(f.user.ID)
	if after.UsedQuota != before.UsedQuota {
		t.Errorf("UsedQuota changed on delete: %d -> %d", before.UsedQuota, after.UsedQuota)
	}

	if err := f.mailbox.PermanentlyDeleteEmail(f.user.ID, "missing"); !utils.IsNotFound(err) {
		t.Errorf("delete missing err = %v, want not found", err)
	}
}

func TestMarkAsSpamFixedScore(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "m1", nil)

	got, err := f.mailbox.MarkAsSpam(f.user.ID, "m1", true)
	if err != nil {
		t.Fatalf("MarkAsSpam: %v", err)
	}
	if got.SpamScore != 0.8 || !got.IsSpam {
		t.Errorf("spam: score=%v isSpam=%v, want 0.8/true", got.SpamScore, got.IsSpam)
	}
	// The folder does not follow the flag.
	if got.Folder != models.FolderInbox {
		t.Errorf("Folder = %q, want inbox", got.Folder)
	}

	got, err = f.mailbox.MarkAsSpam(f.user.ID, "m1", false)
	if err != nil {
		t.Fatalf("MarkAsSpam clear: %v", err)
	}
	if got.SpamScore != 0 || got.IsSpam {
		t.Errorf("cleared: score=%v isSpam=%v, want 0/false", got.SpamScore, got.IsSpam)
	}
}

func TestBulkUpdateBestEffort(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "m1", nil)
	f.seed(t, "m3", nil)

	boolPtr := func(b bool) *bool { return &b }

	// m2 does not exist; the batch must not abort because of it and the
	// caller learns only the attempted count.
	attempted := f.mailbox.BulkUpdateEmails(f.user.ID, []string{"m1", "m2", "m3"}, UpdatePatch{IsRead: boolPtr(true)})
	if attempted != 3 {
		t.Errorf("attempted = %d, want 3", attempted)
	}

	for _, id := range []string{"m1", "m3"} {
		got, err := f.emails.Get(f.user.ID, id)
		if err != nil {
			t.Fatalf("Get %s: %v", id, err)
		}
		if !got.IsRead {
			t.Errorf("%s not marked read", id)
		}
	}
}

func TestBulkDeleteBestEffort(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "m1", nil)
	f.seed(t, "m2", nil)

	attempted := f.mailbox.BulkDeleteEmails(f.user.ID, []string{"m1", "poisoned", "m2"})
	if attempted != 3 {
		t.Errorf("attempted = %d, want 3", attempted)
	}

	for _, id := range []string{"m1", "m2"} {
		got, err := f.emails.Get(f.user.ID, id)
		if err != nil {
			t.Fatalf("Get %s: %v", id, err)
		}
		if got.Folder != models.FolderTrash {
			t.Errorf("%s folder = %q, want trash", id, got.Folder)
		}
	}
}

func TestGetEmailsPagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 25; i++ {
		f.seed(t, fmt.Sprintf("m%02d", i), nil)
	}

	result, err := f.mailbox.GetEmails(f.user.ID, storage.EmailQuery{Folder: "inbox", Page: 2, Limit: 20})
	if err != nil {
		t.Fatalf("GetEmails: %v", err)
	}
	if len(result.Items) != 5 {
		t.Errorf("items = %d, want 5", len(result.Items))
	}
	want := models.Pagination{Page: 2, Limit: 20, Total: 25, TotalPages: 2}
	if result.Pagination != want {
		t.Errorf("pagination = %+v, want %+v", result.Pagination, want)
	}
}

func TestGetEmailsLimitCap(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "m1", nil)

	result, err := f.mailbox.GetEmails(f.user.ID, storage.EmailQuery{Limit: 500})
	if err != nil {
		t.Fatalf("GetEmails: %v", err)
	}
	if result.Pagination.Limit != 100 {
		t.Errorf("limit = %d, want capped at 100", result.Pagination.Limit)
	}
	if result.Pagination.Page != 1 {
		t.Errorf("page = %d, want default 1", result.Pagination.Page)
	}
}

func TestGetEmailStats(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "m1", func(e *models.Email) { e.IsRead = true; e.IsStarred = true })
	f.seed(t, "m2", func(e *models.Email) { e.IsSpam = true })
	f.seed(t, "m3", func(e *models.Email) { e.Folder = models.FolderSent })

	stats, err := f.mailbox.GetEmailStats(f.user.ID)
	if err != nil {
		t.Fatalf("GetEmailStats: %v", err)
	}
	if stats.TotalEmails != 3 {
		t.Errorf("TotalEmails = %d, want 3", stats.TotalEmails)
	}
	if stats.UnreadEmails != 2 {
		t.Errorf("UnreadEmails = %d, want 2", stats.UnreadEmails)
	}
	if stats.SpamEmails != 1 {
		t.Errorf("SpamEmails = %d, want 1", stats.SpamEmails)
	}
	if stats.SentEmails != 1 {
		t.Errorf("SentEmails = %d, want 1", stats.SentEmails)
	}
	if stats.StarredEmails != 1 {
		t.Errorf("StarredEmails = %d, want 1", stats.StarredEmails)
	}
	if stats.StorageLimit != f.user.EmailQuota {
		t.Errorf("StorageLimit = %d, want %d", stats.StorageLimit, f.user.EmailQuota)
	}
	if stats.StorageUsed == 0 {
		t.Error("StorageUsed = 0")
	}
}

func TestGetEmailsByFolderValidation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.mailbox.GetEmailsByFolder(f.user.ID, "outbox"); err == nil {
		t.Error("invalid folder accepted")
	}
}

func TestSearchEmails(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "m1", func(e *models.Email) { e.Subject = "quarterly report" })
	f.seed(t, "m2", func(e *models.Email) { e.Text = "see the attached REPORT" })
	f.seed(t, "m3", func(e *models.Email) { e.Subject = "picnic" })

	got, err := f.mailbox.SearchEmails(f.user.ID, "report")
	if err != nil {
		t.Fatalf("SearchEmails: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("matches = %d, want 2", len(got))
	}
}
