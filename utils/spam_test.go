package utils

import (
	"math"
	"strings"
	"testing"

	"webmail/models"
)

func TestDetectSpamScenario(t *testing.T) {
	// Two keyword hits, shouty subject, noreply sender and a wide
	// recipient list together land exactly on the threshold.
	to := make([]string, 15)
	for i := range to {
		to[i] = "victim@example.com"
	}
	email := &models.Email{
		From:    "noreply@x.com",
		To:      to,
		Subject: "FREE MONEY NOW CLICK HERE",
	}

	got := DetectSpam(email)

	if math.Abs(got.Score-0.7) > 1e-9 {
		t.Errorf("Score = %v, want 0.7", got.Score)
	}
	if !got.IsSpam {
		t.Error("IsSpam = false, want true")
	}
	wantReasons := []string{
		"contains spam keyword: free money",
		"contains spam keyword: click here",
		"excessive capital letters",
		"suspicious sender pattern",
		"multiple recipients",
	}
	if len(got.Reasons) != len(wantReasons) {
		t.Fatalf("Reasons = %v, want %v", got.Reasons, wantReasons)
	}
	for i, want := range wantReasons {
		if got.Reasons[i] != want {
			t.Errorf("Reasons[%d] = %q, want %q", i, got.Reasons[i], want)
		}
	}
}

func TestDetectSpamCleanMessage(t *testing.T) {
	email := &models.Email{
		From:    "alice@example.com",
		To:      []string{"bob@example.com"},
		Subject: "Lunch tomorrow?",
		Text:    "Does noon work for you?",
	}

	got := DetectSpam(email)
	if got.IsSpam {
		t.Errorf("IsSpam = true for clean message, reasons: %v", got.Reasons)
	}
	if got.Score != 0 {
		t.Errorf("Score = %v, want 0", got.Score)
	}
}

func TestDetectSpamScoreCapped(t *testing.T) {
	// Every keyword plus every other factor overruns 1.0; the score
	// must be capped.
	email := &models.Email{
		From:    "no-reply@spam.example",
		To:      make([]string, 20),
		Subject: "FREE MONEY LOTTERY WINNER URGENT ACTION REQUIRED CLICK HERE",
		Text:    strings.ToUpper(strings.Join(SpamKeywords, " ")),
	}
	for i := range email.To {
		email.To[i] = "x@example.com"
	}

	got := DetectSpam(email)
	if got.Score != 1 {
		t.Errorf("Score = %v, want capped at 1", got.Score)
	}
	if !got.IsSpam {
		t.Error("IsSpam = false, want true")
	}
}

func TestDetectSpamKeywordIsCaseInsensitive(t *testing.T) {
	email := &models.Email{
		From:    "alice@example.com",
		To:      []string{"bob@example.com"},
		Subject: "act NOW",
		Text:    "lowercase body so the caps ratio stays small",
	}
	got := DetectSpam(email)
	if math.Abs(got.Score-0.1) > 1e-9 {
		t.Errorf("Score = %v, want 0.1", got.Score)
	}
}
