package utils

import (
	"fmt"
	"strings"
	"unicode"

	"webmail/models"
)

// SpamKeywords are phrases that each add 0.1 to the spam score when found
// in the subject or body.
var SpamKeywords = []string{
	"free money",
	"lottery winner",
	"urgent action required",
	"click here",
	"limited time offer",
	"act now",
	"exclusive deal",
	"guaranteed income",
}

// SpamResult is the outcome of the spam heuristic.
type SpamResult struct {
	IsSpam  bool
	Score   float64
	Reasons []string
}

// DetectSpam scores a message with a deterministic content/sender
// heuristic. Scoring is additive: each keyword hit adds 0.1, a capital
// letter ratio over 0.3 adds 0.2, a noreply-style sender adds 0.1 and
// more than ten recipients adds 0.2. The final score is capped at 1.0 and
// the message counts as spam at or above the threshold. It runs once at
// send time; received mail is not re-scored here.
func DetectSpam(email *models.Email) SpamResult {
	var score float64
	var reasons []string

	content := strings.ToLower(email.Subject + " " + email.Text + " " + email.HTML)

	for _, keyword := range SpamKeywords {
		if strings.Contains(content, keyword) {
			score += 0.1
			reasons = append(reasons, fmt.Sprintf("contains spam keyword: %s", keyword))
		}
	}

	// Ratio is measured over the raw (pre-lowercase) content.
	raw := email.Subject + " " + email.Text + " " + email.HTML
	if capitalRatio(raw) > 0.3 {
		score += 0.2
		reasons = append(reasons, "excessive capital letters")
	}

	if strings.Contains(email.From, "noreply") || strings.Contains(email.From, "no-reply") {
		score += 0.1
		reasons = append(reasons, "suspicious sender pattern")
	}

	if len(email.To) > 10 {
		score += 0.2
		reasons = append(reasons, "multiple recipients")
	}

	if score > 1 {
		score = 1
	}

	return SpamResult{
		IsSpam:  score >= models.SpamThreshold,
		Score:   score,
		Reasons: reasons,
	}
}

func capitalRatio(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	upper := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(len(s))
}
