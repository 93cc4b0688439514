package utils

import (
	"github.com/microcosm-cc/bluemonday"
)

// MailBodyPolicy sanitizes HTML bodies before they are stored or relayed.
var MailBodyPolicy *bluemonday.Policy

func init() {
	MailBodyPolicy = bluemonday.UGCPolicy()
	MailBodyPolicy.AllowElements("h1", "h2", "h3", "h4", "h5", "h6", "u", "s")
	MailBodyPolicy.AllowElements("table", "thead", "tbody", "tr", "th", "td")
	MailBodyPolicy.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	MailBodyPolicy.AllowAttrs("style").OnElements("span", "div", "p", "td")
	MailBodyPolicy.RequireParseableURLs(true)
	MailBodyPolicy.AllowURLSchemes("http", "https", "mailto")
}

// SanitizeHTML cleans an HTML mail body.
func SanitizeHTML(html string) string {
	return MailBodyPolicy.Sanitize(html)
}
