package settings

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var strict = bluemonday.StrictPolicy()

// Text reduces user input to a single line of plain text: markup removed,
// entities decoded, whitespace collapsed.
func Text(s string) string {
	s = html.UnescapeString(strict.Sanitize(s))
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// URL keeps absolute http(s) URLs and drops everything else.
func URL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	}
	return ""
}
