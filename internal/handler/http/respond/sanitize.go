package respond

import (
	"regexp"
)

var (
	// key=... in a query string, as sent to the almanac API
	queryKeyPattern = regexp.MustCompile(`([?&](?:key|apikey|api_key)=)[^&\s"':]+`)

	// bare 32 character hex tokens, the shape of a TianAPI key
	hexKeyPattern = regexp.MustCompile(`\b[0-9a-f]{32}\b`)
)

// SanitizeError returns err's message with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error())
}

// SanitizeString masks credentials in msg.
// The query pattern runs first so the key name survives.
func SanitizeString(msg string) string {
	msg = queryKeyPattern.ReplaceAllString(msg, "${1}****")
	msg = hexKeyPattern.ReplaceAllString(msg, "****")
	return msg
}
