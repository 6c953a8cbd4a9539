// Package redact scrubs sensitive material from strings before they
// reach logs or error responses. Provider errors in particular tend to
// echo back request URLs and authorization headers; everything that
// flows into a task error or an API error log passes through here.
package redact

import "regexp"

// Redaction placeholders.
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedURLPlaceholder        = "[REDACTED_URL]"
)

var (
	// Connection strings with inline credentials (postgres://user:pw@,
	// redis://:pw@ and friends).
	connStringRegex = regexp.MustCompile(`(?i)(postgres|postgresql|redis|rediss|amqp|mysql)://[^@\s]+@`)

	// Bearer headers and api key assignments.
	bearerRegex = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_\-.~+/=]{8,}`)
	apiKeyRegex = regexp.MustCompile(`(?i)(api[_-]?key|token|secret|authorization)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`)

	// OpenRouter style secret keys.
	skKeyRegex = regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{8,}\b`)

	// Three-part base64url JWT.
	jwtRegex = regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`)

	// Signed or presigned URLs carry grants in their query string.
	signedURLRegex = regexp.MustCompile(`https?://[^\s"]+\?[^\s"]*(?i:sig|signature|token|key)=[^\s"&]+[^\s"]*`)

	replacements = []struct {
		pattern     *regexp.Regexp
		placeholder string
	}{
		// JWTs must be scrubbed before the generic key pattern; the
		// "token: eyJ..." shape matches both and the first rule to run
		// consumes the text.
		{jwtRegex, RedactedJWTPlaceholder},
		{connStringRegex, RedactedCredentialPlaceholder},
		{bearerRegex, RedactedCredentialPlaceholder},
		{apiKeyRegex, RedactedKeyPlaceholder},
		{skKeyRegex, RedactedKeyPlaceholder},
		{signedURLRegex, RedactedURLPlaceholder},
	}
)

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, r := range replacements {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's message.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
