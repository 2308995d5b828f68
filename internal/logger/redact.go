package logger

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

const masked = "***"

type redactRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Redactor masks credentials in log messages and attribute values
type Redactor struct {
	rules []redactRule
	// keys whose values are always masked, matched as lowercase substrings
	keys []string
}

// DefaultRedactor masks GitHub tokens, authorization headers, URL
// credentials and token query parameters
func DefaultRedactor() *Redactor {
	return &Redactor{
		rules: []redactRule{
			{regexp.MustCompile(`github_pat_[A-Za-z0-9_]{20,}`), "github_pat_" + masked},
			{regexp.MustCompile(`\b(gh[pousr])_[A-Za-z0-9]{20,}`), "${1}_" + masked},
			{regexp.MustCompile(`(?i)\b(authorization:\s*(?:token|bearer|basic)\s+)\S+`), "${1}" + masked},
			{regexp.MustCompile(`(?i)\b(bearer\s+)[A-Za-z0-9._~+/=-]{8,}`), "${1}" + masked},
			{regexp.MustCompile(`(?i)([?&](?:access_token|token|client_secret)=)[^&\s]+`), "${1}" + masked},
			{regexp.MustCompile(`(?i)\b(https?://)[^/\s:@]+:[^/\s@]+@`), "${1}" + masked + "@"},
		},
		keys: []string{"token", "secret", "password", "passwd", "authorization", "credential", "api_key", "apikey"},
	}
}

// String masks every credential found in s
func (r *Redactor) String(s string) string {
	for _, rule := range r.rules {
		s = rule.pattern.ReplaceAllString(s, rule.replacement)
	}
	return s
}

// Attr masks the whole value under a sensitive key and scrubs string,
// error and Stringer values under any other key. Groups are walked.
func (r *Redactor) Attr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch {
	case a.Value.Kind() == slog.KindGroup:
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, member := range group {
			clean[i] = r.Attr(member)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	case r.sensitive(a.Key):
		return slog.String(a.Key, masked)
	case a.Value.Kind() == slog.KindString:
		return slog.String(a.Key, r.String(a.Value.String()))
	case a.Value.Kind() == slog.KindAny:
		switch v := a.Value.Any().(type) {
		case error:
			return slog.String(a.Key, r.String(v.Error()))
		case fmt.Stringer:
			return slog.String(a.Key, r.String(v.String()))
		}
	}
	return a
}

func (r *Redactor) sensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range r.keys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
