// Package guard checks redirect targets and neutralises untrusted text
// before it reaches email templates or client navigation.
package guard

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// fragmentPolicy is read-only after init; bluemonday policies are safe for
// concurrent use once built.
var fragmentPolicy = bluemonday.UGCPolicy()

// ValidateRedirectTarget returns target when it is a same-origin relative
// path starting with a single "/", and fallback otherwise. It never fails.
func ValidateRedirectTarget(target, fallback string) string {
	if target == "" || target[0] != '/' {
		return fallback
	}
	if strings.HasPrefix(target, "//") || strings.ContainsAny(target, `\@`) {
		return fallback
	}
	for _, r := range target {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return fallback
		}
	}

	lower := strings.ToLower(target)
	if strings.Contains(lower, "javascript:") || strings.Contains(lower, "data:") {
		return fallback
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return fallback
	}
	return target
}

// EscapeMarkup escapes & < > " ' / for interpolation into HTML. Escaping
// already escaped text escapes it again.
func EscapeMarkup(text string) string {
	return markupEscaper.Replace(text)
}

// SanitizeMarkupFragment strips script blocks, inline event handlers and
// javascript:/data: URLs from an HTML fragment. Best effort only: it is a
// second line of defence, not a guarantee against every XSS vector.
func SanitizeMarkupFragment(html string) string {
	return fragmentPolicy.Sanitize(html)
}
