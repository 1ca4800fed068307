// Package locale decides which content locale the workstation shows.
package locale

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

const (
	Chinese = "cn"
	English = "en"
)

var chineseBase, _ = language.Chinese.Base()

// Supported lists the locales the library ships content for
var Supported = []string{Chinese, English}

// Current returns the configured locale when set, otherwise the locale of the
// environment (LC_ALL, LC_MESSAGES, LANG).
func Current(configured string) string {
	if configured != "" {
		return Normalize(configured)
	}
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(env); v != "" {
			return Normalize(v)
		}
	}
	return English
}

// Normalize maps a language tag or POSIX locale string onto a supported locale.
// Any Chinese variant maps to cn; everything else maps to en.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return English
	}
	if strings.EqualFold(s, Chinese) {
		return Chinese
	}

	// POSIX form: zh_CN.UTF-8@variant
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "_", "-")

	tag, err := language.Parse(s)
	if err != nil {
		return English
	}
	if base, _ := tag.Base(); base == chineseBase {
		return Chinese
	}
	return English
}

// Toggle switches between the two supported locales
func Toggle(current string) string {
	if current == Chinese {
		return English
	}
	return Chinese
}

// IsSupported reports whether content may be keyed by locale
func IsSupported(locale string) bool {
	return locale == Chinese || locale == English
}
